package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	// fiber is a fast HTTP web framework inspired by Express.js
	"github.com/gofiber/fiber/v2"
	// cors lets the web and mobile clients call the API from other origins
	"github.com/gofiber/fiber/v2/middleware/cors"
	// logger prints request details (method, path, status, duration) to stdout
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/padelhub/padelhub/internal/config"
	"github.com/padelhub/padelhub/internal/database"
	"github.com/padelhub/padelhub/internal/handlers"
	"github.com/padelhub/padelhub/internal/hub"
	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/service"
	"github.com/padelhub/padelhub/internal/store"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// openStore builds the backend selected by STORE. For postgres the migrations
// are applied first so the schema always matches the code.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return store.NewPostgres(db), nil
	case config.StoreMemory:
		if cfg.SnapshotPath == "" {
			logrus.Warn("SNAPSHOT_PATH is empty; data will be lost on exit")
			return store.NewMemory(), nil
		}
		return store.OpenMemory(cfg.SnapshotPath)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// The hub fans match events out to the SSE clients; it stops with ctx.
	h := hub.New()
	go h.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName: "Padel Club API",
	})
	app.Use(logger.New())
	// In production, lock this down to the web app's origin.
	app.Use(cors.New())

	handlers.Register(app, handlers.Deps{
		Matches:   service.NewMatches(st, lifecycle.New(), h),
		Players:   service.NewPlayers(st, h),
		Hub:       h,
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Started:   time.Now(),
	})

	errc := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.Port,
			"store": cfg.Store,
			"env":   cfg.Env,
		}).Info("starting server")
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
