package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/padelhub/padelhub/internal/config"
	"github.com/padelhub/padelhub/internal/database"
	"github.com/padelhub/padelhub/internal/middleware"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/service"
	"github.com/padelhub/padelhub/internal/store"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("%w: DATABASE_URL", config.ErrMissingConfig)
			}
			return database.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL)
		},
	}
}

func seedCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import players, clubs, matches and results from a JSON snapshot",
		Long: "Import a snapshot file (the same layout the memory store writes, including\n" +
			"exports from the old app) into the configured store. Existing match ids are rejected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("file")

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			snap, err := store.DecodeSnapshot(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return service.Import(cmd.Context(), st, snap)
		},
	}
	cmd.Flags().StringP("file", "f", "data.json", "Snapshot file to import")
	return cmd
}

func tokenCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed API token for a player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			player, _ := cmd.Flags().GetInt("player")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			// Only the signing key is needed; no store is opened.
			if cfg.JWTSecret == "" {
				return fmt.Errorf("%w: JWT_SECRET", config.ErrMissingConfig)
			}
			if player <= 0 {
				return fmt.Errorf("--player must be a positive player id")
			}
			r := models.RolePlayer
			if role == string(models.RoleAdmin) {
				r = models.RoleAdmin
			}

			token, err := middleware.IssueToken(cfg.JWTSecret, player, r, ttl)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"player": player, "role": r, "ttl": ttl}).Debug("token issued")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().IntP("player", "p", 0, "Player id the token is for")
	cmd.Flags().StringP("role", "r", string(models.RolePlayer), "Role claim: player or admin")
	cmd.Flags().Duration("ttl", 24*time.Hour, "How long the token is valid")
	return cmd
}
