// cmd/server/main.go
// This is the entry point for the padel club API.
// The binary is a small cobra command tree: "serve" (the default) runs the HTTP API,
// "migrate" applies the SQL migrations, "seed" imports a JSON snapshot and "token"
// prints a signed API token for local testing.
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/padelhub/padelhub/internal/config"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	if err := root().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func root() *cobra.Command {
	// Load configuration from environment variables (and optionally a .env file).
	cfg := config.Load()

	root := &cobra.Command{
		Use:   "padelhub",
		Short: "Padel match scheduling and ranking API",
		Args:  cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			if cmd.Flag("debug").Changed {
				logrus.SetLevel(logrus.DebugLevel)
			}
			// Each command checks the keys it needs.
			return nil
		},

		// With no subcommand we serve.
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().Bool("debug", false, "Log at debug level (also logs SQL)")

	root.AddCommand(serveCmd(cfg))
	root.AddCommand(migrateCmd(cfg))
	root.AddCommand(seedCmd(cfg))
	root.AddCommand(tokenCmd(cfg))
	return root
}
