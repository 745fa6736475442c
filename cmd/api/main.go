package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"societyhub/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM.
func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "societyhub-api",
		Short: "Society redevelopment governance API",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap.ConfigureLogger(logLevel)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.BuildAPI(configPath)
			if err != nil {
				return fmt.Errorf("build api: %w", err)
			}
			defer func() { _ = app.Close() }()
			return app.Run(ctx)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the governance and membership schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap.ConfigureLogger(logLevel)
			if err := bootstrap.Migrate(cmd.Context(), configPath); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return nil
		},
	})

	return cmd
}
