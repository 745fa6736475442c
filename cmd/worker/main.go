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

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build the outbox relay and voting closer.
// 3) Poll until SIGINT/SIGTERM.
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
		Use:   "societyhub-worker",
		Short: "Governance notification relay and voting deadline closer",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap.ConfigureLogger(logLevel)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.BuildWorker(configPath)
			if err != nil {
				return fmt.Errorf("build worker: %w", err)
			}
			defer func() { _ = app.Close() }()
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	return cmd
}
