package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/sitetrack/internal/config"
	"github.com/stwalsh4118/sitetrack/internal/logger"
)

const version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Construction site tracking API",
	// Running the binary without a subcommand serves the API.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

// bootstrap loads the configuration and builds the root logger.
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logger.New(cfg.Server.Env), nil
}
