package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/internal/config"
	"github.com/axellelanca/shortlinks/internal/logger"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, create, stats, list, migrate, export, import) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "shortlinks",
	Short: "A URL shortener with click analytics",
	Long: `A URL shortener that creates short codes for long URLs, redirects visitors
and records click analytics (per day, referrer, user agent and a recent-click log).`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Subcommands register themselves from their own init() to avoid import cycles.
	cobra.OnInitialize(initConfig)
}

// initConfig loads the configuration and installs the process logger before any command runs.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if _, err := logger.New(os.Stderr, Cfg.Log.Level, Cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	slog.Debug("configuration ready", "driver", Cfg.Database.Driver, "base_url", Cfg.Server.BaseURL)
}
