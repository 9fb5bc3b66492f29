// Package cli implements the dubai-invest command line.
package cli

import (
	"fmt"
	"os"

	"github.com/dubai-invest/dubai-invest/internal/config"
	"github.com/dubai-invest/dubai-invest/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	version    string
	configPath string
	logLevel   string

	cfg    *config.Configuration
	logger *zap.Logger
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfiguration(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := config.InitializeLogger(cfg.Logging, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) sync(cmd *cobra.Command, args []string) {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) openStore() (*storage.Store, error) {
	store, err := storage.Open(a.cfg.Storage.Path, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage %s: %w", a.cfg.Storage.Path, err)
	}
	return store, nil
}

// NewRootCommand creates the root command for the CLI.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	rootCmd := &cobra.Command{
		Use:   "dubai-invest",
		Short: "Dubai real-estate investment simulator and opportunity scorer",
		Long: `dubai-invest projects the returns of a Dubai buy-to-let purchase and scores
districts on yield, capital growth and supply risk.

Examples:
  dubai-invest simulate --purchase-price "1,500,000" --down-payment 375000
  dubai-invest seed
  dubai-invest import data/dubai-2025.json
  dubai-invest score --year 2025 --output-format csv
  dubai-invest serve`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRun: a.sync,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to configuration file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newSimulateCommand(a))
	rootCmd.AddCommand(newImportCommand(a))
	rootCmd.AddCommand(newSeedCommand(a))
	rootCmd.AddCommand(newScoreCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newVersionCommand(a))

	return rootCmd
}

// Execute runs the root command.
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
