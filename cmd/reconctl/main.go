package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/recon-engine/internal/config"
	"github.com/danielpatrickdp/recon-engine/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// #region globals
var (
	configPath string
	logLevel   string

	engineConfig config.EngineConfig
	logger       *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "reconctl",
		Short: "Probabilistic reconnaissance and strike decision engine",
		Long: `reconctl serves the decision engine over gRPC, drives scripted
episodes against a seeded world, checks replay fixtures and inspects
stored belief versions.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

// #endregion globals

// #region main
func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML or JSON engine config (RECON_* env vars override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override observability.log_level")

	rootCmd.AddCommand(serveCmd, simulateCmd, replayCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}
	l, err := logging.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return err
	}
	engineConfig = cfg
	logger = l.With(zap.String("cmd", cmd.Name()))
	return nil
}

// #endregion main
