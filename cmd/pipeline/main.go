package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"epec-pipeline/internal/config"
	"epec-pipeline/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	restore func()
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Aggregate EPEC PPP statistics and render chart presets",
	Long: `pipeline loads the EPEC country x sector x year CSV, derives the
aggregate tables and writes a fixed sequence of PNG charts per preset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Encoding, verbose)
		if err != nil {
			return err
		}
		restore = logging.Install(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if restore != nil {
			restore()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file (YAML, optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.AddCommand(renderCmd, chartsCmd, inspectCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if restore != nil {
			restore()
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
