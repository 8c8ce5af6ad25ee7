// @title EPEC pipeline history API
// @version 1.0
// @description Read-only view of recorded chart runs and their figures.
// @BasePath /api/v1
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"epec-pipeline/internal/api"
	"epec-pipeline/internal/config"
	"epec-pipeline/internal/logging"
	"epec-pipeline/internal/store"
	"epec-pipeline/pkg/utils"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

type serverEnv struct {
	config.ServerConfig
	ShutdownTimeout string `env:"EPEC_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, "json", false)
	if err != nil {
		return err
	}
	defer logging.Install(logger)()

	// Init DB
	if err := store.InitDB(cfg.HistoryDB); err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := api.NewRouter(logger)
	logger.Info("serving run history", zap.String("db", cfg.HistoryDB))
	return r.Run(ctx, cfg.Addr, utils.ParseDuration(cfg.ShutdownTimeout, defaultShutdownTimeout))
}
