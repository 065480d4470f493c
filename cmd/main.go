package main

import (
	"context"
	"log"

	"github.com/shaibs3/geoadmin/internal/app"
	"github.com/shaibs3/geoadmin/internal/config"
	"github.com/shaibs3/geoadmin/internal/logger"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Initialize logger first (for configuration loading)
	initialLogger, err := logger.NewLogger("production", "info")
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer func() {
		_ = initialLogger.Sync()
	}()

	cfg := config.Load(initialLogger)

	appLogger, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		initialLogger.Fatal("failed to create application logger", zap.Error(err))
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("Build info",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	application, err := app.NewApp(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := application.Run(); err != nil {
		appLogger.Error("application stopped with error", zap.Error(err))
	}
}
