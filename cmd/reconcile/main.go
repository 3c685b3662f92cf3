// Command reconcile runs one full reconciliation sweep and exits. Intended to
// be scheduled nightly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"triphub/internal/cache"
	"triphub/internal/config"
	"triphub/internal/database"
	"triphub/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := buildLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	cacheInstance, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer func() { _ = cacheInstance.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collection, err := services.NewServiceCollection(ctx, cfg, db, cacheInstance, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	report, err := collection.Reconciliation.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation sweep aborted: %w", err)
	}

	logger.Info("Reconciliation complete",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)

	if report.Failed > 0 {
		if report.Errors != nil {
			logger.Error("Reconciliation errors", zap.Error(report.Errors))
		}
		return fmt.Errorf("%d of %d users failed to reconcile", report.Failed, report.Total)
	}
	return nil
}

func buildLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
