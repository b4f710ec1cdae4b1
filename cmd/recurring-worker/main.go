package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"budgetapp/internal/cli"
	applog "budgetapp/internal/log"
	"budgetapp/internal/services"
	"budgetapp/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting recurring-worker",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldBackend, cfg.DataBackend,
		"interval", cfg.RecurringInterval,
		"catch_up", cfg.CatchUp)

	res, err := cli.InitBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	if res.AMQP == nil {
		logger.Info("AMQP disabled, materialized expenses will not be published")
	}

	materializer := services.NewMaterializer(res.Repository, res.Publisher(), services.MaterializerOptions{
		MaxRetries:       cfg.MaterializeMaxRetries,
		CatchUp:          cfg.CatchUp,
		MaxCatchUpRounds: cfg.MaxCatchUpRounds,
	})
	w := worker.NewRecurringWorker(materializer, worker.RecurringWorkerConfig{
		Interval: cfg.RecurringInterval,
		Clock:    time.Now,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Stopping recurring-worker", applog.FieldOperation, applog.OpShutdown)
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Warn("Worker did not stop cleanly", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	})
	ctx = applog.WithContext(ctx, logger)

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start recurring worker", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
