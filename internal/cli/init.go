// Package cli holds the bootstrap steps shared by cmd/budget and
// cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetapp/internal/backend"
	"budgetapp/internal/config"
	applog "budgetapp/internal/log"
)

// SetupLogger builds a logger for component from the LOG_LEVEL and
// LOG_FORMAT values and installs it as the slog default. An unknown level
// falls back to info.
func SetupLogger(component, level, format string) *applog.Logger {
	return SetupLoggerTo(os.Stdout, component, level, format)
}

// SetupLoggerTo is SetupLogger writing to out. The budget CLI logs to stderr
// so command output stays parseable.
func SetupLoggerTo(out io.Writer, component, level, format string) *applog.Logger {
	lvl, err := config.ParseLogLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: component,
		JSON:      format == "json",
		Output:    out,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitBackend opens the repository (and AMQP client, if configured) that cfg
// selects.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", bc.Type, err)
	}
	return res, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on SIGINT or SIGTERM, and a
// channel closed once cleanup has finished or timeout has passed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
