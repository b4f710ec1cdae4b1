package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetapp/internal/amqp"
	"budgetapp/internal/ledger"
	"budgetapp/internal/ledger/memory"
	"budgetapp/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured repository and, when an AMQP URL is
// set, connects the event client. A broker that cannot be reached is logged
// and skipped; the ledger works without it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo ledger.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteRepository(ctx, config)
	case MemoryBackend:
		repo = f.createMemoryRepository(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Repository: repo}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.AMQP = client
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			errs = append(errs, result.AMQP.Close())
		}
		errs = append(errs, repo.Close())
		return errors.Join(errs...)
	}

	return result, nil
}

func (f *DefaultFactory) createSQLiteRepository(ctx context.Context, config Config) (ledger.Repository, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryRepository(ctx context.Context, config Config) ledger.Repository {
	dir := config.SeedDirectory
	if dir == "" {
		dir = "data"
	}
	store := memory.NewFromFiles(dir)
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_directory", dir)
	return store
}
