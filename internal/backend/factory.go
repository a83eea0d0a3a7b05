package backend

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/storage"
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

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store *storage.Repository
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		store, err = storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	events, err := f.connectEvents(ctx, config)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &BackendResult{
		Store:   store,
		Events:  events,
		Cleanup: closeAll(store, events),
	}, nil
}

// connectEvents opens the AMQP client. Without RequireEvents a failure is
// logged and the backend runs without events.
func (f *DefaultFactory) connectEvents(ctx context.Context, config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP disabled - ledger events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		if config.RequireEvents {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}
