package backend

import (
	"context"
	"errors"

	"financas/internal/amqp"
	"financas/internal/services"
	"financas/internal/storage"
)

// BackendType names the database behind the ledger.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (t BackendType) IsValid() bool {
	switch t {
	case SQLiteBackend, PostgresBackend:
		return true
	}
	return false
}

func (t BackendType) String() string {
	return string(t)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the opened store and, when AMQP is configured, the
// event client. Cleanup closes both.
type BackendResult struct {
	Store   *storage.Repository
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the event client as a publisher, or nil when events
// are disabled. The nil is untyped so callers can compare against it.
func (r *BackendResult) Publisher() services.EventPublisher {
	if r.Events == nil {
		return nil
	}
	return r.Events
}

// Close runs Cleanup once resources are no longer needed.
func (r *BackendResult) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store, running its migrations, and connects
	// to AMQP when configured.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireEvents makes a failed AMQP connection fatal instead of
	// degrading to a store without events.
	RequireEvents bool
}

func closeAll(store *storage.Repository, events *amqp.Client) CleanupFunc {
	return func() error {
		var errs []error
		if events != nil {
			errs = append(errs, events.Close())
		}
		if store != nil {
			errs = append(errs, store.Close())
		}
		return errors.Join(errs...)
	}
}
