// Package services orchestrates the ledger store, validation, aggregation
// and outbound adapters behind the operations the HTTP API and workers call.
package services

import (
	"context"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/core"
)

// LedgerStore is the persistence the ledger flow needs.
type LedgerStore interface {
	CreateBatch(ctx context.Context, b core.Batch, records []core.Transaction) (string, error)
	GetBatch(ctx context.Context, id string) (core.Batch, error)
	ListBatches(ctx context.Context, month core.Month) ([]core.Batch, error)
	ListBatchRecords(ctx context.Context, batchID string) ([]core.Transaction, error)
	PromoteBatch(ctx context.Context, id string, requester core.Person) (core.Outcome, error)
	DeleteBatch(ctx context.Context, id string, requester core.Person) (core.Outcome, error)
	IsDuplicate(ctx context.Context, month core.Month, uploader core.Person, fingerprint string) (bool, error)
	FetchImported(ctx context.Context, month core.Month) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, core.Batch, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) (bool, error)
	IsLocked(ctx context.Context, month core.Month, person core.Person) (bool, error)
}

// RegisterStore holds per-person monthly income, investment and locks.
type RegisterStore interface {
	GetIncome(ctx context.Context, month core.Month, person core.Person) (core.Income, error)
	UpsertIncome(ctx context.Context, inc core.Income) error
	GetInvestment(ctx context.Context, month core.Month, person core.Person) (core.Investment, error)
	UpsertInvestment(ctx context.Context, inv core.Investment) error
	IsLocked(ctx context.Context, month core.Month, person core.Person) (bool, error)
	SetLocked(ctx context.Context, month core.Month, person core.Person, locked bool) error
}

// SummaryStore is what the aggregation views read.
type SummaryStore interface {
	FetchImported(ctx context.Context, month core.Month) ([]core.Transaction, error)
	FetchHouseholdSplittable(ctx context.Context, month core.Month) ([]core.Transaction, error)
	GetIncome(ctx context.Context, month core.Month, person core.Person) (core.Income, error)
	GetInvestment(ctx context.Context, month core.Month, person core.Person) (core.Investment, error)
}

// RecurringStore stamps fixed charges into a month.
type RecurringStore interface {
	EnsureFixedCharges(ctx context.Context, month core.Month, charges []core.Transaction) (int, error)
	FetchImported(ctx context.Context, month core.Month) ([]core.Transaction, error)
}

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// publish sends an event without failing the caller; the change is already
// committed locally.
func publish(ctx context.Context, p EventPublisher, typ amqp.EventType, month core.Month, person core.Person, batchID string) {
	if p == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event", "event", typ, "month", month)
		return
	}
	if err := p.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(typ, string(month), string(person), batchID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", typ,
			"month", month,
			"batch_id", batchID,
			"error", err)
	}
}
