package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/sheets"
)

// SettlementSource computes a month's household settlement.
type SettlementSource interface {
	HouseholdSettlement(ctx context.Context, month core.Month) (core.HouseholdSettlement, error)
}

// EventConsumer delivers ledger events until ctx is done.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// ExportWorker keeps the spreadsheet copy of each month's settlement
// current. Events trigger an export of their month; a periodic pass
// re-exports recent months in case events were lost.
type ExportWorker struct {
	summaries SettlementSource
	exporter  sheets.SettlementExporter
	loc       *time.Location
	// months is how many months, counting back from the current one, the
	// periodic pass re-exports.
	months int
}

func NewExportWorker(summaries SettlementSource, exporter sheets.SettlementExporter, loc *time.Location, months int) *ExportWorker {
	if loc == nil {
		loc = time.UTC
	}
	if months < 1 {
		months = 1
	}
	return &ExportWorker{summaries: summaries, exporter: exporter, loc: loc, months: months}
}

// HandleLedgerEvent re-exports the month named by the event.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	month, err := core.ParseMonth(e.Month)
	if err != nil {
		// Retrying cannot fix a bad month.
		slog.WarnContext(ctx, "Ignoring ledger event with invalid month", "event", e.Type, "month", e.Month)
		return nil
	}
	fields := applog.NewFields().
		WithOperation(applog.OpExport).
		WithLedger(string(month), e.Person, e.BatchID)
	slog.InfoContext(ctx, "Processing ledger event", append(fields.ToSlice(), "event", e.Type)...)
	return w.export(ctx, month)
}

// ExportRecent re-exports the current month and the ones before it.
func (w *ExportWorker) ExportRecent(ctx context.Context) error {
	current := core.CurrentMonth(w.loc)
	var errs []error
	for i := 0; i < w.months; i++ {
		if err := w.export(ctx, current.Add(-i)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run consumes events (when consumer is non-nil) and runs the periodic
// pass every interval until ctx is cancelled or one of them fails.
func (w *ExportWorker) Run(ctx context.Context, consumer EventConsumer, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
		})
	} else {
		slog.InfoContext(ctx, "Skipping AMQP message consumption - no consumer available")
	}

	g.Go(func() error {
		if err := w.ExportRecent(ctx); err != nil {
			slog.ErrorContext(ctx, "Startup export failed",
				applog.NewFields().WithOperation(applog.OpStartup).WithError(err).ToSlice()...)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ExportRecent(ctx); err != nil {
					slog.ErrorContext(ctx, "Periodic export failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *ExportWorker) export(ctx context.Context, month core.Month) error {
	s, err := w.summaries.HouseholdSettlement(ctx, month)
	if err != nil {
		return fmt.Errorf("compute settlement %s: %w", month, err)
	}
	if err := w.exporter.ExportSettlement(ctx, s); err != nil {
		return fmt.Errorf("export settlement %s: %w", month, err)
	}
	slog.InfoContext(ctx, "Settlement exported",
		"month", month,
		"total", s.Total.StringFixed(2),
		"settled", s.Settled())
	return nil
}
