package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/sheets/memory"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []core.Month
	err   error
}

func (f *fakeSource) HouseholdSettlement(_ context.Context, month core.Month) (core.HouseholdSettlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, month)
	if f.err != nil {
		return core.HouseholdSettlement{}, f.err
	}
	return core.HouseholdSettlement{Month: month, Debtor: core.Rafa, Creditor: core.Lucas}, nil
}

type fakeConsumer struct {
	events []*amqp.LedgerEvent
	done   chan struct{}
}

func (f *fakeConsumer) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, e := range f.events {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	close(f.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleLedgerEvent(t *testing.T) {
	src := &fakeSource{}
	store := memory.New()
	w := NewExportWorker(src, store, time.UTC, 1)
	ctx := context.Background()

	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventBatchPromoted, "202401", "Lucas", "b1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if s, ok := store.Settlement("202401"); !ok || s.Debtor != core.Rafa {
		t.Fatalf("settlement not exported: %+v", s)
	}

	// A bad month is dropped, not retried.
	if err := w.HandleLedgerEvent(ctx, &amqp.LedgerEvent{Type: amqp.EventRowDeleted, Month: "2024"}); err != nil {
		t.Fatalf("invalid month should be ignored, got %v", err)
	}

	src.err = errors.New("db down")
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventRowUpdated, "202402", "Rafa", "")); err == nil {
		t.Fatal("expected error to trigger a requeue")
	}
}

func TestExportRecent(t *testing.T) {
	src := &fakeSource{}
	store := memory.New()
	w := NewExportWorker(src, store, time.UTC, 3)

	if err := w.ExportRecent(context.Background()); err != nil {
		t.Fatalf("export recent: %v", err)
	}
	current := core.CurrentMonth(time.UTC)
	for _, m := range []core.Month{current, current.Add(-1), current.Add(-2)} {
		if _, ok := store.Settlement(m); !ok {
			t.Fatalf("month %s not exported", m)
		}
	}
	if store.Exports() != 3 {
		t.Fatalf("exports = %d, want 3", store.Exports())
	}
}

func TestRunConsumesAndStops(t *testing.T) {
	src := &fakeSource{}
	store := memory.New()
	w := NewExportWorker(src, store, time.UTC, 1)
	consumer := &fakeConsumer{
		events: []*amqp.LedgerEvent{amqp.NewLedgerEvent(amqp.EventMonthLocked, "202312", "Rafa", "")},
		done:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, consumer, time.Hour) }()

	select {
	case <-consumer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never finished")
	}
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
	if _, ok := store.Settlement("202312"); !ok {
		t.Fatal("event month not exported")
	}
}
