package amqp

import (
	"context"
	"errors"
	"testing"
)

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestLedgerEventRoundTrip(t *testing.T) {
	e := NewLedgerEvent(EventBatchPromoted, "202401", "Lucas", "batch-1")
	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventBatchPromoted || got.Month != "202401" || got.BatchID != "batch-1" || got.Person != "Lucas" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatalf("timestamp should be set")
	}
}

func TestLedgerEventFromJSONRejectsIncomplete(t *testing.T) {
	for _, body := range []string{`{`, `{"type":"batch.deleted"}`, `{"month":"202401"}`} {
		if _, err := LedgerEventFromJSON([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", body)
		}
	}
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	good, _ := NewLedgerEvent(EventMonthLocked, "202402", "Rafa", "").ToJSON()

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var seen *LedgerEvent
		settle(ctx, ack, good, func(_ context.Context, e *LedgerEvent) error {
			seen = e
			return nil
		})
		if !ack.acked || ack.nacked {
			t.Fatalf("expected ack, got %+v", ack)
		}
		if seen == nil || seen.Type != EventMonthLocked {
			t.Fatalf("handler not called with event")
		}
	})

	t.Run("requeue on handler failure", func(t *testing.T) {
		ack := &fakeAck{}
		settle(ctx, ack, good, func(context.Context, *LedgerEvent) error { return errors.New("sheets down") })
		if !ack.nacked || !ack.requeued {
			t.Fatalf("expected requeue, got %+v", ack)
		}
	})

	t.Run("drop undecodable", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		settle(ctx, ack, []byte("garbage"), func(context.Context, *LedgerEvent) error {
			called = true
			return nil
		})
		if called || !ack.nacked || ack.requeued {
			t.Fatalf("expected drop without requeue, got %+v called=%v", ack, called)
		}
	})
}
