package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a change to the ledger.
type EventType string

const (
	EventBatchPromoted    EventType = "batch.promoted"
	EventBatchDeleted     EventType = "batch.deleted"
	EventRowUpdated       EventType = "row.updated"
	EventRowDeleted       EventType = "row.deleted"
	EventMonthLocked      EventType = "month.locked"
	EventMonthUnlocked    EventType = "month.unlocked"
	EventRecurringEnsured EventType = "recurring.ensured"
)

// LedgerEvent is a lightweight notice that a month's ledger changed. The
// consumer re-reads whatever it needs from the store.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	Month     string    `json:"month"`
	Person    string    `json:"person,omitempty"`
	BatchID   string    `json:"batch_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, month, person, batchID string) *LedgerEvent {
	return &LedgerEvent{
		Type:      typ,
		Month:     month,
		Person:    person,
		BatchID:   batchID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event, rejecting ones without a type or month.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" || e.Month == "" {
		return nil, fmt.Errorf("incomplete ledger event: type=%q month=%q", e.Type, e.Month)
	}
	return &e, nil
}
