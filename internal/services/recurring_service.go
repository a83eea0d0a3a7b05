package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"financas/internal/amqp"
	"financas/internal/config"
	"financas/internal/core"
)

// Reminder tells whether a bill that is not generated automatically has
// shown up in the month.
type Reminder struct {
	Term  string `json:"term"`
	Found bool   `json:"found"`
}

// RecurringService stamps the fixed household charges into a month and
// reports on the reminder terms.
type RecurringService struct {
	store     RecurringStore
	charges   []config.FixedCharge
	reminders []string
	publisher EventPublisher
}

func NewRecurringService(store RecurringStore, charges []config.FixedCharge, reminders []string, publisher EventPublisher) *RecurringService {
	return &RecurringService{
		store:     store,
		charges:   charges,
		reminders: reminders,
		publisher: publisher,
	}
}

// EnsureRecurring inserts the fixed charges missing from month. Running it
// again for the same month inserts nothing.
func (s *RecurringService) EnsureRecurring(ctx context.Context, month core.Month) (int, error) {
	if err := month.Validate(); err != nil {
		return 0, err
	}
	inserted, err := s.store.EnsureFixedCharges(ctx, month, FixedChargeRecords(month, s.charges))
	if err != nil {
		return 0, fmt.Errorf("ensure fixed charges: %w", err)
	}
	if inserted > 0 {
		slog.InfoContext(ctx, "Fixed charges created", "month", month, "rows", inserted)
		publish(ctx, s.publisher, amqp.EventRecurringEnsured, month, core.System, "")
	}
	return inserted, nil
}

// ReminderStatus checks each reminder term against the descriptions of the
// month's imported household records, ignoring case.
func (s *RecurringService) ReminderStatus(ctx context.Context, month core.Month) ([]Reminder, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	records, err := s.store.FetchImported(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	out := make([]Reminder, 0, len(s.reminders))
	for _, term := range s.reminders {
		needle := strings.ToLower(term)
		r := Reminder{Term: term}
		for _, t := range records {
			if t.Owner == core.OwnerHousehold && strings.Contains(strings.ToLower(t.Description), needle) {
				r.Found = true
				break
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// FixedChargeRecords turns configured charges into household records paid
// by their fixed payer, dated the first of the month.
func FixedChargeRecords(month core.Month, charges []config.FixedCharge) []core.Transaction {
	date := ""
	if len(month) == 6 {
		date = fmt.Sprintf("01/%s/%s", month[4:], month[:4])
	}
	out := make([]core.Transaction, 0, len(charges))
	for _, c := range charges {
		out = append(out, core.Transaction{
			Month:       month,
			Date:        date,
			Description: c.Description,
			Category:    c.Category,
			Amount:      c.Amount,
			Direction:   core.Outflow,
			PayerLabel:  core.HouseholdLabel,
			PayerReal:   c.Payer,
			Owner:       core.OwnerHousehold,
			Split:       c.Split,
			Uploader:    core.System,
			Note:        "fixed charge",
		})
	}
	return out
}
