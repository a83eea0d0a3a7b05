package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/core"
)

// RegisterService keeps monthly income, investments and month locks.
type RegisterService struct {
	store     RegisterStore
	publisher EventPublisher
}

func NewRegisterService(store RegisterStore, publisher EventPublisher) *RegisterService {
	return &RegisterService{store: store, publisher: publisher}
}

func (s *RegisterService) Income(ctx context.Context, month core.Month, person core.Person) (core.Income, error) {
	if err := checkIdentity(month, person); err != nil {
		return core.Income{}, err
	}
	return s.store.GetIncome(ctx, month, person)
}

// SetIncome stores the month's income, replacing any previous values.
func (s *RegisterService) SetIncome(ctx context.Context, inc core.Income) error {
	if err := checkIdentity(inc.Month, inc.Person); err != nil {
		return err
	}
	for _, m := range []core.Money{inc.Salary1, inc.Salary2, inc.Extras} {
		if m.Cents < 0 {
			return fmt.Errorf("%w: income cannot be negative", core.ErrInvalidAmount)
		}
	}
	if err := s.store.UpsertIncome(ctx, inc); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Income saved", "month", inc.Month, "person", inc.Person)
	return nil
}

func (s *RegisterService) Investment(ctx context.Context, month core.Month, person core.Person) (core.Investment, error) {
	if err := checkIdentity(month, person); err != nil {
		return core.Investment{}, err
	}
	return s.store.GetInvestment(ctx, month, person)
}

func (s *RegisterService) SetInvestment(ctx context.Context, inv core.Investment) error {
	if err := checkIdentity(inv.Month, inv.Person); err != nil {
		return err
	}
	if inv.Amount.Cents < 0 {
		return fmt.Errorf("%w: investment cannot be negative", core.ErrInvalidAmount)
	}
	if err := s.store.UpsertInvestment(ctx, inv); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Investment saved", "month", inv.Month, "person", inv.Person)
	return nil
}

func (s *RegisterService) IsLocked(ctx context.Context, month core.Month, person core.Person) (bool, error) {
	if err := checkIdentity(month, person); err != nil {
		return false, err
	}
	return s.store.IsLocked(ctx, month, person)
}

// SetLocked closes or reopens a person's month for manual edits. Stored
// records are left untouched.
func (s *RegisterService) SetLocked(ctx context.Context, month core.Month, person core.Person, locked bool) error {
	if err := checkIdentity(month, person); err != nil {
		return err
	}
	if err := s.store.SetLocked(ctx, month, person, locked); err != nil {
		return err
	}
	typ := amqp.EventMonthUnlocked
	if locked {
		typ = amqp.EventMonthLocked
	}
	slog.InfoContext(ctx, "Month lock changed", "month", month, "person", person, "locked", locked)
	publish(ctx, s.publisher, typ, month, person, "")
	return nil
}
