package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financas/internal/core"
)

// GetIncome returns the income of a person for a month; missing rows read
// as zero.
func (r *Repository) GetIncome(ctx context.Context, month core.Month, person core.Person) (core.Income, error) {
	inc := core.Income{Month: month, Person: person}
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT salary1_cents, salary2_cents, extras_cents
		FROM incomes WHERE month = ? AND person = ?`), month, person).
		Scan(&inc.Salary1.Cents, &inc.Salary2.Cents, &inc.Extras.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return inc, nil
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return inc, nil
}

func (r *Repository) UpsertIncome(ctx context.Context, inc core.Income) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO incomes
		(month, person, salary1_cents, salary2_cents, extras_cents, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (month, person) DO UPDATE SET
			salary1_cents = excluded.salary1_cents,
			salary2_cents = excluded.salary2_cents,
			extras_cents = excluded.extras_cents,
			updated_at = excluded.updated_at`),
		inc.Month, inc.Person, inc.Salary1.Cents, inc.Salary2.Cents, inc.Extras.Cents, r.timestamp())
	if err != nil {
		return fmt.Errorf("upsert income: %w", err)
	}
	return nil
}

// GetInvestment returns the amount invested by a person in a month; missing
// rows read as zero.
func (r *Repository) GetInvestment(ctx context.Context, month core.Month, person core.Person) (core.Investment, error) {
	inv := core.Investment{Month: month, Person: person}
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT amount_cents, note
		FROM investments WHERE month = ? AND person = ?`), month, person).
		Scan(&inv.Amount.Cents, &inv.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, nil
	}
	if err != nil {
		return core.Investment{}, fmt.Errorf("get investment: %w", err)
	}
	return inv, nil
}

func (r *Repository) UpsertInvestment(ctx context.Context, inv core.Investment) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO investments
		(month, person, amount_cents, note, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (month, person) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			note = excluded.note,
			updated_at = excluded.updated_at`),
		inv.Month, inv.Person, inv.Amount.Cents, inv.Note, r.timestamp())
	if err != nil {
		return fmt.Errorf("upsert investment: %w", err)
	}
	return nil
}

// IsLocked reports whether the month is locked for the person. Months
// never locked read as unlocked.
func (r *Repository) IsLocked(ctx context.Context, month core.Month, person core.Person) (bool, error) {
	var locked int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT locked FROM month_locks WHERE month = ? AND person = ?`),
		month, person).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read month lock: %w", err)
	}
	return locked != 0, nil
}

func (r *Repository) SetLocked(ctx context.Context, month core.Month, person core.Person, locked bool) error {
	v := 0
	if locked {
		v = 1
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO month_locks (month, person, locked, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (month, person) DO UPDATE SET
			locked = excluded.locked,
			updated_at = excluded.updated_at`),
		month, person, v, r.timestamp())
	if err != nil {
		return fmt.Errorf("set month lock: %w", err)
	}
	return nil
}
