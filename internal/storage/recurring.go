package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"financas/internal/core"
)

// EnsureFixedCharges makes sure each charge exists in the month's system
// batch, creating the batch (already imported) when needed. Charges are
// matched by description, so running it again inserts nothing. It returns
// the number of records inserted.
func (r *Repository) EnsureFixedCharges(ctx context.Context, month core.Month, charges []core.Transaction) (int, error) {
	inserted := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.timestamp()

		var batchID string
		err := tx.QueryRowContext(ctx, r.rebind(`SELECT id FROM imports
			WHERE month = ? AND source = ? AND uploader = ?
			ORDER BY created_at LIMIT 1`),
			month, core.SourceFixed, core.System).Scan(&batchID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			batchID = uuid.NewString()
			_, err = tx.ExecContext(ctx, r.rebind(`INSERT INTO imports (`+batchColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				batchID, month, core.System, core.SourceFixed, "", "", core.StatusImported, 0, now)
			if err != nil {
				return fmt.Errorf("create fixed batch: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find fixed batch: %w", err)
		}

		existing := map[string]bool{}
		rows, err := tx.QueryContext(ctx, r.rebind(`SELECT description FROM transactions WHERE batch_id = ?`), batchID)
		if err != nil {
			return fmt.Errorf("list fixed records: %w", err)
		}
		for rows.Next() {
			var d string
			if err := rows.Scan(&d); err != nil {
				rows.Close()
				return fmt.Errorf("scan fixed record: %w", err)
			}
			existing[d] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("list fixed records: %w", err)
		}

		for _, c := range charges {
			if existing[c.Description] {
				continue
			}
			c.BatchID = batchID
			c.Month = month
			c.Uploader = core.System
			if err := r.insertTransaction(ctx, tx, c, now); err != nil {
				return fmt.Errorf("insert fixed charge %q: %w", c.Description, err)
			}
			existing[c.Description] = true
			inserted++
		}

		_, err = tx.ExecContext(ctx, r.rebind(`UPDATE imports
			SET row_count = (SELECT COUNT(*) FROM transactions WHERE batch_id = ?)
			WHERE id = ?`), batchID, batchID)
		if err != nil {
			return fmt.Errorf("update fixed row count: %w", err)
		}
		return nil
	})
	return inserted, err
}
