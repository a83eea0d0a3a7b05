package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financas/internal/core"
)

const transactionColumns = `t.id, t.batch_id, t.month, t.date, t.description, t.category, t.amount_cents,
	t.direction, t.payer_label, t.payer_real, t.owner, t.split_rule, t.uploader, t.note, t.installment, t.created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		createdAt string
	)
	err := s.Scan(&t.ID, &t.BatchID, &t.Month, &t.Date, &t.Description, &t.Category, &t.Amount.Cents,
		&t.Direction, &t.PayerLabel, &t.PayerReal, &t.Owner, &t.Split, &t.Uploader, &t.Note, &t.Installment, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FetchImported returns every record of the month whose batch is imported.
func (r *Repository) FetchImported(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	out, err := r.queryTransactions(ctx, `SELECT `+transactionColumns+`
		FROM transactions t JOIN imports i ON i.id = t.batch_id
		WHERE t.month = ? AND i.status = ?
		ORDER BY t.id`, month, core.StatusImported)
	if err != nil {
		return nil, fmt.Errorf("fetch imported: %w", err)
	}
	return out, nil
}

// FetchHouseholdSplittable returns the imported household-owned records of
// the month carrying a household split rule.
func (r *Repository) FetchHouseholdSplittable(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	out, err := r.queryTransactions(ctx, `SELECT `+transactionColumns+`
		FROM transactions t JOIN imports i ON i.id = t.batch_id
		WHERE t.month = ? AND i.status = ? AND t.owner = ? AND t.split_rule IN (?, ?)
		ORDER BY t.id`,
		month, core.StatusImported, core.OwnerHousehold, core.SplitSixtyForty, core.SplitHalf)
	if err != nil {
		return nil, fmt.Errorf("fetch household records: %w", err)
	}
	return out, nil
}

// ListBatchRecords returns the records of one batch in insertion order.
func (r *Repository) ListBatchRecords(ctx context.Context, batchID string) ([]core.Transaction, error) {
	out, err := r.queryTransactions(ctx, `SELECT `+transactionColumns+`
		FROM transactions t WHERE t.batch_id = ? ORDER BY t.id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch records: %w", err)
	}
	return out, nil
}

// GetTransaction returns a record together with its batch.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, core.Batch, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+transactionColumns+` FROM transactions t WHERE t.id = ?`), id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.Batch{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, core.Batch{}, fmt.Errorf("get transaction: %w", err)
	}
	b, err := r.GetBatch(ctx, t.BatchID)
	if err != nil {
		return core.Transaction{}, core.Batch{}, err
	}
	return t, b, nil
}

// UpdateTransaction rewrites the editable fields of a record. The update
// only applies when the record still belongs to t.Uploader.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`UPDATE transactions SET
		date = ?, description = ?, category = ?, amount_cents = ?, direction = ?,
		payer_label = ?, payer_real = ?, owner = ?, split_rule = ?, note = ?, installment = ?
		WHERE id = ? AND uploader = ?`),
		t.Date, t.Description, t.Category, t.Amount.Cents, t.Direction,
		t.PayerLabel, t.PayerReal, t.Owner, t.Split, t.Note, t.Installment,
		t.ID, t.Uploader)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes one record. When it was the last record of its
// batch the batch goes too; otherwise the batch row count is decremented.
// It reports whether the batch was removed.
func (r *Repository) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	var batchDeleted bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var batchID string
		err := tx.QueryRowContext(ctx, r.rebind(`SELECT batch_id FROM transactions WHERE id = ?`), id).Scan(&batchID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM transactions WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}

		var remaining int
		if err := tx.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM transactions WHERE batch_id = ?`), batchID).
			Scan(&remaining); err != nil {
			return fmt.Errorf("count batch records: %w", err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM imports WHERE id = ?`), batchID); err != nil {
				return fmt.Errorf("delete empty batch: %w", err)
			}
			batchDeleted = true
			return nil
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`UPDATE imports SET row_count = row_count - 1 WHERE id = ?`), batchID); err != nil {
			return fmt.Errorf("decrement row count: %w", err)
		}
		return nil
	})
	return batchDeleted, err
}
