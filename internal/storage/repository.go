package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour spoken by the repository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var ErrNotFound = errors.New("not found")

// Repository is the ledger store. Every method runs as its own unit of work
// against the connection pool; nothing is cached between calls.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectSQLite, now: time.Now}, nil
}

func NewPostgresRepository(databaseURL string) (*Repository, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectPostgres, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// rebind rewrites '?' placeholders into the dialect's form.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// withTx runs fn in a transaction, committing on success.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const batchColumns = `id, month, uploader, source, filename, fingerprint, status, row_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(s scanner) (core.Batch, error) {
	var (
		b         core.Batch
		createdAt string
	)
	err := s.Scan(&b.ID, &b.Month, &b.Uploader, &b.Source, &b.Filename, &b.Fingerprint, &b.Status, &b.RowCount, &createdAt)
	if err != nil {
		return core.Batch{}, err
	}
	b.CreatedAt = parseTimestamp(createdAt)
	return b, nil
}

// CreateBatch stores a batch and its records atomically and returns the
// batch id. A missing id is generated; row_count is the number of records.
func (r *Repository) CreateBatch(ctx context.Context, b core.Batch, records []core.Transaction) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = core.StatusPreview
	}
	now := r.timestamp()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO imports (`+batchColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			b.ID, b.Month, b.Uploader, b.Source, b.Filename, b.Fingerprint, b.Status, len(records), now)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for i, t := range records {
			t.BatchID = b.ID
			if err := r.insertTransaction(ctx, tx, t, now); err != nil {
				return fmt.Errorf("insert record %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Batch stored",
		"batch_id", b.ID,
		"month", b.Month,
		"uploader", b.Uploader,
		"source", b.Source,
		"status", b.Status,
		"rows", len(records))

	return b.ID, nil
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction, now string) error {
	_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO transactions
		(batch_id, month, date, description, category, amount_cents, direction,
		 payer_label, payer_real, owner, split_rule, uploader, note, installment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.BatchID, t.Month, t.Date, t.Description, t.Category, t.Amount.Cents, t.Direction,
		t.PayerLabel, t.PayerReal, t.Owner, t.Split, t.Uploader, t.Note, t.Installment, now)
	return err
}

func (r *Repository) GetBatch(ctx context.Context, id string) (core.Batch, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+batchColumns+` FROM imports WHERE id = ?`), id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Batch{}, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListBatches returns every batch of the month, newest first.
func (r *Repository) ListBatches(ctx context.Context, month core.Month) ([]core.Batch, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT `+batchColumns+` FROM imports
		WHERE month = ? ORDER BY created_at DESC, id`), month)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []core.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// PromoteBatch flips a preview batch to imported. Only its uploader may do
// it, and only while no other imported batch of the same month and uploader
// carries the same file fingerprint.
func (r *Repository) PromoteBatch(ctx context.Context, id string, requester core.Person) (core.Outcome, error) {
	var outcome core.Outcome
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var b core.Batch
		err := tx.QueryRowContext(ctx, r.rebind(`SELECT month, uploader, fingerprint, status FROM imports WHERE id = ?`), id).
			Scan(&b.Month, &b.Uploader, &b.Fingerprint, &b.Status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			outcome = core.Denied("batch not found")
			return nil
		case err != nil:
			return fmt.Errorf("read batch: %w", err)
		case b.Uploader != requester:
			outcome = core.Denied("only the person who uploaded this batch can confirm it")
			return nil
		case b.Status == core.StatusImported:
			outcome = core.Denied("batch was already imported")
			return nil
		}

		if b.Fingerprint != "" {
			var one int
			err := tx.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM imports
				WHERE month = ? AND uploader = ? AND fingerprint = ? AND status = ? AND id <> ? LIMIT 1`),
				b.Month, b.Uploader, b.Fingerprint, core.StatusImported, id).Scan(&one)
			if err == nil {
				outcome = core.Denied("this file was already imported for this month")
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("check duplicate: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, r.rebind(`UPDATE imports SET status = ? WHERE id = ? AND status = ?`),
			core.StatusImported, id, core.StatusPreview)
		if err != nil {
			return fmt.Errorf("promote batch: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			outcome = core.Denied("batch was already imported")
			return nil
		}
		outcome = core.Allowed("batch imported")
		return nil
	})
	return outcome, err
}

// DeleteBatch removes a batch and its records. Only the uploader may delete
// it, except for system batches which anyone may delete.
func (r *Repository) DeleteBatch(ctx context.Context, id string, requester core.Person) (core.Outcome, error) {
	var outcome core.Outcome
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var uploader core.Person
		err := tx.QueryRowContext(ctx, r.rebind(`SELECT uploader FROM imports WHERE id = ?`), id).Scan(&uploader)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = core.Denied("batch not found")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read batch: %w", err)
		}
		if uploader != core.System && uploader != requester {
			outcome = core.Denied("only the person who uploaded this batch can delete it")
			return nil
		}

		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM transactions WHERE batch_id = ?`), id); err != nil {
			return fmt.Errorf("delete batch records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM imports WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
		outcome = core.Allowed("batch deleted")
		return nil
	})
	return outcome, err
}

// IsDuplicate reports whether an imported batch with the same month,
// uploader and fingerprint already exists.
func (r *Repository) IsDuplicate(ctx context.Context, month core.Month, uploader core.Person, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	var one int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM imports
		WHERE month = ? AND uploader = ? AND fingerprint = ? AND status = ? LIMIT 1`),
		month, uploader, fingerprint, core.StatusImported).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return true, nil
}
