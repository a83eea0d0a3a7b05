package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"financas/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(desc string, cents int64, owner core.Owner, split core.SplitRule, payer, uploader core.Person) core.Transaction {
	return core.Transaction{
		Month:       "202401",
		Date:        "01/01/2024",
		Description: desc,
		Category:    "Mercado",
		Amount:      core.Money{Cents: cents},
		Direction:   core.Outflow,
		PayerLabel:  core.HouseholdLabel,
		PayerReal:   payer,
		Owner:       owner,
		Split:       split,
		Uploader:    uploader,
	}
}

func previewBatch(t *testing.T, repo *Repository, uploader core.Person, fingerprint string, records ...core.Transaction) string {
	t.Helper()
	id, err := repo.CreateBatch(context.Background(), core.Batch{
		Month:       "202401",
		Uploader:    uploader,
		Source:      core.SourceSpreadsheet,
		Filename:    "jan.xlsx",
		Fingerprint: fingerprint,
	}, records)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return id
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b IN (?, ?)"); got != "a = $1 AND b IN ($2, $3)" {
		t.Fatalf("postgres rebind: %s", got)
	}
	lite := &Repository{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind: %s", got)
	}
}

func TestBatchLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id := previewBatch(t, repo, core.Lucas, "abc",
		record("Feira", 10000, core.OwnerHousehold, core.SplitHalf, core.Lucas, core.Lucas),
		record("Cinema", 4000, core.OwnerLucas, core.SplitMine, core.Lucas, core.Lucas),
	)

	b, err := repo.GetBatch(ctx, id)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if b.Status != core.StatusPreview || b.RowCount != 2 || b.Uploader != core.Lucas {
		t.Fatalf("unexpected batch: %+v", b)
	}

	imported, err := repo.FetchImported(ctx, "202401")
	if err != nil || len(imported) != 0 {
		t.Fatalf("preview rows must not be visible: %d %v", len(imported), err)
	}
	if dup, _ := repo.IsDuplicate(ctx, "202401", core.Lucas, "abc"); dup {
		t.Fatalf("preview batch must not count as duplicate")
	}

	out, err := repo.PromoteBatch(ctx, id, core.Rafa)
	if err != nil || out.OK {
		t.Fatalf("promotion by another person must fail: %+v %v", out, err)
	}
	out, err = repo.PromoteBatch(ctx, id, core.Lucas)
	if err != nil || !out.OK {
		t.Fatalf("promotion by uploader must succeed: %+v %v", out, err)
	}
	out, _ = repo.PromoteBatch(ctx, id, core.Lucas)
	if out.OK {
		t.Fatalf("second promotion must fail")
	}
	out, _ = repo.PromoteBatch(ctx, "missing", core.Lucas)
	if out.OK || out.Message != "batch not found" {
		t.Fatalf("missing batch: %+v", out)
	}

	if dup, _ := repo.IsDuplicate(ctx, "202401", core.Lucas, "abc"); !dup {
		t.Fatalf("imported batch must be a duplicate")
	}
	if dup, _ := repo.IsDuplicate(ctx, "202401", core.Rafa, "abc"); dup {
		t.Fatalf("duplicates are per uploader")
	}

	imported, _ = repo.FetchImported(ctx, "202401")
	if len(imported) != 2 {
		t.Fatalf("expected 2 imported rows, got %d", len(imported))
	}
	household, _ := repo.FetchHouseholdSplittable(ctx, "202401")
	if len(household) != 1 || household[0].Description != "Feira" {
		t.Fatalf("unexpected household rows: %+v", household)
	}
	if household[0].Amount.Cents != 10000 || household[0].Split != core.SplitHalf {
		t.Fatalf("round trip mismatch: %+v", household[0])
	}

	out, _ = repo.DeleteBatch(ctx, id, core.Rafa)
	if out.OK {
		t.Fatalf("delete by another person must fail")
	}
	out, _ = repo.DeleteBatch(ctx, id, core.Lucas)
	if !out.OK {
		t.Fatalf("delete by uploader must succeed: %+v", out)
	}
	if _, err := repo.GetBatch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("batch should be gone, got %v", err)
	}
	if recs, _ := repo.ListBatchRecords(ctx, id); len(recs) != 0 {
		t.Fatalf("records should be gone")
	}
}

func TestPromoteRejectsSecondImportOfSameFile(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := previewBatch(t, repo, core.Lucas, "same", record("Feira", 10000, core.OwnerHousehold, core.SplitHalf, core.Lucas, core.Lucas))
	second := previewBatch(t, repo, core.Lucas, "same", record("Feira", 10000, core.OwnerHousehold, core.SplitHalf, core.Lucas, core.Lucas))
	other := previewBatch(t, repo, core.Rafa, "same", record("Feira", 10000, core.OwnerHousehold, core.SplitHalf, core.Rafa, core.Rafa))

	if out, err := repo.PromoteBatch(ctx, first, core.Lucas); err != nil || !out.OK {
		t.Fatalf("first promotion: %+v %v", out, err)
	}
	out, err := repo.PromoteBatch(ctx, second, core.Lucas)
	if err != nil {
		t.Fatalf("second promotion: %v", err)
	}
	if out.OK || out.Message != "this file was already imported for this month" {
		t.Fatalf("second promotion of the same file must be denied: %+v", out)
	}
	if b, _ := repo.GetBatch(ctx, second); b.Status != core.StatusPreview {
		t.Fatalf("denied batch must stay in preview, got %s", b.Status)
	}
	if out, err := repo.PromoteBatch(ctx, other, core.Rafa); err != nil || !out.OK {
		t.Fatalf("same file from another uploader: %+v %v", out, err)
	}

	imported, _ := repo.FetchImported(ctx, "202401")
	if len(imported) != 2 {
		t.Fatalf("expected one copy per uploader, got %d rows", len(imported))
	}
}

func TestSystemBatchDeletableByAnyone(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.EnsureFixedCharges(ctx, "202401", []core.Transaction{
		record("Aluguel", 320000, core.OwnerHousehold, core.SplitSixtyForty, core.Lucas, core.System),
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	batches, _ := repo.ListBatches(ctx, "202401")
	if len(batches) != 1 || batches[0].Uploader != core.System {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	out, err := repo.DeleteBatch(ctx, batches[0].ID, core.Rafa)
	if err != nil || !out.OK {
		t.Fatalf("system batch should be deletable: %+v %v", out, err)
	}
}

func TestEnsureFixedChargesIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	charges := []core.Transaction{
		record("Aluguel", 320000, core.OwnerHousehold, core.SplitSixtyForty, core.Lucas, core.System),
		record("Internet", 12000, core.OwnerHousehold, core.SplitHalf, core.Rafa, core.System),
	}

	n, err := repo.EnsureFixedCharges(ctx, "202401", charges)
	if err != nil || n != 2 {
		t.Fatalf("first run: n=%d err=%v", n, err)
	}
	n, err = repo.EnsureFixedCharges(ctx, "202401", charges)
	if err != nil || n != 0 {
		t.Fatalf("second run: n=%d err=%v", n, err)
	}

	more := append(charges, record("Estacionamento", 25000, core.OwnerHousehold, core.SplitHalf, core.Rafa, core.System))
	n, _ = repo.EnsureFixedCharges(ctx, "202401", more)
	if n != 1 {
		t.Fatalf("only the new charge should be added, got %d", n)
	}

	batches, _ := repo.ListBatches(ctx, "202401")
	if len(batches) != 1 || batches[0].RowCount != 3 || batches[0].Status != core.StatusImported {
		t.Fatalf("unexpected fixed batch: %+v", batches)
	}
	imported, _ := repo.FetchImported(ctx, "202401")
	if len(imported) != 3 {
		t.Fatalf("fixed charges should be imported, got %d", len(imported))
	}
}

func TestDeleteTransactionCollectsEmptyBatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id := previewBatch(t, repo, core.Rafa, "",
		record("A", 100, core.OwnerRafa, core.SplitMine, core.Rafa, core.Rafa),
		record("B", 200, core.OwnerRafa, core.SplitMine, core.Rafa, core.Rafa),
	)
	recs, _ := repo.ListBatchRecords(ctx, id)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records")
	}

	gone, err := repo.DeleteTransaction(ctx, recs[0].ID)
	if err != nil || gone {
		t.Fatalf("first delete: gone=%v err=%v", gone, err)
	}
	b, _ := repo.GetBatch(ctx, id)
	if b.RowCount != 1 {
		t.Fatalf("row count should drop to 1, got %d", b.RowCount)
	}

	gone, err = repo.DeleteTransaction(ctx, recs[1].ID)
	if err != nil || !gone {
		t.Fatalf("last delete: gone=%v err=%v", gone, err)
	}
	if _, err := repo.GetBatch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty batch should be deleted, got %v", err)
	}
	if _, err := repo.DeleteTransaction(ctx, recs[1].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTransactionGuardedByUploader(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id := previewBatch(t, repo, core.Lucas, "", record("Feira", 1000, core.OwnerHousehold, core.SplitHalf, core.Lucas, core.Lucas))
	recs, _ := repo.ListBatchRecords(ctx, id)

	edit := recs[0]
	edit.Amount = core.Money{Cents: 2500}
	edit.Uploader = core.Rafa
	if err := repo.UpdateTransaction(ctx, edit); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update by another person must not apply, got %v", err)
	}
	edit.Uploader = core.Lucas
	if err := repo.UpdateTransaction(ctx, edit); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, batch, err := repo.GetTransaction(ctx, edit.ID)
	if err != nil || got.Amount.Cents != 2500 || batch.ID != id {
		t.Fatalf("after update: %+v %+v %v", got, batch, err)
	}
}

func TestIncomeInvestmentAndLocks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	inc, err := repo.GetIncome(ctx, "202401", core.Lucas)
	if err != nil || inc.Total().Cents != 0 {
		t.Fatalf("missing income should read zero: %+v %v", inc, err)
	}
	inc.Salary1 = core.Money{Cents: 500000}
	if err := repo.UpsertIncome(ctx, inc); err != nil {
		t.Fatalf("upsert income: %v", err)
	}
	inc.Extras = core.Money{Cents: 1000}
	if err := repo.UpsertIncome(ctx, inc); err != nil {
		t.Fatalf("upsert income again: %v", err)
	}
	got, _ := repo.GetIncome(ctx, "202401", core.Lucas)
	if got.Total().Cents != 501000 {
		t.Fatalf("income total %d", got.Total().Cents)
	}
	if other, _ := repo.GetIncome(ctx, "202401", core.Rafa); other.Total().Cents != 0 {
		t.Fatalf("income is per person")
	}

	if err := repo.UpsertInvestment(ctx, core.Investment{Month: "202401", Person: core.Rafa, Amount: core.Money{Cents: 30000}, Note: "CDB"}); err != nil {
		t.Fatalf("upsert investment: %v", err)
	}
	inv, _ := repo.GetInvestment(ctx, "202401", core.Rafa)
	if inv.Amount.Cents != 30000 || inv.Note != "CDB" {
		t.Fatalf("investment: %+v", inv)
	}

	locked, err := repo.IsLocked(ctx, "202401", core.Lucas)
	if err != nil || locked {
		t.Fatalf("months start unlocked: %v %v", locked, err)
	}
	if err := repo.SetLocked(ctx, "202401", core.Lucas, true); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked, _ := repo.IsLocked(ctx, "202401", core.Lucas); !locked {
		t.Fatalf("expected locked")
	}
	if locked, _ := repo.IsLocked(ctx, "202401", core.Rafa); locked {
		t.Fatalf("locks are per person")
	}
	_ = repo.SetLocked(ctx, "202401", core.Lucas, false)
	if locked, _ := repo.IsLocked(ctx, "202401", core.Lucas); locked {
		t.Fatalf("expected unlocked")
	}
}
