package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"financas/internal/amqp"
	"financas/internal/archive"
	"financas/internal/core"
	"financas/internal/ingest"
	"financas/internal/sheets"
	"financas/internal/sheets/upload"
	"financas/internal/storage"
)

// MaxRepeat bounds how many following months a manual submission may be
// copied into.
const MaxRepeat = 24

var (
	ErrInvalidRepeat   = fmt.Errorf("repeat must be between 0 and %d", MaxRepeat)
	ErrNoEntries       = errors.New("at least one entry is required")
	ErrSheetsDisabled  = errors.New("google sheets import is not configured")
	ErrMissingFilename = errors.New("filename is required")
)

// UploadRequest is a spreadsheet file sent for preview.
type UploadRequest struct {
	Month    core.Month
	Uploader core.Person
	Filename string
	Data     []byte
}

// SheetImportRequest points at a Google Sheets range to import.
type SheetImportRequest struct {
	Month         core.Month
	Uploader      core.Person
	SpreadsheetID string
	Range         string
}

// ManualRequest carries rows typed into the entry form. Repeat copies the
// rows into that many following months, one batch per month.
type ManualRequest struct {
	Month    core.Month
	Uploader core.Person
	Entries  []ingest.ManualEntry
	Repeat   int
}

// PreviewResult reports either the stored preview batches or every row
// error found; a batch is never created when Errors is non-empty.
type PreviewResult struct {
	BatchIDs []string
	Errors   []ingest.RowError
	Records  []core.Transaction
}

func (r PreviewResult) OK() bool {
	return len(r.Errors) == 0
}

// LedgerService runs the ingestion flow and the batch and row lifecycle.
type LedgerService struct {
	store     LedgerStore
	validator *ingest.Validator
	archiver  archive.Archiver
	reader    sheets.RowReader
	publisher EventPublisher
}

// NewLedgerService wires the ledger flow. archiver, reader and publisher
// may be nil.
func NewLedgerService(store LedgerStore, validator *ingest.Validator, archiver archive.Archiver, reader sheets.RowReader, publisher EventPublisher) *LedgerService {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &LedgerService{
		store:     store,
		validator: validator,
		archiver:  archiver,
		reader:    reader,
		publisher: publisher,
	}
}

// PreviewUpload validates an uploaded spreadsheet and stores it as a
// preview batch when every row passes.
func (s *LedgerService) PreviewUpload(ctx context.Context, req UploadRequest) (PreviewResult, error) {
	if err := checkIdentity(req.Month, req.Uploader); err != nil {
		return PreviewResult{}, err
	}
	if req.Filename == "" {
		return PreviewResult{}, ErrMissingFilename
	}

	fingerprint := upload.Fingerprint(req.Data)
	if err := s.guardDuplicate(ctx, req.Month, req.Uploader, fingerprint); err != nil {
		return PreviewResult{}, err
	}

	rows, layout, err := upload.Rows(req.Filename, req.Data)
	if err != nil {
		return PreviewResult{}, boundaryError(ctx, req.Filename, err)
	}

	batch := core.Batch{
		Month:       req.Month,
		Uploader:    req.Uploader,
		Source:      core.SourceSpreadsheet,
		Filename:    filepath.Base(req.Filename),
		Fingerprint: fingerprint,
	}
	res, err := s.preview(ctx, batch, rows, layout)
	if err != nil || !res.OK() {
		return res, err
	}

	s.archive(ctx, batch, req.Filename, req.Data)
	return res, nil
}

// PreviewGoogleSheet imports a sheet range the same way as an uploaded
// file. The fingerprint is taken over the CSV rendering of the cells.
func (s *LedgerService) PreviewGoogleSheet(ctx context.Context, req SheetImportRequest) (PreviewResult, error) {
	if err := checkIdentity(req.Month, req.Uploader); err != nil {
		return PreviewResult{}, err
	}
	if s.reader == nil {
		return PreviewResult{}, ErrSheetsDisabled
	}

	values, err := s.reader.ReadRows(ctx, req.SpreadsheetID, req.Range)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("read sheet: %w", err)
	}
	if len(values) == 0 {
		return PreviewResult{}, ingest.ErrEmptyFile
	}

	rendered, err := renderCSV(values)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("render sheet: %w", err)
	}
	fingerprint := upload.Fingerprint(rendered)
	if err := s.guardDuplicate(ctx, req.Month, req.Uploader, fingerprint); err != nil {
		return PreviewResult{}, err
	}

	rows, layout, err := ingest.RowsFromTable(values[0], values[1:])
	if err != nil {
		return PreviewResult{}, boundaryError(ctx, req.Range, err)
	}

	batch := core.Batch{
		Month:       req.Month,
		Uploader:    req.Uploader,
		Source:      core.SourceSpreadsheet,
		Filename:    req.SpreadsheetID + "!" + req.Range,
		Fingerprint: fingerprint,
	}
	res, err := s.preview(ctx, batch, rows, layout)
	if err != nil || !res.OK() {
		return res, err
	}

	s.archive(ctx, batch, "sheet.csv", rendered)
	return res, nil
}

// SubmitManual validates form rows and stores one preview batch per target
// month. Any locked target month rejects the whole submission.
func (s *LedgerService) SubmitManual(ctx context.Context, req ManualRequest) (PreviewResult, error) {
	if err := checkIdentity(req.Month, req.Uploader); err != nil {
		return PreviewResult{}, err
	}
	if req.Repeat < 0 || req.Repeat > MaxRepeat {
		return PreviewResult{}, ErrInvalidRepeat
	}
	if len(req.Entries) == 0 {
		return PreviewResult{}, ErrNoEntries
	}

	months := make([]core.Month, 0, req.Repeat+1)
	for i := 0; i <= req.Repeat; i++ {
		m := req.Month.Add(i)
		locked, err := s.store.IsLocked(ctx, m, req.Uploader)
		if err != nil {
			return PreviewResult{}, fmt.Errorf("check lock: %w", err)
		}
		if locked {
			return PreviewResult{}, fmt.Errorf("%s: %w", m, core.ErrMonthLocked)
		}
		months = append(months, m)
	}

	rows := ingest.ManualRows(req.Entries)
	checked := s.validator.Validate(rows, ingest.LayoutTemplate, req.Uploader, req.Month)
	if !checked.OK() {
		return PreviewResult{Errors: checked.Errors, Records: checked.Records}, nil
	}

	res := PreviewResult{Records: checked.Records}
	for _, m := range months {
		records := make([]core.Transaction, len(checked.Records))
		for i, t := range checked.Records {
			t.Month = m
			records[i] = t
		}
		id, err := s.store.CreateBatch(ctx, core.Batch{
			Month:    m,
			Uploader: req.Uploader,
			Source:   core.SourceManual,
		}, records)
		if err != nil {
			return res, fmt.Errorf("store manual batch for %s: %w", m, err)
		}
		res.BatchIDs = append(res.BatchIDs, id)
	}

	slog.InfoContext(ctx, "Manual entries stored",
		"month", req.Month,
		"person", req.Uploader,
		"rows", len(rows),
		"months", len(months))
	return res, nil
}

// Promote confirms a preview batch.
func (s *LedgerService) Promote(ctx context.Context, batchID string, requester core.Person) (core.Outcome, error) {
	out, err := s.store.PromoteBatch(ctx, batchID, requester)
	if err != nil || !out.OK {
		return out, err
	}
	b, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return out, err
	}
	publish(ctx, s.publisher, amqp.EventBatchPromoted, b.Month, requester, batchID)
	return out, nil
}

// Delete removes a batch with all of its records.
func (s *LedgerService) Delete(ctx context.Context, batchID string, requester core.Person) (core.Outcome, error) {
	b, err := s.store.GetBatch(ctx, batchID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Denied("batch not found"), nil
	}
	if err != nil {
		return core.Outcome{}, err
	}
	out, err := s.store.DeleteBatch(ctx, batchID, requester)
	if err != nil || !out.OK {
		return out, err
	}
	if b.Status == core.StatusImported {
		publish(ctx, s.publisher, amqp.EventBatchDeleted, b.Month, requester, batchID)
	}
	return out, nil
}

// Batches lists every batch of the month, newest first.
func (s *LedgerService) Batches(ctx context.Context, month core.Month) ([]core.Batch, error) {
	return s.store.ListBatches(ctx, month)
}

// BatchRecords lists the records of one batch.
func (s *LedgerService) BatchRecords(ctx context.Context, batchID string) ([]core.Transaction, error) {
	return s.store.ListBatchRecords(ctx, batchID)
}

// Transactions lists the imported records of the month.
func (s *LedgerService) Transactions(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	return s.store.FetchImported(ctx, month)
}

// UpdateManualRow replaces a manually entered record after validating the
// new values. Only its creator may edit it, and not while their month is
// locked.
func (s *LedgerService) UpdateManualRow(ctx context.Context, id int64, requester core.Person, entry ingest.ManualEntry) (core.Outcome, []ingest.RowError, error) {
	current, out, err := s.editableRow(ctx, id, requester, "edit")
	if err != nil || !out.OK {
		return out, nil, err
	}

	checked := s.validator.Validate(ingest.ManualRows([]ingest.ManualEntry{entry}), ingest.LayoutTemplate, requester, current.Month)
	if !checked.OK() {
		return core.Denied("record has errors"), checked.Errors, nil
	}

	rec := checked.Records[0]
	rec.ID = current.ID
	rec.BatchID = current.BatchID
	if err := s.store.UpdateTransaction(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Denied("record not found"), nil, nil
		}
		return core.Outcome{}, nil, err
	}

	publish(ctx, s.publisher, amqp.EventRowUpdated, current.Month, requester, current.BatchID)
	return core.Allowed("record updated"), nil, nil
}

// DeleteManualRow removes a manually entered record; an emptied batch is
// removed with it.
func (s *LedgerService) DeleteManualRow(ctx context.Context, id int64, requester core.Person) (core.Outcome, error) {
	current, out, err := s.editableRow(ctx, id, requester, "delete")
	if err != nil || !out.OK {
		return out, err
	}

	batchDeleted, err := s.store.DeleteTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Denied("record not found"), nil
	}
	if err != nil {
		return core.Outcome{}, err
	}

	slog.InfoContext(ctx, "Manual record deleted",
		"batch_id", current.BatchID,
		"month", current.Month,
		"batch_deleted", batchDeleted)
	publish(ctx, s.publisher, amqp.EventRowDeleted, current.Month, requester, current.BatchID)
	if batchDeleted {
		return core.Allowed("record deleted; empty batch removed"), nil
	}
	return core.Allowed("record deleted"), nil
}

func (s *LedgerService) editableRow(ctx context.Context, id int64, requester core.Person, verb string) (core.Transaction, core.Outcome, error) {
	t, b, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return t, core.Denied("record not found"), nil
	}
	if err != nil {
		return t, core.Outcome{}, err
	}
	if b.Source != core.SourceManual {
		return t, core.Denied(fmt.Sprintf("only manually entered records can be changed (%s)", verb)), nil
	}
	if t.Uploader != requester {
		return t, core.Denied(fmt.Sprintf("only the person who entered this record can %s it", verb)), nil
	}
	locked, err := s.store.IsLocked(ctx, t.Month, requester)
	if err != nil {
		return t, core.Outcome{}, fmt.Errorf("check lock: %w", err)
	}
	if locked {
		return t, core.Denied(core.ErrMonthLocked.Error()), nil
	}
	return t, core.Allowed(""), nil
}

func (s *LedgerService) guardDuplicate(ctx context.Context, month core.Month, uploader core.Person, fingerprint string) error {
	dup, err := s.store.IsDuplicate(ctx, month, uploader, fingerprint)
	if err != nil {
		return err
	}
	if dup {
		slog.InfoContext(ctx, "Duplicate upload rejected", "month", month, "person", uploader)
		return ingest.ErrDuplicateUpload
	}
	return nil
}

func (s *LedgerService) preview(ctx context.Context, batch core.Batch, rows []ingest.Row, layout ingest.Layout) (PreviewResult, error) {
	checked := s.validator.Validate(rows, layout, batch.Uploader, batch.Month)
	if !checked.OK() {
		slog.InfoContext(ctx, "Upload rejected by validation",
			"month", batch.Month,
			"person", batch.Uploader,
			"rows", len(rows),
			"errors", len(checked.Errors))
		return PreviewResult{Errors: checked.Errors, Records: checked.Records}, nil
	}

	id, err := s.store.CreateBatch(ctx, batch, checked.Records)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("store preview batch: %w", err)
	}
	return PreviewResult{BatchIDs: []string{id}, Records: checked.Records}, nil
}

// archive keeps the raw bytes; failures never fail the upload.
func (s *LedgerService) archive(ctx context.Context, batch core.Batch, filename string, data []byte) {
	object := archive.ObjectName(string(batch.Month), string(batch.Uploader), batch.Fingerprint, filename)
	if _, err := s.archiver.Archive(ctx, object, data); err != nil {
		slog.WarnContext(ctx, "Failed to archive upload", "object", object, "error", err)
	}
}

// boundaryError keeps schema problems visible and hides parser internals.
func boundaryError(ctx context.Context, source string, err error) error {
	switch {
	case errors.Is(err, ingest.ErrMissingColumns),
		errors.Is(err, ingest.ErrUnsupportedFile),
		errors.Is(err, ingest.ErrEmptyFile):
		return err
	}
	slog.WarnContext(ctx, "Failed to parse upload", "source", source, "error", err)
	return ingest.ErrUnreadable
}

func checkIdentity(month core.Month, person core.Person) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if !person.IsMember() {
		return fmt.Errorf("%w: %q", core.ErrInvalidPerson, person)
	}
	return nil
}

func renderCSV(values [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
