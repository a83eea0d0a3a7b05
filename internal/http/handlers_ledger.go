package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"financas/internal/ingest"
	"financas/internal/services"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeFailure(w, r, err)
			return
		}
		writeFailure(w, r, badRequest("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, r, badRequest("missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	res, err := s.deps.Ledger.PreviewUpload(r.Context(), services.UploadRequest{
		Month:    month,
		Uploader: me,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writePreview(w, res)
}

type googleImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
}

func (s *Server) handleGoogleImport(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	var body googleImportRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	if body.Range == "" {
		writeFailure(w, r, badRequest("range is required"))
		return
	}

	res, err := s.deps.Ledger.PreviewGoogleSheet(r.Context(), services.SheetImportRequest{
		Month:         month,
		Uploader:      me,
		SpreadsheetID: body.SpreadsheetID,
		Range:         body.Range,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writePreview(w, res)
}

type manualRequest struct {
	Entries []ingest.ManualEntry `json:"entries"`
	Repeat  int                  `json:"repeat"`
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	var body manualRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}

	res, err := s.deps.Ledger.SubmitManual(r.Context(), services.ManualRequest{
		Month:    month,
		Uploader: me,
		Entries:  body.Entries,
		Repeat:   body.Repeat,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writePreview(w, res)
}

// writePreview answers 201 with the stored batches, or 422 with every row
// error when nothing was stored.
func writePreview(w http.ResponseWriter, res services.PreviewResult) {
	status := http.StatusCreated
	if !res.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, preview(res))
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	list, err := s.deps.Ledger.Batches(r.Context(), month)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches(list))
}

func (s *Server) handleBatchRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Ledger.BatchRecords(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions(records))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	records, err := s.deps.Ledger.Transactions(r.Context(), month)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions(records))
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	out, err := s.deps.Ledger.Promote(r.Context(), mux.Vars(r)["id"], me)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOutcome(w, out)
}

func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	out, err := s.deps.Ledger.Delete(r.Context(), mux.Vars(r)["id"], me)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOutcome(w, out)
}

type rowEditView struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Errors  []ingest.RowError `json:"errors,omitempty"`
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	var entry ingest.ManualEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		writeFailure(w, r, err)
		return
	}

	out, rowErrs, err := s.deps.Ledger.UpdateManualRow(r.Context(), id, me, entry)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	status := http.StatusOK
	switch {
	case len(rowErrs) > 0:
		status = http.StatusUnprocessableEntity
	case !out.OK:
		status = http.StatusConflict
	}
	writeJSON(w, status, rowEditView{OK: out.OK, Message: out.Message, Errors: rowErrs})
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	me, err := requester(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	out, err := s.deps.Ledger.DeleteManualRow(r.Context(), id, me)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOutcome(w, out)
}
