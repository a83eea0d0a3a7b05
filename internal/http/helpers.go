package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"financas/internal/core"
	"financas/internal/ingest"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/storage"
)

const maxJSONBody = 1 << 20

var (
	errForbidden  = errors.New("you can only change your own data")
	errBadRequest = errors.New("bad request")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// requester reads the caller's identity from the X-Person header.
func requester(r *http.Request) (core.Person, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderPerson))
	if raw == "" {
		return "", fmt.Errorf("%w: missing %s header", core.ErrInvalidPerson, HeaderPerson)
	}
	return core.ParsePerson(raw)
}

func monthVar(r *http.Request) (core.Month, error) {
	return core.ParseMonth(mux.Vars(r)["month"])
}

func personVar(r *http.Request) (core.Person, error) {
	return core.ParsePerson(mux.Vars(r)["person"])
}

func idVar(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid record id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

// selfVar returns the path person, requiring it to be the caller.
func selfVar(r *http.Request) (core.Person, error) {
	me, err := requester(r)
	if err != nil {
		return "", err
	}
	p, err := personVar(r)
	if err != nil {
		return "", err
	}
	if p != me {
		return "", errForbidden
	}
	return p, nil
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeOutcome answers 200 for an allowed change and 409 for a denied one.
func writeOutcome(w http.ResponseWriter, out core.Outcome) {
	status := http.StatusOK
	if !out.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, out)
}

// writeFailure maps an error to a status code. Unknown errors are logged
// and reported generically.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", applog.FieldError, err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, ingest.ErrDuplicateUpload):
		return http.StatusConflict
	case errors.Is(err, core.ErrMonthLocked):
		return http.StatusLocked
	case errors.Is(err, ingest.ErrMissingColumns),
		errors.Is(err, ingest.ErrUnsupportedFile),
		errors.Is(err, ingest.ErrEmptyFile),
		errors.Is(err, ingest.ErrUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidPerson),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidRepeat),
		errors.Is(err, services.ErrNoEntries),
		errors.Is(err, services.ErrMissingFilename):
		return http.StatusBadRequest
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
