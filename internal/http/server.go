package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	applog "financas/internal/log"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
)

// HeaderPerson names the household member making the request.
const HeaderPerson = "X-Person"

const monthPattern = "{month:[0-9]{6}}"

// Deps are the services behind the API. Ready reports whether the
// backing store is reachable.
type Deps struct {
	Ledger    *services.LedgerService
	Summary   *services.SummaryService
	Register  *services.RegisterService
	Recurring *services.RecurringService
	Ready     func(ctx context.Context) error
}

type Server struct {
	http.Server
	deps           Deps
	maxUploadBytes int64
	limiter        *rateLimiter
}

// writesPerMinute bounds uploads, edits and deletes per person.
const writesPerMinute = 60

// NewServer builds the JSON API with request tracing and security headers.
func NewServer(addr string, deps Deps, maxUploadBytes int64, logger *applog.Logger) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:           deps,
		maxUploadBytes: maxUploadBytes,
		limiter:        newRateLimiter(writesPerMinute, time.Minute),
	}
	s.Handler = s.routes(logger)
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(trace.Middleware(logger))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.middleware)

	// Ledger
	api.HandleFunc("/"+monthPattern+"/uploads", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/"+monthPattern+"/imports/google", s.handleGoogleImport).Methods(http.MethodPost)
	api.HandleFunc("/"+monthPattern+"/manual", s.handleManual).Methods(http.MethodPost)
	api.HandleFunc("/"+monthPattern+"/batches", s.handleListBatches).Methods(http.MethodGet)
	api.HandleFunc("/"+monthPattern+"/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/batches/{id}/records", s.handleBatchRecords).Methods(http.MethodGet)
	api.HandleFunc("/batches/{id}/promote", s.handlePromote).Methods(http.MethodPost)
	api.HandleFunc("/batches/{id}", s.handleDeleteBatch).Methods(http.MethodDelete)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateRow).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteRow).Methods(http.MethodDelete)

	// Views
	api.HandleFunc("/"+monthPattern+"/settlement", s.handleSettlement).Methods(http.MethodGet)
	api.HandleFunc("/"+monthPattern+"/summary/{person}", s.handleSummary).Methods(http.MethodGet)

	// Register and locks
	api.HandleFunc("/"+monthPattern+"/income/{person}", s.handleGetIncome).Methods(http.MethodGet)
	api.HandleFunc("/"+monthPattern+"/income/{person}", s.handlePutIncome).Methods(http.MethodPut)
	api.HandleFunc("/"+monthPattern+"/investment/{person}", s.handleGetInvestment).Methods(http.MethodGet)
	api.HandleFunc("/"+monthPattern+"/investment/{person}", s.handlePutInvestment).Methods(http.MethodPut)
	api.HandleFunc("/"+monthPattern+"/lock/{person}", s.handleGetLock).Methods(http.MethodGet)
	api.HandleFunc("/"+monthPattern+"/lock/{person}", s.handlePutLock).Methods(http.MethodPut)

	// Recurring charges
	api.HandleFunc("/"+monthPattern+"/recurring", s.handleEnsureRecurring).Methods(http.MethodPost)
	api.HandleFunc("/"+monthPattern+"/reminders", s.handleReminders).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
