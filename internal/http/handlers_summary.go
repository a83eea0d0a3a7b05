package http

import (
	"context"
	"net/http"

	"financas/internal/core"
	applog "financas/internal/log"
)

// ensureRecurring stamps the month's fixed charges before a view is built.
// A failure is logged and the view is served from what is stored.
func (s *Server) ensureRecurring(ctx context.Context, month core.Month) {
	if s.deps.Recurring == nil {
		return
	}
	if _, err := s.deps.Recurring.EnsureRecurring(ctx, month); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Fixed charges not ensured", "month", month, applog.FieldError, err)
	}
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	s.ensureRecurring(r.Context(), month)

	st, err := s.deps.Summary.HouseholdSettlement(r.Context(), month)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement(st))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	person, err := personVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	s.ensureRecurring(r.Context(), month)

	sum, err := s.deps.Summary.IndividualSummary(r.Context(), month, person)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary(sum))
}

func (s *Server) handleEnsureRecurring(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	inserted, err := s.deps.Recurring.EnsureRecurring(r.Context(), month)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "inserted": inserted})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	reminders, err := s.deps.Recurring.ReminderStatus(r.Context(), month)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}
