package http

import (
	"net/http"
	"strings"

	"financas/internal/core"
)

type incomeRequest struct {
	Salary1 string `json:"salary_1"`
	Salary2 string `json:"salary_2"`
	Extras  string `json:"extras"`
}

type investmentRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

// parseMoney reads a pt-BR amount; blank means zero.
func parseMoney(field, raw string) (core.Money, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Money{}, nil
	}
	d, ok := core.ParseBRLDecimal(raw)
	if !ok {
		return core.Money{}, badRequest("invalid %s %q", field, raw)
	}
	return core.MoneyFromDecimal(d), nil
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
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
	inc, err := s.deps.Register.Income(r.Context(), month, person)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income(inc))
}

func (s *Server) handlePutIncome(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	person, err := selfVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	var body incomeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}

	inc := core.Income{Month: month, Person: person}
	fields := []struct {
		name string
		raw  string
		dst  *core.Money
	}{
		{"salary_1", body.Salary1, &inc.Salary1},
		{"salary_2", body.Salary2, &inc.Salary2},
		{"extras", body.Extras, &inc.Extras},
	}
	for _, f := range fields {
		m, err := parseMoney(f.name, f.raw)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		*f.dst = m
	}

	if err := s.deps.Register.SetIncome(r.Context(), inc); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income(inc))
}

func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
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
	inv, err := s.deps.Register.Investment(r.Context(), month, person)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, investment(inv))
}

func (s *Server) handlePutInvestment(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	person, err := selfVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	var body investmentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	amt, err := parseMoney("amount", body.Amount)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	inv := core.Investment{Month: month, Person: person, Amount: amt, Note: strings.TrimSpace(body.Note)}
	if err := s.deps.Register.SetInvestment(r.Context(), inv); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, investment(inv))
}

func (s *Server) handleGetLock(w http.ResponseWriter, r *http.Request) {
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
	locked, err := s.deps.Register.IsLocked(r.Context(), month, person)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "person": person, "locked": locked})
}

func (s *Server) handlePutLock(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	person, err := selfVar(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	var body lockRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := s.deps.Register.SetLocked(r.Context(), month, person, body.Locked); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "person": person, "locked": body.Locked})
}
