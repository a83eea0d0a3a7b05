package memory

import (
	"context"
	"fmt"
	"sync"

	"financas/internal/core"
	ports "financas/internal/sheets"
)

// Store is an in-process stand-in for a spreadsheet backend. Ranges are
// seeded with Put and exported settlements are kept per month.
type Store struct {
	mu          sync.Mutex
	ranges      map[string][][]string
	settlements map[core.Month]core.HouseholdSettlement
	exports     int
}

var (
	_ ports.RowReader          = (*Store)(nil)
	_ ports.SettlementExporter = (*Store)(nil)
)

func New() *Store {
	return &Store{
		ranges:      map[string][][]string{},
		settlements: map[core.Month]core.HouseholdSettlement{},
	}
}

// Put seeds the values returned for a spreadsheet range.
func (s *Store) Put(spreadsheetID, rng string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[key(spreadsheetID, rng)] = copyRows(rows)
}

func (s *Store) ReadRows(_ context.Context, spreadsheetID, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.ranges[key(spreadsheetID, rng)]
	if !ok {
		return nil, fmt.Errorf("read %s: range not found", rng)
	}
	return copyRows(rows), nil
}

func (s *Store) ExportSettlement(_ context.Context, st core.HouseholdSettlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements[st.Month] = st
	s.exports++
	return nil
}

// Settlement returns the last settlement exported for month.
func (s *Store) Settlement(month core.Month) (core.HouseholdSettlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settlements[month]
	return st, ok
}

// Exports counts every ExportSettlement call.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}

func key(spreadsheetID, rng string) string {
	return spreadsheetID + "|" + rng
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
