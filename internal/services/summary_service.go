package services

import (
	"context"
	"fmt"

	"financas/internal/core"
)

// SummaryService computes the month views from stored records.
type SummaryService struct {
	store  SummaryStore
	shares core.Shares
}

func NewSummaryService(store SummaryStore, shares core.Shares) *SummaryService {
	if shares == nil {
		shares = core.DefaultShares()
	}
	return &SummaryService{store: store, shares: shares}
}

// HouseholdSettlement balances the month's imported household records.
func (s *SummaryService) HouseholdSettlement(ctx context.Context, month core.Month) (core.HouseholdSettlement, error) {
	if err := month.Validate(); err != nil {
		return core.HouseholdSettlement{}, err
	}
	records, err := s.store.FetchHouseholdSplittable(ctx, month)
	if err != nil {
		return core.HouseholdSettlement{}, fmt.Errorf("fetch household records: %w", err)
	}
	return core.ComputeHouseholdSettlement(month, records, s.shares), nil
}

// IndividualSummary builds person's view of the month.
func (s *SummaryService) IndividualSummary(ctx context.Context, month core.Month, person core.Person) (core.IndividualSummary, error) {
	if err := checkIdentity(month, person); err != nil {
		return core.IndividualSummary{}, err
	}
	records, err := s.store.FetchImported(ctx, month)
	if err != nil {
		return core.IndividualSummary{}, fmt.Errorf("fetch records: %w", err)
	}
	income, err := s.store.GetIncome(ctx, month, person)
	if err != nil {
		return core.IndividualSummary{}, fmt.Errorf("get income: %w", err)
	}
	investment, err := s.store.GetInvestment(ctx, month, person)
	if err != nil {
		return core.IndividualSummary{}, fmt.Errorf("get investment: %w", err)
	}
	return core.ComputeIndividualSummary(month, person, records, income, investment, s.shares), nil
}
