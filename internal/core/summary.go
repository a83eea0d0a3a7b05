package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tolerance is the smallest surplus that produces a settlement.
var Tolerance = decimal.New(1, -2)

type (
	CategoryTotal struct {
		Category string
		Total    decimal.Decimal
	}

	// HouseholdSettlement is the month's shared-cost balance between both
	// people. Debtor and Creditor are empty when nobody owes anything.
	HouseholdSettlement struct {
		Month      Month
		Total      decimal.Decimal
		Paid       map[Person]decimal.Decimal
		Expected   map[Person]decimal.Decimal
		ByCategory []CategoryTotal
		Debtor     Person
		Creditor   Person
		Amount     decimal.Decimal
	}

	IndividualSummary struct {
		Month                Month
		Person               Person
		Income               decimal.Decimal
		HouseholdShare       decimal.Decimal
		Personal             decimal.Decimal
		Receivable           decimal.Decimal
		Payable              decimal.Decimal
		EffectiveExpenses    decimal.Decimal
		BalanceAfterPayments decimal.Decimal
		Invested             decimal.Decimal
		AccountBalance       decimal.Decimal
		InvestedPercentage   decimal.Decimal
		HouseholdByCategory  []CategoryTotal
		PersonalByCategory   []CategoryTotal
	}

	// Bucket is where a record lands in a person's individual summary.
	Bucket string

	// SummaryRule classifies a record from one person's point of view.
	SummaryRule struct {
		Bucket  Bucket
		Matches func(t Transaction, me Person) bool
	}
)

const (
	BucketHousehold  Bucket = "household"
	BucketPersonal   Bucket = "personal"
	BucketReceivable Bucket = "receivable"
	BucketPayable    Bucket = "payable"
)

// SummaryRules is evaluated in order; the first matching rule wins and
// records matching none are left out of the summary.
var SummaryRules = []SummaryRule{
	{
		Bucket: BucketHousehold,
		Matches: func(t Transaction, _ Person) bool {
			return t.Owner == OwnerHousehold && t.Split.IsHousehold()
		},
	},
	{
		Bucket: BucketPersonal,
		Matches: func(t Transaction, me Person) bool {
			return t.Owner == OwnerOf(me) && t.Uploader == me
		},
	},
	{
		Bucket: BucketReceivable,
		Matches: func(t Transaction, me Person) bool {
			return t.Uploader == me && t.Owner == OwnerOf(me.Other())
		},
	},
	{
		Bucket: BucketPayable,
		Matches: func(t Transaction, me Person) bool {
			return t.Uploader == me.Other() && t.Owner == OwnerOf(me)
		},
	},
}

// Classify returns the bucket of t for person me.
func Classify(t Transaction, me Person) (Bucket, bool) {
	for _, r := range SummaryRules {
		if r.Matches(t, me) {
			return r.Bucket, true
		}
	}
	return "", false
}

// Settled reports whether neither person owes the other.
func (s HouseholdSettlement) Settled() bool {
	return s.Debtor == ""
}

// ComputeHouseholdSettlement balances the household-owned records of a
// month. Records outside the household split are ignored.
func ComputeHouseholdSettlement(month Month, records []Transaction, shares Shares) HouseholdSettlement {
	s := HouseholdSettlement{
		Month:    month,
		Total:    decimal.Zero,
		Paid:     map[Person]decimal.Decimal{},
		Expected: map[Person]decimal.Decimal{},
		Amount:   decimal.Zero,
	}
	for _, p := range People() {
		s.Paid[p] = decimal.Zero
		s.Expected[p] = decimal.Zero
	}

	byCategory := map[string]decimal.Decimal{}
	for _, t := range records {
		if t.Owner != OwnerHousehold || !t.Split.IsHousehold() || !t.PayerReal.IsMember() {
			continue
		}
		signed := t.Signed()
		s.Total = s.Total.Add(signed)
		s.Paid[t.PayerReal] = s.Paid[t.PayerReal].Add(signed)
		for _, p := range People() {
			s.Expected[p] = s.Expected[p].Add(signed.Mul(shares.Share(t.Split, p)))
		}
		byCategory[t.Category] = byCategory[t.Category].Add(signed)
	}
	s.ByCategory = sortedTotals(byCategory)

	a, b := Lucas, Rafa
	surplusA := s.Paid[a].Sub(s.Expected[a])
	surplusB := s.Paid[b].Sub(s.Expected[b])
	switch {
	case surplusA.GreaterThan(Tolerance):
		s.Debtor, s.Creditor, s.Amount = b, a, surplusA
	case surplusB.GreaterThan(Tolerance):
		s.Debtor, s.Creditor, s.Amount = a, b, surplusB
	}
	return s
}

// ComputeIndividualSummary builds one person's view of the month.
func ComputeIndividualSummary(month Month, me Person, records []Transaction, income Income, investment Investment, shares Shares) IndividualSummary {
	sum := IndividualSummary{
		Month:          month,
		Person:         me,
		Income:         income.Total().Decimal(),
		HouseholdShare: decimal.Zero,
		Personal:       decimal.Zero,
		Receivable:     decimal.Zero,
		Payable:        decimal.Zero,
		Invested:       investment.Amount.Decimal(),
	}

	household := map[string]decimal.Decimal{}
	personal := map[string]decimal.Decimal{}
	for _, t := range records {
		bucket, ok := Classify(t, me)
		if !ok {
			continue
		}
		signed := t.Signed()
		switch bucket {
		case BucketHousehold:
			part := signed.Mul(shares.Share(t.Split, me))
			sum.HouseholdShare = sum.HouseholdShare.Add(part)
			household[t.Category] = household[t.Category].Add(part)
		case BucketPersonal:
			sum.Personal = sum.Personal.Add(signed)
			personal[t.Category] = personal[t.Category].Add(signed)
		case BucketReceivable:
			sum.Receivable = sum.Receivable.Add(signed)
		case BucketPayable:
			sum.Payable = sum.Payable.Add(signed)
		}
	}

	sum.HouseholdByCategory = sortedTotals(household)
	sum.PersonalByCategory = sortedTotals(personal)
	sum.EffectiveExpenses = sum.HouseholdShare.Add(sum.Personal).Add(sum.Payable)
	sum.BalanceAfterPayments = sum.Income.Sub(sum.EffectiveExpenses)
	sum.AccountBalance = sum.BalanceAfterPayments.Sub(sum.Invested)
	sum.InvestedPercentage = decimal.Zero
	if sum.Income.IsPositive() {
		sum.InvestedPercentage = sum.Invested.Div(sum.Income).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return sum
}

// sortedTotals orders categories by total descending, then by name.
func sortedTotals(m map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryTotal{Category: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
