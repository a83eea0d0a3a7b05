package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Shares maps each household split rule to the fraction borne by each person.
type Shares map[SplitRule]map[Person]decimal.Decimal

// DefaultShares returns the standard split: 60/40 puts 60% on Lucas and
// 40% on Rafa, 50/50 halves the cost.
func DefaultShares() Shares {
	return Shares{
		SplitSixtyForty: {
			Lucas: decimal.RequireFromString("0.6"),
			Rafa:  decimal.RequireFromString("0.4"),
		},
		SplitHalf: {
			Lucas: decimal.RequireFromString("0.5"),
			Rafa:  decimal.RequireFromString("0.5"),
		},
	}
}

// Share returns the fraction of a rule's cost borne by p. Non-household
// rules and unknown people get zero.
func (s Shares) Share(rule SplitRule, p Person) decimal.Decimal {
	if !rule.IsHousehold() {
		return decimal.Zero
	}
	byPerson, ok := s[rule]
	if !ok {
		byPerson = DefaultShares()[rule]
	}
	return byPerson[p]
}

// Validate checks that every household rule is defined and sums to 1.
func (s Shares) Validate() error {
	one := decimal.NewFromInt(1)
	for _, rule := range []SplitRule{SplitSixtyForty, SplitHalf} {
		byPerson, ok := s[rule]
		if !ok {
			return fmt.Errorf("missing shares for %s", rule)
		}
		sum := decimal.Zero
		for _, p := range People() {
			v := byPerson[p]
			if v.IsNegative() {
				return fmt.Errorf("negative share for %s on %s", p, rule)
			}
			sum = sum.Add(v)
		}
		if !sum.Equal(one) {
			return fmt.Errorf("shares for %s sum to %s, want 1", rule, sum)
		}
	}
	return nil
}
