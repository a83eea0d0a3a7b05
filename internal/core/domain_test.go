package core

import (
	"errors"
	"testing"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"202401", true},
		{"202412", true},
		{"202413", false},
		{"202400", false},
		{"2024-01", false},
		{"24011", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseMonth(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", tc.in, err)
		}
	}
}

func TestMonthAdd(t *testing.T) {
	cases := []struct {
		m    Month
		n    int
		want Month
	}{
		{"202401", 1, "202402"},
		{"202411", 2, "202501"},
		{"202412", 13, "202601"},
		{"202403", -3, "202312"},
	}
	for _, tc := range cases {
		if got := tc.m.Add(tc.n); got != tc.want {
			t.Fatalf("%s+%d: expected %s, got %s", tc.m, tc.n, tc.want, got)
		}
	}
}

func TestPersonOther(t *testing.T) {
	if Lucas.Other() != Rafa || Rafa.Other() != Lucas {
		t.Fatalf("other person mismatch")
	}
	if System.Other() != "" {
		t.Fatalf("system has no counterpart")
	}
	if p, err := ParsePerson(" rafa "); err != nil || p != Rafa {
		t.Fatalf("expected Rafa, got %q (%v)", p, err)
	}
	if _, err := ParsePerson("system"); !errors.Is(err, ErrInvalidPerson) {
		t.Fatalf("system is not a household member")
	}
}

func TestParseEnums(t *testing.T) {
	if d, err := ParseDirection("saida"); err != nil || d != Outflow {
		t.Fatalf("saida: %q %v", d, err)
	}
	if d, err := ParseDirection("Entrada"); err != nil || d != Inflow {
		t.Fatalf("Entrada: %q %v", d, err)
	}
	if _, err := ParseDirection("sideways"); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}

	splits := map[string]SplitRule{
		"60/40":       SplitSixtyForty,
		"50 / 50":     SplitHalf,
		"Meu":         SplitMine,
		"fully-other": SplitOther,
	}
	for in, want := range splits {
		got, err := ParseSplitRule(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseSplitRule("70/30"); !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit, got %v", err)
	}

	if o, err := ParseOwner("casa"); err != nil || o != OwnerHousehold {
		t.Fatalf("casa: %q %v", o, err)
	}
	if o, _ := ParseOwner("Lucas"); o != OwnerLucas {
		t.Fatalf("expected Lucas owner, got %q", o)
	}
	if _, ok := OwnerHousehold.Person(); ok {
		t.Fatalf("household owner has no person")
	}
}

func TestSignedAndIncomeTotal(t *testing.T) {
	out := Transaction{Amount: Money{Cents: 1000}, Direction: Outflow}
	in := Transaction{Amount: Money{Cents: 1000}, Direction: Inflow}
	if out.Signed().String() != "10" || in.Signed().String() != "-10" {
		t.Fatalf("signed: %s %s", out.Signed(), in.Signed())
	}
	inc := Income{Salary1: Money{Cents: 500000}, Salary2: Money{Cents: 100000}, Extras: Money{Cents: 2550}}
	if inc.Total().Cents != 602550 {
		t.Fatalf("income total %d", inc.Total().Cents)
	}
}

func TestSharesValidate(t *testing.T) {
	if err := DefaultShares().Validate(); err != nil {
		t.Fatalf("default shares invalid: %v", err)
	}
	bad := DefaultShares()
	bad[SplitHalf][Lucas] = bad[SplitHalf][Lucas].Add(bad[SplitHalf][Rafa])
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for shares summing above 1")
	}
	if !DefaultShares().Share(SplitMine, Lucas).IsZero() {
		t.Fatalf("personal rules carry no share")
	}
}
