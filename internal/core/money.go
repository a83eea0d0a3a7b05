// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Spreadsheet cells may use the Brazilian
// locale ("1.234,56") or plain decimal notation ("1234.56"); typed form
// amounts are always Brazilian.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a spreadsheet cell into Money.
//
// Blank or unparseable input yields zero so that the caller's "must be
// greater than 0" rule is the only one reporting it. Rounding is half-up
// on the third decimal place.
//
// Examples:
//
//	ParseAmount("1.234,56") -> 123456
//	ParseAmount("1234.56")  -> 123456
//	ParseAmount("1.234.567") -> 123456700
//	ParseAmount("R$ 12,345") -> 1235
//	ParseAmount("abc")       -> 0
func ParseAmount(s string) Money {
	d, ok := ParseLocaleDecimal(s)
	if !ok {
		return Money{}
	}
	return MoneyFromDecimal(d)
}

// ParseBRL converts an amount typed in Brazilian notation into Money. Every
// dot is a thousands separator, so "1.500" is R$ 1.500,00. Invalid input
// yields zero, as with ParseAmount.
func ParseBRL(s string) Money {
	d, ok := ParseBRLDecimal(s)
	if !ok {
		return Money{}
	}
	return MoneyFromDecimal(d)
}

// ParseLocaleDecimal parses a spreadsheet cell. A comma marks the Brazilian
// locale; without one, a single dot is the decimal point and repeated dots
// are thousands separators.
func ParseLocaleDecimal(s string) (decimal.Decimal, bool) {
	s, ok := cleanAmount(s)
	if !ok {
		return decimal.Zero, false
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return toDecimal(s)
}

// ParseBRLDecimal parses s strictly as "1.234,56": dots group thousands and
// the single optional comma is the decimal separator.
func ParseBRLDecimal(s string) (decimal.Decimal, bool) {
	s, ok := cleanAmount(s)
	if !ok || strings.Count(s, ",") > 1 {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	return toDecimal(s)
}

func cleanAmount(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return "", false
	}
	return s, true
}

func toDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal rounds d to cents. Values that do not fit in int64
// cents yield zero, which the amount rules then reject.
func MoneyFromDecimal(d decimal.Decimal) Money {
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}
	}
	return Money{Cents: cents.IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) IsPositive() bool {
	return m.Cents > 0
}

// String formats the amount in Brazilian notation, e.g. "1.234,56".
func (m Money) String() string {
	return FormatBRL(m.Decimal())
}

// FormatBRL formats d with two decimals, dot thousands and comma decimals.
func FormatBRL(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
