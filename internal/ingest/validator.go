package ingest

import (
	"errors"
	"fmt"
	"strings"

	"financas/internal/core"
)

// RowError is one validation problem tied to a 1-based row number.
type RowError struct {
	Row     int    `json:"row"`
	Field   Column `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result holds the outcome of validating a set of rows. Records has one
// entry per input row, valid or not, in input order.
type Result struct {
	Errors  []RowError
	Records []core.Transaction
}

// OK reports whether the rows can be imported.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err joins all row errors, or returns nil when there are none.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Validator checks rows against the household rules. It holds no state
// besides the allowed category set.
type Validator struct {
	categories map[string]string
}

// NewValidator builds a validator for the given closed category set.
func NewValidator(categories []string) *Validator {
	v := &Validator{categories: make(map[string]string, len(categories))}
	for _, c := range categories {
		v.categories[foldKey(c)] = c
	}
	return v
}

// Validate normalizes every row and reports every rule violation. It does
// not touch storage.
func (v *Validator) Validate(rows []Row, layout Layout, uploader core.Person, month core.Month) Result {
	res := Result{Records: make([]core.Transaction, 0, len(rows))}
	for _, row := range rows {
		var (
			rec  core.Transaction
			errs []RowError
		)
		if layout == LayoutLegacy {
			rec, errs = v.legacyRow(row, uploader)
		} else {
			rec, errs = v.templateRow(row, uploader)
		}
		rec.Month = month
		rec.Uploader = uploader
		res.Records = append(res.Records, rec)
		res.Errors = append(res.Errors, errs...)
	}
	return res
}

// common fills the fields shared by both layouts.
func (v *Validator) common(row Row, template bool) (core.Transaction, []RowError) {
	var errs []RowError
	fail := func(c Column, format string, args ...any) {
		errs = append(errs, RowError{Row: row.Number, Field: c, Message: fmt.Sprintf(format, args...)})
	}

	parseAmount := core.ParseAmount
	if row.Typed {
		parseAmount = core.ParseBRL
	}

	rec := core.Transaction{
		Date:        row.get(ColDate),
		Description: row.get(ColDescription),
		Category:    row.get(ColCategory),
		Amount:      parseAmount(row.get(ColAmount)),
		Direction:   core.Outflow,
		Note:        row.get(ColNote),
		Installment: row.get(ColInstallment),
	}

	if !rec.Amount.IsPositive() {
		fail(ColAmount, "amount must be greater than 0")
	}
	if raw := row.get(ColDirection); raw != "" {
		d, err := core.ParseDirection(raw)
		if err != nil {
			fail(ColDirection, "direction %q must be %s or %s", raw, core.Outflow, core.Inflow)
		} else {
			rec.Direction = d
		}
	}
	// Legacy sheets leave description and category free-form.
	if template {
		if rec.Description == "" {
			fail(ColDescription, "description is required")
		}
		switch canonical, ok := v.categories[foldKey(rec.Category)]; {
		case rec.Category == "":
			fail(ColCategory, "category is required")
		case !ok:
			fail(ColCategory, "unknown category %q", rec.Category)
		default:
			rec.Category = canonical
		}
	}

	raw := row.get(ColSplit)
	split, err := core.ParseSplitRule(raw)
	if err != nil {
		fail(ColSplit, "split rule %q must be one of %s, %s, %s, %s", raw,
			core.SplitSixtyForty, core.SplitHalf, core.SplitMine, core.SplitOther)
	} else {
		rec.Split = split
	}
	return rec, errs
}

func (v *Validator) templateRow(row Row, uploader core.Person) (core.Transaction, []RowError) {
	rec, errs := v.common(row, true)
	fail := func(c Column, format string, args ...any) {
		errs = append(errs, RowError{Row: row.Number, Field: c, Message: fmt.Sprintf(format, args...)})
	}

	label := row.get(ColPayer)
	switch {
	case strings.EqualFold(label, core.HouseholdLabel):
		rec.PayerLabel = core.HouseholdLabel
		rec.PayerReal = uploader
	default:
		p, err := core.ParsePerson(label)
		if err != nil {
			fail(ColPayer, "payer %q must be %s, %s or %s", label, core.HouseholdLabel, core.Lucas, core.Rafa)
			rec.PayerLabel = label
		} else {
			rec.PayerLabel = string(p)
			rec.PayerReal = p
		}
	}

	switch rec.Split {
	case core.SplitSixtyForty, core.SplitHalf:
		rec.Owner = core.OwnerHousehold
		if rec.PayerLabel != core.HouseholdLabel {
			fail(ColPayer, "split %s requires payer %s", rec.Split, core.HouseholdLabel)
		}
	case core.SplitMine:
		if rec.PayerReal.IsMember() {
			rec.Owner = core.OwnerOf(rec.PayerReal)
		}
	case core.SplitOther:
		if rec.PayerReal.IsMember() {
			rec.Owner = core.OwnerOf(rec.PayerReal.Other())
		} else {
			fail(ColPayer, "split %s requires the payer to be %s or %s", rec.Split, core.Lucas, core.Rafa)
		}
	}
	return rec, errs
}

func (v *Validator) legacyRow(row Row, uploader core.Person) (core.Transaction, []RowError) {
	rec, errs := v.common(row, false)
	fail := func(c Column, format string, args ...any) {
		errs = append(errs, RowError{Row: row.Number, Field: c, Message: fmt.Sprintf(format, args...)})
	}

	rec.PayerReal = uploader
	rec.PayerLabel = string(uploader)

	raw := row.get(ColOwner)
	owner, err := core.ParseOwner(raw)
	if err != nil {
		fail(ColOwner, "owner %q must be %s, %s or %s", raw, core.HouseholdLabel, core.Lucas, core.Rafa)
		return rec, errs
	}
	rec.Owner = owner
	if owner == core.OwnerHousehold {
		rec.PayerLabel = core.HouseholdLabel
	}

	switch {
	case rec.Split.IsHousehold() && owner != core.OwnerHousehold:
		fail(ColOwner, "split %s requires owner %s", rec.Split, core.HouseholdLabel)
	case rec.Split != "" && !rec.Split.IsHousehold() && owner == core.OwnerHousehold:
		fail(ColOwner, "split %s cannot be owned by %s", rec.Split, core.HouseholdLabel)
	}
	return rec, errs
}

func foldKey(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}
