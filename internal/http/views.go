package http

import (
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/ingest"
	"financas/internal/services"
)

// Amounts leave the API twice: as a fixed-point string for machines and
// in pt-BR notation for display.
type amountView struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted"`
}

func amount(d decimal.Decimal) amountView {
	return amountView{Value: d.StringFixed(2), Formatted: core.FormatBRL(d)}
}

func money(m core.Money) amountView {
	return amount(m.Decimal())
}

type categoryView struct {
	Category string     `json:"category"`
	Total    amountView `json:"total"`
}

func categories(in []core.CategoryTotal) []categoryView {
	out := make([]categoryView, 0, len(in))
	for _, c := range in {
		out = append(out, categoryView{Category: c.Category, Total: amount(c.Total)})
	}
	return out
}

type transactionView struct {
	ID          int64      `json:"id,omitempty"`
	BatchID     string     `json:"batch_id,omitempty"`
	Month       core.Month `json:"month"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Amount      amountView `json:"amount"`
	Direction   string     `json:"direction"`
	PayerLabel  string     `json:"payer_label"`
	PayerReal   string     `json:"payer_real"`
	Owner       string     `json:"owner"`
	Split       string     `json:"split"`
	Uploader    string     `json:"uploader"`
	Note        string     `json:"note,omitempty"`
	Installment string     `json:"installment,omitempty"`
}

func transactions(in []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(in))
	for _, t := range in {
		out = append(out, transactionView{
			ID:          t.ID,
			BatchID:     t.BatchID,
			Month:       t.Month,
			Date:        t.Date,
			Description: t.Description,
			Category:    t.Category,
			Amount:      money(t.Amount),
			Direction:   string(t.Direction),
			PayerLabel:  t.PayerLabel,
			PayerReal:   string(t.PayerReal),
			Owner:       string(t.Owner),
			Split:       string(t.Split),
			Uploader:    string(t.Uploader),
			Note:        t.Note,
			Installment: t.Installment,
		})
	}
	return out
}

type batchView struct {
	ID        string     `json:"id"`
	Month     core.Month `json:"month"`
	Uploader  string     `json:"uploader"`
	Source    string     `json:"source"`
	Filename  string     `json:"filename,omitempty"`
	Status    string     `json:"status"`
	RowCount  int        `json:"row_count"`
	CreatedAt time.Time  `json:"created_at"`
}

func batches(in []core.Batch) []batchView {
	out := make([]batchView, 0, len(in))
	for _, b := range in {
		out = append(out, batchView{
			ID:        b.ID,
			Month:     b.Month,
			Uploader:  string(b.Uploader),
			Source:    string(b.Source),
			Filename:  b.Filename,
			Status:    string(b.Status),
			RowCount:  b.RowCount,
			CreatedAt: b.CreatedAt,
		})
	}
	return out
}

type previewView struct {
	OK       bool              `json:"ok"`
	BatchIDs []string          `json:"batch_ids,omitempty"`
	Errors   []ingest.RowError `json:"errors,omitempty"`
	Records  []transactionView `json:"records"`
}

func preview(res services.PreviewResult) previewView {
	return previewView{
		OK:       res.OK(),
		BatchIDs: res.BatchIDs,
		Errors:   res.Errors,
		Records:  transactions(res.Records),
	}
}

type settlementView struct {
	Month      core.Month            `json:"month"`
	Total      amountView            `json:"total"`
	Paid       map[string]amountView `json:"paid"`
	Expected   map[string]amountView `json:"expected"`
	ByCategory []categoryView        `json:"by_category"`
	Settled    bool                  `json:"settled"`
	Debtor     string                `json:"debtor,omitempty"`
	Creditor   string                `json:"creditor,omitempty"`
	Amount     amountView            `json:"amount"`
}

func settlement(s core.HouseholdSettlement) settlementView {
	v := settlementView{
		Month:      s.Month,
		Total:      amount(s.Total),
		Paid:       map[string]amountView{},
		Expected:   map[string]amountView{},
		ByCategory: categories(s.ByCategory),
		Settled:    s.Settled(),
		Debtor:     string(s.Debtor),
		Creditor:   string(s.Creditor),
		Amount:     amount(s.Amount),
	}
	for _, p := range core.People() {
		v.Paid[string(p)] = amount(s.Paid[p])
		v.Expected[string(p)] = amount(s.Expected[p])
	}
	return v
}

type summaryView struct {
	Month                core.Month     `json:"month"`
	Person               string         `json:"person"`
	Income               amountView     `json:"income"`
	HouseholdShare       amountView     `json:"household_share"`
	Personal             amountView     `json:"personal"`
	Receivable           amountView     `json:"receivable"`
	Payable              amountView     `json:"payable"`
	EffectiveExpenses    amountView     `json:"effective_expenses"`
	BalanceAfterPayments amountView     `json:"balance_after_payments"`
	Invested             amountView     `json:"invested"`
	AccountBalance       amountView     `json:"account_balance"`
	InvestedPercentage   string         `json:"invested_percentage"`
	HouseholdByCategory  []categoryView `json:"household_by_category"`
	PersonalByCategory   []categoryView `json:"personal_by_category"`
}

func summary(s core.IndividualSummary) summaryView {
	return summaryView{
		Month:                s.Month,
		Person:               string(s.Person),
		Income:               amount(s.Income),
		HouseholdShare:       amount(s.HouseholdShare),
		Personal:             amount(s.Personal),
		Receivable:           amount(s.Receivable),
		Payable:              amount(s.Payable),
		EffectiveExpenses:    amount(s.EffectiveExpenses),
		BalanceAfterPayments: amount(s.BalanceAfterPayments),
		Invested:             amount(s.Invested),
		AccountBalance:       amount(s.AccountBalance),
		InvestedPercentage:   s.InvestedPercentage.StringFixed(2),
		HouseholdByCategory:  categories(s.HouseholdByCategory),
		PersonalByCategory:   categories(s.PersonalByCategory),
	}
}

type incomeView struct {
	Month   core.Month `json:"month"`
	Person  string     `json:"person"`
	Salary1 amountView `json:"salary_1"`
	Salary2 amountView `json:"salary_2"`
	Extras  amountView `json:"extras"`
	Total   amountView `json:"total"`
}

func income(i core.Income) incomeView {
	return incomeView{
		Month:   i.Month,
		Person:  string(i.Person),
		Salary1: money(i.Salary1),
		Salary2: money(i.Salary2),
		Extras:  money(i.Extras),
		Total:   money(i.Total()),
	}
}

type investmentView struct {
	Month  core.Month `json:"month"`
	Person string     `json:"person"`
	Amount amountView `json:"amount"`
	Note   string     `json:"note,omitempty"`
}

func investment(i core.Investment) investmentView {
	return investmentView{Month: i.Month, Person: string(i.Person), Amount: money(i.Amount), Note: i.Note}
}
