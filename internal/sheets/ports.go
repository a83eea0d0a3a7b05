package sheets

import (
	"context"
	"fmt"

	"financas/internal/core"
)

// Ports for outbound adapters.
type (
	// RowReader returns the cell values of a range as trimmed strings. The
	// first row is expected to be the header.
	RowReader interface {
		ReadRows(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	}

	// SettlementExporter publishes a month's household settlement.
	SettlementExporter interface {
		ExportSettlement(ctx context.Context, s core.HouseholdSettlement) error
	}
)

// TabName is the name of the tab holding a month's settlement.
func TabName(month core.Month) string {
	return fmt.Sprintf("%s %s", month, core.HouseholdLabel)
}

// SettlementValues renders a settlement as a grid of cells, amounts in
// pt-BR notation.
func SettlementValues(s core.HouseholdSettlement) [][]string {
	rows := [][]string{
		{"Mês", string(s.Month)},
		{"Total", core.FormatBRL(s.Total)},
		{},
		{"Pessoa", "Pago", "Esperado"},
	}
	for _, p := range core.People() {
		rows = append(rows, []string{string(p), core.FormatBRL(s.Paid[p]), core.FormatBRL(s.Expected[p])})
	}
	rows = append(rows, []string{})
	if s.Settled() {
		rows = append(rows, []string{"Acerto", "Nenhum acerto necessário"})
	} else {
		rows = append(rows, []string{"Acerto", fmt.Sprintf("%s deve %s a %s", s.Debtor, core.FormatBRL(s.Amount), s.Creditor)})
	}
	rows = append(rows, []string{}, []string{"Categoria", "Total"})
	for _, c := range s.ByCategory {
		rows = append(rows, []string{c.Category, core.FormatBRL(c.Total)})
	}
	return rows
}
