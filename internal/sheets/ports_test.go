package sheets

import (
	"testing"

	"financas/internal/core"
)

func TestTabName(t *testing.T) {
	if got := TabName("202403"); got != "202403 Casa" {
		t.Fatalf("TabName = %q", got)
	}
}

func TestSettlementValues(t *testing.T) {
	s := core.ComputeHouseholdSettlement("202401", []core.Transaction{{
		Category:  "Mercado",
		Amount:    core.Money{Cents: 100000},
		Direction: core.Outflow,
		PayerReal: core.Rafa,
		Owner:     core.OwnerHousehold,
		Split:     core.SplitSixtyForty,
	}}, core.DefaultShares())

	rows := SettlementValues(s)
	find := func(label string) []string {
		for _, r := range rows {
			if len(r) > 0 && r[0] == label {
				return r
			}
		}
		t.Fatalf("row %q not found in %v", label, rows)
		return nil
	}

	if got := find("Total"); got[1] != "1.000,00" {
		t.Errorf("total = %q", got[1])
	}
	if got := find("Lucas"); got[1] != "0,00" || got[2] != "600,00" {
		t.Errorf("lucas row = %v", got)
	}
	if got := find("Acerto"); got[1] != "Lucas deve 600,00 a Rafa" {
		t.Errorf("settlement row = %v", got)
	}
	if got := find("Mercado"); got[1] != "1.000,00" {
		t.Errorf("category row = %v", got)
	}
}

func TestSettlementValuesSettled(t *testing.T) {
	rows := SettlementValues(core.ComputeHouseholdSettlement("202401", nil, core.DefaultShares()))
	for _, r := range rows {
		if len(r) == 2 && r[0] == "Acerto" {
			if r[1] != "Nenhum acerto necessário" {
				t.Fatalf("unexpected settled label %q", r[1])
			}
			return
		}
	}
	t.Fatal("missing settlement row")
}
