//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportAndReadBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	creds := Credentials{
		JSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		File: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if creds.JSON == "" && creds.File == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, spreadsheetID, creds)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	month := core.Month("209901")
	s := core.ComputeHouseholdSettlement(month, []core.Transaction{{
		Category: "Mercado", Amount: core.Money{Cents: 100000}, Direction: core.Outflow,
		PayerReal: core.Rafa, Owner: core.OwnerHousehold, Split: core.SplitSixtyForty,
	}}, core.DefaultShares())
	if !s.Amount.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected settlement amount %s", s.Amount)
	}

	if err := client.ExportSettlement(ctx, s); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := client.ReadRows(ctx, "", "'209901 Casa'!A1:B2")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) < 1 || rows[0][1] != "209901" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}
