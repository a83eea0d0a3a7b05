package google

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"financas/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", Credentials{JSON: "{}"})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := newSheetsService(context.Background(), Credentials{})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := newSheetsService(context.Background(), Credentials{File: path})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	ctx := context.Background()

	if _, err := c.ReadRows(ctx, "", "A:J"); err == nil {
		t.Error("ReadRows: expected error without service")
	}
	if err := c.ExportSettlement(ctx, core.HouseholdSettlement{Month: "202401"}); err == nil {
		t.Error("ExportSettlement: expected error without service")
	}
}

func TestToStringsAndCells(t *testing.T) {
	got := toStrings([]interface{}{" Data ", 12.5, nil})
	want := []string{"Data", "12.5", "<nil>"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("toStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	cells := toCells([][]string{{"a", "b"}, {}})
	if len(cells) != 2 || len(cells[0]) != 2 || cells[0][1] != "b" || len(cells[1]) != 0 {
		t.Fatalf("unexpected cells: %v", cells)
	}
}
