package upload

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"financas/internal/ingest"
)

func TestParseCSVSemicolon(t *testing.T) {
	data := []byte("\xef\xbb\xbfData;Pagador;Categoria;Descrição;Valor;Divisão\n" +
		"01/01/2024;Casa;Mercado;Feira;1.234,56;50/50\n" +
		"02/01/2024;Lucas;Lazer;Cinema;40;Meu\n")
	rows, layout, err := Rows("janeiro.csv", data)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if layout != ingest.LayoutTemplate || len(rows) != 2 {
		t.Fatalf("layout=%s rows=%d", layout, len(rows))
	}
	if got := rows[0].Values[ingest.ColAmount]; got != "1.234,56" {
		t.Fatalf("amount cell %q", got)
	}
}

func TestParseCSVComma(t *testing.T) {
	data := []byte("Date,Payer,Category,Description,Amount,SplitRule\n03/01,Rafa,Contas,Luz,\"150,00\",Outro\n")
	tbl, err := Parse("x.CSV", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Header) != 6 || len(tbl.Records) != 1 || tbl.Records[0][4] != "150,00" {
		t.Fatalf("unexpected table: %+v", tbl)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Data", "Pagador", "Categoria", "Descrição", "Valor", "Divisão"},
		{"05/01/2024", "Casa", "Moradia", "Aluguel", "3200", "60/40"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got, layout, err := Rows("planilha.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if layout != ingest.LayoutTemplate || len(got) != 1 {
		t.Fatalf("layout=%s rows=%d", layout, len(got))
	}
	if got[0].Values[ingest.ColDescription] != "Aluguel" {
		t.Fatalf("description %q", got[0].Values[ingest.ColDescription])
	}
}

func TestParseXLS(t *testing.T) {
	data, err := os.ReadFile("testdata/lancamentos.xls")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	tbl, err := Parse("lancamentos.XLS", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	wantHeader := []string{"Data", "Pagador", "Categoria", "Descrição", "Valor", "Divisão"}
	if !reflect.DeepEqual(tbl.Header, wantHeader) {
		t.Fatalf("header = %q", tbl.Header)
	}
	if len(tbl.Records) != 3 || tbl.Records[1] != nil {
		t.Fatalf("expected two rows around one gap, got %q", tbl.Records)
	}
	// The last row has no ROW record, so its width comes from the header.
	if want := []string{"07/01/2024", "Lucas", "Lazer", "Cinema", "45,90", "Meu"}; !reflect.DeepEqual(tbl.Records[2], want) {
		t.Fatalf("last row = %q", tbl.Records[2])
	}

	rows, layout, err := Rows("lancamentos.xls", data)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if layout != ingest.LayoutTemplate || len(rows) != 2 {
		t.Fatalf("layout=%s rows=%d", layout, len(rows))
	}
	if rows[0].Number != 1 || rows[1].Number != 3 {
		t.Fatalf("row numbers %d,%d", rows[0].Number, rows[1].Number)
	}
	if got := rows[0].Values[ingest.ColAmount]; got != "3.200,00" {
		t.Fatalf("amount cell %q", got)
	}
	if got := rows[1].Values[ingest.ColSplit]; got != "Meu" {
		t.Fatalf("split cell %q", got)
	}
}

func TestParseRejectsSchemaAndType(t *testing.T) {
	_, _, err := Rows("a.csv", []byte("Data,Valor\n01/01,10\n"))
	if !errors.Is(err, ingest.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if _, err := Parse("a.pdf", []byte("%PDF")); !errors.Is(err, ingest.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if _, err := Parse("a.csv", nil); !errors.Is(err, ingest.ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := Parse("a.xlsx", []byte("not a zip")); err == nil {
		t.Fatalf("expected error for corrupt xlsx")
	}
	if _, err := Parse("a.xls", []byte("not an ole file")); err == nil {
		t.Fatalf("expected error for corrupt xls")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]byte("abc"))
	if a != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected sha256 %s", a)
	}
	if Fingerprint([]byte("abd")) == a {
		t.Fatalf("different content must differ")
	}
}
