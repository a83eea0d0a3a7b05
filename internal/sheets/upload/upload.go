// Package upload reads the first sheet of an uploaded spreadsheet (.xlsx,
// .xls or .csv) into a header and raw records.
package upload

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"financas/internal/ingest"
)

// Table is the raw content of a sheet.
type Table struct {
	Header  []string
	Records [][]string
}

// Fingerprint returns the hex SHA-256 of the uploaded bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// Parse dispatches on the file extension.
func Parse(filename string, data []byte) (Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(data)
	case ".xls":
		return parseXLS(data)
	case ".csv", ".txt":
		return parseCSV(data)
	}
	return Table{}, fmt.Errorf("%w: %q", ingest.ErrUnsupportedFile, filepath.Ext(filename))
}

// Rows parses the file and maps it into validated-layout rows.
func Rows(filename string, data []byte) ([]ingest.Row, ingest.Layout, error) {
	tbl, err := Parse(filename, data)
	if err != nil {
		return nil, "", err
	}
	return ingest.RowsFromTable(tbl.Header, tbl.Records)
}

func parseXLSX(data []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Table{}, ingest.ErrEmptyFile
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return split(rows)
}

func parseXLS(data []byte) (Table, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Table{}, fmt.Errorf("open xls: %w", err)
	}
	if book == nil {
		return Table{}, errors.New("open xls: no workbook stream")
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return Table{}, ingest.ErrEmptyFile
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			// Keep the gap so data row numbers match the sheet.
			rows = append(rows, nil)
			continue
		}
		width := row.LastCol()
		if len(rows) > 0 && len(rows[0]) > width {
			width = len(rows[0])
		}
		vals := make([]string, width)
		for c := 0; c < width; c++ {
			vals[c] = row.Col(c)
		}
		rows = append(rows, vals)
	}
	return split(rows)
}

// xlsRow returns row i of sheet, or nil when the sheet stores nothing for
// it. WorkSheet.Row dereferences the missing row, hence the recover.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func parseCSV(data []byte) (Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectSeparator(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return split(rows)
}

// detectSeparator picks ';' when the header line has more semicolons than
// commas, which is what spreadsheet tools emit in pt-BR locales.
func detectSeparator(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func split(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return Table{}, ingest.ErrEmptyFile
	}
	return Table{Header: rows[0], Records: rows[1:]}, nil
}
