// Package ingest turns raw spreadsheet or form rows into normalized ledger
// records, collecting every validation problem along the way.
package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Column is the canonical name of a recognized input column.
type Column string

const (
	ColDate        Column = "date"
	ColPayer       Column = "payer"
	ColCategory    Column = "category"
	ColDescription Column = "description"
	ColAmount      Column = "amount"
	ColSplit       Column = "split"
	ColDirection   Column = "direction"
	ColOwner       Column = "owner"
	ColNote        Column = "note"
	ColInstallment Column = "installment"
)

// Layout identifies which generation of the row template a file follows.
type Layout string

const (
	// LayoutTemplate carries an explicit payer column.
	LayoutTemplate Layout = "template"
	// LayoutLegacy carries a declared owner and direction instead of a payer.
	LayoutLegacy Layout = "legacy"
)

var (
	ErrMissingColumns  = errors.New("missing required columns")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file has no rows")
	ErrDuplicateUpload = errors.New("this file was already imported for this month")
	ErrUnreadable      = errors.New("could not read the file")
)

var requiredColumns = map[Layout][]Column{
	LayoutTemplate: {ColDate, ColPayer, ColCategory, ColDescription, ColAmount, ColSplit},
	LayoutLegacy:   {ColDate, ColDescription, ColCategory, ColAmount, ColDirection, ColOwner, ColSplit},
}

var columnAliases = map[string]Column{
	"data":        ColDate,
	"date":        ColDate,
	"pagador":     ColPayer,
	"payer":       ColPayer,
	"quem pagou":  ColPayer,
	"categoria":   ColCategory,
	"category":    ColCategory,
	"descricao":   ColDescription,
	"description": ColDescription,
	"valor":       ColAmount,
	"amount":      ColAmount,
	"divisao":     ColSplit,
	"split":       ColSplit,
	"splitrule":   ColSplit,
	"split rule":  ColSplit,
	"regra":       ColSplit,
	"tipo":        ColDirection,
	"direction":   ColDirection,
	"direcao":     ColDirection,
	"dono":        ColOwner,
	"owner":       ColOwner,
	"responsavel": ColOwner,
	"obs":         ColNote,
	"observacao":  ColNote,
	"note":        ColNote,
	"notes":       ColNote,
	"parcela":     ColInstallment,
	"installment": ColInstallment,
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// Row is one input line keyed by canonical column.
type Row struct {
	// Number is the 1-based position among the data rows.
	Number int
	Values map[Column]string
	// Typed rows come from a form; their amounts are always pt-BR.
	Typed bool
}

func (r Row) get(c Column) string {
	return strings.TrimSpace(r.Values[c])
}

// CanonicalColumn maps a header cell to a recognized column.
func CanonicalColumn(header string) (Column, bool) {
	key := accentFolder.Replace(strings.ToLower(strings.TrimSpace(header)))
	key = strings.Join(strings.Fields(key), " ")
	c, ok := columnAliases[key]
	return c, ok
}

// DetectLayout picks the row layout from the columns present in a header.
// A payer column selects the template layout; otherwise an owner column
// selects the legacy one. Template is the default.
func DetectLayout(cols map[Column]bool) Layout {
	if !cols[ColPayer] && cols[ColOwner] {
		return LayoutLegacy
	}
	return LayoutTemplate
}

// MissingColumns lists the required columns of layout absent from cols.
func MissingColumns(layout Layout, cols map[Column]bool) []Column {
	var missing []Column
	for _, c := range requiredColumns[layout] {
		if !cols[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// RowsFromTable maps a header and raw records into rows, enforcing the
// layout's required columns. Fully blank records are skipped but still
// consume a row number.
func RowsFromTable(header []string, records [][]string) ([]Row, Layout, error) {
	index := map[int]Column{}
	present := map[Column]bool{}
	for i, h := range header {
		if c, ok := CanonicalColumn(h); ok && !present[c] {
			index[i] = c
			present[c] = true
		}
	}

	layout := DetectLayout(present)
	if missing := MissingColumns(layout, present); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, c := range missing {
			names[i] = string(c)
		}
		sort.Strings(names)
		return nil, layout, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(names, ", "))
	}

	rows := make([]Row, 0, len(records))
	for n, rec := range records {
		if blank(rec) {
			continue
		}
		row := Row{Number: n + 1, Values: map[Column]string{}}
		for i, v := range rec {
			if c, ok := index[i]; ok {
				row.Values[c] = v
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, layout, ErrEmptyFile
	}
	return rows, layout, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
