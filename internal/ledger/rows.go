// Package ledger turns raw ledger rows into chart-ready totals, the running
// balance, and the summary sent to the insight provider.
//
// Everything here is a pure function of its input: calling it twice on the
// same rows gives the same result, and a malformed row never aborts the pass.
package ledger

import (
	"strings"

	"fintrack/internal/core"
)

var headerAliases = map[string]int{
	"date":       core.ColDate,
	"tanggal":    core.ColDate,
	"category":   core.ColCategory,
	"kategori":   core.ColCategory,
	"kind":       core.ColKind,
	"type":       core.ColKind,
	"tipe":       core.ColKind,
	"amount":     core.ColAmount,
	"jumlah":     core.ColAmount,
	"note":       core.ColNote,
	"keterangan": core.ColNote,
}

// columns maps each logical field to its index in the sheet, -1 when absent.
type columns [5]int

func resolveColumns(header []string) columns {
	cols := columns{-1, -1, -1, -1, -1}
	for i, name := range header {
		field, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]
		if ok && cols[field] == -1 {
			cols[field] = i
		}
	}
	return cols
}

func (c columns) get(row []string, field int) string {
	idx := c[field]
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseRows coerces stored rows into entries. rows[0] is the header; columns
// are located by name so reordered sheets still parse. Rows with an
// unparseable date, amount or kind are skipped and counted.
func ParseRows(rows [][]string) (entries []core.Entry, skipped int) {
	if len(rows) < 2 {
		return nil, 0
	}
	cols := resolveColumns(rows[0])
	entries = make([]core.Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		e, ok := parseRow(cols, row)
		if !ok {
			skipped++
			continue
		}
		e.Position = i + 1 + core.HeaderRows
		entries = append(entries, e)
	}
	return entries, skipped
}

func parseRow(cols columns, row []string) (core.Entry, bool) {
	date, err := core.ParseDate(cols.get(row, core.ColDate))
	if err != nil {
		return core.Entry{}, false
	}
	amount, err := core.ParseAmount(cols.get(row, core.ColAmount))
	if err != nil {
		return core.Entry{}, false
	}
	kind, err := core.ParseKind(cols.get(row, core.ColKind))
	if err != nil {
		return core.Entry{}, false
	}
	return core.Entry{
		Date:     date,
		Category: core.NormalizeCategory(cols.get(row, core.ColCategory)),
		Kind:     kind,
		Amount:   amount,
		Note:     cols.get(row, core.ColNote),
	}, true
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// stored is the positional layout every store writes.
var stored = columns{core.ColDate, core.ColCategory, core.ColKind, core.ColAmount, core.ColNote}

// CanonicalRow renders a stored row the way core.Entry.Row writes it, so two
// stores holding the same entry compare equal even when one hands dates back
// as serial days or amounts as unformatted numbers. A row that does not parse
// comes back trimmed, without trailing empty cells.
func CanonicalRow(row []string) []string {
	if e, ok := parseRow(stored, row); ok {
		return e.Row()
	}
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	n := len(out)
	for n > 0 && out[n-1] == "" {
		n--
	}
	return out[:n]
}
