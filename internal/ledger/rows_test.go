package ledger

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{" Date ", "Category", " Kind", "Amount ", "Note"},
		{"2024/03/01", "Food", "expense ", "20000", ""},
		{"2024/03/05", "Project", "Income", "100000", "client"},
		{"not a date", "Food", "Expense", "10", ""},
		{"2024/03/07", "Food", "Expense", "abc", ""},
		{"2024/03/08", "Food", "Refund", "10", ""},
		{"", "", "", "", ""},
		{"2024/03/09", "Transport", "Expense", "-5", ""},
		{"2024/03/10", "Transport", "EXPENSE", "5000"},
	}
	entries, skipped := ParseRows(rows)
	if skipped != 4 {
		t.Fatalf("expected 4 skipped rows, got %d", skipped)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
	first := entries[0]
	if first.Kind != core.Expense || first.Category != core.Food || !first.Amount.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if first.Position != 2 {
		t.Fatalf("first entry position = %d, want 2", first.Position)
	}
	if entries[1].Note != "client" || entries[1].Position != 3 {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if last := entries[2]; last.Position != 9 || last.Note != "" {
		t.Fatalf("short row should parse with empty note at position 9, got %+v", last)
	}
}

func TestParseRowsByHeaderName(t *testing.T) {
	rows := [][]string{
		{"Jumlah", "Tipe", "Tanggal", "Kategori", "Keterangan"},
		{"15000", "Pengeluaran", "2024-05-01", "Makan", "lunch"},
	}
	entries, skipped := ParseRows(rows)
	if skipped != 0 || len(entries) != 1 {
		t.Fatalf("entries=%v skipped=%d", entries, skipped)
	}
	e := entries[0]
	if e.Category != core.Food || e.Kind != core.Expense || e.Note != "lunch" || !e.Date.Equal(core.NewDate(2024, 5, 1).Time) {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestParseRowsEmpty(t *testing.T) {
	if entries, skipped := ParseRows(nil); entries != nil || skipped != 0 {
		t.Fatalf("nil rows: %v %d", entries, skipped)
	}
	if entries, _ := ParseRows([][]string{core.Header()}); len(entries) != 0 {
		t.Fatalf("header only should yield no entries")
	}
}

func TestMalformedRowIsIsolated(t *testing.T) {
	good := [][]string{
		core.Header(),
		{"2024/03/01", "Food", "Expense", "20000", ""},
		{"2024/03/05", "Project", "Income", "100000", ""},
	}
	dirty := [][]string{
		core.Header(),
		{"2024/03/01", "Food", "Expense", "20000", ""},
		{"31/31/2024", "Food", "Expense", "999", ""},
		{"2024/03/05", "Project", "Income", "100000", ""},
	}
	a, _ := ParseRows(good)
	b, skipped := ParseRows(dirty)
	if skipped != 1 {
		t.Fatalf("expected one skipped row, got %d", skipped)
	}
	ma, mb := MonthlyTotals(a, Options{}), MonthlyTotals(b, Options{})
	for _, k := range core.Kinds {
		if !ma.Sum(k).Equal(mb.Sum(k)) {
			t.Fatalf("%s totals differ: %s vs %s", k, ma.Sum(k), mb.Sum(k))
		}
	}
	wa, wb := WeeklyTotals(a, Options{}), WeeklyTotals(b, Options{})
	for _, p := range wa.Periods() {
		for _, k := range core.Kinds {
			if !wa.Get(p, k).Equal(wb.Get(p, k)) {
				t.Fatalf("week %v %s differs", p, k)
			}
		}
	}
}

func TestCanonicalRow(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		same bool
	}{
		{"serial date and layout date",
			[]string{"2024/03/01", "Food", "Expense", "20000", "lunch"},
			[]string{"45352", "Food", "Expense", "20000", "lunch"}, true},
		{"formatted amount",
			[]string{"2024/03/05", "Project", "Income", "1500.50", ""},
			[]string{"2024-03-05", "Project", "income", "1500.5"}, true},
		{"different amount",
			[]string{"2024/03/01", "Food", "Expense", "20000", ""},
			[]string{"2024/03/01", "Food", "Expense", "20001", ""}, false},
		{"different note",
			[]string{"2024/03/01", "Food", "Expense", "1", "a"},
			[]string{"2024/03/01", "Food", "Expense", "1", "b"}, false},
		{"unparseable rows compare raw",
			[]string{"someday", "Food", "Expense", "1", ""},
			[]string{" someday", "Food", "Expense", "1"}, true},
		{"unparseable against parseable",
			[]string{"someday", "Food", "Expense", "1"},
			[]string{"2024/03/01", "Food", "Expense", "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := CanonicalRow(tt.a), CanonicalRow(tt.b)
			if got := slices.Equal(a, b); got != tt.same {
				t.Errorf("CanonicalRow equal = %v, want %v (%v vs %v)", got, tt.same, a, b)
			}
		})
	}
}
