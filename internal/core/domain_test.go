package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"Income", Income, true},
		{" income ", Income, true},
		{"EXPENSE", Expense, true},
		{"expense\t", Expense, true},
		{"pemasukan", Income, true},
		{" Pengeluaran", Expense, true},
		{"", "", false},
		{"refund", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidKind) {
			t.Fatalf("%q expected ErrInvalidKind, got %v", tc.in, err)
		}
	}
}

func TestParseAndNormalizeCategory(t *testing.T) {
	if c, err := ParseCategory(" food "); err != nil || c != Food {
		t.Fatalf("expected Food, got %q (err=%v)", c, err)
	}
	if c, err := ParseCategory("Hiburan"); err != nil || c != Entertainment {
		t.Fatalf("expected Entertainment alias, got %q (err=%v)", c, err)
	}
	if _, err := ParseCategory("Rent"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if c := NormalizeCategory("  Rent "); c != "Rent" {
		t.Fatalf("expected unknown category kept as typed, got %q", c)
	}
	if c := NormalizeCategory(""); c != Other {
		t.Fatalf("expected blank category to become Other, got %q", c)
	}
}

func TestEntryValidate(t *testing.T) {
	good := Entry{
		Date:     NewDate(2024, 3, 1),
		Category: Food,
		Kind:     Expense,
		Amount:   decimal.NewFromInt(20000),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount must be accepted, got %v", err)
	}

	bads := []struct {
		e    Entry
		want error
	}{
		{Entry{Date: Date{Time: time.Time{}}, Category: Food, Kind: Income}, ErrInvalidDate},
		{Entry{Date: NewDate(2024, 1, 1), Category: "Rent", Kind: Income}, ErrInvalidCategory},
		{Entry{Date: NewDate(2024, 1, 1), Category: Food, Kind: "Refund"}, ErrInvalidKind},
		{Entry{Date: NewDate(2024, 1, 1), Category: Food, Kind: Income, Amount: decimal.NewFromInt(-1)}, ErrInvalidAmount},
		{Entry{Date: NewDate(2024, 1, 1), Category: Food, Kind: Income, Note: strings.Repeat("x", 201)}, ErrNoteTooLong},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestEntryRow(t *testing.T) {
	e := Entry{
		Date:     NewDate(2024, 3, 5),
		Category: Project,
		Kind:     Income,
		Amount:   decimal.RequireFromString("100000"),
		Note:     "invoice 12",
	}
	row := e.Row()
	want := []string{"2024/03/05", "Project", "Income", "100000", "invoice 12"}
	if len(row) != len(want) {
		t.Fatalf("row length %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("col %d: got %q want %q", i, row[i], want[i])
		}
	}
	if len(Header()) != len(want) {
		t.Fatalf("header and row widths differ")
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024/03/01", NewDate(2024, 3, 1), true},
		{"2024-03-01", NewDate(2024, 3, 1), true},
		{"2024/3/1", NewDate(2024, 3, 1), true},
		{" 2024-12-31 ", NewDate(2024, 12, 31), true},
		{"2024-03-01 18:30:00", NewDate(2024, 3, 1), true},
		{"45352", NewDate(2024, 3, 1), true}, // sheet serial day
		{"45352.75", NewDate(2024, 3, 1), true},
		{"3654", NewDate(1910, 1, 1), true},
		{"15", Date{}, false},
		{"2024", Date{}, false},
		{"3653", Date{}, false},
		{"", Date{}, false},
		{"yesterday", Date{}, false},
		{"2024/13/01", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
