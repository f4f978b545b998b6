package core

import (
	"strconv"
	"strings"
	"time"
)

// Persisted row layout: [date, category, kind, amount, note].
const (
	ColDate = iota
	ColCategory
	ColKind
	ColAmount
	ColNote
)

const (
	// DateLayout is the format dates are written in.
	DateLayout = "2006/01/02"

	// HeaderRows is the number of header rows above the first entry.
	HeaderRows = 1

	// FirstEntryPosition is the lowest deletable 1-based row position.
	FirstEntryPosition = HeaderRows + 1
)

// Header returns a fresh copy of the column names written to row 1.
func Header() []string {
	return []string{"Date", "Category", "Kind", "Amount", "Note"}
}

// Row converts the entry to its positional string form.
func (e Entry) Row() []string {
	return []string{
		e.Date.Format(DateLayout),
		string(e.Category),
		string(e.Kind),
		e.Amount.String(),
		e.Note,
	}
}

var dateLayouts = []string{
	DateLayout,
	"2006-01-02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// Spreadsheet serial day 0.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial day numbers accepted as dates: 1910-01-01 through 9999-12-31.
// Smaller numbers are more likely a mistyped day or year than a date.
const (
	minSerialDay = 3654
	maxSerialDay = 2958465
)

// ParseDate accepts the layouts found in hand-edited sheets as well as the
// serial day numbers the Sheets API returns for date cells.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return NewDate(y, int(m), d), nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minSerialDay && f <= maxSerialDay {
		t := serialEpoch.AddDate(0, 0, int(f))
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, ErrInvalidDate
}
