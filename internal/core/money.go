// Package core provides the ledger domain types together with the parsing
// and formatting rules shared by every store and by the presenter.
package core

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseAmount converts user or sheet input into a non-negative decimal.
//
// A lone comma is read as the decimal separator ("12,5" -> 12.5). When both
// separators are present the comma is a thousands separator
// ("100,000.50" -> 100000.5). Empty input, negative values and anything
// that is not a number return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("20000")      -> 20000, nil
//	ParseAmount("12,5")       -> 12.5, nil
//	ParseAmount("1,250.75")   -> 1250.75, nil
//	ParseAmount("-3")         -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatRupiah renders an amount with thousands separators, e.g. "Rp 100,000".
// Fractions are shown with two digits only when present.
func FormatRupiah(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	d = d.Round(2)
	whole := d.Truncate(0)
	s := sign + "Rp " + humanize.Comma(whole.IntPart())
	if frac := d.Sub(whole); !frac.IsZero() {
		s += fmt.Sprintf(".%02d", frac.Shift(2).IntPart())
	}
	return s
}
