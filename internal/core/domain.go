package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Project       Category = "Project"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

type (
	Category string

	Kind string

	Date struct {
		time.Time
	}

	// Entry is a single ledger record. Position is the 1-based sheet row the
	// entry was read from; it is zero for entries not yet stored.
	Entry struct {
		Date     Date
		Category Category
		Kind     Kind
		Amount   decimal.Decimal
		Note     string
		Position int
	}
)

// Categories lists the selectable categories in form order.
var Categories = []Category{Food, Transport, Project, Entertainment, Other}

// Kinds lists the entry kinds in form order.
var Kinds = []Kind{Income, Expense}

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidKind     = errors.New("invalid kind")
	ErrNoteTooLong     = errors.New("note too long (max 200 characters)")
)

// Spreadsheets created by the first version of the tracker used Indonesian labels.
var (
	categoryAliases = map[string]Category{
		"makan":   Food,
		"proyek":  Project,
		"hiburan": Entertainment,
		"lainnya": Other,
	}
	kindAliases = map[string]Kind{
		"pemasukan":   Income,
		"pengeluaran": Expense,
	}
)

// ParseKind normalizes s to Income or Expense, ignoring case and surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	if k, ok := kindAliases[v]; ok {
		return k, nil
	}
	return "", ErrInvalidKind
}

// ParseCategory matches s against the fixed category set.
func ParseCategory(s string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == v {
			return c, nil
		}
	}
	if c, ok := categoryAliases[v]; ok {
		return c, nil
	}
	return "", ErrInvalidCategory
}

// NormalizeCategory is the lenient variant used when reading stored rows:
// unknown labels are kept as typed so hand-edited sheets still aggregate.
func NormalizeCategory(s string) Category {
	if c, err := ParseCategory(s); err == nil {
		return c
	}
	if v := strings.TrimSpace(s); v != "" {
		return Category(v)
	}
	return Other
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in the local time zone.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return err
	}
	if e.Kind != Income && e.Kind != Expense {
		return ErrInvalidKind
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if len(e.Note) > 200 {
		return ErrNoteTooLong
	}
	return nil
}
