package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type Granularity int

const (
	Weekly Granularity = iota
	Monthly
)

// Options tune period bucketing.
type Options struct {
	// LegacyPeriods drops the year from period keys, so that week 10 of
	// 2023 and week 10 of 2024 share a bucket. Off by default.
	LegacyPeriods bool
}

// Period identifies a bucket: an ISO week or a calendar month. Year is the
// ISO year for weeks, the calendar year for months, and zero in legacy mode.
type Period struct {
	Year   int
	Number int
}

// Less orders periods chronologically.
func (p Period) Less(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Number < o.Number
}

// Bucket is the grouping key of a sum: one period and one kind.
type Bucket struct {
	Period Period
	Kind   core.Kind
}

// Totals holds the bucketed sums of one granularity. Missing buckets read as zero.
type Totals struct {
	Granularity Granularity
	sums        map[Bucket]decimal.Decimal
	periods     []Period
}

// ChartRow is one period with both kinds filled in.
type ChartRow struct {
	Period  Period
	Label   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Balance is computed over the whole ledger, not a single period.
type Balance struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category core.Category
	Sum      decimal.Decimal
}

func WeeklyTotals(entries []core.Entry, opts Options) Totals {
	return bucketize(entries, Weekly, opts)
}

// MonthlyTotals groups by calendar month. With opts.LegacyPeriods the key is
// the bare month number and entries from different years share a bucket.
func MonthlyTotals(entries []core.Entry, opts Options) Totals {
	return bucketize(entries, Monthly, opts)
}

// PeriodOf returns the bucket a date falls into.
func PeriodOf(d core.Date, g Granularity, opts Options) Period {
	var p Period
	switch g {
	case Weekly:
		p.Year, p.Number = d.ISOWeek()
	default:
		p.Year, p.Number = d.Year(), int(d.Month())
	}
	if opts.LegacyPeriods {
		p.Year = 0
	}
	return p
}

func bucketize(entries []core.Entry, g Granularity, opts Options) Totals {
	t := Totals{Granularity: g, sums: make(map[Bucket]decimal.Decimal)}
	seen := make(map[Period]bool)
	for _, e := range entries {
		p := PeriodOf(e.Date, g, opts)
		b := Bucket{Period: p, Kind: e.Kind}
		t.sums[b] = t.sums[b].Add(e.Amount)
		if !seen[p] {
			seen[p] = true
			t.periods = append(t.periods, p)
		}
	}
	sort.Slice(t.periods, func(i, j int) bool { return t.periods[i].Less(t.periods[j]) })
	return t
}

// Periods returns the periods holding at least one entry, oldest first.
func (t Totals) Periods() []Period {
	return append([]Period(nil), t.periods...)
}

// Get returns the sum for one bucket, zero when the bucket is empty.
func (t Totals) Get(p Period, k core.Kind) decimal.Decimal {
	return t.sums[Bucket{Period: p, Kind: k}]
}

// Sum adds up every period of one kind.
func (t Totals) Sum(k core.Kind) decimal.Decimal {
	total := decimal.Zero
	for b, v := range t.sums {
		if b.Kind == k {
			total = total.Add(v)
		}
	}
	return total
}

// Only narrows the totals to a single period.
func (t Totals) Only(p Period) Totals {
	out := Totals{Granularity: t.Granularity, sums: make(map[Bucket]decimal.Decimal)}
	for b, v := range t.sums {
		if b.Period == p {
			out.sums[b] = v
		}
	}
	if len(out.sums) > 0 {
		out.periods = []Period{p}
	}
	return out
}

// Empty reports whether no entry contributed to the totals.
func (t Totals) Empty() bool {
	return len(t.periods) == 0
}

// Rows returns one row per period with zero filled in for a missing kind,
// so charts draw a zero bar instead of a gap.
func (t Totals) Rows() []ChartRow {
	rows := make([]ChartRow, 0, len(t.periods))
	for _, p := range t.periods {
		rows = append(rows, ChartRow{
			Period:  p,
			Label:   t.Label(p),
			Income:  t.Get(p, core.Income),
			Expense: t.Get(p, core.Expense),
		})
	}
	return rows
}

// Label renders a period for chart axes.
func (t Totals) Label(p Period) string {
	if t.Granularity == Weekly {
		if p.Year == 0 {
			return fmt.Sprintf("W%02d", p.Number)
		}
		return fmt.Sprintf("%d-W%02d", p.Year, p.Number)
	}
	name := time.Month(p.Number).String()[:3]
	if p.Year == 0 {
		return name
	}
	return fmt.Sprintf("%s %d", name, p.Year)
}

// CurrentBalance sums the whole ledger; the result does not depend on entry order.
func CurrentBalance(entries []core.Entry) Balance {
	var b Balance
	for _, e := range entries {
		switch e.Kind {
		case core.Income:
			b.Income = b.Income.Add(e.Amount)
		case core.Expense:
			b.Expense = b.Expense.Add(e.Amount)
		}
	}
	b.Balance = b.Income.Sub(b.Expense)
	return b
}

// LargestExpenseCategory returns the expense category with the highest sum.
// Ties go to the category encountered first. ok is false when the entries
// hold no expense at all.
func LargestExpenseCategory(entries []core.Entry) (top CategoryTotal, ok bool) {
	sums := make(map[core.Category]decimal.Decimal)
	var order []core.Category
	for _, e := range entries {
		if e.Kind != core.Expense {
			continue
		}
		if _, seen := sums[e.Category]; !seen {
			order = append(order, e.Category)
		}
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	for _, c := range order {
		if !ok || sums[c].GreaterThan(top.Sum) {
			top = CategoryTotal{Category: c, Sum: sums[c]}
			ok = true
		}
	}
	return top, ok
}
