package http

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

// Fixed messages for the ?notice= codes set by redirects after a POST.
var notices = map[string]string{
	"added":   "Entry saved.",
	"deleted": "Entry deleted.",
	"reset":   "All entries erased. The header row was kept.",
}

type formValues struct {
	Date     string
	Category string
	Kind     string
	Amount   string
	Note     string
}

type entryRow struct {
	Position int
	Date     string
	Category string
	Kind     string
	Amount   string
	Note     string
	Income   bool
}

type bar struct {
	Label        string
	Income       string
	Expense      string
	IncomeWidth  int
	ExpenseWidth int
}

type chart struct {
	Title string
	Bars  []bar
}

type insightView struct {
	Provider string
	Summary  string
	Text     string
	Warning  bool
	Fallback bool
	Cached   bool
}

type pageData struct {
	Notice string
	Error  string

	Form       formValues
	Categories []core.Category
	Kinds      []core.Kind

	Empty      bool
	EntryCount int
	Skipped    int
	Recent     []entryRow

	Income      string
	Expense     string
	Balance     string
	Negative    bool
	Largest     string
	MonthLabel  string
	Weekly      chart
	Monthly     chart
	Provider    string
	Insight     *insightView
	Unavailable bool
}

func (s *Server) newPage(form formValues) pageData {
	if form.Date == "" {
		form.Date = s.today().Format("2006-01-02")
	}
	if form.Amount == "" {
		form.Amount = "0"
	}
	if form.Category == "" {
		form.Category = string(core.Food)
	}
	if form.Kind == "" {
		form.Kind = string(core.Expense)
	}
	p := pageData{
		Form:       form,
		Categories: core.Categories,
		Kinds:      core.Kinds,
		Empty:      true,
	}
	if s.insight != nil {
		p.Provider = s.insight.Provider()
	}
	return p
}

// fill copies the snapshot's figures into the page.
func (p *pageData) fill(snap services.Snapshot) {
	p.Empty = snap.Empty()
	p.EntryCount = len(snap.Entries)
	p.Skipped = snap.Skipped

	recent := snap.Recent(recentEntries)
	p.Recent = make([]entryRow, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		p.Recent = append(p.Recent, entryRow{
			Position: e.Position,
			Date:     e.Date.Format(core.DateLayout),
			Category: string(e.Category),
			Kind:     string(e.Kind),
			Amount:   core.FormatRupiah(e.Amount),
			Note:     e.Note,
			Income:   e.Kind == core.Income,
		})
	}

	p.Income = core.FormatRupiah(snap.Balance.Income)
	p.Expense = core.FormatRupiah(snap.Balance.Expense)
	p.Balance = core.FormatRupiah(snap.Balance.Balance)
	p.Negative = snap.Balance.Balance.IsNegative()
	p.Largest = ledger.NoCategoryYet
	if snap.HasLargest {
		p.Largest = string(snap.Largest.Category) + " (" + core.FormatRupiah(snap.Largest.Sum) + ")"
	}
	p.MonthLabel = snap.Monthly.Label(snap.InsightMonth)
	p.Weekly = buildChart("Weekly", snap.Weekly)
	p.Monthly = buildChart("Monthly", snap.Monthly)
}

// buildChart scales every bar against the largest value in the chart.
func buildChart(title string, t ledger.Totals) chart {
	rows := t.Rows()
	top := decimal.Zero
	for _, r := range rows {
		top = decimal.Max(top, r.Income, r.Expense)
	}
	c := chart{Title: title, Bars: make([]bar, 0, len(rows))}
	for _, r := range rows {
		c.Bars = append(c.Bars, bar{
			Label:        r.Label,
			Income:       core.FormatRupiah(r.Income),
			Expense:      core.FormatRupiah(r.Expense),
			IncomeWidth:  barWidth(r.Income, top),
			ExpenseWidth: barWidth(r.Expense, top),
		})
	}
	return c
}

// barWidth is v as a rounded percentage of max; non-zero values stay visible.
func barWidth(v, max decimal.Decimal) int {
	if !max.IsPositive() || !v.IsPositive() {
		return 0
	}
	width := int(v.Mul(decimal.NewFromInt(100)).Div(max).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
