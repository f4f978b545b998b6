package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// NoCategoryYet stands in for the largest expense category when there is none.
const NoCategoryYet = "none yet"

// InsightSummary is the figure set the insight prompt is built from.
type InsightSummary struct {
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Largest    CategoryTotal
	HasLargest bool
	// Entries counts the ledger entries the summary was computed from.
	Entries int
	// Label names the month when it is not the current one.
	Label string
}

// InsightMonth picks the month an insight covers: current when it holds
// entries, otherwise the latest earlier month that does. With neither it
// returns current.
func InsightMonth(entries []core.Entry, current Period) Period {
	best, found := current, false
	for _, e := range entries {
		p := PeriodOf(e.Date, Monthly, Options{})
		if p == current {
			return current
		}
		if current.Less(p) {
			continue
		}
		if !found || best.Less(p) {
			best, found = p, true
		}
	}
	return best
}

// Summarize builds the summary for one calendar month, matched with its year.
func Summarize(entries []core.Entry, month Period) InsightSummary {
	var scoped []core.Entry
	for _, e := range entries {
		if PeriodOf(e.Date, Monthly, Options{}) == month {
			scoped = append(scoped, e)
		}
	}
	s := summaryFrom(MonthlyTotals(scoped, Options{}))
	s.Largest, s.HasLargest = LargestExpenseCategory(scoped)
	s.Entries = len(scoped)
	return s
}

func summaryFrom(monthly Totals) InsightSummary {
	return InsightSummary{
		Income:  monthly.Sum(core.Income),
		Expense: monthly.Sum(core.Expense),
	}
}

// Sufficient reports whether there is anything worth asking about.
func (s InsightSummary) Sufficient() bool {
	return s.Entries > 0
}

// Text renders the figures block embedded in the prompt.
func (s InsightSummary) Text() string {
	largest := NoCategoryYet
	if s.HasLargest {
		largest = fmt.Sprintf("%s: %s", s.Largest.Category, core.FormatRupiah(s.Largest.Sum))
	}
	scope := "this month"
	if s.Label != "" {
		scope = "in " + s.Label
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Total income %s: %s\n", scope, core.FormatRupiah(s.Income))
	fmt.Fprintf(&b, "Total expense %s: %s\n", scope, core.FormatRupiah(s.Expense))
	fmt.Fprintf(&b, "\nLargest expense category %s:\n", scope)
	b.WriteString(largest)
	return b.String()
}

// Prompt wraps the figures in the instruction sent to the model.
func (s InsightSummary) Prompt() string {
	return "You are a personal finance assistant. Based on the data below, give a short financial insight or suggestion.\n\n" +
		s.Text() +
		"\n\nReply in English, briefly and clearly."
}

// BuildInsightPrompt renders the prompt from monthly totals and the largest
// expense category. Absent totals render as zero and an absent category as
// NoCategoryYet.
func BuildInsightPrompt(monthly Totals, largest CategoryTotal, found bool) string {
	s := summaryFrom(monthly)
	s.Largest, s.HasLargest = largest, found
	return s.Prompt()
}
