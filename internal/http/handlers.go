package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	ports "fintrack/internal/sheets"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(formValues{})
	page.Notice = notices[r.URL.Query().Get("notice")]
	s.renderWithSnapshot(w, r, http.StatusOK, page)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, formValues{}, "The request could not be read.")
		return
	}

	form := formValues{
		Date:     sanitizeInput(r.PostForm.Get("date")),
		Category: sanitizeInput(r.PostForm.Get("category")),
		Kind:     sanitizeInput(r.PostForm.Get("kind")),
		Amount:   sanitizeInput(r.PostForm.Get("amount")),
		Note:     sanitizeText(r.PostForm.Get("note")),
	}
	entry, err := s.parseEntry(form)
	if err != nil {
		s.renderError(w, r, http.StatusUnprocessableEntity, form, validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	if err := s.ledger.AddEntry(ctx, entry); err != nil {
		if isValidationError(err) {
			s.renderError(w, r, http.StatusUnprocessableEntity, form, validationMessage(err))
			return
		}
		s.reqLog.LogError(ctx, "Append entry failed", err, applog.ComponentLedger, applog.OpAppend,
			applog.NewFields().WithEntry(form.Date, form.Category, form.Kind, form.Amount))
		s.renderError(w, r, http.StatusInternalServerError, form, "The entry could not be saved. Please try again.")
		return
	}

	row := entry.Row()
	s.reqLog.LogEntryAdded(ctx, row[core.ColDate], row[core.ColCategory], row[core.ColKind], row[core.ColAmount])
	http.Redirect(w, r, "/?notice=added", http.StatusSeeOther)
}

// parseEntry turns the form into an entry. An empty date means today and an
// empty amount means zero, matching the form defaults.
func (s *Server) parseEntry(form formValues) (core.Entry, error) {
	date := s.today()
	if form.Date != "" {
		d, err := core.ParseDate(form.Date)
		if err != nil {
			return core.Entry{}, err
		}
		date = d
	}
	category, err := core.ParseCategory(form.Category)
	if err != nil {
		return core.Entry{}, err
	}
	kind, err := core.ParseKind(form.Kind)
	if err != nil {
		return core.Entry{}, err
	}
	amount := decimal.Zero
	if form.Amount != "" {
		if amount, err = core.ParseAmount(form.Amount); err != nil {
			return core.Entry{}, err
		}
	}
	e := core.Entry{Date: date, Category: category, Kind: kind, Amount: amount, Note: form.Note}
	return e, e.Validate()
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, formValues{}, "The request could not be read.")
		return
	}
	raw := strings.TrimSpace(r.PostForm.Get("position"))
	position, err := strconv.Atoi(raw)
	if err != nil {
		s.renderError(w, r, http.StatusUnprocessableEntity, formValues{}, "The row number must be a whole number.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	if err := s.ledger.DeleteAt(ctx, position); err != nil {
		if errors.Is(err, ports.ErrPositionOutOfRange) {
			s.renderError(w, r, http.StatusUnprocessableEntity, formValues{},
				"Row "+strconv.Itoa(position)+" does not hold an entry. Nothing was deleted.")
			return
		}
		s.reqLog.LogError(ctx, "Delete entry failed", err, applog.ComponentLedger, applog.OpDelete,
			applog.LogFields{applog.FieldPosition: position})
		s.renderError(w, r, http.StatusInternalServerError, formValues{}, "The entry could not be deleted. Please try again.")
		return
	}
	http.Redirect(w, r, "/?notice=deleted", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, formValues{}, "The request could not be read.")
		return
	}
	if !strings.EqualFold(strings.TrimSpace(r.PostForm.Get("confirm")), "yes") {
		s.renderError(w, r, http.StatusUnprocessableEntity, formValues{}, "Type yes to confirm erasing every entry.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	if err := s.ledger.Reset(ctx); err != nil {
		s.reqLog.LogError(ctx, "Reset ledger failed", err, applog.ComponentLedger, applog.OpReset, nil)
		s.renderError(w, r, http.StatusInternalServerError, formValues{}, "The ledger could not be reset. Please try again.")
		return
	}
	http.Redirect(w, r, "/?notice=reset", http.StatusSeeOther)
}

// handleInsight summarizes the current month and asks for an insight. The
// page is always rendered; provider problems show as fallback text.
func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(formValues{})
	snap, ok := s.loadSnapshot(w, r, &page)
	if !ok {
		return
	}

	summary := snap.MonthlySummary
	view := &insightView{Provider: page.Provider, Summary: summary.Text()}
	if !summary.Sufficient() {
		view.Warning = true
		view.Text = "There is not enough data for " + page.MonthLabel + " yet. Add an entry for this month first."
	} else if s.insight == nil {
		view.Fallback = true
		view.Text = "Insight is not available right now (no insight provider is configured). Your figures above are up to date."
	} else {
		res := s.insight.Request(r.Context(), summary.Prompt())
		view.Text, view.Fallback, view.Cached = res.Text, res.Fallback, res.Cached
	}
	page.Insight = view
	s.render(w, r, http.StatusOK, page)
}

type periodJSON struct {
	Label   string          `json:"label"`
	Year    int             `json:"year,omitempty"`
	Number  int             `json:"number"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type summaryResponse struct {
	Entries int             `json:"entries"`
	Skipped int             `json:"skipped"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Largest *categoryJSON   `json:"largest_expense_category"`
	Weekly  []periodJSON    `json:"weekly"`
	Monthly []periodJSON    `json:"monthly"`
}

type categoryJSON struct {
	Category core.Category   `json:"category"`
	Sum      decimal.Decimal `json:"sum"`
}

func periodsJSON(t ledger.Totals) []periodJSON {
	out := make([]periodJSON, 0)
	for _, r := range t.Rows() {
		out = append(out, periodJSON{
			Label:   r.Label,
			Year:    r.Period.Year,
			Number:  r.Period.Number,
			Income:  r.Income,
			Expense: r.Expense,
		})
	}
	return out
}

// handleSummary serves the aggregates as JSON for chart clients.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		s.reqLog.LogError(ctx, "Read ledger failed", err, applog.ComponentLedger, applog.OpRead, nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ledger unavailable"})
		return
	}

	resp := summaryResponse{
		Entries: len(snap.Entries),
		Skipped: snap.Skipped,
		Income:  snap.Balance.Income,
		Expense: snap.Balance.Expense,
		Balance: snap.Balance.Balance,
		Weekly:  periodsJSON(snap.Weekly),
		Monthly: periodsJSON(snap.Monthly),
	}
	if snap.HasLargest {
		resp.Largest = &categoryJSON{Category: snap.Largest.Category, Sum: snap.Largest.Sum}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loadSnapshot fills the page from the ledger. On failure it renders the
// page with an error and returns false.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request, page *pageData) (services.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		s.reqLog.LogError(ctx, "Read ledger failed", err, applog.ComponentLedger, applog.OpRead, nil)
		page.Unavailable = true
		page.Error = "The ledger could not be read right now. Please try again."
		s.render(w, r, http.StatusServiceUnavailable, *page)
		return services.Snapshot{}, false
	}
	page.fill(snap)
	return snap, true
}

func (s *Server) renderWithSnapshot(w http.ResponseWriter, r *http.Request, status int, page pageData) {
	if _, ok := s.loadSnapshot(w, r, &page); ok {
		s.render(w, r, status, page)
	}
}

// renderError re-renders the page with message and the submitted form.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, form formValues, message string) {
	page := s.newPage(form)
	page.Error = message
	s.renderWithSnapshot(w, r, status, page)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page pageData) {
	ctx := r.Context()
	if s.templates == nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentTemplate).ErrorContext(ctx, "Templates not loaded")
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "index.html", page); err != nil {
		s.reqLog.LogError(ctx, "Template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrInvalidAmount, core.ErrInvalidCategory,
		core.ErrInvalidKind, core.ErrNoteTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter the date as YYYY-MM-DD."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter the amount as a number of zero or more."
	case errors.Is(err, core.ErrInvalidCategory):
		return "Choose one of the listed categories."
	case errors.Is(err, core.ErrInvalidKind):
		return "Choose Income or Expense."
	case errors.Is(err, core.ErrNoteTooLong):
		return "The note can be at most 200 characters."
	default:
		return "The entry is not valid."
	}
}
