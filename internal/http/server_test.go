package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/insight"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
	"fintrack/internal/sheets/memory"
)

type fakeInsight struct {
	prompts []string
	text    string
}

func (f *fakeInsight) Request(_ context.Context, prompt string) insight.Result {
	f.prompts = append(f.prompts, prompt)
	return insight.Result{Text: f.text}
}

func (f *fakeInsight) Provider() string { return "fake" }

type brokenLedger struct{ err error }

func (b brokenLedger) AddEntry(context.Context, core.Entry) error { return b.err }
func (b brokenLedger) DeleteAt(context.Context, int) error        { return b.err }
func (b brokenLedger) Reset(context.Context) error                { return b.err }
func (b brokenLedger) Ping(context.Context) error                 { return b.err }
func (b brokenLedger) Snapshot(context.Context) (services.Snapshot, error) {
	return services.Snapshot{}, b.err
}

func newTestServer(t *testing.T, rows ...[]string) (*Server, *memory.Store, *fakeInsight) {
	t.Helper()
	store := memory.New(rows...)
	ins := &fakeInsight{text: "Spend a little less on food."}
	srv := NewServer(":0", services.NewLedgerService(store, nil, ledger.Options{}), ins, nil, Options{})
	srv.today = func() core.Date { return core.NewDate(2024, 3, 10) }
	t.Cleanup(srv.rateLimiter.stop)
	return srv, store, ins
}

func do(srv *Server, method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func storedRows(t *testing.T, store *memory.Store) [][]string {
	t.Helper()
	rows, err := store.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return rows
}

func TestIndexAndHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No financial records yet.") {
		t.Fatalf("empty ledger message missing: %s", body)
	}
	if !strings.Contains(body, `value="2024-03-10"`) || !strings.Contains(body, `name="amount" inputmode="decimal" value="0"`) {
		t.Fatalf("form defaults missing: %s", body)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing security or request id headers: %v", rr.Header())
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/style.css"} {
		if rr := do(srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestIndexShowsLedger(t *testing.T) {
	srv, _, _ := newTestServer(t,
		[]string{"2024/03/01", "Food", "Expense", "20000", "lunch"},
		[]string{"2024/03/05", "Project", "Income", "100000", "invoice"},
	)

	rr := do(srv, http.MethodGet, "/?notice=added", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Entry saved.", "Rp 80,000", "Rp 100,000", "invoice", "Food (Rp 20,000)", "Weekly totals", "Monthly totals", "Mar 2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "No financial records yet.") {
		t.Error("non-empty ledger rendered as empty")
	}

	rr = do(srv, http.MethodGet, "/?notice=%3Cb%3Ex%3C%2Fb%3E", nil)
	if strings.Contains(rr.Body.String(), "<b>x</b>") {
		t.Error("unknown notice must not be echoed")
	}
}

func TestCreateEntry(t *testing.T) {
	srv, store, _ := newTestServer(t)

	if rr := do(srv, http.MethodGet, "/entries", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantBody string
	}{
		{
			name:     "invalid amount",
			form:     url.Values{"date": {"2024-03-01"}, "category": {"Food"}, "kind": {"Expense"}, "amount": {"abc"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Enter the amount",
		},
		{
			name:     "negative amount",
			form:     url.Values{"date": {"2024-03-01"}, "category": {"Food"}, "kind": {"Expense"}, "amount": {"-5"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Enter the amount",
		},
		{
			name:     "unknown category",
			form:     url.Values{"date": {"2024-03-01"}, "category": {"Rent"}, "kind": {"Expense"}, "amount": {"5"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Choose one of the listed categories.",
		},
		{
			name:     "bad date",
			form:     url.Values{"date": {"yesterday"}, "category": {"Food"}, "kind": {"Expense"}, "amount": {"5"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "YYYY-MM-DD",
		},
		{
			name:     "note too long",
			form:     url.Values{"date": {"2024-03-01"}, "category": {"Food"}, "kind": {"Expense"}, "amount": {"5"}, "note": {strings.Repeat("n", 201)}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "200 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/entries", tt.form)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantCode)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Fatalf("body missing %q", tt.wantBody)
			}
		})
	}
	if rows := storedRows(t, store); len(rows) != 1 {
		t.Fatalf("rejected entries must not be stored: %v", rows)
	}

	rr := do(srv, http.MethodPost, "/entries", url.Values{
		"date": {"2024-03-01"}, "category": {"food"}, "kind": {"Expense"}, "amount": {"20000"}, "note": {" lunch "},
	})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/?notice=added" {
		t.Fatalf("expected redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = do(srv, http.MethodPost, "/entries", url.Values{"category": {"Other"}, "kind": {"Income"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("defaults should be accepted, got %d: %s", rr.Code, rr.Body.String())
	}

	rows := storedRows(t, store)
	want := [][]string{
		core.Header(),
		{"2024/03/01", "Food", "Expense", "20000", "lunch"},
		{"2024/03/10", "Other", "Income", "0", ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i+1, rows[i], want[i])
		}
	}
}

func TestDeleteEntry(t *testing.T) {
	srv, store, _ := newTestServer(t,
		[]string{"2024/03/01", "Food", "Expense", "20000", "first"},
		[]string{"2024/03/05", "Project", "Income", "100000", "second"},
	)

	for _, pos := range []string{"1", "4", "abc"} {
		rr := do(srv, http.MethodPost, "/entries/delete", url.Values{"position": {pos}})
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("position %s: status=%d", pos, rr.Code)
		}
	}
	if rows := storedRows(t, store); len(rows) != 3 {
		t.Fatalf("failed deletes must not change the ledger: %v", rows)
	}

	rr := do(srv, http.MethodPost, "/entries/delete", url.Values{"position": {"2"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	rows := storedRows(t, store)
	if len(rows) != 2 || rows[1][4] != "second" {
		t.Fatalf("rows after delete = %v", rows)
	}
}

func TestReset(t *testing.T) {
	srv, store, _ := newTestServer(t, []string{"2024/03/01", "Food", "Expense", "20000", ""})

	rr := do(srv, http.MethodPost, "/entries/reset", url.Values{"confirm": {"no"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unconfirmed reset status=%d", rr.Code)
	}
	if rows := storedRows(t, store); len(rows) != 2 {
		t.Fatal("unconfirmed reset must not clear")
	}

	rr = do(srv, http.MethodPost, "/entries/reset", url.Values{"confirm": {"yes"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	if rows := storedRows(t, store); len(rows) != 1 || rows[0][0] != "Date" {
		t.Fatalf("expected header only, got %v", rows)
	}
}

func TestInsight(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		srv, _, ins := newTestServer(t)
		rr := do(srv, http.MethodPost, "/insight", url.Values{})
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "not enough data") {
			t.Fatalf("missing warning: %s", rr.Body.String())
		}
		if len(ins.prompts) != 0 {
			t.Fatal("provider must not be called without data")
		}
	})

	t.Run("current month data", func(t *testing.T) {
		today := core.Today().Format(core.DateLayout)
		srv, _, ins := newTestServer(t, []string{today, "Food", "Expense", "20000", ""})
		rr := do(srv, http.MethodPost, "/insight", url.Values{})
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Spend a little less on food.") {
			t.Fatalf("insight text missing: %s", rr.Body.String())
		}
		if len(ins.prompts) != 1 || !strings.Contains(ins.prompts[0], "Food: Rp 20,000") {
			t.Fatalf("prompts = %q", ins.prompts)
		}
	})

	t.Run("only earlier months", func(t *testing.T) {
		srv, _, ins := newTestServer(t, []string{"2000/01/15", "Transport", "Expense", "5000", ""})
		rr := do(srv, http.MethodPost, "/insight", url.Values{})
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		if strings.Contains(rr.Body.String(), "not enough data") {
			t.Fatalf("earlier month should be summarized: %s", rr.Body.String())
		}
		if !strings.Contains(rr.Body.String(), "Insight for Jan 2000") {
			t.Fatalf("heading should name the month: %s", rr.Body.String())
		}
		if len(ins.prompts) != 1 || !strings.Contains(ins.prompts[0], "Total expense in Jan 2000: Rp 5,000") {
			t.Fatalf("prompts = %q", ins.prompts)
		}
	})
}

func TestSummaryJSON(t *testing.T) {
	srv, _, _ := newTestServer(t,
		[]string{"2024/03/01", "Food", "Expense", "20000", ""},
		[]string{"2024/03/05", "Project", "Income", "100000", ""},
		[]string{"bad", "Food", "Expense", "1", ""},
	)

	rr := do(srv, http.MethodGet, "/api/summary", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	var resp summaryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Entries != 2 || resp.Skipped != 1 {
		t.Errorf("entries=%d skipped=%d", resp.Entries, resp.Skipped)
	}
	if !resp.Balance.Equal(decimal.NewFromInt(80000)) {
		t.Errorf("balance = %s", resp.Balance)
	}
	if resp.Largest == nil || resp.Largest.Category != core.Food {
		t.Errorf("largest = %+v", resp.Largest)
	}
	if len(resp.Monthly) != 1 || resp.Monthly[0].Label != "Mar 2024" || !resp.Monthly[0].Income.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("monthly = %+v", resp.Monthly)
	}
}

func TestLedgerUnavailable(t *testing.T) {
	srv := NewServer(":0", brokenLedger{err: errors.New("sheet gone")}, nil, nil, Options{})
	defer srv.rateLimiter.stop()

	if rr := do(srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "could not be read") {
		t.Fatalf("index status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/api/summary", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("summary status=%d", rr.Code)
	}
}

func TestPostRateLimit(t *testing.T) {
	store := memory.New()
	srv := NewServer(":0", services.NewLedgerService(store, nil, ledger.Options{}), nil, nil, Options{PostsPerMinute: 1, Burst: 1})
	defer srv.rateLimiter.stop()

	form := url.Values{"confirm": {"yes"}}
	if rr := do(srv, http.MethodPost, "/entries/reset", form); rr.Code != http.StatusSeeOther {
		t.Fatalf("first post status=%d", rr.Code)
	}
	rr := do(srv, http.MethodPost, "/entries/reset", form)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second post status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/", nil); rr.Code != http.StatusOK {
		t.Fatalf("GET must not be limited, status=%d", rr.Code)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.7:5555", "", "203.0.113.7"},
		{"untrusted proxy header ignored", "203.0.113.7:5555", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy", "10.0.0.2:5555", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad header", "127.0.0.1:5555", "garbage", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBarWidth(t *testing.T) {
	top := decimal.NewFromInt(1000)
	tests := []struct {
		v    int64
		want int
	}{
		{0, 0},
		{1, 2},
		{500, 50},
		{1000, 100},
	}
	for _, tt := range tests {
		if got := barWidth(decimal.NewFromInt(tt.v), top); got != tt.want {
			t.Errorf("barWidth(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
	if got := barWidth(decimal.NewFromInt(5), decimal.Zero); got != 0 {
		t.Errorf("zero max should give 0, got %d", got)
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  lunch  ", "lunch"},
		{"<b>lunch</b> & co", "lunch & co"},
		{"<script>alert(1)</script>rent", "rent"},
		{"tab\there", "tabhere"},
	}
	for _, tt := range tests {
		if got := sanitizeText(tt.in); got != tt.want {
			t.Errorf("sanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
