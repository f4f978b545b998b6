// Package googletest serves an in-memory stand-in for the Sheets endpoints
// the ledger client calls, for use in tests.
package googletest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Call kinds counted in Server.Calls and accepted by Server.FailOn.
const (
	CallRead     = "read"
	CallAppend   = "append"
	CallUpdate   = "update"
	CallClear    = "clear"
	CallBatch    = "batchUpdate"
	CallMetadata = "metadata"
)

// Server holds one tab. Fields may be set before the first request and read
// once the client calls have returned.
type Server struct {
	mu sync.Mutex

	// Rows is the tab content, header first, as the API would return it.
	Rows    [][]any
	SheetID int64
	Title   string

	// Interpret stores USER_ENTERED input the way Sheets does: dates become
	// serial day numbers, numbers become float64, a leading quote is dropped.
	Interpret bool

	// FailOn makes every call of that kind answer 500.
	FailOn string

	Calls       map[string]int
	InputOption string
}

// Start serves s until the test ends and returns a service pointed at it.
func Start(t testing.TB, s *Server) *gsheet.Service {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return svc
}

// SetFailOn changes the failing call kind while the server is in use.
func (s *Server) SetFailOn(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailOn = kind
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Calls == nil {
		s.Calls = map[string]int{}
	}
	w.Header().Set("Content-Type", "application/json")

	kind, a1 := classify(r)
	if kind == "" {
		http.NotFound(w, r)
		return
	}
	s.Calls[kind]++
	if kind == s.FailOn {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
		return
	}

	switch kind {
	case CallRead:
		_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Values: s.Rows})
		return
	case CallMetadata:
		title := s.Title
		if title == "" {
			title = "Ledger"
		}
		_ = json.NewEncoder(w).Encode(gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
			{Properties: &gsheet.SheetProperties{Title: "Other", SheetId: s.SheetID + 1}},
			{Properties: &gsheet.SheetProperties{Title: title, SheetId: s.SheetID}},
		}})
		return
	case CallAppend:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		s.InputOption = r.URL.Query().Get("valueInputOption")
		for _, row := range vr.Values {
			s.Rows = append(s.Rows, s.store(row))
		}
	case CallUpdate:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		s.InputOption = r.URL.Query().Get("valueInputOption")
		start, _ := rowSpan(a1)
		for i, row := range vr.Values {
			idx := start - 1 + i
			for len(s.Rows) <= idx {
				s.Rows = append(s.Rows, []any{})
			}
			s.Rows[idx] = s.store(row)
		}
	case CallClear:
		start, end := rowSpan(a1)
		if end == 0 || end > len(s.Rows) {
			end = len(s.Rows)
		}
		for i := start - 1; i < end; i++ {
			s.Rows[i] = []any{}
		}
		s.trim()
	case CallBatch:
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			d := rq.DeleteDimension
			if d == nil || d.Range.SheetId != s.SheetID || d.Range.EndIndex > int64(len(s.Rows)) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad range"}}`))
				return
			}
			s.Rows = append(s.Rows[:d.Range.StartIndex], s.Rows[d.Range.EndIndex:]...)
		}
	}
	_, _ = w.Write([]byte(`{}`))
}

func classify(r *http.Request) (kind, a1 string) {
	p := r.URL.Path
	if i := strings.Index(p, "/values/"); i >= 0 {
		rng := p[i+len("/values/"):]
		switch {
		case r.Method == http.MethodGet:
			return CallRead, rng
		case r.Method == http.MethodPut:
			return CallUpdate, rng
		case strings.HasSuffix(rng, ":append"):
			return CallAppend, strings.TrimSuffix(rng, ":append")
		case strings.HasSuffix(rng, ":clear"):
			return CallClear, strings.TrimSuffix(rng, ":clear")
		}
		return "", ""
	}
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(p, ":batchUpdate"):
		return CallBatch, ""
	case r.Method == http.MethodGet:
		return CallMetadata, ""
	}
	return "", ""
}

// rowSpan returns the 1-based first and last rows of an A1 range such as
// "'Ledger'!A2:E5". end is 0 when the range is open below.
func rowSpan(a1 string) (start, end int) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	from, to, hasTo := strings.Cut(a1, ":")
	start = rowNumber(from)
	if start == 0 {
		start = 1
	}
	if hasTo {
		end = rowNumber(to)
	} else {
		end = start
	}
	return start, end
}

func rowNumber(cell string) int {
	n, _ := strconv.Atoi(strings.TrimLeft(cell, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return n
}

func (s *Server) trim() {
	n := len(s.Rows)
	for n > 0 && len(s.Rows[n-1]) == 0 {
		n--
	}
	s.Rows = s.Rows[:n]
}

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func (s *Server) store(row []any) []any {
	out := make([]any, 0, len(row))
	for _, v := range row {
		str, ok := v.(string)
		if !s.Interpret || !ok {
			out = append(out, v)
			continue
		}
		out = append(out, interpret(str))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func interpret(v string) any {
	if strings.HasPrefix(v, "'") {
		return v[1:]
	}
	for _, layout := range []string{"2006/01/02", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return float64(t.Sub(serialEpoch) / (24 * time.Hour))
		}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
