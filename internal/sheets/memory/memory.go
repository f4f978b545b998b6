package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var _ ports.LedgerStore = (*Store)(nil)

// Store keeps the ledger in process memory. Row 0 is always the header.
type Store struct {
	mu   sync.Mutex
	rows [][]string
}

// New returns a store holding the header and the given data rows.
func New(rows ...[]string) *Store {
	s := &Store{rows: [][]string{core.Header()}}
	for _, r := range rows {
		s.rows = append(s.rows, clone(r))
	}
	return s
}

// NewFromFile seeds the store from a CSV file whose first line is a header.
// A missing file yields an empty ledger.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return New(), nil
	}
	s := &Store{}
	for _, rec := range records {
		s.rows = append(s.rows, clone(rec))
	}
	return s, nil
}

// ReadAll returns a copy of every row, header first.
func (s *Store) ReadAll(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = clone(r)
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		s.rows = append(s.rows, core.Header())
	}
	s.rows = append(s.rows, clone(row))
	return nil
}

func (s *Store) DeleteAt(_ context.Context, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ports.CheckPosition(position, len(s.rows)); err != nil {
		return err
	}
	idx := position - 1
	s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
	return nil
}

func (s *Store) ClearKeepingHeader(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = [][]string{core.Header()}
	return nil
}

func (s *Store) ReplaceRows(_ context.Context, rows [][]string) error {
	next := make([][]string, 0, len(rows)+1)
	next = append(next, core.Header())
	for _, r := range rows {
		next = append(next, clone(r))
	}
	s.mu.Lock()
	s.rows = next
	s.mu.Unlock()
	return nil
}

func clone(r []string) []string {
	return append([]string(nil), r...)
}
