package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	ports "fintrack/internal/sheets"
)

// ChangePublisher receives every successful ledger mutation.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, change *amqp.LedgerChange) error
}

// Snapshot is everything the presenter derives from one read of the ledger.
type Snapshot struct {
	Entries      []core.Entry
	Skipped      int
	Weekly       ledger.Totals
	Monthly      ledger.Totals
	Balance      ledger.Balance
	Largest      ledger.CategoryTotal
	HasLargest   bool
	CurrentMonth ledger.Period
	// InsightMonth is CurrentMonth, or the latest earlier month with entries
	// while the current one has none. MonthlySummary covers it.
	InsightMonth   ledger.Period
	MonthlySummary ledger.InsightSummary
}

// Empty reports whether the ledger holds no valid entries.
func (s Snapshot) Empty() bool { return len(s.Entries) == 0 }

// Recent returns up to n entries, newest row last, as they appear in the sheet.
func (s Snapshot) Recent(n int) []core.Entry {
	if n <= 0 || len(s.Entries) <= n {
		return s.Entries
	}
	return s.Entries[len(s.Entries)-n:]
}

// LedgerService orchestrates ledger operations across the store and the
// optional change publisher.
type LedgerService struct {
	store     ports.LedgerStore
	publisher ChangePublisher
	opts      ledger.Options
	now       func() time.Time

	// Serializes mutations so a delete addresses the row the caller saw.
	mu sync.Mutex
}

func NewLedgerService(store ports.LedgerStore, publisher ChangePublisher, opts ledger.Options) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// AddEntry validates the entry and appends it as a new row.
func (s *LedgerService) AddEntry(ctx context.Context, e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	row := e.Row()

	s.mu.Lock()
	err := s.store.Append(ctx, row)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry appended",
		"date", row[core.ColDate],
		"category", e.Category,
		"kind", e.Kind,
		"amount", row[core.ColAmount])
	s.publish(ctx, amqp.NewAppendChange(row))
	return nil
}

// DeleteAt removes the row at position (header is position 1).
func (s *LedgerService) DeleteAt(ctx context.Context, position int) error {
	s.mu.Lock()
	removed := s.rowAt(ctx, position)
	err := s.store.DeleteAt(ctx, position)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, ports.ErrPositionOutOfRange) {
			return err
		}
		return fmt.Errorf("delete row %d: %w", position, err)
	}

	slog.InfoContext(ctx, "Entry deleted", "position", position)
	s.publish(ctx, amqp.NewDeleteChange(position, removed))
	return nil
}

// rowAt returns the row a delete is about to remove so the change message can
// name it. Without a publisher nothing needs it and the read is skipped.
func (s *LedgerService) rowAt(ctx context.Context, position int) []string {
	if s.publisher == nil || position < core.FirstEntryPosition {
		return nil
	}
	rows, err := s.store.ReadAll(ctx)
	if err != nil || position > len(rows) {
		return nil
	}
	return rows[position-1]
}

// Reset erases every entry, keeping only the header.
func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	err := s.store.ClearKeepingHeader(ctx)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}

	slog.WarnContext(ctx, "Ledger reset")
	s.publish(ctx, amqp.NewClearChange())
	return nil
}

// Entries reads and parses the whole ledger. Malformed rows are counted in
// skipped and otherwise ignored.
func (s *LedgerService) Entries(ctx context.Context) (entries []core.Entry, skipped int, err error) {
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read ledger: %w", err)
	}
	entries, skipped = ledger.ParseRows(rows)
	if skipped > 0 {
		slog.DebugContext(ctx, "Skipped malformed ledger rows", "count", skipped)
	}
	return entries, skipped, nil
}

// Snapshot reads the ledger once and computes every aggregate.
func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	entries, skipped, err := s.Entries(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	current := ledger.PeriodOf(core.Date{Time: s.now()}, ledger.Monthly, ledger.Options{})
	month := ledger.InsightMonth(entries, current)
	monthly := ledger.MonthlyTotals(entries, s.opts)
	summary := ledger.Summarize(entries, month)
	if month != current {
		summary.Label = monthly.Label(month)
	}
	largest, found := ledger.LargestExpenseCategory(entries)
	return Snapshot{
		Entries:        entries,
		Skipped:        skipped,
		Weekly:         ledger.WeeklyTotals(entries, s.opts),
		Monthly:        monthly,
		Balance:        ledger.CurrentBalance(entries),
		Largest:        largest,
		HasLargest:     found,
		CurrentMonth:   current,
		InsightMonth:   month,
		MonthlySummary: summary,
	}, nil
}

// Ping checks that the ledger can be read.
func (s *LedgerService) Ping(ctx context.Context) error {
	_, err := s.store.ReadAll(ctx)
	return err
}

func (s *LedgerService) publish(ctx context.Context, change *amqp.LedgerChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, change); err != nil {
		// The local write already succeeded; the worker's periodic mirror catches up.
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"op", change.Op,
			"error", err)
	}
}

// Close releases the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
