package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	ports "fintrack/internal/sheets"
)

// SyncWorker replays ledger changes from the local store onto a mirror,
// normally the Google Sheet.
type SyncWorker struct {
	local  ports.LedgerStore
	mirror ports.LedgerStore
	now    func() time.Time

	// Changes and full mirrors must not interleave.
	mu sync.Mutex
	// mirroredAt is when the last full mirror read the local ledger. Every
	// change stamped before it is already on the mirror.
	mirroredAt time.Time
}

func NewSyncWorker(local, mirror ports.LedgerStore) *SyncWorker {
	return &SyncWorker{local: local, mirror: mirror, now: time.Now}
}

// HandleChange applies one queued change. Changes a full mirror already
// covered are acknowledged without touching the mirror. A delete whose target
// row is not where the change says triggers a full mirror instead.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.LedgerChange) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.InfoContext(ctx, "Processing ledger change",
		"op", msg.Op,
		"position", msg.Position,
		"timestamp", msg.Timestamp)

	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(w.mirroredAt) {
		slog.DebugContext(ctx, "Change already covered by mirror",
			"op", msg.Op,
			"mirrored_at", w.mirroredAt)
		return nil
	}

	switch msg.Op {
	case amqp.OpAppend:
		if err := w.mirror.Append(ctx, msg.Row); err != nil {
			return fmt.Errorf("append to mirror: %w", err)
		}
	case amqp.OpDelete:
		return w.deleteLocked(ctx, msg)
	case amqp.OpClear:
		if err := w.mirror.ClearKeepingHeader(ctx); err != nil {
			return fmt.Errorf("clear mirror: %w", err)
		}
	default:
		return fmt.Errorf("unknown change op %q", msg.Op)
	}
	return nil
}

func (w *SyncWorker) deleteLocked(ctx context.Context, msg *amqp.LedgerChange) error {
	if len(msg.Row) == 0 {
		slog.WarnContext(ctx, "Delete without row content, rewriting mirror",
			"position", msg.Position)
		return w.mirrorLocked(ctx)
	}
	rows, err := w.mirror.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read mirror: %w", err)
	}
	if msg.Position > len(rows) || !sameRow(rows[msg.Position-1], msg.Row) {
		slog.WarnContext(ctx, "Mirror out of step, rewriting it",
			"position", msg.Position)
		return w.mirrorLocked(ctx)
	}
	err = w.mirror.DeleteAt(ctx, msg.Position)
	if errors.Is(err, ports.ErrPositionOutOfRange) {
		return w.mirrorLocked(ctx)
	}
	if err != nil {
		return fmt.Errorf("delete from mirror: %w", err)
	}
	return nil
}

// Mirror rewrites the mirror from the local ledger when the two differ.
func (w *SyncWorker) Mirror(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mirrorLocked(ctx)
}

func (w *SyncWorker) mirrorLocked(ctx context.Context) error {
	started := w.now()
	src, err := w.local.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read local ledger: %w", err)
	}
	dst, err := w.mirror.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read mirror: %w", err)
	}
	if sameData(src, dst) {
		w.mirroredAt = started
		slog.DebugContext(ctx, "Mirror already in sync", "rows", len(src))
		return nil
	}

	var data [][]string
	if len(src) > 1 {
		data = src[1:]
	}
	if err := w.mirror.ReplaceRows(ctx, data); err != nil {
		return fmt.Errorf("rewrite mirror: %w", err)
	}
	w.mirroredAt = started
	slog.InfoContext(ctx, "Mirror rewritten from local ledger", "rows", len(data))
	return nil
}

// sameData compares the data rows by content, ignoring the header row.
func sameData(a, b [][]string) bool {
	if len(a) <= 1 && len(b) <= 1 {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	for i := 1; i < len(a); i++ {
		if !sameRow(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameRow(a, b []string) bool {
	return slices.Equal(ledger.CanonicalRow(a), ledger.CanonicalRow(b))
}
