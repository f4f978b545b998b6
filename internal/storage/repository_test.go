package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	ports "fintrack/internal/sheets"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteAppendAndReadAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rows, err := repo.ReadAll(ctx)
	if err != nil || len(rows) != 1 || rows[0][0] != "Date" {
		t.Fatalf("fresh ledger should be header only: %v err=%v", rows, err)
	}

	if err := repo.Append(ctx, []string{"2024/03/01", "Food", "Expense", "20000", "lunch"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, []string{"2024/03/05", "Project", "Income", "100000"}); err != nil {
		t.Fatalf("append short row: %v", err)
	}
	rows, err = repo.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 || rows[1][4] != "lunch" || rows[2][4] != "" || rows[2][2] != "Income" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Fatalf("count = %d", n)
	}
}

func TestSQLiteDeleteAt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, note := range []string{"a", "b", "c"} {
		if err := repo.Append(ctx, []string{"2024/03/01", "Food", "Expense", "1", note}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := repo.DeleteAt(ctx, 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ := repo.ReadAll(ctx)
	if len(rows) != 3 || rows[1][4] != "a" || rows[2][4] != "c" {
		t.Fatalf("unexpected rows after delete %v", rows)
	}
	for _, pos := range []int{0, 1, 4} {
		if err := repo.DeleteAt(ctx, pos); !errors.Is(err, ports.ErrPositionOutOfRange) {
			t.Fatalf("position %d: expected ErrPositionOutOfRange, got %v", pos, err)
		}
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Fatalf("failed deletes changed the ledger, count = %d", n)
	}
}

func TestSQLiteClearAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = repo.Append(ctx, []string{"2024/03/01", "Food", "Expense", "1", ""})
	_ = repo.Close()

	// Migrations are idempotent and data survives a reopen.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("expected persisted row, count = %d", n)
	}
	if err := repo.ClearKeepingHeader(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	rows, _ := repo.ReadAll(ctx)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
}

func TestSQLiteReplaceRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, note := range []string{"old 1", "old 2", "old 3"} {
		if err := repo.Append(ctx, []string{"2023/01/01", "Other", "Expense", "1", note}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	err := repo.ReplaceRows(ctx, [][]string{
		{"2024/03/01", "Food", "Expense", "20000", "lunch"},
		{"2024/03/05", "Project", "Income", "100000"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	rows, _ := repo.ReadAll(ctx)
	if len(rows) != 3 || rows[1][4] != "lunch" || rows[2][4] != "" {
		t.Fatalf("unexpected rows after replace %v", rows)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}
}
