package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.LedgerStore = (*SQLiteRepository)(nil)

// SQLiteRepository keeps the ledger in a local SQLite file. The header is not
// stored; rows are ordered by insertion id, which gives them their position.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps position lookups and deletes consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadAll implements sheets.LedgerStore
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, category, kind, amount, note FROM ledger_rows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	out := [][]string{core.Header()}
	for rows.Next() {
		row := make([]string, 5)
		if err := rows.Scan(&row[0], &row[1], &row[2], &row[3], &row[4]); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return out, nil
}

// Append implements sheets.LedgerStore
func (r *SQLiteRepository) Append(ctx context.Context, row []string) error {
	id, err := insertRow(ctx, r.db, row)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Ledger row saved to SQLite", "id", id)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, db execer, row []string) (int64, error) {
	cols := make([]any, 5)
	for i := range cols {
		if i < len(row) {
			cols[i] = row[i]
		} else {
			cols[i] = ""
		}
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO ledger_rows (date, category, kind, amount, note) VALUES (?, ?, ?, ?, ?)`, cols...)
	if err != nil {
		return 0, fmt.Errorf("insert ledger row: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// DeleteAt implements sheets.LedgerStore
func (r *SQLiteRepository) DeleteAt(ctx context.Context, position int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_rows`).Scan(&count); err != nil {
		return fmt.Errorf("count ledger rows: %w", err)
	}
	if err := ports.CheckPosition(position, count+core.HeaderRows); err != nil {
		return err
	}

	var id int64
	offset := position - core.FirstEntryPosition
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM ledger_rows ORDER BY id LIMIT 1 OFFSET ?`, offset).Scan(&id); err != nil {
		return fmt.Errorf("locate row %d: %w", position, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete row %d: %w", position, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	slog.InfoContext(ctx, "Ledger row deleted from SQLite", "position", position, "id", id)
	return nil
}

// ClearKeepingHeader implements sheets.LedgerStore
func (r *SQLiteRepository) ClearKeepingHeader(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledger_rows`); err != nil {
		return fmt.Errorf("clear ledger rows: %w", err)
	}
	return nil
}

// ReplaceRows implements sheets.LedgerStore. The swap is one transaction.
func (r *SQLiteRepository) ReplaceRows(ctx context.Context, rows [][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows`); err != nil {
		return fmt.Errorf("clear ledger rows: %w", err)
	}
	for i, row := range rows {
		if _, err := insertRow(ctx, tx, row); err != nil {
			return fmt.Errorf("row %d: %w", i+core.FirstEntryPosition, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_rows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger rows: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
