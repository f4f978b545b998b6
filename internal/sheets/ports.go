package sheets

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// ErrPositionOutOfRange is returned by DeleteAt for a position that does not
// address a data row. The ledger is left untouched.
var ErrPositionOutOfRange = errors.New("row position out of range")

// Ports for outbound adapters.
type (
	// LedgerStore is a positional row store. ReadAll returns the header as
	// the first row. Positions are 1-based and count the header, so the
	// first entry lives at core.FirstEntryPosition.
	LedgerStore interface {
		ReadAll(ctx context.Context) ([][]string, error)
		Append(ctx context.Context, row []string) error
		DeleteAt(ctx context.Context, position int) error
		ClearKeepingHeader(ctx context.Context) error
		// ReplaceRows swaps every data row for rows in a single write,
		// keeping the header.
		ReplaceRows(ctx context.Context, rows [][]string) error
	}
)

// CheckPosition validates a deletion target against the current row count
// (header included).
func CheckPosition(position, rowCount int) error {
	if position < core.FirstEntryPosition || position > rowCount {
		return fmt.Errorf("%w: %d (valid %d..%d)", ErrPositionOutOfRange, position, core.FirstEntryPosition, rowCount)
	}
	return nil
}
