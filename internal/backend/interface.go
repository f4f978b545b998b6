package backend

import (
	"context"

	"fintrack/internal/services"
	"fintrack/internal/sheets"
)

// BackendResult contains the ledger store and what else the backend brought
// up. Whoever owns the result closes Store and Publisher when they implement
// io.Closer; services.LedgerService.Close does this.
type BackendResult struct {
	Store sheets.LedgerStore
	// Publisher is nil unless the backend mirrors changes through AMQP.
	Publisher services.ChangePublisher
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateSheetsStore(ctx context.Context, config Config) (sheets.LedgerStore, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	MemorySeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
