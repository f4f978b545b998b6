package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ChangeOp names a ledger mutation carried on the queue.
type ChangeOp string

const (
	OpAppend ChangeOp = "append"
	OpDelete ChangeOp = "delete"
	OpClear  ChangeOp = "clear"
)

// LedgerChange describes one mutation applied to the primary ledger, so that
// a worker can replay it against a mirror. Row is the appended row, or for a
// delete the row that was removed. Timestamp is taken after the primary write.
type LedgerChange struct {
	Op        ChangeOp  `json:"op"`
	Row       []string  `json:"row,omitempty"`
	Position  int       `json:"position,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAppendChange(row []string) *LedgerChange {
	return &LedgerChange{Op: OpAppend, Row: append([]string(nil), row...), Timestamp: time.Now()}
}

// NewDeleteChange records the removal of removed from position. removed may
// be nil when the row could not be read first.
func NewDeleteChange(position int, removed []string) *LedgerChange {
	return &LedgerChange{Op: OpDelete, Position: position, Row: append([]string(nil), removed...), Timestamp: time.Now()}
}

func NewClearChange() *LedgerChange {
	return &LedgerChange{Op: OpClear, Timestamp: time.Now()}
}

// Validate rejects messages that cannot be replayed.
func (m *LedgerChange) Validate() error {
	switch m.Op {
	case OpAppend:
		if len(m.Row) == 0 {
			return errors.New("append change without row")
		}
	case OpDelete:
		if m.Position < core.FirstEntryPosition {
			return fmt.Errorf("delete change with invalid position %d", m.Position)
		}
	case OpClear:
	default:
		return fmt.Errorf("unknown change op %q", m.Op)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChange) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeFromJSON decodes and validates a message.
func LedgerChangeFromJSON(data []byte) (*LedgerChange, error) {
	var msg LedgerChange
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
