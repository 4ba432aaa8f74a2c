package outbox

import (
	"encoding/json"
	"time"
)

type Table string

const (
	TableUsers      Table = "users"
	TableBorrowings Table = "borrowings"
)

func (t Table) Valid() bool {
	return t == TableUsers || t == TableBorrowings
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is one owed sync. Payload is the entity snapshot at enqueue time and never changes.
type Entry struct {
	ID         int64           `json:"id"`
	Key        string          `json:"idempotency_key"`
	Table      Table           `json:"entity_table"`
	EntityID   int64           `json:"entity_local_id"`
	Action     Action          `json:"action"`
	Payload    json.RawMessage `json:"payload"`
	Synced     bool            `json:"synced"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"last_error,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	SyncedAt   *time.Time      `json:"synced_at,omitempty"`
}

// TableStats counts entities of one table by sync state.
type TableStats struct {
	Table          Table `json:"table"`
	Total          int   `json:"total"`
	Synced         int   `json:"synced"`
	Pending        int   `json:"pending"`
	PendingEntries int   `json:"pending_entries"`
}
