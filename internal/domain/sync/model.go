package sync

import (
	"time"

	"libkiosk/internal/domain/outbox"
)

type Config struct {
	// MaxRetries is the total number of attempts per entry and drain, including the first.
	MaxRetries int
	// BaseBackoff is multiplied by 2^n before retry n+1.
	BaseBackoff time.Duration
	// BulkDelay separates remote calls during SyncAllPending.
	BulkDelay time.Duration
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: time.Second,
		BulkDelay:   500 * time.Millisecond,
		BatchSize:   100,
	}
}

// Result summarises one drain or sweep.
type Result struct {
	Processed  int           `json:"processed"`
	Synced     int           `json:"synced"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Requeued   int           `json:"requeued,omitempty"`
	Errors     []EntryError  `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

type EntryError struct {
	EntryID  int64        `json:"entry_id"`
	Table    outbox.Table `json:"entity_table"`
	EntityID int64        `json:"entity_local_id"`
	Attempts int          `json:"attempts"`
	Error    string       `json:"error"`
}

// Stats are the engine counters since process start.
type Stats struct {
	Running         bool      `json:"running"`
	Runs            int       `json:"runs"`
	TotalSynced     int       `json:"total_synced"`
	TotalDuplicates int       `json:"total_duplicates"`
	TotalFailed     int       `json:"total_failed"`
	LastRunAt       time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt   time.Time `json:"last_success_at,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

type Status struct {
	Users             outbox.TableStats `json:"users"`
	Borrowings        outbox.TableStats `json:"borrowings"`
	PendingEntries    int               `json:"pending_entries"`
	OverallPercentage float64           `json:"overall_sync_percentage"`
}

type PullResult struct {
	Received int      `json:"received"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
