package outbox

import "context"

// Repository is the drain side of the outbox. Entries are appended by the entity repositories
// inside their own transactions.
type Repository interface {
	// ListPending returns unsynced entries in enqueue order. An empty table means every table,
	// limit <= 0 means no limit.
	ListPending(ctx context.Context, table Table, limit int) ([]Entry, error)
	// ListPendingAfter pages through unsynced entries of every table with an id above afterID.
	ListPendingAfter(ctx context.Context, afterID int64, limit int) ([]Entry, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	// MarkSynced flags the entry, stores remoteID on the entity when given and recomputes the
	// entity synced flag, all in one transaction.
	MarkSynced(ctx context.Context, e Entry, remoteID *int64) error
	RecordFailure(ctx context.Context, id int64, attempts int, msg string) error
	// RequeueUnsynced enqueues an update for every unsynced entity that has no pending entry.
	RequeueUnsynced(ctx context.Context, table Table) (int, error)
	// Clear marks a pending entry synced without sending it.
	Clear(ctx context.Context, id int64) error
	PendingCount(ctx context.Context) (int, error)
	Stats(ctx context.Context, table Table) (*TableStats, error)
}
