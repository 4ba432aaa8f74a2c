package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/outbox"
	"libkiosk/internal/domain/user"
)

const entryColumns = `id, idempotency_key, entity_table, entity_local_id, action, payload, synced, attempts, last_error, enqueued_at, synced_at`

var (
	_ book.Repository      = (*BookRepository)(nil)
	_ user.Repository      = (*UserRepository)(nil)
	_ borrowing.Repository = (*BorrowingRepository)(nil)
	_ outbox.Repository    = (*OutboxRepository)(nil)
)

// enqueue appends an outbox entry inside the caller's transaction.
func enqueue(ctx context.Context, s *Storage, tx DBTX, table outbox.Table, entityID int64, action outbox.Action, snapshot any) error {
	const query = `
		INSERT INTO outbox_entries (idempotency_key, entity_table, entity_local_id, action, payload, synced, attempts, last_error, enqueued_at)
		VALUES (?, ?, ?, ?, ?, FALSE, 0, '', ?)`

	payload, err := outbox.Encode(snapshot)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", table, err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(query),
		outbox.NewKey(), string(table), entityID, string(action), string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", table, action, storageErr(err))
	}
	return nil
}

type OutboxRepository struct {
	s      *Storage
	borrow *BorrowingRepository
	log    *slog.Logger
}

func NewOutboxRepository(s *Storage, log *slog.Logger) *OutboxRepository {
	return &OutboxRepository{
		s:      s,
		borrow: NewBorrowingRepository(s, log),
		log:    log.With("component", "outbox_repository"),
	}
}

func scanEntry(row scanner) (*outbox.Entry, error) {
	var (
		e        outbox.Entry
		payload  string
		syncedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Key, &e.Table, &e.EntityID, &e.Action, &payload, &e.Synced,
		&e.Attempts, &e.LastError, &e.EnqueuedAt, &syncedAt)
	if err != nil {
		return nil, err
	}
	e.Payload = []byte(payload)
	if syncedAt.Valid {
		t := syncedAt.Time
		e.SyncedAt = &t
	}
	return &e, nil
}

func (r *OutboxRepository) ListPending(ctx context.Context, table outbox.Table, limit int) ([]outbox.Entry, error) {
	return r.listPending(ctx, table, 0, limit)
}

func (r *OutboxRepository) ListPendingAfter(ctx context.Context, afterID int64, limit int) ([]outbox.Entry, error) {
	return r.listPending(ctx, "", afterID, limit)
}

func (r *OutboxRepository) listPending(ctx context.Context, table outbox.Table, afterID int64, limit int) ([]outbox.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM outbox_entries WHERE synced = FALSE AND id > ?`
	args := []any{afterID}
	if table != "" {
		query += ` AND entity_table = ?`
		args = append(args, string(table))
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		r.log.Error("failed to list pending entries", "error", err)
		return nil, storageErr(err)
	}
	defer rows.Close()

	entries := make([]outbox.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

func (r *OutboxRepository) Get(ctx context.Context, id int64) (*outbox.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM outbox_entries WHERE id = ?`
	e, err := scanEntry(r.s.db.QueryRowContext(ctx, r.s.rebind(query), id))
	if err != nil {
		return nil, notFound(err, outbox.ErrNotFound)
	}
	return e, nil
}

// MarkSynced is idempotent: replaying it for an already synced entry only refreshes the
// entity flag.
func (r *OutboxRepository) MarkSynced(ctx context.Context, e outbox.Entry, remoteID *int64) error {
	if !e.Table.Valid() {
		return fmt.Errorf("mark synced: unknown table %q", e.Table)
	}
	table := string(e.Table)

	return r.s.RunInTx(ctx, func(tx DBTX) error {
		const mark = `UPDATE outbox_entries SET synced = TRUE, synced_at = ?, last_error = '' WHERE id = ? AND synced = FALSE`
		if _, err := tx.ExecContext(ctx, r.s.rebind(mark), time.Now().UTC(), e.ID); err != nil {
			return storageErr(err)
		}

		if remoteID != nil {
			query := `UPDATE ` + table + ` SET remote_id = ? WHERE id = ?`
			if _, err := tx.ExecContext(ctx, r.s.rebind(query), *remoteID, e.EntityID); err != nil {
				r.log.Error("failed to store remote id", "table", table, "entity_id", e.EntityID, "error", err)
				return storageErr(err)
			}
		}

		query := `
			UPDATE ` + table + `
			SET synced = NOT EXISTS (
				SELECT 1 FROM outbox_entries o
				WHERE o.entity_table = ? AND o.entity_local_id = ? AND o.synced = FALSE
			)
			WHERE id = ?`
		if _, err := tx.ExecContext(ctx, r.s.rebind(query), table, e.EntityID, e.EntityID); err != nil {
			return storageErr(err)
		}
		return nil
	})
}

func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, attempts int, msg string) error {
	const query = `UPDATE outbox_entries SET attempts = attempts + ?, last_error = ? WHERE id = ?`
	if _, err := r.s.db.ExecContext(ctx, r.s.rebind(query), attempts, msg, id); err != nil {
		return storageErr(err)
	}
	return nil
}

// RequeueUnsynced covers entities whose entries were cleared or that never got one. Entities
// the remote has not seen yet are requeued as creates.
func (r *OutboxRepository) RequeueUnsynced(ctx context.Context, table outbox.Table) (int, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("requeue: unknown table %q", table)
	}

	query := `
		SELECT t.id FROM ` + string(table) + ` t
		WHERE t.synced = FALSE AND NOT EXISTS (
			SELECT 1 FROM outbox_entries o
			WHERE o.entity_table = ? AND o.entity_local_id = t.id AND o.synced = FALSE
		)
		ORDER BY t.id`

	var requeued int
	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		ids, err := queryIDs(ctx, tx, r.s.rebind(query), string(table))
		if err != nil {
			return err
		}

		for _, id := range ids {
			var (
				snapshot any
				remoteID *int64
			)
			switch table {
			case outbox.TableUsers:
				u, err := getUser(ctx, r.s, tx, "id = ?", id, false)
				if err != nil {
					return err
				}
				snapshot, remoteID = outbox.NewUserSnapshot(u), u.RemoteID
			case outbox.TableBorrowings:
				d, err := r.borrow.getDetail(ctx, tx, id)
				if err != nil {
					return err
				}
				snapshot, remoteID = outbox.NewBorrowingSnapshot(d), d.RemoteID
			}

			action := outbox.ActionUpdate
			if remoteID == nil {
				action = outbox.ActionCreate
			}
			if err := enqueue(ctx, r.s, tx, table, id, action, snapshot); err != nil {
				return err
			}
			requeued++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if requeued > 0 {
		r.log.Info("unsynced entities requeued", "table", table, "count", requeued)
	}
	return requeued, nil
}

func queryIDs(ctx context.Context, q DBTX, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return ids, nil
}

// Clear flags the entry synced without touching the entity, which stays unsynced and is
// picked up again by the next sweep.
func (r *OutboxRepository) Clear(ctx context.Context, id int64) error {
	e, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if e.Synced {
		return outbox.ErrAlreadySynced
	}

	const query = `UPDATE outbox_entries SET synced = TRUE, synced_at = ?, last_error = 'cleared' WHERE id = ?`
	if _, err := r.s.db.ExecContext(ctx, r.s.rebind(query), time.Now().UTC(), id); err != nil {
		return storageErr(err)
	}
	return nil
}

func (r *OutboxRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_entries WHERE synced = FALSE`).Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (r *OutboxRepository) Stats(ctx context.Context, table outbox.Table) (*outbox.TableStats, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("stats: unknown table %q", table)
	}

	stats := &outbox.TableStats{Table: table}

	query := `SELECT COUNT(*), COALESCE(SUM(CASE WHEN synced THEN 1 ELSE 0 END), 0) FROM ` + string(table)
	if err := r.s.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Synced); err != nil {
		return nil, storageErr(err)
	}
	stats.Pending = stats.Total - stats.Synced

	pending := r.s.rebind(`SELECT COUNT(*) FROM outbox_entries WHERE entity_table = ? AND synced = FALSE`)
	if err := r.s.db.QueryRowContext(ctx, pending, string(table)).Scan(&stats.PendingEntries); err != nil {
		return nil, storageErr(err)
	}
	return stats, nil
}
