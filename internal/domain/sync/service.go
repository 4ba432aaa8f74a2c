package sync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/event"
	"libkiosk/internal/domain/outbox"
	"libkiosk/internal/domain/user"
)

type Servicer interface {
	Drain(ctx context.Context) (*Result, error)
	SyncAllPending(ctx context.Context, table outbox.Table) (*Result, error)
	Trigger()
	Status(ctx context.Context) (*Status, error)
	TestConnection(ctx context.Context) (string, error)
	PullBooks(ctx context.Context) (*PullResult, error)
	Stats() Stats
	Clear(ctx context.Context, id int64) error
}

// Engine drains the outbox to the remote catalog. At most one drain or sweep runs at a time.
type Engine struct {
	outbox     outbox.Repository
	users      UserSource
	borrowings BorrowingSource
	books      BookApplier
	remote     Remote
	cfg        Config
	events     event.Publisher
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	log        *slog.Logger

	mu      sync.RWMutex
	running bool
	stats   Stats

	triggers chan struct{}
}

type Option func(*Engine)

func WithPublisher(p event.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithSleep replaces the backoff and bulk-delay sleep. Tests use it to record delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds the sync engine. A nil remote leaves the engine usable for Status and Clear only.
func NewEngine(
	repo outbox.Repository,
	users UserSource,
	borrowings BorrowingSource,
	books BookApplier,
	remote Remote,
	cfg Config,
	log *slog.Logger,
	opts ...Option,
) *Engine {
	def := DefaultConfig()
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.BulkDelay < 0 {
		cfg.BulkDelay = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}

	e := &Engine{
		outbox:     repo,
		users:      users,
		borrowings: borrowings,
		books:      books,
		remote:     remote,
		cfg:        cfg,
		events:     event.Nop(),
		sleep:      sleepContext,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With("component", "sync_engine"),
		triggers:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Trigger schedules a drain on the worker without blocking the caller.
func (e *Engine) Trigger() {
	select {
	case e.triggers <- struct{}{}:
	default:
	}
}

// Drain sends every pending entry once, oldest first.
func (e *Engine) Drain(ctx context.Context) (*Result, error) {
	if e.remote == nil {
		return nil, ErrNotConfigured
	}
	if err := e.acquire(); err != nil {
		return nil, err
	}

	res, err := e.drain(ctx)
	e.release(res, err)
	e.publish("drain", res, err)
	return res, err
}

func (e *Engine) drain(ctx context.Context) (*Result, error) {
	start := e.now()

	// Pages walk the whole backlog so entries the remote keeps rejecting cannot starve newer ones.
	p := newPass()
	var after int64
	for ctx.Err() == nil {
		entries, err := e.outbox.ListPendingAfter(ctx, after, e.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("list pending entries: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		e.process(ctx, p, entries, 0)
		after = entries[len(entries)-1].ID
		if e.cfg.BatchSize <= 0 || len(entries) < e.cfg.BatchSize {
			break
		}
	}

	res := p.res
	res.Duration = e.now().Sub(start)

	if res.Processed > 0 {
		e.log.Info("drain finished",
			"synced", res.Synced,
			"failed", res.Failed,
			"skipped", res.Skipped,
			"duration", res.Duration,
		)
	}
	return res, nil
}

// SyncAllPending sweeps one table: unsynced rows without an entry are requeued, then every
// pending entry is sent with BulkDelay between remote calls.
func (e *Engine) SyncAllPending(ctx context.Context, table outbox.Table) (*Result, error) {
	if !table.Valid() {
		return nil, ErrInvalidTable
	}
	if e.remote == nil {
		return nil, ErrNotConfigured
	}
	if err := e.acquire(); err != nil {
		return nil, err
	}

	res, err := e.sweep(ctx, table)
	e.release(res, err)
	e.publish("sweep_"+string(table), res, err)
	return res, err
}

func (e *Engine) sweep(ctx context.Context, table outbox.Table) (*Result, error) {
	start := e.now()

	requeued, err := e.outbox.RequeueUnsynced(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("requeue unsynced %s: %w", table, err)
	}

	entries, err := e.outbox.ListPending(ctx, table, 0)
	if err != nil {
		return nil, fmt.Errorf("list pending %s: %w", table, err)
	}

	e.log.Info("bulk sync started", "table", table, "pending", len(entries), "requeued", requeued)

	p := newPass()
	e.process(ctx, p, entries, e.cfg.BulkDelay)
	res := p.res
	res.Requeued = requeued
	res.Duration = e.now().Sub(start)

	e.log.Info("bulk sync finished", "table", table, "synced", res.Synced, "failed", res.Failed)
	return res, nil
}

type entityRef struct {
	table outbox.Table
	id    int64
}

// pass carries the result and the blocked entities across the pages of one drain or sweep.
type pass struct {
	res     *Result
	blocked map[entityRef]struct{}
}

func newPass() *pass {
	return &pass{res: &Result{}, blocked: make(map[entityRef]struct{})}
}

func (e *Engine) process(ctx context.Context, p *pass, entries []outbox.Entry, delay time.Duration) {
	res, blocked := p.res, p.blocked

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		// A failed entry holds back the later entries of the same entity until the next pass.
		ref := entityRef{table: entry.Table, id: entry.EntityID}
		if _, ok := blocked[ref]; ok {
			res.Skipped++
			continue
		}

		if res.Processed > 0 && delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				break
			}
		}
		res.Processed++

		attempts, duplicate, err := e.deliver(ctx, entry)
		if err != nil {
			blocked[ref] = struct{}{}
			res.Failed++
			res.Errors = append(res.Errors, EntryError{
				EntryID:  entry.ID,
				Table:    entry.Table,
				EntityID: entry.EntityID,
				Attempts: attempts,
				Error:    err.Error(),
			})

			if rerr := e.outbox.RecordFailure(context.WithoutCancel(ctx), entry.ID, attempts, err.Error()); rerr != nil {
				e.log.Error("record failure", "entry_id", entry.ID, "error", rerr)
			}
			e.log.Warn("entry left pending",
				"entry_id", entry.ID,
				"table", entry.Table,
				"entity_id", entry.EntityID,
				"attempts", attempts,
				"error", err,
			)
			continue
		}

		res.Synced++
		if duplicate {
			res.Duplicates++
		}
	}
}

// deliver pushes one entry, retrying transient failures up to MaxRetries attempts in total.
func (e *Engine) deliver(ctx context.Context, entry outbox.Entry) (attempts int, duplicate bool, err error) {
	for attempts < e.cfg.MaxRetries {
		if attempts > 0 {
			backoff := e.cfg.BaseBackoff * time.Duration(1<<(attempts-1))
			if serr := e.sleep(ctx, backoff); serr != nil {
				return attempts, false, err
			}
		}
		attempts++

		var remoteID *int64
		remoteID, err = e.push(ctx, entry)
		if re, ok := IsDuplicate(err); ok {
			e.log.Debug("remote already has record", "entry_id", entry.ID, "table", entry.Table)
			remoteID, duplicate, err = re.RemoteID, true, nil
		}

		if err == nil {
			if err = e.outbox.MarkSynced(ctx, entry, remoteID); err != nil {
				return attempts, false, fmt.Errorf("mark synced: %w", err)
			}
			return attempts, duplicate, nil
		}

		if !Retryable(err) {
			return attempts, false, err
		}
		e.log.Debug("transient sync failure", "entry_id", entry.ID, "attempt", attempts, "error", err)
	}

	return attempts, false, err
}

func (e *Engine) push(ctx context.Context, entry outbox.Entry) (*int64, error) {
	switch entry.Table {
	case outbox.TableUsers:
		snap, err := e.userSnapshot(ctx, entry)
		if err != nil {
			return nil, err
		}
		return e.remote.PushUser(ctx, entry.Key, entry.Action, snap)
	case outbox.TableBorrowings:
		snap, err := e.borrowingSnapshot(ctx, entry)
		if err != nil {
			return nil, err
		}
		return e.remote.PushBorrowing(ctx, entry.Key, entry.Action, snap)
	default:
		return nil, fmt.Errorf("unknown entity table %q", entry.Table)
	}
}

// userSnapshot re-reads the user. The stored payload is used for deletes and for users
// removed after enqueue.
func (e *Engine) userSnapshot(ctx context.Context, entry outbox.Entry) (outbox.UserSnapshot, error) {
	if entry.Action != outbox.ActionDelete {
		u, err := e.users.GetByID(ctx, entry.EntityID)
		if err == nil {
			return outbox.NewUserSnapshot(u), nil
		}
		if !errors.Is(err, user.ErrNotFound) {
			return outbox.UserSnapshot{}, fmt.Errorf("read user %d: %w", entry.EntityID, err)
		}
		e.log.Debug("user gone, sending stored snapshot", "entry_id", entry.ID, "user_id", entry.EntityID)
	}
	return entry.UserSnapshot()
}

func (e *Engine) borrowingSnapshot(ctx context.Context, entry outbox.Entry) (outbox.BorrowingSnapshot, error) {
	if entry.Action != outbox.ActionDelete {
		d, err := e.borrowings.GetDetail(ctx, entry.EntityID)
		if err == nil {
			return outbox.NewBorrowingSnapshot(d), nil
		}
		if !errors.Is(err, borrowing.ErrNotFound) {
			return outbox.BorrowingSnapshot{}, fmt.Errorf("read borrowing %d: %w", entry.EntityID, err)
		}
		e.log.Debug("borrowing gone, sending stored snapshot", "entry_id", entry.ID, "borrowing_id", entry.EntityID)
	}
	return entry.BorrowingSnapshot()
}

func (e *Engine) Status(ctx context.Context) (*Status, error) {
	users, err := e.outbox.Stats(ctx, outbox.TableUsers)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	borrowings, err := e.outbox.Stats(ctx, outbox.TableBorrowings)
	if err != nil {
		return nil, fmt.Errorf("borrowing stats: %w", err)
	}
	pending, err := e.outbox.PendingCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending count: %w", err)
	}

	total := users.Total + borrowings.Total
	synced := users.Synced + borrowings.Synced
	pct := float64(synced) / float64(max(total, 1)) * 100

	return &Status{
		Users:             *users,
		Borrowings:        *borrowings,
		PendingEntries:    pending,
		OverallPercentage: math.Round(pct*100) / 100,
	}, nil
}

// TestConnection probes the remote catalog and returns its echo message.
func (e *Engine) TestConnection(ctx context.Context) (string, error) {
	if e.remote == nil {
		return "", ErrNotConfigured
	}

	msg, err := e.remote.Ping(ctx)
	if err != nil {
		e.log.Warn("remote unreachable", "error", err)
		return "", err
	}
	return msg, nil
}

// PullBooks fetches books the remote created since the last pull and upserts them locally.
func (e *Engine) PullBooks(ctx context.Context) (*PullResult, error) {
	if e.remote == nil {
		return nil, ErrNotConfigured
	}

	books, err := e.remote.NewBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch new books: %w", err)
	}

	res := &PullResult{Received: len(books)}
	for i := range books {
		data := books[i]
		ts := e.now()

		r, err := e.books.ApplyEvent(ctx, book.Event{Event: book.EventUpdated, Timestamp: &ts, Data: &data})
		if err != nil {
			res.Failed++
			id := "?"
			if data.ID != nil {
				id = fmt.Sprint(*data.ID)
			}
			res.Errors = append(res.Errors, fmt.Sprintf("book %s: %v", id, err))
			continue
		}

		if r.Action == book.ActionCreated {
			res.Created++
		} else {
			res.Updated++
		}
	}

	e.log.Info("books pulled", "received", res.Received, "created", res.Created, "updated", res.Updated, "failed", res.Failed)
	return res, nil
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.stats
}

// Clear marks an entry synced without sending it. For entries the remote will never accept.
func (e *Engine) Clear(ctx context.Context, id int64) error {
	if err := e.outbox.Clear(ctx, id); err != nil {
		return err
	}

	e.log.Warn("outbox entry cleared manually", "entry_id", id)
	return nil
}

func (e *Engine) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	e.stats.Running = true
	return nil
}

func (e *Engine) release(res *Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.running = false
	e.stats.Running = false
	e.stats.Runs++
	e.stats.LastRunAt = now

	if res != nil {
		e.stats.TotalSynced += res.Synced
		e.stats.TotalDuplicates += res.Duplicates
		e.stats.TotalFailed += res.Failed
	}

	switch {
	case err != nil:
		e.stats.LastError = err.Error()
	case res != nil && len(res.Errors) > 0:
		e.stats.LastError = res.Errors[len(res.Errors)-1].Error
	default:
		e.stats.LastError = ""
		e.stats.LastSuccessAt = now
	}
}

func (e *Engine) publish(kind string, res *Result, err error) {
	data := map[string]any{"kind": kind}
	if err != nil {
		data["error"] = err.Error()
	} else {
		data["result"] = res
	}
	e.events.Publish(event.New(event.TypeSync, data))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
