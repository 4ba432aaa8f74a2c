package sqldb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/outbox"
	"libkiosk/internal/domain/user"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func lendParams(userID int64, rfid string) borrowing.LendParams {
	return borrowing.LendParams{
		UserID:     userID,
		RFIDTag:    rfid,
		BorrowedAt: fixedNow,
		DueAt:      fixedNow.Add(borrowing.DefaultLoanPeriod),
	}
}

func TestBorrowingRepository_LendAndReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "RF-1", 1)
	alice := f.user(t, "Alice", "alice@example.com")

	lent, err := f.borrowings.Lend(ctx, lendParams(alice.ID, "RF-1"))
	require.NoError(t, err)
	assert.Equal(t, borrowing.StatusActive, lent.Status)
	assert.Equal(t, alice.ID, lent.UserID)
	assert.Equal(t, "alice@example.com", lent.UserEmail)
	assert.Equal(t, "RF-1", lent.BookRFID)
	assert.True(t, lent.DueAt.Equal(fixedNow.Add(7*24*time.Hour)))
	assert.Nil(t, lent.ReturnedAt)
	assert.False(t, lent.Synced)

	stored, err := f.books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)

	active, err := f.borrowings.GetActiveByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, lent.ID, active.ID)

	_, err = f.borrowings.Lend(ctx, lendParams(alice.ID, "RF-1"))
	assert.ErrorIs(t, err, borrowing.ErrUserHasActiveBorrowing)

	returnedAt := fixedNow.Add(48 * time.Hour)
	returned, err := f.borrowings.Return(ctx, alice.ID, returnedAt)
	require.NoError(t, err)
	assert.Equal(t, borrowing.StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
	assert.True(t, returned.ReturnedAt.Equal(returnedAt))

	stored, err = f.books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)

	_, err = f.borrowings.Return(ctx, alice.ID, returnedAt)
	assert.ErrorIs(t, err, borrowing.ErrNoActiveBorrowing)

	_, err = f.borrowings.GetActiveByUser(ctx, alice.ID)
	assert.ErrorIs(t, err, borrowing.ErrNoActiveBorrowing)

	entries, err := f.outbox.ListPending(ctx, outbox.TableBorrowings, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, outbox.ActionCreate, entries[0].Action)
	assert.Equal(t, outbox.ActionUpdate, entries[1].Action)

	snap, err := entries[1].BorrowingSnapshot()
	require.NoError(t, err)
	assert.Equal(t, borrowing.StatusReturned, snap.Status)
	assert.Equal(t, "Book RF-1", snap.BookTitle)
}

func TestBorrowingRepository_OutOfStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "RF-1", 1)
	alice := f.user(t, "Alice", "alice@example.com")
	bob := f.user(t, "Bob", "bob@example.com")

	_, err := f.borrowings.Lend(ctx, lendParams(alice.ID, "RF-1"))
	require.NoError(t, err)

	before, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)

	_, err = f.borrowings.Lend(ctx, lendParams(bob.ID, "RF-1"))
	assert.ErrorIs(t, err, borrowing.ErrOutOfStock)

	after, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	list, err := f.borrowings.List(ctx, borrowing.ListFilter{UserID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBorrowingRepository_LendRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "RF-1", 1)
	alice := f.user(t, "Alice", "alice@example.com")

	_, err := f.borrowings.Lend(ctx, lendParams(alice.ID, "RF-unknown"))
	assert.ErrorIs(t, err, borrowing.ErrBookNotFound)

	_, err = f.borrowings.Lend(ctx, lendParams(999, "RF-1"))
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = f.borrowings.Return(ctx, 999, fixedNow)
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = f.borrowings.GetDetail(ctx, 42)
	assert.ErrorIs(t, err, borrowing.ErrNotFound)
}

func TestBorrowingRepository_ConcurrentLendsSameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "RF-1", 5)
	alice := f.user(t, "Alice", "alice@example.com")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.borrowings.Lend(ctx, lendParams(alice.ID, "RF-1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, borrowing.ErrUserHasActiveBorrowing):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)

	stored, err := f.books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)
}

func TestBorrowingRepository_ConcurrentLendsDrainStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "RF-1", 3)

	const borrowers = 6
	ids := make([]int64, borrowers)
	for i := range ids {
		ids[i] = f.user(t, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i)).ID
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.borrowings.Lend(ctx, lendParams(id, "RF-1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, borrowing.ErrOutOfStock):
				outOfStock++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 3, outOfStock)

	stored, err := f.books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func TestBorrowingRepository_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "RF-1", 2)
	alice := f.user(t, "Alice", "alice@example.com")
	bob := f.user(t, "Bob", "bob@example.com")

	_, err := f.borrowings.Lend(ctx, lendParams(alice.ID, "RF-1"))
	require.NoError(t, err)
	_, err = f.borrowings.Return(ctx, alice.ID, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.borrowings.Lend(ctx, lendParams(bob.ID, "RF-1"))
	require.NoError(t, err)

	all, err := f.borrowings.List(ctx, borrowing.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.borrowings.List(ctx, borrowing.ListFilter{Status: borrowing.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bob", active[0].UserName)

	limited, err := f.borrowings.List(ctx, borrowing.ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
