package borrowing

import (
	"context"
	"time"
)

// Repository commits borrowing transitions. Lend and Return run in one transaction each,
// together with the stock change and the outbox entry.
type Repository interface {
	Lend(ctx context.Context, p LendParams) (*Detail, error)
	Return(ctx context.Context, userID int64, returnedAt time.Time) (*Detail, error)
	GetActiveByUser(ctx context.Context, userID int64) (*Borrowing, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, f ListFilter) ([]Detail, error)
}
