package sync

import (
	"context"

	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/outbox"
	"libkiosk/internal/domain/user"
)

// Remote is the catalog service the outbox drains to. Implementations return
// apperr.KindTransientNetwork errors for timeouts and connection failures and *RemoteError
// for any non-2xx answer.
type Remote interface {
	PushUser(ctx context.Context, key string, action outbox.Action, s outbox.UserSnapshot) (*int64, error)
	PushBorrowing(ctx context.Context, key string, action outbox.Action, s outbox.BorrowingSnapshot) (*int64, error)
	Ping(ctx context.Context) (string, error)
	NewBooks(ctx context.Context) ([]book.EventData, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type BorrowingSource interface {
	GetDetail(ctx context.Context, id int64) (*borrowing.Detail, error)
}

type BookApplier interface {
	ApplyEvent(ctx context.Context, ev book.Event) (*book.EventResult, error)
}
