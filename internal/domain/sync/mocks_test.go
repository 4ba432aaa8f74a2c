package sync

import (
	"context"

	"github.com/stretchr/testify/mock"

	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/outbox"
	"libkiosk/internal/domain/user"
)

type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) ListPending(ctx context.Context, table outbox.Table, limit int) ([]outbox.Entry, error) {
	args := m.Called(ctx, table, limit)
	return args.Get(0).([]outbox.Entry), args.Error(1)
}

func (m *MockOutbox) ListPendingAfter(ctx context.Context, afterID int64, limit int) ([]outbox.Entry, error) {
	args := m.Called(ctx, afterID, limit)
	return args.Get(0).([]outbox.Entry), args.Error(1)
}

func (m *MockOutbox) Get(ctx context.Context, id int64) (*outbox.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Entry), args.Error(1)
}

func (m *MockOutbox) MarkSynced(ctx context.Context, e outbox.Entry, remoteID *int64) error {
	args := m.Called(ctx, e, remoteID)
	return args.Error(0)
}

func (m *MockOutbox) RecordFailure(ctx context.Context, id int64, attempts int, msg string) error {
	args := m.Called(ctx, id, attempts, msg)
	return args.Error(0)
}

func (m *MockOutbox) RequeueUnsynced(ctx context.Context, table outbox.Table) (int, error) {
	args := m.Called(ctx, table)
	return args.Int(0), args.Error(1)
}

func (m *MockOutbox) Clear(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutbox) PendingCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockOutbox) Stats(ctx context.Context, table outbox.Table) (*outbox.TableStats, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.TableStats), args.Error(1)
}

type MockRemote struct {
	mock.Mock
}

func remoteIDResult(args mock.Arguments) (*int64, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockRemote) PushUser(ctx context.Context, key string, action outbox.Action, s outbox.UserSnapshot) (*int64, error) {
	return remoteIDResult(m.Called(ctx, key, action, s))
}

func (m *MockRemote) PushBorrowing(ctx context.Context, key string, action outbox.Action, s outbox.BorrowingSnapshot) (*int64, error) {
	return remoteIDResult(m.Called(ctx, key, action, s))
}

func (m *MockRemote) Ping(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockRemote) NewBooks(ctx context.Context) ([]book.EventData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]book.EventData), args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockBorrowings struct {
	mock.Mock
}

func (m *MockBorrowings) GetDetail(ctx context.Context, id int64) (*borrowing.Detail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*borrowing.Detail), args.Error(1)
}

type MockBooks struct {
	mock.Mock
}

func (m *MockBooks) ApplyEvent(ctx context.Context, ev book.Event) (*book.EventResult, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.EventResult), args.Error(1)
}
