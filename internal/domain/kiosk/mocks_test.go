package kiosk

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/event"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/user"
)

type cameraFunc func(ctx context.Context) ([]byte, error)

func (f cameraFunc) CaptureJPEG(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

type MockFaces struct {
	mock.Mock
}

func (m *MockFaces) Recognize(ctx context.Context, img []byte) (identity.Result, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(identity.Result), args.Error(1)
}

func (m *MockFaces) Enroll(ctx context.Context, img []byte, label string) (*identity.Enrollment, error) {
	args := m.Called(ctx, img, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Enrollment), args.Error(1)
}

func (m *MockFaces) Reload() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func userResult(args mock.Arguments) (*user.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsers) Get(ctx context.Context, id int64) (*user.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *MockUsers) Resolve(ctx context.Context, l user.Lookup) (*user.User, error) {
	return userResult(m.Called(ctx, l))
}

func (m *MockUsers) AttachFace(ctx context.Context, id int64, ref string) (*user.User, error) {
	return userResult(m.Called(ctx, id, ref))
}

type MockBorrowings struct {
	mock.Mock
}

func detailResult(args mock.Arguments) (*borrowing.Detail, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*borrowing.Detail), args.Error(1)
}

func (m *MockBorrowings) Lend(ctx context.Context, req borrowing.LendRequest) (*borrowing.Detail, error) {
	return detailResult(m.Called(ctx, req))
}

func (m *MockBorrowings) Return(ctx context.Context, req borrowing.ReturnRequest) (*borrowing.Detail, error) {
	return detailResult(m.Called(ctx, req))
}

func (m *MockBorrowings) BookStatus(ctx context.Context, rfid string) (*borrowing.BookStatus, error) {
	args := m.Called(ctx, rfid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*borrowing.BookStatus), args.Error(1)
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(ev event.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
