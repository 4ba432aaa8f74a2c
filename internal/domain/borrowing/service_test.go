package borrowing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/user"
)

type MockRepository struct {
	mock.Mock
}

func detailResult(args mock.Arguments) (*Detail, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Detail), args.Error(1)
}

func (m *MockRepository) Lend(ctx context.Context, p LendParams) (*Detail, error) {
	return detailResult(m.Called(ctx, p))
}

func (m *MockRepository) Return(ctx context.Context, userID int64, returnedAt time.Time) (*Detail, error) {
	return detailResult(m.Called(ctx, userID, returnedAt))
}

func (m *MockRepository) GetActiveByUser(ctx context.Context, userID int64) (*Borrowing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Borrowing), args.Error(1)
}

func (m *MockRepository) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	return detailResult(m.Called(ctx, id))
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]Detail, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]Detail), args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Resolve(ctx context.Context, l user.Lookup) (*user.User, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockBooks struct {
	mock.Mock
}

func (m *MockBooks) GetByRFID(ctx context.Context, rfid string) (*book.Book, error) {
	args := m.Called(ctx, rfid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.Book), args.Error(1)
}

type countingTrigger struct{ calls int }

func (c *countingTrigger) Trigger() { c.calls++ }

var fixedNow = time.Date(2024, 5, 27, 9, 0, 0, 0, time.UTC)

func newTestService(repo *MockRepository, users *MockUsers, books *MockBooks, trigger SyncTrigger) *Service {
	return NewService(repo, users, books, slog.Default(),
		WithClock(func() time.Time { return fixedNow }),
		WithSyncTrigger(trigger),
	)
}

func TestService_Lend(t *testing.T) {
	repo, users, books := new(MockRepository), new(MockUsers), new(MockBooks)
	trigger := &countingTrigger{}
	svc := newTestService(repo, users, books, trigger)

	users.On("Resolve", mock.Anything, user.Lookup{Name: "Alice"}).Return(&user.User{ID: 1, FullName: "Alice"}, nil)
	repo.On("Lend", mock.Anything, LendParams{
		UserID:     1,
		RFIDTag:    "ABC1",
		BorrowedAt: fixedNow,
		DueAt:      fixedNow.Add(7 * 24 * time.Hour),
	}).Return(&Detail{Borrowing: Borrowing{ID: 10, UserID: 1, BookID: 5, Status: StatusActive}}, nil)

	d, err := svc.Lend(context.Background(), LendRequest{UserName: "Alice", RFIDTag: " ABC1 "})

	require.NoError(t, err)
	assert.Equal(t, int64(10), d.ID)
	assert.True(t, d.Active())
	assert.Equal(t, 1, trigger.calls)
	repo.AssertExpectations(t)
}

func TestService_Lend_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		userErr error
		repoErr error
		wantErr error
	}{
		{name: "unknown user", userErr: user.ErrNotFound, wantErr: ErrUserNotFound},
		{name: "active borrowing", repoErr: ErrUserHasActiveBorrowing, wantErr: ErrUserHasActiveBorrowing},
		{name: "unknown book", repoErr: book.ErrNotFound, wantErr: ErrBookNotFound},
		{name: "out of stock", repoErr: ErrOutOfStock, wantErr: ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, users, books := new(MockRepository), new(MockUsers), new(MockBooks)
			trigger := &countingTrigger{}
			svc := newTestService(repo, users, books, trigger)

			if tt.userErr != nil {
				users.On("Resolve", mock.Anything, mock.Anything).Return(nil, tt.userErr)
			} else {
				users.On("Resolve", mock.Anything, mock.Anything).Return(&user.User{ID: 1}, nil)
				repo.On("Lend", mock.Anything, mock.Anything).Return(nil, tt.repoErr)
			}

			_, err := svc.Lend(context.Background(), LendRequest{Email: "alice@example.com", RFIDTag: "ABC1"})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
			assert.Zero(t, trigger.calls)
		})
	}
}

func TestService_Lend_InvalidRequest(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockUsers), new(MockBooks), nil)

	_, err := svc.Lend(context.Background(), LendRequest{UserName: "Alice"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Lend(context.Background(), LendRequest{RFIDTag: "ABC1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestService_Return(t *testing.T) {
	repo, users, books := new(MockRepository), new(MockUsers), new(MockBooks)
	trigger := &countingTrigger{}
	svc := newTestService(repo, users, books, trigger)

	returnedAt := fixedNow
	users.On("Resolve", mock.Anything, user.Lookup{Name: "Alice"}).Return(&user.User{ID: 1}, nil)
	repo.On("Return", mock.Anything, int64(1), fixedNow).
		Return(&Detail{Borrowing: Borrowing{ID: 10, Status: StatusReturned, ReturnedAt: &returnedAt}}, nil)

	d, err := svc.Return(context.Background(), ReturnRequest{UserName: "Alice"})

	require.NoError(t, err)
	assert.Equal(t, StatusReturned, d.Status)
	assert.Equal(t, 1, trigger.calls)
}

func TestService_Return_NoActiveBorrowing(t *testing.T) {
	repo, users, books := new(MockRepository), new(MockUsers), new(MockBooks)
	trigger := &countingTrigger{}
	svc := newTestService(repo, users, books, trigger)

	users.On("Resolve", mock.Anything, mock.Anything).Return(&user.User{ID: 1}, nil)
	repo.On("Return", mock.Anything, int64(1), mock.Anything).Return(nil, ErrNoActiveBorrowing)

	_, err := svc.Return(context.Background(), ReturnRequest{UserName: "Alice"})

	assert.ErrorIs(t, err, ErrNoActiveBorrowing)
	assert.Zero(t, trigger.calls)
}

func TestService_BookStatus(t *testing.T) {
	books := new(MockBooks)
	svc := newTestService(new(MockRepository), new(MockUsers), books, nil)

	books.On("GetByRFID", mock.Anything, "ABC1").Return(&book.Book{ID: 5, Stock: 0, RFIDTag: "ABC1"}, nil)
	books.On("GetByRFID", mock.Anything, "XYZ").Return(nil, book.ErrNotFound)

	st, err := svc.BookStatus(context.Background(), "ABC1")
	require.NoError(t, err)
	assert.False(t, st.Available)
	assert.Equal(t, int64(5), st.Book.ID)

	_, err = svc.BookStatus(context.Background(), "XYZ")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestService_List_DefaultLimit(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockUsers), new(MockBooks), nil)

	repo.On("List", mock.Anything, ListFilter{Status: StatusActive, Limit: 100}).Return([]Detail{}, nil)

	_, err := svc.List(context.Background(), ListFilter{Status: StatusActive})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
