package borrowing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/user"
)

const DefaultLoanPeriod = 7 * 24 * time.Hour

type UserResolver interface {
	Resolve(ctx context.Context, l user.Lookup) (*user.User, error)
}

type BookFinder interface {
	GetByRFID(ctx context.Context, rfid string) (*book.Book, error)
}

// SyncTrigger wakes the outbox drain after a committed transition.
type SyncTrigger interface {
	Trigger()
}

type Servicer interface {
	Lend(ctx context.Context, req LendRequest) (*Detail, error)
	Return(ctx context.Context, req ReturnRequest) (*Detail, error)
	Detail(ctx context.Context, id int64) (*Detail, error)
	BookStatus(ctx context.Context, rfid string) (*BookStatus, error)
	List(ctx context.Context, f ListFilter) ([]Detail, error)
}

type Service struct {
	repo       Repository
	users      UserResolver
	books      BookFinder
	trigger    SyncTrigger
	loanPeriod time.Duration
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLoanPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

func WithSyncTrigger(t SyncTrigger) Option {
	return func(s *Service) { s.trigger = t }
}

func NewService(repo Repository, users UserResolver, books BookFinder, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		users:      users,
		books:      books,
		loanPeriod: DefaultLoanPeriod,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With("component", "borrowing_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lend checks out the book tagged req.RFIDTag to the resolved user.
func (s *Service) Lend(ctx context.Context, req LendRequest) (*Detail, error) {
	rfid := strings.TrimSpace(req.RFIDTag)
	if rfid == "" || req.Lookup().Empty() {
		return nil, fmt.Errorf("%w: user and rfid tag are required", ErrInvalidRequest)
	}

	u, err := s.users.Resolve(ctx, req.Lookup())
	if err != nil {
		return nil, err
	}

	now := s.now()
	d, err := s.repo.Lend(ctx, LendParams{
		UserID:     u.ID,
		RFIDTag:    rfid,
		BorrowedAt: now,
		DueAt:      now.Add(s.loanPeriod),
	})
	if err != nil {
		s.log.Info("lend rejected", "user_id", u.ID, "rfid", rfid, "error", err)
		return nil, err
	}

	s.log.Info("book lent", "borrowing_id", d.ID, "user_id", u.ID, "book_id", d.BookID, "due_at", d.DueAt)
	s.notify()
	return d, nil
}

// Return closes the user's active borrowing. A user with none is rejected outright.
func (s *Service) Return(ctx context.Context, req ReturnRequest) (*Detail, error) {
	if req.Lookup().Empty() {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}

	u, err := s.users.Resolve(ctx, req.Lookup())
	if err != nil {
		return nil, err
	}

	d, err := s.repo.Return(ctx, u.ID, s.now())
	if err != nil {
		s.log.Info("return rejected", "user_id", u.ID, "error", err)
		return nil, err
	}

	s.log.Info("book returned", "borrowing_id", d.ID, "user_id", u.ID, "book_id", d.BookID)
	s.notify()
	return d, nil
}

func (s *Service) Detail(ctx context.Context, id int64) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

func (s *Service) BookStatus(ctx context.Context, rfid string) (*BookStatus, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, fmt.Errorf("%w: rfid tag is required", ErrInvalidRequest)
	}

	b, err := s.books.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, err
	}
	return &BookStatus{Book: *b, Available: b.Available()}, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Detail, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}

func (s *Service) notify() {
	if s.trigger != nil {
		s.trigger.Trigger()
	}
}
