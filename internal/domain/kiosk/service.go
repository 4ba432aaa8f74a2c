// Package kiosk drives the checkout screen: face recognition, the RFID scan handshake with
// the reader and the last scanned book.
package kiosk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/event"
	"libkiosk/internal/domain/guard"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/user"
)

const (
	DefaultRecognitionTimeout = 5 * time.Second
	DefaultScanTimeout        = 30 * time.Second
)

var ErrNoScan = apperr.New(apperr.KindBusinessRule, "SCAN_NOT_FOUND", "no book has been scanned")

type Camera interface {
	CaptureJPEG(ctx context.Context) ([]byte, error)
}

type FaceIndex interface {
	Recognize(ctx context.Context, img []byte) (identity.Result, error)
	Enroll(ctx context.Context, img []byte, label string) (*identity.Enrollment, error)
	Reload() (int, error)
}

type Users interface {
	Get(ctx context.Context, id int64) (*user.User, error)
	Resolve(ctx context.Context, l user.Lookup) (*user.User, error)
	AttachFace(ctx context.Context, id int64, ref string) (*user.User, error)
}

type Borrowings interface {
	Lend(ctx context.Context, req borrowing.LendRequest) (*borrowing.Detail, error)
	Return(ctx context.Context, req borrowing.ReturnRequest) (*borrowing.Detail, error)
	BookStatus(ctx context.Context, rfid string) (*borrowing.BookStatus, error)
}

type Servicer interface {
	StartRecognition(ctx context.Context) error
	RecognitionResult() guard.Snapshot[Recognition]
	ResetRecognition()
	StartScan() (Command, error)
	CheckScanCommand() Command
	ReportScan(ctx context.Context, r ScanReport) (*ScanOutcome, error)
	ScanResult() guard.Snapshot[ScanOutcome]
	ResetScan()
	LastScan() (*LastScan, error)
	Lend(ctx context.Context, req borrowing.LendRequest) (*borrowing.Detail, error)
	Return(ctx context.Context, req borrowing.ReturnRequest) (*borrowing.Detail, error)
	EnrollFace(ctx context.Context, userID int64, img []byte) (*user.User, error)
	ReloadFaces() (int, error)
}

type Config struct {
	RecognitionTimeout time.Duration
	ScanTimeout        time.Duration
}

// Service owns the kiosk state. Nothing here is global: the HTTP layer gets one Service.
type Service struct {
	camera     Camera
	faces      FaceIndex
	users      Users
	borrowings Borrowings
	events     event.Publisher
	now        func() time.Time
	log        *slog.Logger

	recognition *guard.Guard[Recognition]
	scan        *guard.Guard[ScanOutcome]

	mu         sync.Mutex
	scanTicket guard.Ticket
	issuedAt   time.Time
	last       *LastScan

	wg sync.WaitGroup
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p event.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func NewService(camera Camera, faces FaceIndex, users Users, borrowings Borrowings, cfg Config, log *slog.Logger, opts ...Option) *Service {
	if cfg.RecognitionTimeout <= 0 {
		cfg.RecognitionTimeout = DefaultRecognitionTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}

	s := &Service{
		camera:     camera,
		faces:      faces,
		users:      users,
		borrowings: borrowings,
		events:     event.Nop(),
		now:        time.Now,
		log:        log.With("component", "kiosk"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.recognition = guard.New[Recognition]("recognition", cfg.RecognitionTimeout, guard.WithClock[Recognition](s.now))
	s.scan = guard.New[ScanOutcome]("scan", cfg.ScanTimeout, guard.WithClock[ScanOutcome](s.now))
	return s
}

// Wait blocks until background recognition runs have returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Lend checks out a book and consumes the cached scan.
func (s *Service) Lend(ctx context.Context, req borrowing.LendRequest) (*borrowing.Detail, error) {
	if strings.TrimSpace(req.RFIDTag) == "" {
		s.mu.Lock()
		if s.last != nil {
			req.RFIDTag = s.last.RFID
		}
		s.mu.Unlock()
	}

	d, err := s.borrowings.Lend(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()

	s.events.Publish(event.New(event.TypeBorrowing, d))
	return d, nil
}

func (s *Service) Return(ctx context.Context, req borrowing.ReturnRequest) (*borrowing.Detail, error) {
	d, err := s.borrowings.Return(ctx, req)
	if err != nil {
		return nil, err
	}

	s.events.Publish(event.New(event.TypeBorrowing, d))
	return d, nil
}

// EnrollFace registers the face in img under the user's full name and links the stored image.
func (s *Service) EnrollFace(ctx context.Context, userID int64, img []byte) (*user.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	enr, err := s.faces.Enroll(ctx, img, u.FullName)
	if err != nil {
		return nil, fmt.Errorf("enroll %s: %w", u.FullName, err)
	}

	u, err = s.users.AttachFace(ctx, userID, enr.ImageRef)
	if err != nil {
		return nil, err
	}

	s.log.Info("face linked", "user_id", u.ID, "image_ref", enr.ImageRef)
	return u, nil
}

func (s *Service) ReloadFaces() (int, error) {
	n, err := s.faces.Reload()
	if err != nil {
		return 0, fmt.Errorf("reload faces: %w", err)
	}
	s.log.Info("face cache reloaded", "known", n)
	return n, nil
}
