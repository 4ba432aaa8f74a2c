package book

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/apperr"
)

type Servicer interface {
	GetByRFID(ctx context.Context, rfid string) (*Book, error)
	List(ctx context.Context) ([]Book, error)
	Count(ctx context.Context) (int, error)
	ApplyEvent(ctx context.Context, ev Event) (*EventResult, error)
	Seed(ctx context.Context, books []SeedBook) (int, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "book_service"),
	}
}

func (s *Service) GetByRFID(ctx context.Context, rfid string) (*Book, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, apperr.Validation("MISSING_RFID", "rfid tag is required")
	}
	return s.repo.GetByRFID(ctx, rfid)
}

func (s *Service) List(ctx context.Context) ([]Book, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// ApplyEvent upserts or deletes the local copy of a remote book, keyed by the remote id.
func (s *Service) ApplyEvent(ctx context.Context, ev Event) (*EventResult, error) {
	if err := validateEnvelope(ev); err != nil {
		return nil, err
	}

	switch ev.Event {
	case EventCreated, EventUpdated:
		if err := validateBookData(ev.Data); err != nil {
			return nil, err
		}
		return s.upsert(ctx, ev.Data)
	case EventDeleted:
		return s.delete(ctx, *ev.Data.ID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Event)
	}
}

func (s *Service) upsert(ctx context.Context, d *EventData) (*EventResult, error) {
	incoming := Book{
		RemoteID: d.ID,
		Title:    strings.TrimSpace(*d.Title),
		Author:   strings.TrimSpace(*d.Author),
		Year:     *d.Year,
		Stock:    *d.Stock,
		RFIDTag:  strings.TrimSpace(*d.RFIDTag),
	}
	if d.Publisher != nil {
		incoming.Publisher = strings.TrimSpace(*d.Publisher)
	}

	existing, err := s.repo.GetByRemoteID(ctx, *d.ID)
	switch {
	case err == nil:
		existing.Title = incoming.Title
		existing.Author = incoming.Author
		existing.Publisher = incoming.Publisher
		existing.Year = incoming.Year
		existing.Stock = incoming.Stock
		existing.RFIDTag = incoming.RFIDTag

		updated, err := s.repo.Update(ctx, existing)
		if err != nil {
			return nil, fmt.Errorf("update book: %w", err)
		}
		s.log.Info("book updated from remote", "remote_id", *d.ID, "local_id", updated.ID)
		return &EventResult{Action: ActionUpdated, LocalBookID: updated.ID, Message: "Book updated in local catalog"}, nil

	case errors.Is(err, ErrNotFound):
		if _, err := s.repo.GetByRFID(ctx, incoming.RFIDTag); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrRFIDTaken, incoming.RFIDTag)
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		created, err := s.repo.Create(ctx, &incoming)
		if err != nil {
			return nil, fmt.Errorf("create book: %w", err)
		}
		s.log.Info("book created from remote", "remote_id", *d.ID, "local_id", created.ID)
		return &EventResult{Action: ActionCreated, LocalBookID: created.ID, Message: "Book created in local catalog"}, nil

	default:
		return nil, err
	}
}

func (s *Service) delete(ctx context.Context, remoteID int64) (*EventResult, error) {
	deleted, err := s.repo.DeleteByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	s.log.Info("book deleted from remote", "remote_id", remoteID, "local_id", deleted.ID)
	return &EventResult{Action: ActionDeleted, LocalBookID: deleted.ID, Message: "Book deleted from local catalog"}, nil
}

// Seed inserts the books whose rfid tag is not known yet and returns how many were created.
func (s *Service) Seed(ctx context.Context, books []SeedBook) (int, error) {
	created := 0
	for _, sb := range books {
		_, err := s.repo.GetByRFID(ctx, sb.RFIDTag)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}

		b := &Book{
			Title:     sb.Title,
			Author:    sb.Author,
			Publisher: sb.Publisher,
			Year:      sb.Year,
			Stock:     sb.Stock,
			RFIDTag:   sb.RFIDTag,
		}
		if _, err := s.repo.Create(ctx, b); err != nil {
			return created, fmt.Errorf("seed %s: %w", sb.RFIDTag, err)
		}
		created++
	}

	s.log.Info("catalog seeded", "created", created, "total", len(books))
	return created, nil
}

func validateEnvelope(ev Event) error {
	var missing []string
	if ev.Event == "" {
		missing = append(missing, "event")
	}
	if ev.Timestamp == nil {
		missing = append(missing, "timestamp")
	}
	if ev.Data == nil {
		missing = append(missing, "data")
	}
	if len(missing) > 0 {
		return apperr.Validation("MISSING_FIELDS", "missing required fields: %s", strings.Join(missing, ", "))
	}
	if ev.Data.ID == nil {
		return apperr.Validation("MISSING_FIELDS", "missing book data fields: id")
	}
	return nil
}

func validateBookData(d *EventData) error {
	var missing []string
	if d.Title == nil || strings.TrimSpace(*d.Title) == "" {
		missing = append(missing, "judul")
	}
	if d.Author == nil {
		missing = append(missing, "penulis")
	}
	if d.Year == nil {
		missing = append(missing, "tahun_terbit")
	}
	if d.Stock == nil {
		missing = append(missing, "stok")
	}
	if d.RFIDTag == nil || strings.TrimSpace(*d.RFIDTag) == "" {
		missing = append(missing, "rfid_tag")
	}
	if len(missing) > 0 {
		return apperr.Validation("MISSING_FIELDS", "missing book data fields: %s", strings.Join(missing, ", "))
	}
	if *d.Stock < 0 {
		return apperr.Validation("INVALID_STOCK", "stok must not be negative")
	}
	return nil
}
