package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"
)

// SyncTrigger wakes the outbox drain after a committed change.
type SyncTrigger interface {
	Trigger()
}

type Servicer interface {
	Create(ctx context.Context, req CreateRequest) (*User, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*User, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]User, error)
	Resolve(ctx context.Context, l Lookup) (*User, error)
	AttachFace(ctx context.Context, id int64, ref string) (*User, error)
}

type Service struct {
	repo      Repository
	validator Validator
	trigger   SyncTrigger
	log       *slog.Logger
}

// NewService wires the user service. trigger may be nil.
func NewService(repo Repository, validator Validator, trigger SyncTrigger, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		trigger:   trigger,
		log:       log.With("component", "user_service"),
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	u := &User{
		FullName: NormalizeName(req.FullName),
		Email:    NormalizeEmail(req.Email),
		Role:     req.Role,
	}
	if u.Role == "" {
		u.Role = RoleMember
	}

	if err := s.validate(u); err != nil {
		s.log.Debug("validation failed", "email", u.Email, "error", err)
		return nil, err
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user created", "user_id", created.ID, "email", created.Email)
	s.notify()
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		u.FullName = NormalizeName(*req.FullName)
	}
	if req.Email != nil {
		u.Email = NormalizeEmail(*req.Email)
	}
	if req.Role != nil {
		u.Role = *req.Role
	}

	if err := s.validate(u); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.notify()
	return updated, nil
}

// Delete removes the user and its returned borrowings. Rejected while a borrowing is active.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("user deleted", "user_id", id)
	s.notify()
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Resolve finds the user a kiosk operation is performed for.
func (s *Service) Resolve(ctx context.Context, l Lookup) (*User, error) {
	if email := NormalizeEmail(l.Email); email != "" {
		return s.repo.GetByEmail(ctx, email)
	}
	if name := NormalizeName(l.Name); name != "" {
		return s.repo.GetByFullName(ctx, name)
	}
	return nil, fmt.Errorf("%w: name or email is required", ErrInvalidInput)
}

func (s *Service) AttachFace(ctx context.Context, id int64, ref string) (*User, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty face image reference", ErrInvalidInput)
	}

	u, err := s.repo.SetFaceImage(ctx, id, ref)
	if err != nil {
		return nil, err
	}

	s.notify()
	return u, nil
}

func (s *Service) validate(u *User) error {
	errs := errors.Join(
		s.validator.ValidateName(u.FullName),
		s.validator.ValidateEmail(u.Email),
		s.validator.ValidateRole(u.Role),
	)
	if errs != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, errs)
	}
	return nil
}

func (s *Service) notify() {
	if s.trigger != nil {
		s.trigger.Trigger()
	}
}
