package user

import "context"

// Repository persists users. Every mutation appends an outbox entry in the same transaction.
type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id int64) error
	SetFaceImage(ctx context.Context, id int64, ref string) (*User, error)

	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByFullName matches case-insensitively.
	GetByFullName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context) ([]User, error)
}
