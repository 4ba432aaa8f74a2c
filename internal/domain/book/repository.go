package book

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByRFID(ctx context.Context, rfid string) (*Book, error)
	GetByRemoteID(ctx context.Context, remoteID int64) (*Book, error)
	List(ctx context.Context) ([]Book, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, b *Book) (*Book, error)
	Update(ctx context.Context, b *Book) (*Book, error)
	// DeleteByRemoteID removes the book and, by cascade, its returned borrowings.
	DeleteByRemoteID(ctx context.Context, remoteID int64) (*Book, error)
}
