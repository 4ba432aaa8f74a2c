package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/user"
)

// NewKey returns a fresh idempotency key. ULIDs sort by creation time.
func NewKey() string {
	return ulid.Make().String()
}

type UserSnapshot struct {
	LocalUserID  int64     `json:"local_user_id"`
	RemoteID     *int64    `json:"remote_id,omitempty"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         user.Role `json:"role"`
	FaceImageRef string    `json:"face_image_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewUserSnapshot(u *user.User) UserSnapshot {
	return UserSnapshot{
		LocalUserID:  u.ID,
		RemoteID:     u.RemoteID,
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		FaceImageRef: u.FaceImageRef,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type BorrowingSnapshot struct {
	LocalBorrowingID int64            `json:"local_borrowing_id"`
	RemoteID         *int64           `json:"remote_id,omitempty"`
	LocalUserID      int64            `json:"local_user_id"`
	LocalBookID      int64            `json:"local_book_id"`
	UserEmail        string           `json:"user_email"`
	BookRFID         string           `json:"book_rfid"`
	BookTitle        string           `json:"book_title"`
	BorrowedAt       time.Time        `json:"borrowed_at"`
	DueAt            time.Time        `json:"due_at"`
	ReturnedAt       *time.Time       `json:"returned_at,omitempty"`
	Status           borrowing.Status `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
}

func NewBorrowingSnapshot(d *borrowing.Detail) BorrowingSnapshot {
	return BorrowingSnapshot{
		LocalBorrowingID: d.ID,
		RemoteID:         d.RemoteID,
		LocalUserID:      d.UserID,
		LocalBookID:      d.BookID,
		UserEmail:        d.UserEmail,
		BookRFID:         d.BookRFID,
		BookTitle:        d.BookTitle,
		BorrowedAt:       d.BorrowedAt,
		DueAt:            d.DueAt,
		ReturnedAt:       d.ReturnedAt,
		Status:           d.Status,
		CreatedAt:        d.CreatedAt,
	}
}

func Encode(snapshot any) (json.RawMessage, error) {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func (e *Entry) UserSnapshot() (UserSnapshot, error) {
	var s UserSnapshot
	if e.Table != TableUsers {
		return s, fmt.Errorf("entry %d belongs to %s", e.ID, e.Table)
	}
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return s, fmt.Errorf("decode user snapshot of entry %d: %w", e.ID, err)
	}
	return s, nil
}

func (e *Entry) BorrowingSnapshot() (BorrowingSnapshot, error) {
	var s BorrowingSnapshot
	if e.Table != TableBorrowings {
		return s, fmt.Errorf("entry %d belongs to %s", e.ID, e.Table)
	}
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return s, fmt.Errorf("decode borrowing snapshot of entry %d: %w", e.ID, err)
	}
	return s, nil
}
