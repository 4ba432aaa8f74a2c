package remote

import (
	"time"

	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/outbox"
)

// Borrowing status names as the catalog stores them.
const (
	statusBorrowed = "dipinjam"
	statusReturned = "dikembalikan"
)

type userRequest struct {
	Action        outbox.Action `json:"action"`
	LocalUserID   int64         `json:"local_user_id"`
	RemoteID      *int64        `json:"laravel_user_id,omitempty"`
	FullName      string        `json:"nama_lengkap"`
	Email         string        `json:"email"`
	Role          string        `json:"role"`
	HasFaceImage  bool          `json:"has_face_image"`
	FaceImagePath string        `json:"face_image_path,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func newUserRequest(action outbox.Action, s outbox.UserSnapshot) userRequest {
	return userRequest{
		Action:        action,
		LocalUserID:   s.LocalUserID,
		RemoteID:      s.RemoteID,
		FullName:      s.FullName,
		Email:         s.Email,
		Role:          string(s.Role),
		HasFaceImage:  s.FaceImageRef != "",
		FaceImagePath: s.FaceImageRef,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

type borrowingRequest struct {
	Action           outbox.Action `json:"action"`
	LocalBorrowingID int64         `json:"local_borrowing_id"`
	RemoteID         *int64        `json:"laravel_borrowing_id,omitempty"`
	LocalUserID      int64         `json:"local_user_id"`
	LocalBookID      int64         `json:"local_book_id"`
	UserEmail        string        `json:"user_email"`
	BookRFID         string        `json:"book_rfid"`
	BookTitle        string        `json:"book_title"`
	BorrowedAt       time.Time     `json:"tanggal_pinjam"`
	DueAt            time.Time     `json:"tanggal_kembali"`
	ReturnedAt       *time.Time    `json:"returned_at,omitempty"`
	Status           string        `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
}

func newBorrowingRequest(action outbox.Action, s outbox.BorrowingSnapshot) borrowingRequest {
	req := borrowingRequest{
		Action:           action,
		LocalBorrowingID: s.LocalBorrowingID,
		RemoteID:         s.RemoteID,
		LocalUserID:      s.LocalUserID,
		LocalBookID:      s.LocalBookID,
		UserEmail:        s.UserEmail,
		BookRFID:         s.BookRFID,
		BookTitle:        s.BookTitle,
		BorrowedAt:       s.BorrowedAt.UTC(),
		DueAt:            s.DueAt.UTC(),
		Status:           statusBorrowed,
		CreatedAt:        s.CreatedAt.UTC(),
	}
	if s.ReturnedAt != nil {
		t := s.ReturnedAt.UTC()
		req.ReturnedAt = &t
	}
	if s.Status == borrowing.StatusReturned {
		req.Status = statusReturned
	}
	return req
}

type pingRequest struct {
	Message   string    `json:"test_message"`
	Timestamp time.Time `json:"timestamp"`
	TestID    string    `json:"test_id"`
}

type ids struct {
	UserID      *int64 `json:"laravel_user_id,omitempty"`
	BorrowingID *int64 `json:"laravel_borrowing_id,omitempty"`
}

// response covers every answer of the catalog. Ids may come at the top level or under data.
type response struct {
	ids
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    *ids   `json:"data,omitempty"`
}

func (r *response) userID() *int64 {
	if r.UserID == nil && r.Data != nil {
		return r.Data.UserID
	}
	return r.UserID
}

func (r *response) borrowingID() *int64 {
	if r.BorrowingID == nil && r.Data != nil {
		return r.Data.BorrowingID
	}
	return r.BorrowingID
}

func (r *response) text() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}
