package book

import "time"

type Book struct {
	ID        int64     `json:"id"`
	RemoteID  *int64    `json:"remote_id,omitempty"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Publisher string    `json:"publisher"`
	Year      int       `json:"year"`
	Stock     int       `json:"stock"`
	RFIDTag   string    `json:"rfid_tag"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available reports whether at least one copy can be lent.
func (b *Book) Available() bool {
	return b.Stock > 0
}

// Event types pushed by the remote catalog.
const (
	EventCreated = "book_created"
	EventUpdated = "book_updated"
	EventDeleted = "book_deleted"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)
