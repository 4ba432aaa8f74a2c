package borrowing

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

type Borrowing struct {
	ID         int64      `json:"id"`
	RemoteID   *int64     `json:"remote_id,omitempty"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     Status     `json:"status"`
	Synced     bool       `json:"synced"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (b *Borrowing) Active() bool {
	return b.Status == StatusActive
}

// Detail is a borrowing joined with the user and book it references.
type Detail struct {
	Borrowing
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
	BookRFID   string `json:"book_rfid"`
}

// LendParams is what the store needs to commit a lend.
type LendParams struct {
	UserID     int64
	RFIDTag    string
	BorrowedAt time.Time
	DueAt      time.Time
}

type ListFilter struct {
	UserID int64
	Status Status
	Limit  int
}
