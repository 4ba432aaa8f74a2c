package book

import "time"

// Event is the webhook envelope sent by the remote catalog.
type Event struct {
	Event     string     `json:"event,omitempty" doc:"book_created, book_updated or book_deleted"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Data      *EventData `json:"data,omitempty"`
}

// EventData mirrors the remote book resource. Fields are pointers so missing keys can be reported.
type EventData struct {
	ID        *int64  `json:"id,omitempty" doc:"Remote book id"`
	Title     *string `json:"judul,omitempty"`
	Author    *string `json:"penulis,omitempty"`
	Publisher *string `json:"penerbit,omitempty"`
	Year      *int    `json:"tahun_terbit,omitempty"`
	Stock     *int    `json:"stok,omitempty"`
	RFIDTag   *string `json:"rfid_tag,omitempty"`
}

type EventResult struct {
	Action      string `json:"action"`
	LocalBookID int64  `json:"local_book_id"`
	Message     string `json:"message"`
}

// SeedBook is one entry of a catalog seed file.
type SeedBook struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	Publisher string `yaml:"publisher"`
	Year      int    `yaml:"year"`
	Stock     int    `yaml:"stock"`
	RFIDTag   string `yaml:"rfid_tag"`
}
