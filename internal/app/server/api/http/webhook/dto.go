package webhook

import (
	"time"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/book"
)

type bookEventInput struct {
	Body book.Event
}

type bookEventOutput struct {
	Status int
	Body   BookEventResponse
}

type BookEventResponse struct {
	reply.Envelope
	Message     string `json:"message,omitempty"`
	Action      string `json:"action,omitempty" enum:"created,updated,deleted"`
	LocalBookID int64  `json:"local_book_id,omitempty"`
}

type testInput struct {
	Body map[string]any `required:"false"`
}

type testOutput struct {
	Body TestResponse
}

type TestResponse struct {
	reply.Envelope
	Message   string         `json:"message"`
	Received  map[string]any `json:"received_data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type statusInput struct{}

type statusOutput struct {
	Body WebhookStatusResponse
}

type WebhookStatusResponse struct {
	reply.Envelope
	Service   string    `json:"service"`
	Books     int       `json:"books"`
	Timestamp time.Time `json:"timestamp"`
}
