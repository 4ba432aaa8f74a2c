// Package event carries kiosk notifications to connected displays.
package event

import "time"

type Type string

const (
	TypeScan        Type = "scan"
	TypeRecognition Type = "recognition"
	TypeBorrowing   Type = "borrowing"
	TypeSync        Type = "sync"
)

type Event struct {
	Type Type      `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

func New(t Type, data any) Event {
	return Event{Type: t, Data: data, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Nop drops every event.
func Nop() Publisher {
	return nopPublisher{}
}
