package kiosk

import (
	"time"

	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/user"
)

// Outcomes of a recognition run besides the matcher's own statuses.
const (
	StatusCameraUnavailable identity.Status = "camera_unavailable"
	StatusUnknownUser       identity.Status = "unknown_user"
	StatusFailed            identity.Status = "error"
)

type Recognition struct {
	Status   identity.Status `json:"status"`
	Label    string          `json:"label,omitempty"`
	Distance float64         `json:"distance,omitempty"`
	User     *user.User      `json:"user,omitempty"`
	Message  string          `json:"message"`
}

func (r Recognition) Matched() bool {
	return r.Status == identity.StatusMatched && r.User != nil
}

type ScanStatus string

const (
	ScanSuccess ScanStatus = "success"
	ScanTimeout ScanStatus = "timeout"
)

// ScanReport is what the RFID reader posts: a tag, or status "timeout" when nothing was read.
type ScanReport struct {
	RFID   string `json:"rfid_id,omitempty"`
	Status string `json:"status,omitempty"`
}

type ScanOutcome struct {
	Status  ScanStatus            `json:"status"`
	RFID    string                `json:"rfid_id,omitempty"`
	Book    *borrowing.BookStatus `json:"book,omitempty"`
	Message string                `json:"message,omitempty"`
}

type CommandStatus string

const (
	CommandIdle CommandStatus = "idle"
	CommandScan CommandStatus = "scan"
)

// Command is polled by the RFID reader.
type Command struct {
	Status   CommandStatus `json:"status"`
	IssuedAt *time.Time    `json:"timestamp,omitempty"`
}

// LastScan is the most recent tag read, kept until a lend consumes it.
type LastScan struct {
	RFID      string                `json:"rfid_id"`
	Book      *borrowing.BookStatus `json:"book,omitempty"`
	ScannedAt time.Time             `json:"scanned_at"`
}
