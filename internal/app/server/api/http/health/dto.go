package health

import "libkiosk/internal/app/server/api/http/reply"

type Input struct{}

type Output struct {
	Status int
	Body   Response
}

type Response struct {
	reply.Envelope
	Database       string `json:"database" example:"ok"`
	Camera         string `json:"camera" enum:"online,offline,not_configured"`
	KnownFaces     int    `json:"known_faces"`
	PendingEntries int    `json:"pending_entries"`
}
