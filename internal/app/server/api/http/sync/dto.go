package sync

import (
	"libkiosk/internal/app/server/api/http/reply"
	syncdomain "libkiosk/internal/domain/sync"
)

type emptyInput struct{}

type acceptedOutput struct {
	Status int
	Body   AcceptedResponse
}

type AcceptedResponse struct {
	reply.Envelope
	Message string `json:"message,omitempty"`
}

type testConnectionOutput struct {
	Status int
	Body   TestConnectionResponse
}

type TestConnectionResponse struct {
	reply.Envelope
	Message string `json:"message,omitempty"`
}

type statusOutput struct {
	Status int
	Body   SyncStatusResponse
}

type SyncStatusResponse struct {
	reply.Envelope
	Data   *syncdomain.Status `json:"data,omitempty"`
	Engine *syncdomain.Stats  `json:"engine,omitempty"`
}

type pullOutput struct {
	Status int
	Body   PullResponse
}

type PullResponse struct {
	reply.Envelope
	Data *syncdomain.PullResult `json:"data,omitempty"`
}

type clearInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type clearOutput struct {
	Status int
	Body   reply.Envelope
}
