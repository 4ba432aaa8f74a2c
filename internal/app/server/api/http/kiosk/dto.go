package kiosk

import (
	"github.com/danielgtaylor/huma/v2"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/guard"
	"libkiosk/internal/domain/kiosk"
	"libkiosk/internal/domain/user"
)

type emptyInput struct{}

type envelopeOutput struct {
	Status int
	Body   reply.Envelope
}

type recognitionOutput struct {
	Body RecognitionResponse
}

type RecognitionResponse struct {
	reply.Envelope
	guard.Snapshot[kiosk.Recognition]
}

type commandOutput struct {
	Status int
	Body   CommandResponse
}

type CommandResponse struct {
	reply.Envelope
	Command kiosk.Command `json:"command"`
}

type pollOutput struct {
	Body kiosk.Command
}

type reportInput struct {
	Body kiosk.ScanReport
}

type reportOutput struct {
	Status int
	Body   ReportResponse
}

type ReportResponse struct {
	reply.Envelope
	Outcome *kiosk.ScanOutcome `json:"outcome,omitempty"`
}

type scanResultOutput struct {
	Body ScanResultResponse
}

type ScanResultResponse struct {
	reply.Envelope
	guard.Snapshot[kiosk.ScanOutcome]
}

type lastScanOutput struct {
	Status int
	Body   LastScanResponse
}

type LastScanResponse struct {
	reply.Envelope
	Scan *kiosk.LastScan `json:"scan,omitempty"`
}

type frameOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Placeholder  string `header:"X-Placeholder"`
	Body         []byte
}

type enrollForm struct {
	Image huma.FormFile `form:"image" required:"true" doc:"JPEG or PNG with exactly one face"`
}

type enrollInput struct {
	RawBody huma.MultipartFormFiles[enrollForm]
}

type enrollOutput struct {
	Status int
	Body   EnrollResponse
}

type EnrollResponse struct {
	reply.Envelope
	User *user.User `json:"user,omitempty"`
}

type reloadOutput struct {
	Status int
	Body   ReloadResponse
}

type ReloadResponse struct {
	reply.Envelope
	Known int `json:"known_faces"`
}
