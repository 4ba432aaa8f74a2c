package kiosk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/kiosk"
	"libkiosk/internal/domain/user"
	"libkiosk/internal/infrastructure/device"
)

const maxImageSize = 8 << 20

type Frames interface {
	Latest() device.Frame
}

type UserResolver interface {
	Resolve(ctx context.Context, l user.Lookup) (*user.User, error)
}

// Handler serves the kiosk screen and the RFID reader.
type Handler struct {
	service    kiosk.Servicer
	frames     Frames
	users      UserResolver
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service kiosk.Servicer, frames Frames, users UserResolver, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		frames:     frames,
		users:      users,
		log:        log.With("component", "kiosk_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.startRecognitionOp(), h.startRecognition)
	huma.Register(api, h.recognitionResultOp(), h.recognitionResult)
	huma.Register(api, h.resetRecognitionOp(), h.resetRecognition)

	huma.Register(api, h.startScanOp(), h.startScan)
	huma.Register(api, h.scanCommandOp(), h.scanCommand)
	huma.Register(api, h.reportScanOp(), h.reportScan)
	huma.Register(api, h.scanResultOp(), h.scanResult)
	huma.Register(api, h.resetScanOp(), h.resetScan)
	huma.Register(api, h.lastScanOp(), h.lastScan)

	huma.Register(api, h.frameOp(), h.frame)
	huma.Register(api, h.enrollOp(), h.enroll)
	huma.Register(api, h.reloadFacesOp(), h.reloadFaces)
}

func (h *Handler) startRecognition(ctx context.Context, _ *emptyInput) (*envelopeOutput, error) {
	if err := h.service.StartRecognition(ctx); err != nil {
		status, env := reply.Fail(err)
		return &envelopeOutput{Status: status, Body: env}, nil
	}
	return &envelopeOutput{Status: http.StatusAccepted, Body: reply.Ok()}, nil
}

func (h *Handler) recognitionResult(_ context.Context, _ *emptyInput) (*recognitionOutput, error) {
	return &recognitionOutput{
		Body: RecognitionResponse{Envelope: reply.Ok(), Snapshot: h.service.RecognitionResult()},
	}, nil
}

func (h *Handler) resetRecognition(_ context.Context, _ *emptyInput) (*envelopeOutput, error) {
	h.service.ResetRecognition()
	return &envelopeOutput{Status: http.StatusOK, Body: reply.Ok()}, nil
}

func (h *Handler) startScan(_ context.Context, _ *emptyInput) (*commandOutput, error) {
	cmd, err := h.service.StartScan()
	if err != nil {
		status, env := reply.Fail(err)
		return &commandOutput{Status: status, Body: CommandResponse{Envelope: env}}, nil
	}
	return &commandOutput{Status: http.StatusAccepted, Body: CommandResponse{Envelope: reply.Ok(), Command: cmd}}, nil
}

func (h *Handler) scanCommand(_ context.Context, _ *emptyInput) (*pollOutput, error) {
	return &pollOutput{Body: h.service.CheckScanCommand()}, nil
}

func (h *Handler) reportScan(ctx context.Context, input *reportInput) (*reportOutput, error) {
	out, err := h.service.ReportScan(ctx, input.Body)
	if err != nil {
		status, env := reply.Fail(err)
		return &reportOutput{Status: status, Body: ReportResponse{Envelope: env}}, nil
	}
	return &reportOutput{Status: http.StatusOK, Body: ReportResponse{Envelope: reply.Ok(), Outcome: out}}, nil
}

func (h *Handler) scanResult(_ context.Context, _ *emptyInput) (*scanResultOutput, error) {
	return &scanResultOutput{
		Body: ScanResultResponse{Envelope: reply.Ok(), Snapshot: h.service.ScanResult()},
	}, nil
}

func (h *Handler) resetScan(_ context.Context, _ *emptyInput) (*envelopeOutput, error) {
	h.service.ResetScan()
	return &envelopeOutput{Status: http.StatusOK, Body: reply.Ok()}, nil
}

func (h *Handler) lastScan(_ context.Context, _ *emptyInput) (*lastScanOutput, error) {
	last, err := h.service.LastScan()
	if err != nil {
		status, env := reply.Fail(err)
		return &lastScanOutput{Status: status, Body: LastScanResponse{Envelope: env}}, nil
	}
	return &lastScanOutput{Status: http.StatusOK, Body: LastScanResponse{Envelope: reply.Ok(), Scan: last}}, nil
}

func (h *Handler) frame(_ context.Context, _ *emptyInput) (*frameOutput, error) {
	f := h.frames.Latest()
	return &frameOutput{
		ContentType:  "image/jpeg",
		CacheControl: "no-store",
		Placeholder:  strconv.FormatBool(f.Placeholder),
		Body:         f.JPEG,
	}, nil
}

// enroll takes the target user from the user_id or name form field.
func (h *Handler) enroll(ctx context.Context, input *enrollInput) (*enrollOutput, error) {
	fail := func(err error) (*enrollOutput, error) {
		status, env := reply.Fail(err)
		return &enrollOutput{Status: status, Body: EnrollResponse{Envelope: env}}, nil
	}

	userID, err := h.enrollTarget(ctx, input.RawBody.Form.Value)
	if err != nil {
		return fail(err)
	}

	form := input.RawBody.Data()
	img, err := io.ReadAll(io.LimitReader(form.Image, maxImageSize+1))
	if err != nil {
		return fail(apperr.Validation("INVALID_UPLOAD", "read image: %v", err))
	}
	if len(img) > maxImageSize {
		return fail(apperr.Validation("IMAGE_TOO_LARGE", "image exceeds %d bytes", maxImageSize))
	}

	u, err := h.service.EnrollFace(ctx, userID, img)
	if err != nil {
		h.log.Info("enrollment rejected", "user_id", userID, "error", err)
		return fail(err)
	}

	return &enrollOutput{Status: http.StatusCreated, Body: EnrollResponse{Envelope: reply.Ok(), User: u}}, nil
}

func (h *Handler) enrollTarget(ctx context.Context, values map[string][]string) (int64, error) {
	if v := first(values, "user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return 0, apperr.Validation("INVALID_USER_ID", "user_id must be a positive integer")
		}
		return id, nil
	}

	name := first(values, "name")
	if name == "" {
		return 0, apperr.Validation("MISSING_FIELDS", "user_id or name is required")
	}
	u, err := h.users.Resolve(ctx, user.Lookup{Name: name})
	if err != nil {
		return 0, fmt.Errorf("enroll %q: %w", name, err)
	}
	return u.ID, nil
}

func first(values map[string][]string, key string) string {
	if len(values[key]) == 0 {
		return ""
	}
	return strings.TrimSpace(values[key][0])
}

func (h *Handler) reloadFaces(_ context.Context, _ *emptyInput) (*reloadOutput, error) {
	n, err := h.service.ReloadFaces()
	if err != nil {
		status, env := reply.Fail(err)
		return &reloadOutput{Status: status, Body: ReloadResponse{Envelope: env}}, nil
	}
	return &reloadOutput{Status: http.StatusOK, Body: ReloadResponse{Envelope: reply.Ok(), Known: n}}, nil
}
