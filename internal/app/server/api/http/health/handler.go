package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/identity"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Camera interface {
	Online() bool
}

type Outbox interface {
	PendingCount(ctx context.Context) (int, error)
}

type Faces interface {
	Known() []identity.Enrollment
}

type Handler struct {
	db         Pinger
	camera     Camera
	outbox     Outbox
	faces      Faces
	log        *slog.Logger
	middleware huma.Middlewares
}

// NewHandler builds the health endpoint. camera is nil when no device is configured.
func NewHandler(db Pinger, camera Camera, outbox Outbox, faces Faces, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:         db,
		camera:     camera,
		outbox:     outbox,
		faces:      faces,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	out := &Output{
		Status: http.StatusOK,
		Body: Response{
			Envelope: reply.Ok(),
			Database: "ok",
			Camera:   "not_configured",
		},
	}

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("health check: database unreachable", "error", err)
		out.Status = http.StatusServiceUnavailable
		out.Body.Envelope = reply.Envelope{Status: reply.StatusError, Error: "database unreachable", Code: "DB_UNAVAILABLE"}
		out.Body.Database = "unreachable"
	}

	if h.camera != nil {
		out.Body.Camera = "offline"
		if h.camera.Online() {
			out.Body.Camera = "online"
		}
	}

	if n, err := h.outbox.PendingCount(ctx); err == nil {
		out.Body.PendingEntries = n
	}
	out.Body.KnownFaces = len(h.faces.Known())

	return out, nil
}
