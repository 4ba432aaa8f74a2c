package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/book"
)

// Handler receives catalog changes pushed by the remote service.
type Handler struct {
	service    book.Servicer
	now        func() time.Time
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service book.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With("component", "webhook_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.bookEventOp(), h.bookEvent)
	huma.Register(api, h.testOp(), h.test)
	huma.Register(api, h.statusOp(), h.status)
}

func (h *Handler) bookEvent(ctx context.Context, input *bookEventInput) (*bookEventOutput, error) {
	res, err := h.service.ApplyEvent(ctx, input.Body)
	if err != nil {
		h.log.Info("book event rejected", "event", input.Body.Event, "error", err)
		status, env := reply.Fail(err)
		return &bookEventOutput{Status: status, Body: BookEventResponse{Envelope: env}}, nil
	}

	h.log.Info("book event applied", "event", input.Body.Event, "action", res.Action, "local_book_id", res.LocalBookID)
	return &bookEventOutput{
		Status: http.StatusOK,
		Body: BookEventResponse{
			Envelope:    reply.Ok(),
			Message:     res.Message,
			Action:      res.Action,
			LocalBookID: res.LocalBookID,
		},
	}, nil
}

func (h *Handler) test(_ context.Context, input *testInput) (*testOutput, error) {
	h.log.Info("webhook test received")

	return &testOutput{
		Body: TestResponse{
			Envelope:  reply.Ok(),
			Message:   "Webhook test received",
			Received:  input.Body,
			Timestamp: h.now(),
		},
	}, nil
}

func (h *Handler) status(ctx context.Context, _ *statusInput) (*statusOutput, error) {
	out := &statusOutput{
		Body: WebhookStatusResponse{
			Envelope:  reply.Ok(),
			Service:   "kiosk-webhook",
			Timestamp: h.now(),
		},
	}

	n, err := h.service.Count(ctx)
	if err != nil {
		h.log.Warn("count books", "error", err)
		return out, nil
	}
	out.Body.Books = n
	return out, nil
}
