package sync

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/outbox"
	syncdomain "libkiosk/internal/domain/sync"
)

type Handler struct {
	service    syncdomain.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service syncdomain.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "sync_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.drainOp(), h.drain)
	huma.Register(api, h.manualUsersOp(), h.manualUsers)
	huma.Register(api, h.manualBorrowingsOp(), h.manualBorrowings)
	huma.Register(api, h.testConnectionOp(), h.testConnection)
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.pullOp(), h.pull)
	huma.Register(api, h.clearOp(), h.clear)
}

func (h *Handler) drain(_ context.Context, _ *emptyInput) (*acceptedOutput, error) {
	h.service.Trigger()
	return &acceptedOutput{
		Status: http.StatusAccepted,
		Body:   AcceptedResponse{Envelope: reply.Ok(), Message: "drain scheduled"},
	}, nil
}

func (h *Handler) manualUsers(ctx context.Context, _ *emptyInput) (*acceptedOutput, error) {
	return h.sweep(ctx, outbox.TableUsers), nil
}

func (h *Handler) manualBorrowings(ctx context.Context, _ *emptyInput) (*acceptedOutput, error) {
	return h.sweep(ctx, outbox.TableBorrowings), nil
}

// sweep starts the bulk sync in the background. A sweep already in flight is reported
// synchronously; one that starts in between fails in the background with ErrAlreadyRunning.
func (h *Handler) sweep(ctx context.Context, table outbox.Table) *acceptedOutput {
	if h.service.Stats().Running {
		status, env := reply.Fail(syncdomain.ErrAlreadyRunning)
		return &acceptedOutput{Status: status, Body: AcceptedResponse{Envelope: env}}
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		res, err := h.service.SyncAllPending(bg, table)
		if err != nil {
			h.log.Error("manual sync failed", "table", table, "error", err)
			return
		}
		h.log.Info("manual sync done", "table", table, "synced", res.Synced, "failed", res.Failed)
	}()

	return &acceptedOutput{
		Status: http.StatusAccepted,
		Body:   AcceptedResponse{Envelope: reply.Ok(), Message: "manual " + string(table) + " sync started"},
	}
}

func (h *Handler) testConnection(ctx context.Context, _ *emptyInput) (*testConnectionOutput, error) {
	msg, err := h.service.TestConnection(ctx)
	if err != nil {
		status, env := reply.Fail(err)
		if !apperr.IsKind(err, apperr.KindValidation) {
			status = http.StatusServiceUnavailable
			env.Error = err.Error()
		}
		return &testConnectionOutput{Status: status, Body: TestConnectionResponse{Envelope: env}}, nil
	}

	return &testConnectionOutput{
		Status: http.StatusOK,
		Body:   TestConnectionResponse{Envelope: reply.Ok(), Message: msg},
	}, nil
}

func (h *Handler) status(ctx context.Context, _ *emptyInput) (*statusOutput, error) {
	st, err := h.service.Status(ctx)
	if err != nil {
		status, env := reply.Fail(err)
		return &statusOutput{Status: status, Body: SyncStatusResponse{Envelope: env}}, nil
	}

	stats := h.service.Stats()
	return &statusOutput{
		Status: http.StatusOK,
		Body:   SyncStatusResponse{Envelope: reply.Ok(), Data: st, Engine: &stats},
	}, nil
}

func (h *Handler) pull(ctx context.Context, _ *emptyInput) (*pullOutput, error) {
	res, err := h.service.PullBooks(ctx)
	if err != nil {
		status, env := reply.Fail(err)
		return &pullOutput{Status: status, Body: PullResponse{Envelope: env}}, nil
	}

	return &pullOutput{
		Status: http.StatusOK,
		Body:   PullResponse{Envelope: reply.Ok(), Data: res},
	}, nil
}

func (h *Handler) clear(ctx context.Context, input *clearInput) (*clearOutput, error) {
	if err := h.service.Clear(ctx, input.ID); err != nil {
		status, env := reply.Fail(err)
		return &clearOutput{Status: status, Body: env}, nil
	}

	return &clearOutput{Status: http.StatusOK, Body: reply.Ok()}, nil
}
