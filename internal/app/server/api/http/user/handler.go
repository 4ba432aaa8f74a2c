package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/user"
)

type Handler struct {
	service    user.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service user.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func single(u *user.User, err error, okStatus int) *userOutput {
	if err != nil {
		status, env := reply.Fail(err)
		return &userOutput{Status: status, Body: UserResponse{Envelope: env}}
	}
	return &userOutput{Status: okStatus, Body: UserResponse{Envelope: reply.Ok(), Data: u}}
}

func (h *Handler) create(ctx context.Context, input *createInput) (*userOutput, error) {
	u, err := h.service.Create(ctx, input.Body)
	return single(u, err, http.StatusCreated), nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	users, err := h.service.List(ctx)
	if err != nil {
		status, env := reply.Fail(err)
		return &listOutput{Status: status, Body: UserListResponse{Envelope: env}}, nil
	}
	if users == nil {
		users = []user.User{}
	}
	return &listOutput{Status: http.StatusOK, Body: UserListResponse{Envelope: reply.Ok(), Data: users}}, nil
}

func (h *Handler) get(ctx context.Context, input *idInput) (*userOutput, error) {
	u, err := h.service.Get(ctx, input.ID)
	return single(u, err, http.StatusOK), nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*userOutput, error) {
	u, err := h.service.Update(ctx, input.ID, input.Body)
	return single(u, err, http.StatusOK), nil
}

func (h *Handler) delete(ctx context.Context, input *idInput) (*deleteOutput, error) {
	if err := h.service.Delete(ctx, input.ID); err != nil {
		h.log.Debug("delete rejected", "user_id", input.ID, "error", err)
		status, env := reply.Fail(err)
		return &deleteOutput{Status: status, Body: DeleteResponse{Envelope: env}}, nil
	}
	return &deleteOutput{
		Status: http.StatusOK,
		Body:   DeleteResponse{Envelope: reply.Ok(), Message: fmt.Sprintf("user %d deleted", input.ID)},
	}, nil
}
