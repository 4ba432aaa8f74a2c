package borrowing

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/borrowing"
)

// Lender is the checkout path. The kiosk service implements it and consumes the last scan.
type Lender interface {
	Lend(ctx context.Context, req borrowing.LendRequest) (*borrowing.Detail, error)
	Return(ctx context.Context, req borrowing.ReturnRequest) (*borrowing.Detail, error)
}

type Handler struct {
	lender     Lender
	service    borrowing.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(lender Lender, service borrowing.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		lender:     lender,
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.lendOp(), h.lend)
	huma.Register(api, h.returnOp(), h.giveBack)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.bookStatusOp(), h.bookStatus)
}

func detail(d *borrowing.Detail, err error, okStatus int) *detailOutput {
	if err != nil {
		status, env := reply.Fail(err)
		return &detailOutput{Status: status, Body: DetailResponse{Envelope: env}}
	}
	return &detailOutput{Status: okStatus, Body: DetailResponse{Envelope: reply.Ok(), Data: d}}
}

func (h *Handler) lend(ctx context.Context, input *lendInput) (*detailOutput, error) {
	d, err := h.lender.Lend(ctx, input.Body)
	return detail(d, err, http.StatusCreated), nil
}

func (h *Handler) giveBack(ctx context.Context, input *returnInput) (*detailOutput, error) {
	d, err := h.lender.Return(ctx, input.Body)
	return detail(d, err, http.StatusOK), nil
}

func (h *Handler) get(ctx context.Context, input *getInput) (*detailOutput, error) {
	d, err := h.service.Detail(ctx, input.ID)
	return detail(d, err, http.StatusOK), nil
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	items, err := h.service.List(ctx, borrowing.ListFilter{
		UserID: input.UserID,
		Status: borrowing.Status(input.Status),
		Limit:  input.Limit,
	})
	if err != nil {
		status, env := reply.Fail(err)
		return &listOutput{Status: status, Body: BorrowingListResponse{Envelope: env}}, nil
	}
	if items == nil {
		items = []borrowing.Detail{}
	}
	return &listOutput{Status: http.StatusOK, Body: BorrowingListResponse{Envelope: reply.Ok(), Data: items}}, nil
}

func (h *Handler) bookStatus(ctx context.Context, input *bookStatusInput) (*bookStatusOutput, error) {
	st, err := h.service.BookStatus(ctx, input.RFID)
	if err != nil {
		status, env := reply.Fail(err)
		return &bookStatusOutput{Status: status, Body: BookStatusResponse{Envelope: env}}, nil
	}
	return &bookStatusOutput{Status: http.StatusOK, Body: BookStatusResponse{Envelope: reply.Ok(), Data: st}}, nil
}
