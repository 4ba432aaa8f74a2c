package webhook

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) bookEventOp() huma.Operation {
	return huma.Operation{
		OperationID: "webhook-books",
		Method:      http.MethodPost,
		Path:        "/api/webhook/books",
		Summary:     "Apply a catalog change",
		Description: "Upserts or deletes the local copy of a remote book, keyed by the remote id",
		Tags:        []string{"webhook"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) testOp() huma.Operation {
	return huma.Operation{
		OperationID: "webhook-test",
		Method:      http.MethodPost,
		Path:        "/api/webhook/test",
		Summary:     "Echo a test payload",
		Tags:        []string{"webhook"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "webhook-status",
		Method:      http.MethodGet,
		Path:        "/api/webhook/status",
		Summary:     "Webhook receiver status",
		Tags:        []string{"webhook"},
		Middlewares: h.middleware,
	}
}
