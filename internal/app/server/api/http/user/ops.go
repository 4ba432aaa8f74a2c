package user

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "user-create",
		Method:        http.MethodPost,
		Path:          "/api/users",
		Summary:       "Register a library member",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "user-list",
		Method:      http.MethodGet,
		Path:        "/api/users",
		Summary:     "List users",
		Tags:        []string{"users"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "user-get",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}",
		Summary:     "Get a user",
		Tags:        []string{"users"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "user-update",
		Method:      http.MethodPatch,
		Path:        "/api/users/{id}",
		Summary:     "Update a user",
		Tags:        []string{"users"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "user-delete",
		Method:      http.MethodDelete,
		Path:        "/api/users/{id}",
		Summary:     "Delete a user",
		Description: "Rejected while the user has an active borrowing",
		Tags:        []string{"users"},
		Middlewares: h.middleware,
	}
}
