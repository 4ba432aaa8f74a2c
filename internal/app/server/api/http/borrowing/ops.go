package borrowing

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) lendOp() huma.Operation {
	return huma.Operation{
		OperationID:   "borrowing-lend",
		Method:        http.MethodPost,
		Path:          "/api/borrowings",
		Summary:       "Lend a book",
		Description:   "Without rfid_id the last scanned book is used.",
		Tags:          []string{"borrowings"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) returnOp() huma.Operation {
	return huma.Operation{
		OperationID: "borrowing-return",
		Method:      http.MethodPost,
		Path:        "/api/borrowings/return",
		Summary:     "Return the user's active borrowing",
		Tags:        []string{"borrowings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "borrowing-get",
		Method:      http.MethodGet,
		Path:        "/api/borrowings/{id}",
		Summary:     "Borrowing detail",
		Tags:        []string{"borrowings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "borrowing-list",
		Method:      http.MethodGet,
		Path:        "/api/borrowings",
		Summary:     "List borrowings",
		Description: "Newest first, filtered by user and status.",
		Tags:        []string{"borrowings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) bookStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "book-status",
		Method:      http.MethodGet,
		Path:        "/api/books/{rfid}",
		Summary:     "Book availability by RFID tag",
		Tags:        []string{"books"},
		Middlewares: h.middleware,
	}
}
