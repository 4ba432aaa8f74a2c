package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) drainOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-drain",
		Method:        http.MethodPost,
		Path:          "/api/sync/drain",
		Summary:       "Schedule an outbox drain",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) manualUsersOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-users-manual",
		Method:        http.MethodPost,
		Path:          "/api/sync/users/manual",
		Summary:       "Sync every unsynced user",
		Description:   "Starts a bulk sweep of the users table in the background",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) manualBorrowingsOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-borrowings-manual",
		Method:        http.MethodPost,
		Path:          "/api/sync/borrowings/manual",
		Summary:       "Sync every unsynced borrowing",
		Description:   "Starts a bulk sweep of the borrowings table in the background",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) testConnectionOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-test-connection",
		Method:      http.MethodPost,
		Path:        "/api/sync/test_connection",
		Summary:     "Probe the remote catalog",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/sync/status",
		Summary:     "Sync progress per table",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pullOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-pull-books",
		Method:      http.MethodPost,
		Path:        "/api/sync/pull",
		Summary:     "Pull new books from the remote catalog",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) clearOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-clear-entry",
		Method:      http.MethodPost,
		Path:        "/api/sync/entries/{id}/clear",
		Summary:     "Clear a stuck outbox entry",
		Description: "Marks the entry synced without sending it. The entity stays unsynced.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
