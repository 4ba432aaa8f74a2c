package kiosk

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) startRecognitionOp() huma.Operation {
	return huma.Operation{
		OperationID:   "kiosk-recognition-start",
		Method:        http.MethodPost,
		Path:          "/api/recognition/start",
		Summary:       "Start face recognition",
		Description:   "Captures a frame and identifies the person in the background. Rejected while a run is in flight.",
		Tags:          []string{"recognition"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) recognitionResultOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-recognition-result",
		Method:      http.MethodGet,
		Path:        "/api/recognition/result",
		Summary:     "Poll the recognition run",
		Tags:        []string{"recognition"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resetRecognitionOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-recognition-reset",
		Method:      http.MethodPost,
		Path:        "/api/recognition/reset",
		Summary:     "Clear the recognition state",
		Tags:        []string{"recognition"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) startScanOp() huma.Operation {
	return huma.Operation{
		OperationID:   "kiosk-scan-start",
		Method:        http.MethodPost,
		Path:          "/api/scan/start",
		Summary:       "Ask the reader for a tag",
		Tags:          []string{"scan"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) scanCommandOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-scan-command",
		Method:      http.MethodGet,
		Path:        "/api/scan/command",
		Summary:     "Pending command for the RFID reader",
		Description: "Polled by the reader. Reports scan while a scan is requested and within budget.",
		Tags:        []string{"scan"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) reportScanOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-scan-report",
		Method:      http.MethodPost,
		Path:        "/api/scan/report",
		Summary:     "Report a scanned tag",
		Description: "The reader posts rfid_id, or status timeout when nothing was read.",
		Tags:        []string{"scan"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) scanResultOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-scan-result",
		Method:      http.MethodGet,
		Path:        "/api/scan/result",
		Summary:     "Poll the scan",
		Tags:        []string{"scan"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resetScanOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-scan-reset",
		Method:      http.MethodPost,
		Path:        "/api/scan/reset",
		Summary:     "Cancel the scan",
		Tags:        []string{"scan"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) lastScanOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-scan-last",
		Method:      http.MethodGet,
		Path:        "/api/scan/last",
		Summary:     "Last scanned book",
		Tags:        []string{"scan"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) frameOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-camera-frame",
		Method:      http.MethodGet,
		Path:        "/api/camera/frame",
		Summary:     "Latest camera frame",
		Tags:        []string{"camera"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) enrollOp() huma.Operation {
	return huma.Operation{
		OperationID:   "kiosk-faces-enroll",
		Method:        http.MethodPost,
		Path:          "/api/faces",
		Summary:       "Enroll a face",
		Description:   "Multipart upload of image plus user_id or name. The stored image is linked to the user.",
		Tags:          []string{"faces"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) reloadFacesOp() huma.Operation {
	return huma.Operation{
		OperationID: "kiosk-faces-reload",
		Method:      http.MethodPost,
		Path:        "/api/faces/reload",
		Summary:     "Rebuild the known faces cache",
		Tags:        []string{"faces"},
		Middlewares: h.middleware,
	}
}
