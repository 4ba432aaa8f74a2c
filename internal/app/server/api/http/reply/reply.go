// Package reply turns domain errors into the {status, error, code} bodies every endpoint returns.
package reply

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"libkiosk/internal/domain/apperr"
)

const (
	StatusOk    = "Ok"
	StatusError = "Error"
)

type Envelope struct {
	Status string `json:"status" enum:"Ok,Error"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func Ok() Envelope {
	return Envelope{Status: StatusOk}
}

// Fail returns the HTTP status and envelope for err.
func Fail(err error) (int, Envelope) {
	status := HTTPStatus(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	code := apperr.CodeOf(err)
	if code == "" {
		code = strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_")
	}

	return status, Envelope{Status: StatusError, Error: msg, Code: code}
}

func HTTPStatus(err error) int {
	kind, ok := apperr.KindOf(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}

	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindBusinessRule:
		if strings.HasSuffix(apperr.CodeOf(err), "NOT_FOUND") {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case apperr.KindTransientNetwork:
		return http.StatusServiceUnavailable
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
