package sync

import (
	"errors"
	"fmt"

	"libkiosk/internal/domain/apperr"
)

var (
	ErrAlreadyRunning = apperr.New(apperr.KindBusinessRule, "SYNC_RUNNING", "sync already running")
	ErrNotConfigured  = apperr.New(apperr.KindValidation, "SYNC_NOT_CONFIGURED", "remote catalog is not configured")
	ErrInvalidTable   = apperr.New(apperr.KindValidation, "INVALID_TABLE", "table must be users or borrowings")
)

// RemoteError is a non-2xx answer of the remote catalog.
type RemoteError struct {
	StatusCode int
	Message    string
	// RemoteID is set when the body still names the remote record, as 409 answers may.
	RemoteID *int64
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote responded %d", e.StatusCode)
	}
	return fmt.Sprintf("remote responded %d: %s", e.StatusCode, e.Message)
}

// IsDuplicate reports a 409 answer: the remote already has the record.
func IsDuplicate(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) && re.StatusCode == 409 {
		return re, true
	}
	return nil, false
}

// Retryable reports whether a failed push may be attempted again in the same drain.
func Retryable(err error) bool {
	return apperr.IsKind(err, apperr.KindTransientNetwork)
}
