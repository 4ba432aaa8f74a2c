// Package apperr is the error taxonomy shared by every kiosk component.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindValidation is bad or missing input. Never retried.
	KindValidation Kind = "validation"
	// KindBusinessRule is a domain rejection such as out of stock or an unknown RFID tag.
	KindBusinessRule Kind = "business_rule"
	// KindTransientNetwork is a timeout or connection failure against the camera or the remote.
	KindTransientNetwork Kind = "transient_network"
	// KindStorage is a constraint violation or database failure.
	KindStorage Kind = "storage"
	// KindTimeout is an operation that ran past its wall-clock budget.
	KindTimeout Kind = "timeout"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransientNetwork, Code: "TRANSIENT_NETWORK", Err: err}
}

func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Code: "STORAGE", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
