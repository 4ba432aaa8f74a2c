package sqldb

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"libkiosk/internal/domain/apperr"
)

var ErrConstraint = errors.New("constraint violation")

type constraintKind int

const (
	constraintOther constraintKind = iota
	constraintUnique
	constraintCheck
	constraintForeignKey
)

// ConstraintError is a violated schema constraint. Detail holds the driver's description,
// which names the offending column or constraint.
type ConstraintError struct {
	kind   constraintKind
	Detail string
	Err    error
}

func (e *ConstraintError) Error() string {
	return "constraint violation: " + e.Detail
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

func (e *ConstraintError) unique(name string) bool {
	return e.kind == constraintUnique && strings.Contains(e.Detail, name)
}

func (e *ConstraintError) check(name string) bool {
	return e.kind == constraintCheck && strings.Contains(e.Detail, name)
}

// asConstraint recognizes constraint violations from both drivers.
func asConstraint(err error) (*ConstraintError, bool) {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		ce := &ConstraintError{Detail: se.Error(), Err: err}
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			ce.kind = constraintUnique
		case sqlite3.ErrConstraintCheck:
			ce.kind = constraintCheck
		case sqlite3.ErrConstraintForeignKey:
			ce.kind = constraintForeignKey
		}
		return ce, true
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) && strings.HasPrefix(pe.Code, "23") {
		ce := &ConstraintError{Detail: pe.ConstraintName + " " + pe.Detail + " " + pe.Message, Err: err}
		switch pe.Code {
		case "23505":
			ce.kind = constraintUnique
		case "23514":
			ce.kind = constraintCheck
		case "23503":
			ce.kind = constraintForeignKey
		}
		return ce, true
	}

	return nil, false
}

// storageErr wraps a driver error as a storage failure, keeping constraint details visible.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := asConstraint(err); ok {
		return apperr.Storage(ce)
	}
	return apperr.Storage(err)
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return storageErr(err)
}
