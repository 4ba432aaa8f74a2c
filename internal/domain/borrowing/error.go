package borrowing

import (
	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/user"
)

var (
	ErrUserNotFound = user.ErrNotFound
	ErrBookNotFound = book.ErrNotFound

	ErrNotFound               = apperr.New(apperr.KindBusinessRule, "BORROWING_NOT_FOUND", "borrowing not found")
	ErrUserHasActiveBorrowing = apperr.New(apperr.KindBusinessRule, "ACTIVE_BORROWING_EXISTS", "user already has an active borrowing")
	ErrOutOfStock             = apperr.New(apperr.KindBusinessRule, "OUT_OF_STOCK", "book is out of stock")
	ErrNoActiveBorrowing      = apperr.New(apperr.KindBusinessRule, "NO_ACTIVE_BORROWING", "user has no active borrowing")
	ErrInvalidRequest         = apperr.New(apperr.KindValidation, "INVALID_BORROWING_REQUEST", "invalid borrowing request")
)
