package user

import "libkiosk/internal/domain/apperr"

var (
	ErrNotFound           = apperr.New(apperr.KindBusinessRule, "USER_NOT_FOUND", "user not found")
	ErrEmailTaken         = apperr.New(apperr.KindBusinessRule, "EMAIL_CONFLICT", "email already registered")
	ErrHasActiveBorrowing = apperr.New(apperr.KindBusinessRule, "USER_BORROWING_ACTIVE", "user has an active borrowing")
	ErrInvalidInput       = apperr.New(apperr.KindValidation, "INVALID_USER", "invalid user input")
)
