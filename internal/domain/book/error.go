package book

import "libkiosk/internal/domain/apperr"

var (
	ErrNotFound           = apperr.New(apperr.KindBusinessRule, "BOOK_NOT_FOUND", "book not found")
	ErrRFIDTaken          = apperr.New(apperr.KindBusinessRule, "RFID_CONFLICT", "rfid tag already used by another book")
	ErrHasActiveBorrowing = apperr.New(apperr.KindBusinessRule, "BOOK_BORROWED", "book has an active borrowing")
	ErrUnsupportedEvent   = apperr.New(apperr.KindValidation, "UNSUPPORTED_EVENT", "unsupported event type")
)
