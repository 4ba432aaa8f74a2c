package identity

import "libkiosk/internal/domain/apperr"

var (
	ErrInvalidImage  = apperr.New(apperr.KindValidation, "INVALID_IMAGE", "image cannot be decoded")
	ErrNoFace        = apperr.New(apperr.KindValidation, "NO_FACE", "no face detected")
	ErrMultipleFaces = apperr.New(apperr.KindValidation, "MULTIPLE_FACES", "more than one face detected")
	ErrAlreadyKnown  = apperr.New(apperr.KindBusinessRule, "FACE_ALREADY_KNOWN", "face already enrolled")
	ErrEmptyLabel    = apperr.New(apperr.KindValidation, "EMPTY_LABEL", "label must not be empty")
)
