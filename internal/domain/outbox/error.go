package outbox

import "libkiosk/internal/domain/apperr"

var (
	ErrNotFound      = apperr.New(apperr.KindBusinessRule, "OUTBOX_ENTRY_NOT_FOUND", "outbox entry not found")
	ErrAlreadySynced = apperr.New(apperr.KindBusinessRule, "OUTBOX_ENTRY_SYNCED", "outbox entry already synced")
)
