package user

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	MinNameLen = 2
	MaxNameLen = 100
)

type Validator interface {
	ValidateName(name string) error
	ValidateEmail(email string) error
	ValidateRole(role Role) error
}

type ProfileValidator struct{}

func NewProfileValidator() *ProfileValidator {
	return &ProfileValidator{}
}

// ValidateName expects an already normalized name.
func (v *ProfileValidator) ValidateName(name string) error {
	n := len([]rune(name))
	if n < MinNameLen {
		return fmt.Errorf("name must be at least %d characters", MinNameLen)
	}
	if n > MaxNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxNameLen)
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsMark(r) && r != ' ' && r != '.' && r != '\'' && r != '-' {
			return fmt.Errorf("name can only contain letters, spaces, '.', '-', '''")
		}
	}

	return nil
}

func (v *ProfileValidator) ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address %q", email)
	}
	return nil
}

func (v *ProfileValidator) ValidateRole(role Role) error {
	if !role.Valid() {
		return fmt.Errorf("role must be admin or member")
	}
	return nil
}

// NormalizeName composes the name to NFC and collapses whitespace, so the same person typed
// on different keyboards resolves to one row.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
