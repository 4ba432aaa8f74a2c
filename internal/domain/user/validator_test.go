package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidator_ValidateName(t *testing.T) {
	validator := NewProfileValidator()

	tests := []struct {
		name        string
		input       string
		wantErr     bool
		expectedErr string
	}{
		{
			name:    "valid name",
			input:   "Alice Wonderland",
			wantErr: false,
		},
		{
			name:    "name with accents and apostrophe",
			input:   "Zoë O'Neil",
			wantErr: false,
		},
		{
			name:        "too short",
			input:       "A",
			wantErr:     true,
			expectedErr: "name must be at least 2 characters",
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", 101),
			wantErr:     true,
			expectedErr: "name must be at most 100 characters",
		},
		{
			name:        "digits",
			input:       "R2 D2",
			wantErr:     true,
			expectedErr: "name can only contain letters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfileValidator_ValidateEmail(t *testing.T) {
	validator := NewProfileValidator()

	assert.NoError(t, validator.ValidateEmail("alice@example.com"))
	assert.Error(t, validator.ValidateEmail("alice"))
	assert.Error(t, validator.ValidateEmail("Alice <alice@example.com>"))
	assert.Error(t, validator.ValidateEmail(""))
}

func TestProfileValidator_ValidateRole(t *testing.T) {
	validator := NewProfileValidator()

	assert.NoError(t, validator.ValidateRole(RoleAdmin))
	assert.NoError(t, validator.ValidateRole(RoleMember))
	assert.Error(t, validator.ValidateRole("librarian"))
}

func TestNormalizeName(t *testing.T) {
	decomposed := "Zoe\u0308  Smith "

	assert.Equal(t, "Zo\u00eb Smith", NormalizeName(decomposed))
	assert.Equal(t, "Alice", NormalizeName("  Alice\t"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail(" Alice@Example.COM "))
}
