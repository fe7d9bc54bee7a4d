package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_CheckPassword(t *testing.T) {
	hash, err := HashPassword("Corr3ct!horse")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "Corr3ct!horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrPasswordMismatch)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{"valid", "Abcdef1!", nil},
		{"too short", "Ab1!", []string{"at least 8 characters"}},
		{"too long", "Ab1!" + strings.Repeat("x", 69), []string{"at most 72 characters"}},
		{"no upper", "abcdef1!", []string{"an uppercase letter"}},
		{"no lower or digit", "ABCDEFG!", []string{"a lowercase letter", "a number"}},
		{"no special", "Abcdefg1", []string{"a special character"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"ada@example.org", "first.last+tag@mail.example.co"}
	for _, e := range valid {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", e, err)
		}
	}

	invalid := []string{"", "ada", "ada@localhost", "Ada <ada@example.org>", strings.Repeat("a", 250) + "@x.org"}
	for _, e := range invalid {
		if err := ValidateEmail(e); err == nil {
			t.Errorf("ValidateEmail(%q) = nil, want error", e)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.ORG "); got != "ada@example.org" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
