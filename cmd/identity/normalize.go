package identity

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxEmailLen = 254

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether s (already normalized) is a bare address.
func ValidEmail(s string) bool {
	if len(s) > maxEmailLen {
		return false
	}
	return validate.Var(s, "required,email") == nil
}

// NormalizeName trims a display name and bounds its length.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}
