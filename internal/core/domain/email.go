package domain

import (
	"regexp"
	"strings"
)

var emailShape = regexp.MustCompile(`^[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~.\-]+@[A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?)+$`)

// Email is a validated, case-normalized email address.
type Email struct {
	value string
}

// NewEmail validates and normalizes a raw email address.
// The address is lower-cased; dots may not lead, trail, or repeat in the local part.
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, NewValidationError("email", "email is required")
	}
	if len(normalized) > 254 {
		return Email{}, NewValidationError("email", "email is too long")
	}
	if !emailShape.MatchString(normalized) {
		return Email{}, NewValidationError("email", "email format is invalid")
	}

	local := normalized[:strings.LastIndex(normalized, "@")]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return Email{}, NewValidationError("email", "email format is invalid")
	}

	return Email{value: normalized}, nil
}

// String returns the normalized address.
func (e Email) String() string {
	return e.value
}

// IsZero reports whether the email is unset.
func (e Email) IsZero() bool {
	return e.value == ""
}

// Equals compares two emails case-insensitively (both are already normalized).
func (e Email) Equals(other Email) bool {
	return e.value == other.value
}
