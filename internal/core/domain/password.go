package domain

import (
	"strings"
	"unicode"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 128
)

// commonSequences are rejected as substrings of the lower-cased password.
var commonSequences = []string{
	"password",
	"qwerty",
	"123456",
	"abc123",
	"letmein",
	"iloveyou",
}

// Password is a validated plaintext password. It only exists transiently:
// the raw value is hashed before any persistence and never stored.
type Password struct {
	value string
}

// NewPassword validates a raw password against the account password policy:
// 8-128 characters, at least one upper, lower, digit, and special character,
// no runs of 3+ identical characters, and no well-known sequences.
func NewPassword(raw string) (Password, error) {
	length := len([]rune(raw))
	if length < passwordMinLength {
		return Password{}, NewValidationError("password", "password must be at least 8 characters long")
	}
	if length > passwordMaxLength {
		return Password{}, NewValidationError("password", "password must be at most 128 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r) || r == ' ':
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return Password{}, NewValidationError("password", "password must include an uppercase letter")
	case !hasLower:
		return Password{}, NewValidationError("password", "password must include a lowercase letter")
	case !hasDigit:
		return Password{}, NewValidationError("password", "password must include a digit")
	case !hasSpecial:
		return Password{}, NewValidationError("password", "password must include a special character")
	}

	if hasRepeatedRun(raw, 3) {
		return Password{}, NewValidationError("password", "password must not repeat the same character 3 or more times in a row")
	}

	lowered := strings.ToLower(raw)
	for _, seq := range commonSequences {
		if strings.Contains(lowered, seq) {
			return Password{}, NewValidationError("password", "password contains a sequence that is too common")
		}
	}

	return Password{value: raw}, nil
}

// String returns the raw password for hashing.
func (p Password) String() string {
	return p.value
}

func hasRepeatedRun(s string, max int) bool {
	run := 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
			if run >= max {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}
