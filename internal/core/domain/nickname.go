package domain

import (
	"regexp"
	"strings"
)

var nicknameCharset = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// reservedNicknames cannot be claimed by users.
var reservedNicknames = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"api":           {},
	"root":          {},
	"system":        {},
	"support":       {},
	"moderator":     {},
	"superoauth":    {},
	"auth":          {},
	"oauth":         {},
	"me":            {},
	"null":          {},
	"undefined":     {},
}

// Nickname is a validated display handle, unique per user.
type Nickname struct {
	value string
}

// NewNickname validates a raw nickname: 2-32 characters from [A-Za-z0-9_-],
// not starting or ending with '_' or '-', and not a reserved word.
func NewNickname(raw string) (Nickname, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 2 {
		return Nickname{}, NewValidationError("nickname", "nickname must be at least 2 characters long")
	}
	if len(trimmed) > 32 {
		return Nickname{}, NewValidationError("nickname", "nickname must be at most 32 characters long")
	}
	if !nicknameCharset.MatchString(trimmed) {
		return Nickname{}, NewValidationError("nickname", "nickname may only contain letters, digits, '_' and '-'")
	}
	if strings.HasPrefix(trimmed, "_") || strings.HasPrefix(trimmed, "-") ||
		strings.HasSuffix(trimmed, "_") || strings.HasSuffix(trimmed, "-") {
		return Nickname{}, NewValidationError("nickname", "nickname must not start or end with '_' or '-'")
	}
	if _, reserved := reservedNicknames[strings.ToLower(trimmed)]; reserved {
		return Nickname{}, NewValidationError("nickname", "nickname is reserved")
	}

	return Nickname{value: trimmed}, nil
}

// String returns the nickname value.
func (n Nickname) String() string {
	return n.value
}

// Equals compares two nicknames case-insensitively.
func (n Nickname) Equals(other Nickname) bool {
	return strings.EqualFold(n.value, other.value)
}
