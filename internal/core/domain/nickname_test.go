package domain

import (
	"strings"
	"testing"
)

func TestNewNicknameAccepted(t *testing.T) {
	nick, err := NewNickname("  Cool_Dev-42 ")
	if err != nil {
		t.Fatalf("NewNickname returned error: %v", err)
	}

	if got := nick.String(); got != "Cool_Dev-42" {
		t.Fatalf("expected trimmed nickname, got %q", got)
	}
}

func TestNewNicknameRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "too short", raw: "a"},
		{name: "too long", raw: strings.Repeat("a", 33)},
		{name: "illegal characters", raw: "bad nick!"},
		{name: "leading underscore", raw: "_nick"},
		{name: "trailing dash", raw: "nick-"},
		{name: "reserved word", raw: "admin"},
		{name: "reserved word mixed case", raw: "Admin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewNickname(tc.raw); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestNicknameEqualsIsCaseInsensitive(t *testing.T) {
	a, err := NewNickname("CoolDev")
	if err != nil {
		t.Fatalf("NewNickname returned error: %v", err)
	}
	b, err := NewNickname("cooldev")
	if err != nil {
		t.Fatalf("NewNickname returned error: %v", err)
	}

	if !a.Equals(b) {
		t.Fatal("expected case-insensitive equality")
	}
}
