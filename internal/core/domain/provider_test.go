package domain

import (
	"testing"
	"time"
)

func TestParseProvider(t *testing.T) {
	cases := []struct {
		raw  string
		want Provider
	}{
		{raw: "discord", want: ProviderDiscord},
		{raw: "Google", want: ProviderGoogle},
		{raw: " GITHUB ", want: ProviderGitHub},
		{raw: "twitch", want: ProviderTwitch},
	}

	for _, tc := range cases {
		got, err := ParseProvider(tc.raw)
		if err != nil {
			t.Fatalf("ParseProvider(%q) returned error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseProvider(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseProviderRejectsUnknown(t *testing.T) {
	if _, err := ParseProvider("facebook"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewLinkedAccountValidation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, err := NewLinkedAccount(ProviderDiscord, "", "name", "", "", nil, now); err == nil {
		t.Fatal("expected error for missing provider id")
	}
	if _, err := NewLinkedAccount(ProviderDiscord, "id", "", "", "", nil, now); err == nil {
		t.Fatal("expected error for missing display name")
	}
	if _, err := NewLinkedAccount(Provider("myspace"), "id", "name", "", "", nil, now); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewLinkedAccountNormalizes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	meta := map[string]any{"locale": "en"}

	account, err := NewLinkedAccount(ProviderGoogle, " g-1 ", " Display ", " USER@Example.com ", " https://cdn/avatar.png ", meta, now)
	if err != nil {
		t.Fatalf("NewLinkedAccount returned error: %v", err)
	}

	if account.ProviderID != "g-1" {
		t.Fatalf("expected trimmed provider id, got %q", account.ProviderID)
	}
	if account.Email != "user@example.com" {
		t.Fatalf("expected lower-cased email, got %q", account.Email)
	}

	meta["locale"] = "fr"
	if account.Metadata["locale"] != "en" {
		t.Fatal("expected metadata to be copied, not aliased")
	}
}
