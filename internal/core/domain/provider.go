package domain

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a supported third-party OAuth provider.
type Provider string

const (
	ProviderDiscord Provider = "discord"
	ProviderGoogle  Provider = "google"
	ProviderGitHub  Provider = "github"
	ProviderTwitch  Provider = "twitch"
)

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{ProviderDiscord, ProviderGoogle, ProviderGitHub, ProviderTwitch}
}

// ParseProvider resolves a raw provider name, case-insensitively.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderDiscord:
		return ProviderDiscord, nil
	case ProviderGoogle:
		return ProviderGoogle, nil
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderTwitch:
		return ProviderTwitch, nil
	default:
		return "", NewValidationError("provider", fmt.Sprintf("unsupported provider %q", raw))
	}
}

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// LinkedAccount is a third-party identity attached to a User.
// The (provider, providerID) pair is globally unique; a user holds at most
// one LinkedAccount per provider.
type LinkedAccount struct {
	Provider    Provider
	ProviderID  string
	DisplayName string
	Email       string
	AvatarURL   string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewLinkedAccount constructs a LinkedAccount from a normalized provider profile.
func NewLinkedAccount(provider Provider, providerID, displayName, email, avatarURL string, metadata map[string]any, now time.Time) (LinkedAccount, error) {
	if _, err := ParseProvider(string(provider)); err != nil {
		return LinkedAccount{}, err
	}
	if strings.TrimSpace(providerID) == "" {
		return LinkedAccount{}, NewValidationError("provider_id", "provider id is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return LinkedAccount{}, NewValidationError("display_name", "display name is required")
	}

	return LinkedAccount{
		Provider:    provider,
		ProviderID:  strings.TrimSpace(providerID),
		DisplayName: strings.TrimSpace(displayName),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		AvatarURL:   strings.TrimSpace(avatarURL),
		Metadata:    copyMetadata(metadata),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

func copyMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
