package oauth

import (
	"fmt"
	"strings"

	"github.com/tetardtek/superoauth/internal/core/domain"
)

// normalizeProfile maps one provider's user info payload onto the shared
// profile shape. Each provider names its fields differently, so there is one
// arm per provider and no generic fallback.
func normalizeProfile(provider domain.Provider, payload map[string]any) (domain.ProviderProfile, error) {
	switch provider {
	case domain.ProviderDiscord:
		return normalizeDiscord(payload)
	case domain.ProviderGoogle:
		return normalizeGoogle(payload)
	case domain.ProviderGitHub:
		return normalizeGitHub(payload)
	case domain.ProviderTwitch:
		return normalizeTwitch(payload)
	default:
		return domain.ProviderProfile{}, fmt.Errorf("no normalization for provider %q", provider)
	}
}

func normalizeDiscord(payload map[string]any) (domain.ProviderProfile, error) {
	id := stringField(payload, "id")
	if id == "" {
		return domain.ProviderProfile{}, fmt.Errorf("discord profile missing id")
	}

	// Discord returns an avatar hash, not a URL.
	avatarURL := ""
	if hash := stringField(payload, "avatar"); hash != "" {
		avatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", id, hash)
	}

	return domain.ProviderProfile{
		Provider:  domain.ProviderDiscord,
		ID:        id,
		Email:     strings.ToLower(stringField(payload, "email")),
		Nickname:  stringField(payload, "username"),
		AvatarURL: avatarURL,
		Raw:       payload,
	}, nil
}

func normalizeGoogle(payload map[string]any) (domain.ProviderProfile, error) {
	id := stringField(payload, "id")
	if id == "" {
		id = stringField(payload, "sub")
	}
	if id == "" {
		return domain.ProviderProfile{}, fmt.Errorf("google profile missing id")
	}

	return domain.ProviderProfile{
		Provider:  domain.ProviderGoogle,
		ID:        id,
		Email:     strings.ToLower(stringField(payload, "email")),
		Nickname:  stringField(payload, "name"),
		AvatarURL: stringField(payload, "picture"),
		Raw:       payload,
	}, nil
}

func normalizeGitHub(payload map[string]any) (domain.ProviderProfile, error) {
	// GitHub ids are numeric in JSON.
	id := stringField(payload, "id")
	if id == "" {
		if v, ok := payload["id"].(float64); ok {
			id = fmt.Sprintf("%.0f", v)
		}
	}
	if id == "" {
		return domain.ProviderProfile{}, fmt.Errorf("github profile missing id")
	}

	nickname := stringField(payload, "login")
	if nickname == "" {
		nickname = stringField(payload, "name")
	}

	return domain.ProviderProfile{
		Provider:  domain.ProviderGitHub,
		ID:        id,
		Email:     strings.ToLower(stringField(payload, "email")),
		Nickname:  nickname,
		AvatarURL: stringField(payload, "avatar_url"),
		Raw:       payload,
	}, nil
}

func normalizeTwitch(payload map[string]any) (domain.ProviderProfile, error) {
	// Twitch wraps the profile in a data array.
	entries, ok := payload["data"].([]any)
	if !ok || len(entries) == 0 {
		return domain.ProviderProfile{}, fmt.Errorf("twitch profile missing data")
	}
	entry, ok := entries[0].(map[string]any)
	if !ok {
		return domain.ProviderProfile{}, fmt.Errorf("twitch profile malformed data entry")
	}

	id := stringField(entry, "id")
	if id == "" {
		return domain.ProviderProfile{}, fmt.Errorf("twitch profile missing id")
	}

	nickname := stringField(entry, "display_name")
	if nickname == "" {
		nickname = stringField(entry, "login")
	}

	return domain.ProviderProfile{
		Provider:  domain.ProviderTwitch,
		ID:        id,
		Email:     strings.ToLower(stringField(entry, "email")),
		Nickname:  nickname,
		AvatarURL: stringField(entry, "profile_image_url"),
		Raw:       payload,
	}, nil
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
