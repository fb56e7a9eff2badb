package oauth

import (
	"net/url"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/infra/config"
)

// endpoints describes where a provider implements the authorization-code flow
// and how its requests deviate from the baseline.
type endpoints struct {
	authorizeURL string
	tokenURL     string
	userInfoURL  string
	scopes       string

	// extraAuthParams are appended to every authorization URL for the provider.
	extraAuthParams url.Values
	// sendClientIDHeader adds the Client-Id header on user info requests (Twitch).
	sendClientIDHeader bool
	// jsonAccept forces Accept: application/json on token exchange (GitHub
	// answers with form encoding otherwise).
	jsonAccept bool
}

var providerEndpoints = map[domain.Provider]endpoints{
	domain.ProviderDiscord: {
		authorizeURL: "https://discord.com/api/oauth2/authorize",
		tokenURL:     "https://discord.com/api/oauth2/token",
		userInfoURL:  "https://discord.com/api/users/@me",
		scopes:       "identify email",
		extraAuthParams: url.Values{
			"prompt": []string{"none"},
		},
	},
	domain.ProviderGoogle: {
		authorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:     "https://oauth2.googleapis.com/token",
		userInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		scopes:       "openid email profile",
		extraAuthParams: url.Values{
			"access_type": []string{"offline"},
			"prompt":      []string{"consent"},
		},
	},
	domain.ProviderGitHub: {
		authorizeURL: "https://github.com/login/oauth/authorize",
		tokenURL:     "https://github.com/login/oauth/access_token",
		userInfoURL:  "https://api.github.com/user",
		scopes:       "read:user user:email",
		jsonAccept:   true,
	},
	domain.ProviderTwitch: {
		authorizeURL:       "https://id.twitch.tv/oauth2/authorize",
		tokenURL:           "https://id.twitch.tv/oauth2/token",
		userInfoURL:        "https://api.twitch.tv/helix/users",
		scopes:             "user:read:email",
		sendClientIDHeader: true,
	},
}

// providerApp pairs endpoint metadata with the configured application
// credentials for one provider.
type providerApp struct {
	provider domain.Provider
	settings config.OAuthProviderSettings
	meta     endpoints
}

func (p providerApp) configured() bool {
	return p.settings.ClientID != "" && p.settings.ClientSecret != "" && p.settings.RedirectURI != ""
}
