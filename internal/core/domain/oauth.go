package domain

import "time"

// OAuthState is the ephemeral anti-forgery payload bound to a state token.
// It lives only in the state store, is single-use, and expires independently
// of consumption.
type OAuthState struct {
	Provider  Provider  `json:"provider"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
	Redirect  string    `json:"redirect,omitempty"`
}

// ProviderProfile is the normalized view of a provider's user info response.
// One normalization arm per provider produces this shape; Raw keeps the
// original payload for auditing.
type ProviderProfile struct {
	Provider  Provider
	ID        string
	Email     string
	Nickname  string
	AvatarURL string
	Raw       map[string]any
}

// OAuthGrant is the outcome of a completed authorization-code exchange.
type OAuthGrant struct {
	AccessToken  string
	RefreshToken string
	Profile      ProviderProfile
}
