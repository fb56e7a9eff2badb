package port

import (
	"context"

	"github.com/tetardtek/superoauth/internal/core/domain"
)

// OAuthGateway drives the authorization-code flow against a provider:
// building authorization URLs (with state creation) and exchanging callback
// codes for a normalized profile.
type OAuthGateway interface {
	GenerateAuthURL(ctx context.Context, provider domain.Provider, redirectHint string) (authorizationURL string, state string, err error)
	HandleCallback(ctx context.Context, provider domain.Provider, code, state string) (*domain.OAuthGrant, error)
}
