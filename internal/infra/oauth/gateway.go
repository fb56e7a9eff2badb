package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/infra/config"
	"github.com/tetardtek/superoauth/internal/infra/logger"
	"github.com/tetardtek/superoauth/internal/infra/security"
	"github.com/tetardtek/superoauth/internal/repository"
)

const (
	stateByteLength = 32
	userAgent       = "superoauth"
	maxBodyBytes    = 1 << 20
)

// Gateway implements port.OAuthGateway over plain HTTP against the four
// supported providers. State handling is fail-closed: any problem with the
// state parameter surfaces as the same invalid_state error.
type Gateway struct {
	apps     map[domain.Provider]providerApp
	states   port.StateStore
	stateTTL time.Duration
	client   *http.Client
	log      *zap.Logger
}

// NewGateway wires provider applications from configuration. Providers with
// incomplete credentials stay unregistered and report invalid_provider.
func NewGateway(cfg config.OAuthSettings, states port.StateStore, log *zap.Logger) *Gateway {
	apps := make(map[domain.Provider]providerApp, len(providerEndpoints))
	for provider, settings := range map[domain.Provider]config.OAuthProviderSettings{
		domain.ProviderDiscord: cfg.Discord,
		domain.ProviderGoogle:  cfg.Google,
		domain.ProviderGitHub:  cfg.GitHub,
		domain.ProviderTwitch:  cfg.Twitch,
	} {
		app := providerApp{provider: provider, settings: settings, meta: providerEndpoints[provider]}
		if app.configured() {
			apps[provider] = app
		} else {
			log.Warn("oauth provider not configured", zap.String("provider", provider.String()))
		}
	}

	return &Gateway{
		apps:     apps,
		states:   states,
		stateTTL: cfg.StateTTL,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// WithHTTPClient overrides the HTTP client, used in tests.
func (g *Gateway) WithHTTPClient(client *http.Client) {
	if client != nil {
		g.client = client
	}
}

// GenerateAuthURL creates single-use state, stores it, and returns the
// provider authorization URL carrying it.
func (g *Gateway) GenerateAuthURL(ctx context.Context, provider domain.Provider, redirectHint string) (string, string, error) {
	app, ok := g.apps[provider]
	if !ok {
		return "", "", newError(CodeInvalidProvider, fmt.Sprintf("provider %q is not available", provider), nil)
	}

	state, err := security.GenerateSecureToken(stateByteLength)
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := security.GenerateSecureToken(stateByteLength)
	if err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	payload := domain.OAuthState{
		Provider:  provider,
		Nonce:     nonce,
		CreatedAt: time.Now().UTC(),
		Redirect:  strings.TrimSpace(redirectHint),
	}
	if err := g.states.Save(ctx, state, payload, g.stateTTL); err != nil {
		return "", "", fmt.Errorf("save oauth state: %w", err)
	}

	query := url.Values{}
	query.Set("client_id", app.settings.ClientID)
	query.Set("redirect_uri", app.settings.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", app.meta.scopes)
	query.Set("state", state)
	for key, values := range app.meta.extraAuthParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	return app.meta.authorizeURL + "?" + query.Encode(), state, nil
}

// HandleCallback redeems the state, exchanges the code, and fetches the
// normalized profile.
func (g *Gateway) HandleCallback(ctx context.Context, provider domain.Provider, code, state string) (*domain.OAuthGrant, error) {
	app, ok := g.apps[provider]
	if !ok {
		return nil, newError(CodeInvalidProvider, fmt.Sprintf("provider %q is not available", provider), nil)
	}

	payload, err := g.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(CodeInvalidState, "state is missing, expired, or already used", nil)
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if payload.Provider != provider {
		return nil, newError(CodeInvalidState, "state is missing, expired, or already used", nil)
	}

	if strings.TrimSpace(code) == "" {
		return nil, newError(CodeTokenExchangeFailed, "authorization code is required", nil)
	}

	accessToken, refreshToken, err := g.exchangeCode(ctx, app, code)
	if err != nil {
		return nil, err
	}

	profile, err := g.fetchProfile(ctx, app, accessToken)
	if err != nil {
		return nil, err
	}

	return &domain.OAuthGrant{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Profile:      profile,
	}, nil
}

func (g *Gateway) exchangeCode(ctx context.Context, app providerApp, code string) (string, string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", app.settings.RedirectURI)
	form.Set("client_id", app.settings.ClientID)
	form.Set("client_secret", app.settings.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, app.meta.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	if app.meta.jsonAccept {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", newError(CodeTokenExchangeFailed, "token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", newError(CodeTokenExchangeFailed, "read token response", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.log.Warn("token exchange failed",
			zap.String("provider", app.provider.String()),
			zap.Int("status", resp.StatusCode),
		)
		return "", "", newError(CodeTokenExchangeFailed, "provider rejected the authorization code", nil)
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return "", "", newError(CodeTokenExchangeFailed, "malformed token response", err)
	}
	if tokens.Error != "" || tokens.AccessToken == "" {
		return "", "", newError(CodeTokenExchangeFailed, "provider rejected the authorization code", nil)
	}

	return tokens.AccessToken, tokens.RefreshToken, nil
}

func (g *Gateway) fetchProfile(ctx context.Context, app providerApp, accessToken string) (domain.ProviderProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, app.meta.userInfoURL, nil)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("build user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if app.meta.sendClientIDHeader {
		req.Header.Set("Client-Id", app.settings.ClientID)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.ProviderProfile{}, newError(CodeUserInfoFailed, "user info endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.ProviderProfile{}, newError(CodeUserInfoFailed, "read user info response", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.log.Warn("user info fetch failed",
			zap.String("provider", app.provider.String()),
			zap.Int("status", resp.StatusCode),
		)
		return domain.ProviderProfile{}, newError(CodeUserInfoFailed, "provider rejected the access token", nil)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.ProviderProfile{}, newError(CodeUserInfoFailed, "malformed user info response", err)
	}

	profile, err := normalizeProfile(app.provider, payload)
	if err != nil {
		return domain.ProviderProfile{}, newError(CodeUserInfoFailed, "unexpected user info shape", err)
	}

	if profile.Email != "" {
		g.log.Debug("fetched provider profile",
			zap.String("provider", app.provider.String()),
			zap.String("email", logger.MaskEmail(profile.Email)),
		)
	}

	return profile, nil
}

var _ port.OAuthGateway = (*Gateway)(nil)
