package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/infra/config"
	"github.com/tetardtek/superoauth/internal/repository"
)

type memoryStateStore struct {
	mu     sync.Mutex
	states map[string]domain.OAuthState
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{states: make(map[string]domain.OAuthState)}
}

func (s *memoryStateStore) Save(_ context.Context, state string, payload domain.OAuthState, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = payload
	return nil
}

func (s *memoryStateStore) Consume(_ context.Context, state string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.states[state]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.states, state)
	return &payload, nil
}

func (s *memoryStateStore) CleanupExpired(context.Context) error { return nil }

func testOAuthSettings() config.OAuthSettings {
	app := config.OAuthProviderSettings{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/callback",
	}
	return config.OAuthSettings{
		StateTTL: 10 * time.Minute,
		Discord:  app,
		Google:   app,
		GitHub:   app,
		Twitch:   app,
	}
}

func newTestGateway(t *testing.T, tokenURL, userInfoURL string) (*Gateway, *memoryStateStore) {
	t.Helper()

	states := newMemoryStateStore()
	gw := NewGateway(testOAuthSettings(), states, zap.NewNop())
	if tokenURL != "" || userInfoURL != "" {
		for provider, app := range gw.apps {
			if tokenURL != "" {
				app.meta.tokenURL = tokenURL
			}
			if userInfoURL != "" {
				app.meta.userInfoURL = userInfoURL
			}
			gw.apps[provider] = app
		}
	}
	return gw, states
}

func TestGenerateAuthURLCarriesStateAndScopes(t *testing.T) {
	gw, states := newTestGateway(t, "", "")

	authURL, state, err := gw.GenerateAuthURL(context.Background(), domain.ProviderGoogle, "/dashboard")
	if err != nil {
		t.Fatalf("GenerateAuthURL: %v", err)
	}
	if state == "" {
		t.Fatal("expected non-empty state")
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	query := parsed.Query()
	if query.Get("state") != state {
		t.Fatal("state missing from auth url")
	}
	if query.Get("client_id") != "client-id" {
		t.Fatal("client_id missing from auth url")
	}
	if query.Get("access_type") != "offline" || query.Get("prompt") != "consent" {
		t.Fatal("expected google offline consent params")
	}

	stored, err := states.Consume(context.Background(), state)
	if err != nil {
		t.Fatalf("expected state stored: %v", err)
	}
	if stored.Provider != domain.ProviderGoogle {
		t.Fatalf("expected provider google, got %s", stored.Provider)
	}
	if stored.Redirect != "/dashboard" {
		t.Fatalf("expected redirect hint preserved, got %q", stored.Redirect)
	}
}

func TestGenerateAuthURLUnconfiguredProvider(t *testing.T) {
	states := newMemoryStateStore()
	cfg := testOAuthSettings()
	cfg.Twitch = config.OAuthProviderSettings{}
	gw := NewGateway(cfg, states, zap.NewNop())

	_, _, err := gw.GenerateAuthURL(context.Background(), domain.ProviderTwitch, "")
	var oauthErr *Error
	if !errors.As(err, &oauthErr) || oauthErr.Code != CodeInvalidProvider {
		t.Fatalf("expected invalid_provider, got %v", err)
	}
}

func TestHandleCallbackDiscord(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Fatalf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "auth-code" {
			t.Fatalf("unexpected code %q", r.PostForm.Get("code"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "provider-access",
			"refresh_token": "provider-refresh",
		})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-access" {
			t.Fatalf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "42",
			"username": "gamer",
			"email":    "Gamer@Example.com",
			"avatar":   "abc123",
		})
	}))
	defer userSrv.Close()

	gw, states := newTestGateway(t, tokenSrv.URL, userSrv.URL)
	_ = states.Save(context.Background(), "state-1", domain.OAuthState{
		Provider:  domain.ProviderDiscord,
		Nonce:     "n",
		CreatedAt: time.Now().UTC(),
	}, time.Minute)

	grant, err := gw.HandleCallback(context.Background(), domain.ProviderDiscord, "auth-code", "state-1")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if grant.AccessToken != "provider-access" || grant.RefreshToken != "provider-refresh" {
		t.Fatalf("unexpected tokens %+v", grant)
	}
	if grant.Profile.ID != "42" || grant.Profile.Nickname != "gamer" {
		t.Fatalf("unexpected profile %+v", grant.Profile)
	}
	if grant.Profile.Email != "gamer@example.com" {
		t.Fatalf("expected lowercased email, got %q", grant.Profile.Email)
	}
	if grant.Profile.AvatarURL != "https://cdn.discordapp.com/avatars/42/abc123.png" {
		t.Fatalf("expected cdn avatar url, got %q", grant.Profile.AvatarURL)
	}
}

func TestHandleCallbackTwitchHeaders(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-access"})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Id") != "client-id" {
			t.Fatalf("expected Client-Id header, got %q", r.Header.Get("Client-Id"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"id":                "77",
				"login":             "streamer",
				"display_name":      "Streamer",
				"email":             "streamer@example.com",
				"profile_image_url": "https://static.twitch.tv/streamer.png",
			}},
		})
	}))
	defer userSrv.Close()

	gw, states := newTestGateway(t, tokenSrv.URL, userSrv.URL)
	_ = states.Save(context.Background(), "state-2", domain.OAuthState{
		Provider:  domain.ProviderTwitch,
		CreatedAt: time.Now().UTC(),
	}, time.Minute)

	grant, err := gw.HandleCallback(context.Background(), domain.ProviderTwitch, "auth-code", "state-2")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if grant.Profile.ID != "77" || grant.Profile.Nickname != "Streamer" {
		t.Fatalf("unexpected profile %+v", grant.Profile)
	}
}

func TestHandleCallbackUnknownState(t *testing.T) {
	gw, _ := newTestGateway(t, "", "")

	_, err := gw.HandleCallback(context.Background(), domain.ProviderDiscord, "auth-code", "never-issued")
	var oauthErr *Error
	if !errors.As(err, &oauthErr) || oauthErr.Code != CodeInvalidState {
		t.Fatalf("expected invalid_state, got %v", err)
	}
}

func TestHandleCallbackStateSingleUse(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-access"})
	}))
	defer tokenSrv.Close()

	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "username": "gamer"})
	}))
	defer userSrv.Close()

	gw, states := newTestGateway(t, tokenSrv.URL, userSrv.URL)
	_ = states.Save(context.Background(), "state-3", domain.OAuthState{
		Provider:  domain.ProviderDiscord,
		CreatedAt: time.Now().UTC(),
	}, time.Minute)

	if _, err := gw.HandleCallback(context.Background(), domain.ProviderDiscord, "auth-code", "state-3"); err != nil {
		t.Fatalf("first callback: %v", err)
	}

	_, err := gw.HandleCallback(context.Background(), domain.ProviderDiscord, "auth-code", "state-3")
	var oauthErr *Error
	if !errors.As(err, &oauthErr) || oauthErr.Code != CodeInvalidState {
		t.Fatalf("expected invalid_state on replay, got %v", err)
	}
}

func TestHandleCallbackProviderMismatch(t *testing.T) {
	gw, states := newTestGateway(t, "", "")
	_ = states.Save(context.Background(), "state-4", domain.OAuthState{
		Provider:  domain.ProviderGoogle,
		CreatedAt: time.Now().UTC(),
	}, time.Minute)

	_, err := gw.HandleCallback(context.Background(), domain.ProviderDiscord, "auth-code", "state-4")
	var oauthErr *Error
	if !errors.As(err, &oauthErr) || oauthErr.Code != CodeInvalidState {
		t.Fatalf("expected invalid_state on provider mismatch, got %v", err)
	}
}

func TestHandleCallbackTokenExchangeRejected(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer tokenSrv.Close()

	gw, states := newTestGateway(t, tokenSrv.URL, "")
	_ = states.Save(context.Background(), "state-5", domain.OAuthState{
		Provider:  domain.ProviderGitHub,
		CreatedAt: time.Now().UTC(),
	}, time.Minute)

	_, err := gw.HandleCallback(context.Background(), domain.ProviderGitHub, "bad-code", "state-5")
	var oauthErr *Error
	if !errors.As(err, &oauthErr) || oauthErr.Code != CodeTokenExchangeFailed {
		t.Fatalf("expected token_exchange_failed, got %v", err)
	}
}

func TestNormalizeGitHubNumericID(t *testing.T) {
	profile, err := normalizeProfile(domain.ProviderGitHub, map[string]any{
		"id":         float64(583231),
		"login":      "octocat",
		"email":      nil,
		"avatar_url": "https://avatars.githubusercontent.com/u/583231",
	})
	if err != nil {
		t.Fatalf("normalizeProfile: %v", err)
	}
	if profile.ID != "583231" {
		t.Fatalf("expected numeric id coerced to string, got %q", profile.ID)
	}
	if profile.Email != "" {
		t.Fatalf("expected empty email for null payload, got %q", profile.Email)
	}
}
