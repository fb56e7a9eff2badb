package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/infra/logger"
	"github.com/tetardtek/superoauth/internal/infra/security"
	"github.com/tetardtek/superoauth/internal/repository"
)

// ErrAccountConflict indicates the provider identity is already linked to a
// different user.
var ErrAccountConflict = errors.New("provider identity belongs to another account")

// OAuthService drives social sign-in and account linking.
type OAuthService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	tokens   *security.TokenService
	gateway  port.OAuthGateway
	events   port.EventPublisher
	log      *zap.Logger
}

// NewOAuthService constructs an OAuthService instance.
func NewOAuthService(
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens *security.TokenService,
	gateway port.OAuthGateway,
	events port.EventPublisher,
	log *zap.Logger,
) *OAuthService {
	return &OAuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		gateway:  gateway,
		events:   events,
		log:      log,
	}
}

// Start begins the authorization flow. It returns the provider URL the client
// should be redirected to and the anti-forgery state bound to this attempt.
func (s *OAuthService) Start(ctx context.Context, providerRaw, redirectHint string) (string, string, error) {
	provider, err := domain.ParseProvider(providerRaw)
	if err != nil {
		return "", "", err
	}

	authURL, state, err := s.gateway.GenerateAuthURL(ctx, provider, redirectHint)
	if err != nil {
		return "", "", err
	}
	return authURL, state, nil
}

// CompleteInput carries the callback payload.
type CompleteInput struct {
	Provider  string
	Code      string
	State     string
	IP        *string
	UserAgent *string
}

// Complete finishes the callback. Three outcomes: the provider identity is
// already linked and its owner signs in; the profile email belongs to an
// existing user, who gets the identity linked and signs in; otherwise a new
// user is created from the profile.
func (s *OAuthService) Complete(ctx context.Context, input CompleteInput) (*AuthResult, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, err
	}

	grant, err := s.gateway.HandleCallback(ctx, provider, input.Code, input.State)
	if err != nil {
		return nil, err
	}
	profile := grant.Profile

	user, err := s.users.GetByProvider(ctx, provider, profile.ID)
	switch {
	case err == nil:
		return s.completeExisting(ctx, user, provider, profile, input)
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("lookup linked account: %w", err)
	}

	if profile.Email != "" {
		owner, err := s.users.GetByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			return s.completeAutoLink(ctx, owner, provider, profile, input)
		case errors.Is(err, repository.ErrNotFound):
		default:
			return nil, fmt.Errorf("lookup user by email: %w", err)
		}
	}

	return s.completeSignup(ctx, provider, profile, input)
}

func (s *OAuthService) completeExisting(ctx context.Context, user *domain.User, provider domain.Provider, profile domain.ProviderProfile, input CompleteInput) (*AuthResult, error) {
	if !user.IsActive() {
		return nil, ErrInactiveAccount
	}

	user.RecordLogin(time.Now().UTC())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	result, err := s.finishLogin(ctx, user, input)
	if err != nil {
		return nil, err
	}

	s.log.Info("oauth login",
		zap.String("user_id", user.ID()),
		zap.String("provider", provider.String()),
	)
	return result, nil
}

func (s *OAuthService) completeAutoLink(ctx context.Context, user *domain.User, provider domain.Provider, profile domain.ProviderProfile, input CompleteInput) (*AuthResult, error) {
	if !user.IsActive() {
		return nil, ErrInactiveAccount
	}

	now := time.Now().UTC()
	account, err := domain.NewLinkedAccount(provider, profile.ID, profile.Nickname, profile.Email, profile.AvatarURL, profile.Raw, now)
	if err != nil {
		return nil, err
	}
	if err := user.LinkAccount(account, now); err != nil {
		return nil, err
	}
	user.RecordLogin(now)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("link account: %w", err)
	}

	s.publishAccountLinked(ctx, user.ID(), provider, profile.ID)

	result, err := s.finishLogin(ctx, user, input)
	if err != nil {
		return nil, err
	}

	s.log.Info("oauth login with auto-link",
		zap.String("user_id", user.ID()),
		zap.String("provider", provider.String()),
		zap.String("email", logger.MaskEmail(profile.Email)),
	)
	return result, nil
}

func (s *OAuthService) completeSignup(ctx context.Context, provider domain.Provider, profile domain.ProviderProfile, input CompleteInput) (*AuthResult, error) {
	now := time.Now().UTC()
	account, err := domain.NewLinkedAccount(provider, profile.ID, profile.Nickname, profile.Email, profile.AvatarURL, profile.Raw, now)
	if err != nil {
		return nil, err
	}

	nickname, err := s.pickNickname(ctx, profile.Nickname)
	if err != nil {
		return nil, err
	}

	var email *domain.Email
	if profile.Email != "" {
		parsed, err := domain.NewEmail(profile.Email)
		if err == nil {
			email = &parsed
		}
	}

	user, err := domain.NewUserWithProvider(uuid.NewString(), nickname, account, email, now)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publishRegistered(ctx, user, provider)
	s.publishAccountLinked(ctx, user.ID(), provider, profile.ID)

	result, err := s.finishLogin(ctx, user, input)
	if err != nil {
		return nil, err
	}
	result.IsNewUser = true

	s.log.Info("oauth signup",
		zap.String("user_id", user.ID()),
		zap.String("provider", provider.String()),
	)
	return result, nil
}

// LinkInput carries the payload for linking a provider to an authenticated user.
type LinkInput struct {
	UserID   string
	Provider string
	Code     string
	State    string
}

// Link attaches a provider identity to an already authenticated user after
// completing the callback flow for it.
func (s *OAuthService) Link(ctx context.Context, input LinkInput) (*UserDTO, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	grant, err := s.gateway.HandleCallback(ctx, provider, input.Code, input.State)
	if err != nil {
		return nil, err
	}
	profile := grant.Profile

	if owner, err := s.users.GetByProvider(ctx, provider, profile.ID); err == nil {
		if owner.ID() == user.ID() {
			return nil, domain.ErrProviderAlreadyLinked
		}
		return nil, ErrAccountConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup linked account: %w", err)
	}

	now := time.Now().UTC()
	account, err := domain.NewLinkedAccount(provider, profile.ID, profile.Nickname, profile.Email, profile.AvatarURL, profile.Raw, now)
	if err != nil {
		return nil, err
	}
	if err := user.LinkAccount(account, now); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("link account: %w", err)
	}

	s.publishAccountLinked(ctx, user.ID(), provider, profile.ID)

	s.log.Info("account linked",
		zap.String("user_id", user.ID()),
		zap.String("provider", provider.String()),
	)

	dto := toUserDTO(user)
	return &dto, nil
}

// Unlink removes a provider identity from the user. The aggregate refuses
// when the identity is the last remaining credential.
func (s *OAuthService) Unlink(ctx context.Context, userID, providerRaw string) (*UserDTO, error) {
	provider, err := domain.ParseProvider(providerRaw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := user.UnlinkAccount(provider, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("unlink account: %w", err)
	}

	s.log.Info("account unlinked",
		zap.String("user_id", user.ID()),
		zap.String("provider", provider.String()),
	)

	dto := toUserDTO(user)
	return &dto, nil
}

func (s *OAuthService) finishLogin(ctx context.Context, user *domain.User, input CompleteInput) (*AuthResult, error) {
	accessToken, refreshToken, err := issueSession(ctx, s.tokens, s.sessions, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.publishLoggedIn(ctx, user, input.IP)

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         toUserDTO(user),
	}, nil
}

var nicknameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// pickNickname derives a valid, unused nickname from the provider display
// name, suffixing a short random fragment on collision.
func (s *OAuthService) pickNickname(ctx context.Context, candidate string) (domain.Nickname, error) {
	base := nicknameSanitizer.ReplaceAllString(strings.TrimSpace(candidate), "-")
	base = strings.Trim(base, "_-")
	if len(base) < 2 {
		base = "user"
	}
	if len(base) > 24 {
		base = base[:24]
	}

	attempt := base
	for i := 0; i < 5; i++ {
		nickname, err := domain.NewNickname(attempt)
		if err == nil {
			taken, existsErr := s.users.ExistsByNickname(ctx, nickname.String())
			if existsErr != nil {
				return domain.Nickname{}, fmt.Errorf("check nickname: %w", existsErr)
			}
			if !taken {
				return nickname, nil
			}
		}
		attempt = fmt.Sprintf("%s-%s", base, uuid.NewString()[:6])
	}

	return domain.Nickname{}, fmt.Errorf("could not derive a free nickname from %q", candidate)
}

func (s *OAuthService) publishRegistered(ctx context.Context, user *domain.User, provider domain.Provider) {
	if s.events == nil {
		return
	}

	var email *string
	if user.Email() != "" {
		v := user.Email()
		email = &v
	}

	event := domain.UserRegisteredEvent{
		EventID:            uuid.NewString(),
		UserID:             user.ID(),
		Nickname:           user.Nickname(),
		Email:              email,
		RegistrationMethod: registrationMethodOAuth,
		RegisteredAt:       user.CreatedAt(),
		Metadata:           map[string]any{"provider": provider.String()},
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish user registered event", zap.Error(err))
	}
}

func (s *OAuthService) publishLoggedIn(ctx context.Context, user *domain.User, ip *string) {
	if s.events == nil {
		return
	}

	event := domain.UserLoggedInEvent{
		EventID:    uuid.NewString(),
		UserID:     user.ID(),
		Method:     loginMethodOAuth,
		LoginCount: user.LoginCount(),
		IPAddress:  normalizeOptional(ip),
		LoggedInAt: time.Now().UTC(),
	}
	if err := s.events.PublishUserLoggedIn(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish user login event", zap.Error(err))
	}
}

func (s *OAuthService) publishAccountLinked(ctx context.Context, userID string, provider domain.Provider, providerID string) {
	if s.events == nil {
		return
	}

	event := domain.AccountLinkedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
		LinkedAt:   time.Now().UTC(),
	}
	if err := s.events.PublishAccountLinked(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish account linked event", zap.Error(err))
	}
}
