package usecase

import (
	"context"
	"errors"
	"fmt"
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

const (
	loginMethodPassword = "password"
	loginMethodOAuth    = "oauth"
)

// AuthService coordinates password login, token refresh, and logout.
type AuthService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	tokens   *security.TokenService
	events   port.EventPublisher
	log      *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens *security.TokenService,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		events:   events,
		log:      log,
	}
}

// LoginInput carries the password login payload.
type LoginInput struct {
	Email     string
	Password  string
	IP        *string
	UserAgent *string
}

// Login validates the email/password pair and opens a new session. Lookup
// misses, password mismatches, and OAuth-only accounts all produce the same
// ErrInvalidCredentials so responses cannot be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email, err := domain.NewEmail(input.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email.String())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive() {
		return nil, ErrInactiveAccount
	}

	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash())
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user.RecordLogin(time.Now().UTC())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	accessToken, refreshToken, err := issueSession(ctx, s.tokens, s.sessions, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.publishLoggedIn(ctx, user, loginMethodPassword, input.IP)

	s.log.Info("user logged in",
		zap.String("user_id", user.ID()),
		zap.String("email", logger.MaskEmail(user.Email())),
	)

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         toUserDTO(user),
	}, nil
}

// Refresh rotates a refresh token: the presented token is verified, its
// session consumed, and a fresh pair issued. A token that was already rotated
// away fails with ErrInvalidRefreshToken, which callers should treat as a
// possible replay. Dead state encountered along the way is removed in place:
// an expired token deletes its session row, and a missing or deactivated
// owner drops every session of that user, so no sweeper is required for
// correctness.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip, userAgent *string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	oldHash := security.HashToken(refreshToken)

	userID, _, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			s.dropSession(ctx, oldHash)
			return nil, ErrExpiredRefreshToken
		}
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.sessions.GetByTokenHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrInvalidRefreshToken
	}
	if session.IsExpired(time.Now().UTC()) {
		s.dropSession(ctx, oldHash)
		return nil, ErrExpiredRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.dropUserSessions(ctx, session.UserID)
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive() {
		s.dropUserSessions(ctx, user.ID())
		return nil, ErrInactiveAccount
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	newRefreshToken, jti, expiresAt, err := s.tokens.GenerateRefreshToken(user.ID())
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := time.Now().UTC()
	next := domain.Session{
		ID:        jti,
		UserID:    user.ID(),
		TokenHash: security.HashToken(newRefreshToken),
		IP:        normalizeOptional(ip),
		UserAgent: normalizeOptional(userAgent),
		CreatedAt: session.CreatedAt,
		LastSeen:  now,
		ExpiresAt: expiresAt,
	}

	if err := s.sessions.Rotate(ctx, oldHash, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         toUserDTO(user),
	}, nil
}

// Logout revokes the session holding the presented refresh token. Unknown
// tokens succeed silently so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	hash := security.HashToken(refreshToken)
	session, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if err := s.sessions.DeleteByTokenHash(ctx, hash); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}

	s.publishSessionRevoked(ctx, session.UserID, "logout", 1)
	return nil
}

// LogoutAll revokes every session belonging to the user and reports how many
// were removed.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id is required")
	}

	count, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	if count > 0 {
		s.publishSessionRevoked(ctx, userID, "logout_all", count)
	}
	return count, nil
}

// VerifyAccess validates an access token and returns the subject user id.
func (s *AuthService) VerifyAccess(token string) (string, error) {
	userID, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return "", ErrExpiredAccessToken
		}
		return "", ErrInvalidAccessToken
	}
	return userID, nil
}

func (s *AuthService) dropSession(ctx context.Context, tokenHash string) {
	if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("delete stale session", zap.Error(err))
	}
}

func (s *AuthService) dropUserSessions(ctx context.Context, userID string) {
	if _, err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		s.log.Warn("delete user sessions", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AuthService) publishLoggedIn(ctx context.Context, user *domain.User, method string, ip *string) {
	if s.events == nil {
		return
	}

	event := domain.UserLoggedInEvent{
		EventID:    uuid.NewString(),
		UserID:     user.ID(),
		Method:     method,
		LoginCount: user.LoginCount(),
		IPAddress:  normalizeOptional(ip),
		LoggedInAt: time.Now().UTC(),
	}
	if err := s.events.PublishUserLoggedIn(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish user login event", zap.Error(err))
	}
}

func (s *AuthService) publishSessionRevoked(ctx context.Context, userID, reason string, count int) {
	if s.events == nil {
		return
	}

	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Reason:    reason,
		Sessions:  count,
		RevokedAt: time.Now().UTC(),
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish session revoked event", zap.Error(err))
	}
}
