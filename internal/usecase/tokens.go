package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/infra/security"
)

// issueSession mints a token pair for the user and persists the session
// keyed by the refresh token hash. The refresh token jti doubles as the
// session identifier.
func issueSession(ctx context.Context, tokens *security.TokenService, sessions port.SessionRepository, user *domain.User, ip, userAgent *string) (string, string, error) {
	accessToken, err := tokens.GenerateAccessToken(user.ID())
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, jti, expiresAt, err := tokens.GenerateRefreshToken(user.ID())
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        jti,
		UserID:    user.ID(),
		TokenHash: security.HashToken(refreshToken),
		IP:        normalizeOptional(ip),
		UserAgent: normalizeOptional(userAgent),
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: expiresAt,
	}
	if err := sessions.Create(ctx, session); err != nil {
		return "", "", fmt.Errorf("store session: %w", err)
	}

	return accessToken, refreshToken, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
