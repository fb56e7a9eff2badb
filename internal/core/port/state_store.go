package port

import (
	"context"
	"time"

	"github.com/tetardtek/superoauth/internal/core/domain"
)

// StateStore holds short-lived, single-use OAuth anti-forgery state.
type StateStore interface {
	Save(ctx context.Context, state string, payload domain.OAuthState, ttl time.Duration) error
	// Consume atomically reads and deletes the payload. Of two concurrent
	// callers presenting the same state, at most one succeeds; the other
	// receives repository.ErrNotFound.
	Consume(ctx context.Context, state string) (*domain.OAuthState, error)
	CleanupExpired(ctx context.Context) error
}
