package port

import (
	"context"

	"github.com/tetardtek/superoauth/internal/core/domain"
)

// SessionRepository persists refresh-token sessions keyed by token hash.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Rotate atomically replaces the session identified by oldTokenHash with
	// next. It fails with repository.ErrNotFound when the old session no
	// longer exists, so a replayed refresh token cannot mint a second session.
	Rotate(ctx context.Context, oldTokenHash string, next domain.Session) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context) (int, error)
}
