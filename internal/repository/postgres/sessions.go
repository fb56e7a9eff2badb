package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/repository"
)

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
// Sessions are addressed by the SHA-256 hash of the refresh token; the raw
// token never reaches storage.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	repo := &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.insertBuilder(session).ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapPgError("insert session", err)
	}
	return nil
}

// GetByTokenHash fetches the session addressed by the refresh token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"user_id",
			"token_hash",
			"ip",
			"user_agent",
			"created_at",
			"last_seen",
			"expires_at",
		).
		From("auth.sessions").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

// Rotate deletes the session identified by oldTokenHash and inserts next in
// one transaction. The delete is the rotation guard: if the old session was
// already consumed or revoked, zero rows are affected and the whole rotation
// fails with repository.ErrNotFound.
func (r *SessionRepository) Rotate(ctx context.Context, oldTokenHash string, next domain.Session) error {
	beginner, ok := r.exec.(txBeginner)
	if !ok {
		return r.rotateIn(ctx, r.exec, oldTokenHash, next)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.rotateIn(ctx, tx, oldTokenHash, next); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) rotateIn(ctx context.Context, exec pgExecutor, oldTokenHash string, next domain.Session) error {
	tag, err := exec.Exec(ctx, "DELETE FROM auth.sessions WHERE token_hash = $1", oldTokenHash)
	if err != nil {
		return fmt.Errorf("delete rotated session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	stmt, args, err := r.insertBuilder(next).ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}
	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return mapPgError("insert rotated session", err)
	}
	return nil
}

// DeleteByTokenHash removes the session addressed by the refresh token hash.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM auth.sessions WHERE token_hash = $1", tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByUser removes every session owned by the user and reports the count.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.exec.Exec(ctx, "DELETE FROM auth.sessions WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for user: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpired purges sessions past their expiry and reports the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.exec.Exec(ctx, "DELETE FROM auth.sessions WHERE expires_at <= now()")
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SessionRepository) insertBuilder(session domain.Session) squirrel.InsertBuilder {
	return r.builder.Insert("auth.sessions").
		Columns(
			"id",
			"user_id",
			"token_hash",
			"ip",
			"user_agent",
			"created_at",
			"last_seen",
			"expires_at",
		).
		Values(
			session.ID,
			session.UserID,
			session.TokenHash,
			optionalString(session.IP),
			optionalString(session.UserAgent),
			session.CreatedAt,
			session.LastSeen,
			session.ExpiresAt,
		)
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session   domain.Session
		ip        sql.NullString
		userAgent sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&ip,
		&userAgent,
		&session.CreatedAt,
		&session.LastSeen,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	session.IP = nullableStringPtr(ip)
	session.UserAgent = nullableStringPtr(userAgent)
	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
