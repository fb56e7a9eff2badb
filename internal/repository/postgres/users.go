package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/repository"
)

const pgUniqueViolation = "23505"

// UserRepository implements port.UserRepository using PostgreSQL. The user
// row and its linked_accounts rows are written together so the aggregate is
// persisted atomically.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts the user row and its linked accounts in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.inTx(ctx, func(exec pgExecutor) error {
		rec := user.Record()
		if err := insertUserRow(ctx, exec, r.builder, rec); err != nil {
			return err
		}
		return insertLinkedAccounts(ctx, exec, r.builder, rec.ID, rec.Linked)
	})
}

// Update rewrites the user row and replaces its linked accounts.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.inTx(ctx, func(exec pgExecutor) error {
		rec := user.Record()

		var emailValue any
		if rec.Email != "" {
			emailValue = rec.Email
		}

		stmt, args, err := r.builder.Update("auth.users").
			Set("email", emailValue).
			Set("nickname", rec.Nickname).
			Set("password_hash", rec.PasswordHash).
			Set("email_verified", rec.EmailVerified).
			Set("is_active", rec.Active).
			Set("login_count", rec.LoginCount).
			Set("last_login_at", rec.LastLoginAt).
			Set("updated_at", rec.UpdatedAt).
			Where(squirrel.Eq{"id": rec.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update user sql: %w", err)
		}

		tag, err := exec.Exec(ctx, stmt, args...)
		if err != nil {
			return mapPgError("update user", err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}

		if _, err := exec.Exec(ctx, "DELETE FROM auth.linked_accounts WHERE user_id = $1", rec.ID); err != nil {
			return fmt.Errorf("delete linked accounts: %w", err)
		}
		return insertLinkedAccounts(ctx, exec, r.builder, rec.ID, rec.Linked)
	})
}

// GetByID retrieves a user aggregate by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user aggregate by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByProvider retrieves the user owning the given provider identity.
func (r *UserRepository) GetByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error) {
	var userID string
	err := r.exec.QueryRow(ctx,
		"SELECT user_id FROM auth.linked_accounts WHERE provider = $1 AND provider_id = $2",
		provider.String(), providerID,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lookup linked account: %w", err)
	}

	return r.GetByID(ctx, userID)
}

// Delete removes the user row; linked accounts and sessions cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM auth.users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ExistsByEmail reports whether a user already owns the email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.exec.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM auth.users WHERE email = $1)", email,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

// ExistsByNickname reports whether a user already owns the nickname,
// case-insensitively.
func (r *UserRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	if err := r.exec.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM auth.users WHERE lower(nickname) = lower($1))", nickname,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check nickname exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) getBy(ctx context.Context, cond squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"email",
			"nickname",
			"password_hash",
			"email_verified",
			"is_active",
			"login_count",
			"last_login_at",
			"created_at",
			"updated_at",
		).
		From("auth.users").
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		rec       domain.UserRecord
		email     sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&email,
		&rec.Nickname,
		&rec.PasswordHash,
		&rec.EmailVerified,
		&rec.Active,
		&rec.LoginCount,
		&lastLogin,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if email.Valid {
		rec.Email = email.String
	}
	rec.LastLoginAt = nullableTimePtr(lastLogin)

	linked, err := r.loadLinkedAccounts(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Linked = linked

	return domain.RestoreUser(rec), nil
}

func (r *UserRepository) loadLinkedAccounts(ctx context.Context, userID string) ([]domain.LinkedAccount, error) {
	stmt, args, err := r.builder.
		Select(
			"provider",
			"provider_id",
			"display_name",
			"email",
			"avatar_url",
			"metadata",
			"created_at",
			"updated_at",
		).
		From("auth.linked_accounts").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select linked accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query linked accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.LinkedAccount, 0)
	for rows.Next() {
		var (
			account   domain.LinkedAccount
			provider  string
			email     sql.NullString
			avatarURL sql.NullString
			metadata  []byte
		)
		if err := rows.Scan(
			&provider,
			&account.ProviderID,
			&account.DisplayName,
			&email,
			&avatarURL,
			&metadata,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}

		parsed, err := domain.ParseProvider(provider)
		if err != nil {
			return nil, fmt.Errorf("parse linked account provider: %w", err)
		}
		account.Provider = parsed

		if email.Valid {
			account.Email = email.String
		}
		if avatarURL.Valid {
			account.AvatarURL = avatarURL.String
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &account.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal linked account metadata: %w", err)
			}
		}

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked accounts: %w", err)
	}

	return accounts, nil
}

// inTx runs fn inside a transaction when the executor can open one. When the
// repository already operates inside a transaction, fn runs directly.
func (r *UserRepository) inTx(ctx context.Context, fn func(exec pgExecutor) error) error {
	beginner, ok := r.exec.(txBeginner)
	if !ok {
		return fn(r.exec)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertUserRow(ctx context.Context, exec pgExecutor, builder squirrel.StatementBuilderType, rec domain.UserRecord) error {
	var emailValue any
	if rec.Email != "" {
		emailValue = rec.Email
	}

	stmt, args, err := builder.Insert("auth.users").
		Columns(
			"id",
			"email",
			"nickname",
			"password_hash",
			"email_verified",
			"is_active",
			"login_count",
			"last_login_at",
			"created_at",
			"updated_at",
		).
		Values(
			rec.ID,
			emailValue,
			rec.Nickname,
			rec.PasswordHash,
			rec.EmailVerified,
			rec.Active,
			rec.LoginCount,
			rec.LastLoginAt,
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return mapPgError("insert user", err)
	}
	return nil
}

func insertLinkedAccounts(ctx context.Context, exec pgExecutor, builder squirrel.StatementBuilderType, userID string, accounts []domain.LinkedAccount) error {
	for _, account := range accounts {
		metadata, err := marshalMetadata(account.Metadata)
		if err != nil {
			return err
		}

		var emailValue any
		if account.Email != "" {
			emailValue = account.Email
		}
		var avatarValue any
		if account.AvatarURL != "" {
			avatarValue = account.AvatarURL
		}

		stmt, args, err := builder.Insert("auth.linked_accounts").
			Columns(
				"user_id",
				"provider",
				"provider_id",
				"display_name",
				"email",
				"avatar_url",
				"metadata",
				"created_at",
				"updated_at",
			).
			Values(
				userID,
				account.Provider.String(),
				account.ProviderID,
				account.DisplayName,
				emailValue,
				avatarValue,
				metadata,
				account.CreatedAt,
				account.UpdatedAt,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert linked account sql: %w", err)
		}

		if _, err := exec.Exec(ctx, stmt, args...); err != nil {
			return mapPgError("insert linked account", err)
		}
	}
	return nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal linked account metadata: %w", err)
	}
	return payload, nil
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ port.UserRepository = (*UserRepository)(nil)
