package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/infra/security"
	"github.com/tetardtek/superoauth/internal/repository"
)

// UserService exposes profile and account maintenance operations.
type UserService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	log      *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users port.UserRepository, sessions port.SessionRepository, log *zap.Logger) *UserService {
	return &UserService{users: users, sessions: sessions, log: log}
}

// GetProfile returns the sanitized profile of the user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*UserDTO, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// ChangePassword replaces the password after verifying the current one. An
// account without a password credential (OAuth-only) sets its first password
// with an empty current value.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.HasPassword() {
		ok, err := security.VerifyPassword(current, user.PasswordHash())
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return ErrInvalidCredentials
		}
	}

	password, err := domain.NewPassword(next)
	if err != nil {
		return err
	}

	hash, err := security.HashPassword(password.String())
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	if err := user.ChangePassword(hash, now); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	// Changing the password invalidates every open session except the one
	// the caller will re-establish.
	if _, err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.log.Info("password changed", zap.String("user_id", userID))
	return nil
}

// VerifyEmail marks the user's email as confirmed.
func (s *UserService) VerifyEmail(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.VerifyEmail(time.Now().UTC()); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Deactivate disables the account and revokes all of its sessions.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	user.Deactivate(time.Now().UTC())
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if _, err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.log.Info("account deactivated", zap.String("user_id", userID))
	return nil
}

func (s *UserService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}
