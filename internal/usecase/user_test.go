package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/infra/security"
)

func TestGetProfile(t *testing.T) {
	users := newMemoryUserRepo()
	svc := NewUserService(users, newMemorySessionRepo(), zap.NewNop())

	user := seedPasswordUser(t, users, "profile@example.com", "profiled", "Abcdef1!")

	dto, err := svc.GetProfile(context.Background(), user.ID())
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if dto.Email != "profile@example.com" || dto.Nickname != "profiled" {
		t.Fatalf("unexpected profile %+v", dto)
	}

	if _, err := svc.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	svc := NewUserService(users, sessions, zap.NewNop())

	user := seedPasswordUser(t, users, "change@example.com", "changer", "Abcdef1!")
	auth := NewAuthService(users, sessions, newTestTokens(t), &recordingPublisher{}, zap.NewNop())
	if _, err := auth.Login(context.Background(), LoginInput{Email: "change@example.com", Password: "Abcdef1!"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID(), "Abcdef1!", "Newpass9$"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// All sessions are revoked after a password change.
	if sessions.count() != 0 {
		t.Fatalf("expected sessions revoked, %d left", sessions.count())
	}

	updated, err := users.GetByID(context.Background(), user.ID())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	ok, err := security.VerifyPassword("Newpass9$", updated.PasswordHash())
	if err != nil || !ok {
		t.Fatalf("expected new password to verify, got %v/%v", ok, err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	users := newMemoryUserRepo()
	svc := NewUserService(users, newMemorySessionRepo(), zap.NewNop())

	user := seedPasswordUser(t, users, "wrong@example.com", "wronger", "Abcdef1!")

	err := svc.ChangePassword(context.Background(), user.ID(), "NotCurrent1!", "Newpass9$")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePasswordFirstPasswordForOAuthUser(t *testing.T) {
	users := newMemoryUserRepo()
	svc := NewUserService(users, newMemorySessionRepo(), zap.NewNop())

	user := seedProviderUser(t, users, "oauthpw", domain.ProviderGoogle, "goog-9", "oauthpw@example.com")

	if err := svc.ChangePassword(context.Background(), user.ID(), "", "Newpass9$"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	updated, err := users.GetByID(context.Background(), user.ID())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !updated.HasPassword() {
		t.Fatal("expected password credential set")
	}
}

func TestVerifyEmailAndDeactivate(t *testing.T) {
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	svc := NewUserService(users, sessions, zap.NewNop())

	user := seedPasswordUser(t, users, "lifecycle@example.com", "lifecycler", "Abcdef1!")

	if err := svc.VerifyEmail(context.Background(), user.ID()); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	updated, _ := users.GetByID(context.Background(), user.ID())
	if !updated.EmailVerified() {
		t.Fatal("expected email verified")
	}

	if err := svc.Deactivate(context.Background(), user.ID()); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	updated, _ = users.GetByID(context.Background(), user.ID())
	if updated.IsActive() {
		t.Fatal("expected account deactivated")
	}
}
