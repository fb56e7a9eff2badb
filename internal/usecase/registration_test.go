package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/infra/security"
)

func newTestTokens(t *testing.T) *security.TokenService {
	t.Helper()
	svc, err := security.NewTokenService(security.TokenServiceConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "superoauth-test",
		Audience:      "superoauth-test-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	events := &recordingPublisher{}
	tokens := newTestTokens(t)
	svc := NewRegistrationService(users, sessions, tokens, events, zap.NewNop())

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "New.User@Example.com",
		Password: "vX9#Tq2$wL7p",
		Nickname: "newuser",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !result.IsNewUser {
		t.Fatal("expected IsNewUser")
	}
	if result.User.Email != "new.user@example.com" {
		t.Fatalf("expected normalized email, got %q", result.User.Email)
	}
	if result.User.EmailVerified {
		t.Fatal("email must start unverified")
	}
	if !result.User.HasPassword {
		t.Fatal("expected password credential")
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	userID, err := tokens.VerifyAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if userID != result.User.ID {
		t.Fatalf("access token subject mismatch: %s vs %s", userID, result.User.ID)
	}

	if sessions.count() != 1 {
		t.Fatalf("expected one session, got %d", sessions.count())
	}
	if len(events.registered) != 1 {
		t.Fatalf("expected one registered event, got %d", len(events.registered))
	}
	if events.registered[0].RegistrationMethod != "password" {
		t.Fatalf("unexpected registration method %q", events.registered[0].RegistrationMethod)
	}

	stored, err := users.GetByEmail(context.Background(), "new.user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if stored.PasswordHash() == "vX9#Tq2$wL7p" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	svc := NewRegistrationService(users, sessions, newTestTokens(t), &recordingPublisher{}, zap.NewNop())

	input := RegisterInput{Email: "dup@example.com", Password: "vX9#Tq2$wL7p", Nickname: "first"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register: %v", err)
	}

	input.Nickname = "second"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsDuplicateNicknameCaseInsensitive(t *testing.T) {
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	svc := NewRegistrationService(users, sessions, newTestTokens(t), &recordingPublisher{}, zap.NewNop())

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Password: "vX9#Tq2$wL7p", Nickname: "Gamer",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "b@example.com", Password: "vX9#Tq2$wL7p", Nickname: "gamer",
	})
	if !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := NewRegistrationService(newMemoryUserRepo(), newMemorySessionRepo(), newTestTokens(t), &recordingPublisher{}, zap.NewNop())

	for _, password := range []string{"short1!", "alllowercase1!", "NOUPPER...1", "NoDigits!!", "NoSpecial11"} {
		_, err := svc.Register(context.Background(), RegisterInput{
			Email: "weak@example.com", Password: password, Nickname: "weakling",
		})
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("password %q: expected ValidationError, got %v", password, err)
		}
	}
}

func TestRegisterRejectsGuessablePassword(t *testing.T) {
	svc := NewRegistrationService(newMemoryUserRepo(), newMemorySessionRepo(), newTestTokens(t), &recordingPublisher{}, zap.NewNop())

	// Meets the character-class rules but is a dictionary word plus a year,
	// so the strength estimate stays below the minimum score.
	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "guess@example.com", Password: "Summer2024!", Nickname: "guesser",
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRegisterDoesNotCountAsLogin(t *testing.T) {
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	tokens := newTestTokens(t)
	registration := NewRegistrationService(users, sessions, tokens, &recordingPublisher{}, zap.NewNop())
	auth := NewAuthService(users, sessions, tokens, &recordingPublisher{}, zap.NewNop())

	registered, err := registration.Register(context.Background(), RegisterInput{
		Email:    "counter@example.com",
		Password: "vX9#Tq2$wL7p",
		Nickname: "counter",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.User.LoginCount != 0 {
		t.Fatalf("registration must not count as a login, got count %d", registered.User.LoginCount)
	}

	login, err := auth.Login(context.Background(), LoginInput{
		Email:    "counter@example.com",
		Password: "vX9#Tq2$wL7p",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LoginCount != 1 {
		t.Fatalf("first login must yield count 1, got %d", login.User.LoginCount)
	}
}

func TestRegisterRejectsInvalidEmail(t *testing.T) {
	svc := NewRegistrationService(newMemoryUserRepo(), newMemorySessionRepo(), newTestTokens(t), &recordingPublisher{}, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "not-an-email", Password: "vX9#Tq2$wL7p", Nickname: "someone",
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
