package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mustEmail(t *testing.T, raw string) Email {
	t.Helper()
	email, err := NewEmail(raw)
	if err != nil {
		t.Fatalf("NewEmail(%q) returned error: %v", raw, err)
	}
	return email
}

func mustNickname(t *testing.T, raw string) Nickname {
	t.Helper()
	nick, err := NewNickname(raw)
	if err != nil {
		t.Fatalf("NewNickname(%q) returned error: %v", raw, err)
	}
	return nick
}

func mustLinkedAccount(t *testing.T, provider Provider, providerID string) LinkedAccount {
	t.Helper()
	account, err := NewLinkedAccount(provider, providerID, "display-"+providerID, "", "", nil, testNow)
	if err != nil {
		t.Fatalf("NewLinkedAccount returned error: %v", err)
	}
	return account
}

func newEmailUser(t *testing.T) *User {
	t.Helper()
	user, err := NewUserWithEmail("user-1", mustEmail(t, "user@example.com"), mustNickname(t, "tester"), "hash", testNow)
	if err != nil {
		t.Fatalf("NewUserWithEmail returned error: %v", err)
	}
	return user
}

func TestNewUserWithEmail(t *testing.T) {
	user := newEmailUser(t)

	if !user.IsActive() {
		t.Fatal("expected new user to be active")
	}
	if user.EmailVerified() {
		t.Fatal("expected email to start unverified")
	}
	if !user.HasPassword() {
		t.Fatal("expected password credential")
	}
	if len(user.LinkedAccounts()) != 0 {
		t.Fatal("expected no linked accounts")
	}
}

func TestNewUserWithProviderTrustsAssertedEmail(t *testing.T) {
	account := mustLinkedAccount(t, ProviderDiscord, "discord-1")
	email := mustEmail(t, "social@example.com")

	user, err := NewUserWithProvider("user-2", mustNickname(t, "social"), account, &email, testNow)
	if err != nil {
		t.Fatalf("NewUserWithProvider returned error: %v", err)
	}

	if !user.EmailVerified() {
		t.Fatal("expected provider-asserted email to be verified")
	}
	if user.HasPassword() {
		t.Fatal("expected no password credential")
	}
	if got := len(user.LinkedAccounts()); got != 1 {
		t.Fatalf("expected 1 linked account, got %d", got)
	}
}

func TestLinkAccountEnforcesOnePerProvider(t *testing.T) {
	user := newEmailUser(t)

	if err := user.LinkAccount(mustLinkedAccount(t, ProviderGoogle, "g-1"), testNow); err != nil {
		t.Fatalf("first link returned error: %v", err)
	}

	err := user.LinkAccount(mustLinkedAccount(t, ProviderGoogle, "g-2"), testNow)
	if !errors.Is(err, ErrProviderAlreadyLinked) {
		t.Fatalf("expected ErrProviderAlreadyLinked, got %v", err)
	}
}

func TestLinkAccountEnforcesMaximum(t *testing.T) {
	rec := newEmailUser(t).Record()
	for i := 0; i < MaxLinkedAccounts; i++ {
		rec.Linked = append(rec.Linked, LinkedAccount{
			Provider:   ProviderGoogle,
			ProviderID: fmt.Sprintf("id-%d", i),
			CreatedAt:  testNow,
			UpdatedAt:  testNow,
		})
	}
	user := RestoreUser(rec)

	err := user.LinkAccount(mustLinkedAccount(t, ProviderDiscord, "extra"), testNow)
	if !errors.Is(err, ErrMaxLinkedAccounts) {
		t.Fatalf("expected ErrMaxLinkedAccounts, got %v", err)
	}
}

func TestLinkAccountRejectedForDeactivatedUser(t *testing.T) {
	user := newEmailUser(t)
	user.Deactivate(testNow)

	err := user.LinkAccount(mustLinkedAccount(t, ProviderTwitch, "t-1"), testNow)
	if !errors.Is(err, ErrUserDeactivated) {
		t.Fatalf("expected ErrUserDeactivated, got %v", err)
	}
}

func TestUnlinkAccountKeepsLastCredential(t *testing.T) {
	account := mustLinkedAccount(t, ProviderGitHub, "gh-1")
	user, err := NewUserWithProvider("user-3", mustNickname(t, "ghost"), account, nil, testNow)
	if err != nil {
		t.Fatalf("NewUserWithProvider returned error: %v", err)
	}

	err = user.UnlinkAccount(ProviderGitHub, testNow)
	if !errors.Is(err, ErrLastCredential) {
		t.Fatalf("expected ErrLastCredential, got %v", err)
	}
}

func TestUnlinkAccountAllowedWithVerifiedEmailAndPassword(t *testing.T) {
	user := newEmailUser(t)
	if err := user.VerifyEmail(testNow); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if err := user.LinkAccount(mustLinkedAccount(t, ProviderGoogle, "g-1"), testNow); err != nil {
		t.Fatalf("LinkAccount returned error: %v", err)
	}

	if err := user.UnlinkAccount(ProviderGoogle, testNow); err != nil {
		t.Fatalf("UnlinkAccount returned error: %v", err)
	}
	if len(user.LinkedAccounts()) != 0 {
		t.Fatal("expected linked account to be removed")
	}
}

func TestUnlinkAccountNotLinked(t *testing.T) {
	user := newEmailUser(t)

	err := user.UnlinkAccount(ProviderTwitch, testNow)
	if !errors.Is(err, ErrProviderNotLinked) {
		t.Fatalf("expected ErrProviderNotLinked, got %v", err)
	}
}

func TestRecordLogin(t *testing.T) {
	user := newEmailUser(t)
	at := testNow.Add(time.Hour)

	user.RecordLogin(at)

	if user.LoginCount() != 1 {
		t.Fatalf("expected login count 1, got %d", user.LoginCount())
	}
	if user.LastLoginAt() == nil || !user.LastLoginAt().Equal(at) {
		t.Fatalf("expected last login at %v, got %v", at, user.LastLoginAt())
	}
}

func TestChangePasswordRejectedForDeactivatedUser(t *testing.T) {
	user := newEmailUser(t)
	user.Deactivate(testNow)

	err := user.ChangePassword("new-hash", testNow)
	if !errors.Is(err, ErrUserDeactivated) {
		t.Fatalf("expected ErrUserDeactivated, got %v", err)
	}
}

func TestVerifyEmailRequiresEmail(t *testing.T) {
	account := mustLinkedAccount(t, ProviderDiscord, "d-1")
	user, err := NewUserWithProvider("user-4", mustNickname(t, "noemail"), account, nil, testNow)
	if err != nil {
		t.Fatalf("NewUserWithProvider returned error: %v", err)
	}

	var ve *ValidationError
	if err := user.VerifyEmail(testNow); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	user := newEmailUser(t)
	if err := user.LinkAccount(mustLinkedAccount(t, ProviderGoogle, "g-1"), testNow); err != nil {
		t.Fatalf("LinkAccount returned error: %v", err)
	}
	user.RecordLogin(testNow.Add(time.Minute))

	restored := RestoreUser(user.Record())

	if restored.ID() != user.ID() {
		t.Fatalf("expected id %q, got %q", user.ID(), restored.ID())
	}
	if restored.Email() != user.Email() {
		t.Fatalf("expected email %q, got %q", user.Email(), restored.Email())
	}
	if restored.LoginCount() != user.LoginCount() {
		t.Fatalf("expected login count %d, got %d", user.LoginCount(), restored.LoginCount())
	}
	if len(restored.LinkedAccounts()) != 1 {
		t.Fatal("expected linked account to survive the round trip")
	}
}
