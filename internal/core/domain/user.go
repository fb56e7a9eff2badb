package domain

import (
	"strings"
	"time"
)

// MaxLinkedAccounts bounds the number of third-party identities per user.
const MaxLinkedAccounts = 5

// User is the aggregate root for an account and its linked provider
// identities. All mutation goes through behavior methods so the aggregate
// invariants hold after every operation: at least one usable credential,
// at most MaxLinkedAccounts linked accounts, one per provider.
type User struct {
	id            string
	email         string
	nickname      string
	passwordHash  string
	emailVerified bool
	active        bool
	loginCount    int64
	lastLoginAt   *time.Time
	createdAt     time.Time
	updatedAt     time.Time
	linked        []LinkedAccount
}

// NewUserWithEmail constructs a user registering with email and password.
func NewUserWithEmail(id string, email Email, nickname Nickname, passwordHash string, now time.Time) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("id", "user id is required")
	}
	if email.IsZero() {
		return nil, NewValidationError("email", "email is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, NewValidationError("password", "password hash is required")
	}

	now = now.UTC()
	return &User{
		id:           id,
		email:        email.String(),
		nickname:     nickname.String(),
		passwordHash: passwordHash,
		active:       true,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// NewUserWithProvider constructs a user whose first credential is a linked
// third-party identity. The email is optional and taken as verified when the
// provider asserted it.
func NewUserWithProvider(id string, nickname Nickname, account LinkedAccount, email *Email, now time.Time) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("id", "user id is required")
	}

	now = now.UTC()
	user := &User{
		id:        id,
		nickname:  nickname.String(),
		active:    true,
		createdAt: now,
		updatedAt: now,
		linked:    []LinkedAccount{account},
	}
	if email != nil && !email.IsZero() {
		user.email = email.String()
		user.emailVerified = true
	}
	return user, nil
}

// UserRecord is the persistence snapshot of a User. Repositories rehydrate
// aggregates through RestoreUser and persist them through Record; nothing
// else reads or writes aggregate state directly.
type UserRecord struct {
	ID            string
	Email         string
	Nickname      string
	PasswordHash  string
	EmailVerified bool
	Active        bool
	LoginCount    int64
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Linked        []LinkedAccount
}

// RestoreUser rebuilds an aggregate from its persisted snapshot.
func RestoreUser(rec UserRecord) *User {
	linked := make([]LinkedAccount, len(rec.Linked))
	copy(linked, rec.Linked)

	var lastLogin *time.Time
	if rec.LastLoginAt != nil {
		v := rec.LastLoginAt.UTC()
		lastLogin = &v
	}

	return &User{
		id:            rec.ID,
		email:         strings.ToLower(rec.Email),
		nickname:      rec.Nickname,
		passwordHash:  rec.PasswordHash,
		emailVerified: rec.EmailVerified,
		active:        rec.Active,
		loginCount:    rec.LoginCount,
		lastLoginAt:   lastLogin,
		createdAt:     rec.CreatedAt.UTC(),
		updatedAt:     rec.UpdatedAt.UTC(),
		linked:        linked,
	}
}

// Record returns the persistence snapshot of the aggregate.
func (u *User) Record() UserRecord {
	linked := make([]LinkedAccount, len(u.linked))
	copy(linked, u.linked)

	var lastLogin *time.Time
	if u.lastLoginAt != nil {
		v := *u.lastLoginAt
		lastLogin = &v
	}

	return UserRecord{
		ID:            u.id,
		Email:         u.email,
		Nickname:      u.nickname,
		PasswordHash:  u.passwordHash,
		EmailVerified: u.emailVerified,
		Active:        u.active,
		LoginCount:    u.loginCount,
		LastLoginAt:   lastLogin,
		CreatedAt:     u.createdAt,
		UpdatedAt:     u.updatedAt,
		Linked:        linked,
	}
}

// ID returns the user identifier.
func (u *User) ID() string { return u.id }

// Email returns the normalized email, empty when none is attached.
func (u *User) Email() string { return u.email }

// Nickname returns the user's handle.
func (u *User) Nickname() string { return u.nickname }

// PasswordHash returns the stored hash, empty for provider-only accounts.
func (u *User) PasswordHash() string { return u.passwordHash }

// HasPassword reports whether a password credential is set.
func (u *User) HasPassword() bool { return u.passwordHash != "" }

// EmailVerified reports whether the attached email was confirmed.
func (u *User) EmailVerified() bool { return u.emailVerified }

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool { return u.active }

// LoginCount returns the number of successful logins.
func (u *User) LoginCount() int64 { return u.loginCount }

// LastLoginAt returns the most recent login instant, nil before first login.
func (u *User) LastLoginAt() *time.Time {
	if u.lastLoginAt == nil {
		return nil
	}
	v := *u.lastLoginAt
	return &v
}

// CreatedAt returns the creation instant.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last mutation instant.
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// LinkedAccounts returns the linked identities ordered by creation.
func (u *User) LinkedAccounts() []LinkedAccount {
	out := make([]LinkedAccount, len(u.linked))
	copy(out, u.linked)
	return out
}

// LinkedProviders returns the provider names in link order.
func (u *User) LinkedProviders() []Provider {
	out := make([]Provider, 0, len(u.linked))
	for _, a := range u.linked {
		out = append(out, a.Provider)
	}
	return out
}

// LinkedAccount returns the identity for the provider, if present.
func (u *User) LinkedAccount(provider Provider) (LinkedAccount, bool) {
	for _, a := range u.linked {
		if a.Provider == provider {
			return a, true
		}
	}
	return LinkedAccount{}, false
}

// LinkAccount attaches a provider identity to the user.
func (u *User) LinkAccount(account LinkedAccount, now time.Time) error {
	if !u.active {
		return ErrUserDeactivated
	}
	if len(u.linked) >= MaxLinkedAccounts {
		return ErrMaxLinkedAccounts
	}
	if _, exists := u.LinkedAccount(account.Provider); exists {
		return ErrProviderAlreadyLinked
	}

	u.linked = append(u.linked, account)
	u.touch(now)
	return nil
}

// UnlinkAccount removes the provider identity. It fails when removal would
// strand the account without a verified email, a password, or any remaining
// linked provider.
func (u *User) UnlinkAccount(provider Provider, now time.Time) error {
	idx := -1
	for i, a := range u.linked {
		if a.Provider == provider {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrProviderNotLinked
	}

	remaining := len(u.linked) - 1
	hasVerifiedEmail := u.email != "" && u.emailVerified
	if remaining == 0 && !hasVerifiedEmail && u.passwordHash == "" {
		return ErrLastCredential
	}

	u.linked = append(u.linked[:idx], u.linked[idx+1:]...)
	u.touch(now)
	return nil
}

// RecordLogin bumps the login counter and timestamp.
func (u *User) RecordLogin(now time.Time) {
	now = now.UTC()
	u.loginCount++
	u.lastLoginAt = &now
	u.touch(now)
}

// VerifyEmail marks the attached email as confirmed.
func (u *User) VerifyEmail(now time.Time) error {
	if u.email == "" {
		return NewValidationError("email", "no email attached to account")
	}
	u.emailVerified = true
	u.touch(now)
	return nil
}

// ChangePassword replaces the stored password hash.
func (u *User) ChangePassword(passwordHash string, now time.Time) error {
	if !u.active {
		return ErrUserDeactivated
	}
	if strings.TrimSpace(passwordHash) == "" {
		return NewValidationError("password", "password hash is required")
	}
	u.passwordHash = passwordHash
	u.touch(now)
	return nil
}

// Deactivate disables the account. The flag is not reversible through the
// aggregate; reactivation is an operator concern.
func (u *User) Deactivate(now time.Time) {
	u.active = false
	u.touch(now)
}

func (u *User) touch(now time.Time) {
	u.updatedAt = now.UTC()
}
