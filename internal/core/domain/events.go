package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID            string
	UserID             string
	Nickname           string
	Email              *string
	RegistrationMethod string
	RegisteredAt       time.Time
	Metadata           map[string]any
}

// UserLoggedInEvent represents the payload for auth.user.login messages.
type UserLoggedInEvent struct {
	EventID    string
	UserID     string
	Method     string
	LoginCount int64
	IPAddress  *string
	LoggedInAt time.Time
	Metadata   map[string]any
}

// AccountLinkedEvent represents the payload for auth.account.linked messages.
type AccountLinkedEvent struct {
	EventID    string
	UserID     string
	Provider   Provider
	ProviderID string
	LinkedAt   time.Time
	Metadata   map[string]any
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	UserID    string
	Reason    string
	Sessions  int
	RevokedAt time.Time
	Metadata  map[string]any
}
