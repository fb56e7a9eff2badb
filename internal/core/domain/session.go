package domain

import "time"

// Session is a persisted refresh-token record. The refresh token itself is
// stored as a SHA-256 hash; the raw token only ever travels to the client.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session has passed its expiry at the supplied moment.
func (s Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// Touch updates last-seen metadata when the session is used.
func (s *Session) Touch(at time.Time, ip, userAgent *string) {
	s.LastSeen = at.UTC()
	if ip != nil {
		v := *ip
		s.IP = &v
	}
	if userAgent != nil {
		v := *userAgent
		s.UserAgent = &v
	}
}
