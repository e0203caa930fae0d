package models

import "time"

// Session is the server-held state of the session auth strategy, keyed by an
// opaque identifier handed to the client in a cookie. It is created on login
// and destroyed on logout or on the first access after CreatedAt+MaxAge
// (lazy expiry; there is no background sweep).
type Session struct {
	ID        string
	UserID    int64
	Email     string
	Nickname  string
	Role      string
	CreatedAt time.Time
	MaxAge    time.Duration
}

// ExpiresAt returns the instant after which the session must be rejected.
func (s *Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(s.MaxAge)
}

// Expired reports whether the session has outlived MaxAge at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt())
}
