package model

import "time"

// SessionState is the lifecycle position of a session.
// Created → Active → {Expired, LoggedOut}; terminal states are never left.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionExpired   SessionState = "expired"
	SessionLoggedOut SessionState = "logged_out"
)

// Session binds an opaque token to a user for a bounded lifetime.
//
// Only the SHA-256 of the token is persisted (TokenHash). The raw token
// exists solely in the client's credential cookie.
type Session struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	EndedAt   *time.Time
}

// State reports where the session is in its lifecycle at instant now.
// Expiry is absolute from creation; activity never extends it.
func (s *Session) State(now time.Time) SessionState {
	if s.EndedAt != nil {
		return SessionLoggedOut
	}
	if !now.Before(s.ExpiresAt) {
		return SessionExpired
	}
	return SessionActive
}
