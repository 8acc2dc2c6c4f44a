package models

import "time"

// Session is the server-tracked proof of authentication referenced by a
// caller-held token. Owned by the session store; the pipeline only reads it
// and may delete it when it turns out to be orphaned.
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Identity is the authenticated party a session is bound to.
type Identity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// SessionContext is the explicit verification result passed into the
// orchestrator at call time, never read from ambient state.
type SessionContext struct {
	SessionID string
	Identity  Identity
	Expiry    time.Time
}
