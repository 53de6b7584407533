package models

import (
	"time"
)

// Session pairs the opaque token with the serialized principal. The same
// record exists in durable storage (redis, two keys) and in the in-process
// identity store; the two copies must stay field-for-field identical.
type Session struct {
	Token     string     `json:"token"`
	Principal *Principal `json:"principal"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the session is past its lifetime at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// LoginResponse is returned by the auth endpoints.
type LoginResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresIn int        `json:"expires_in"`
	Principal *Principal `json:"principal"`
	IssuedAt  time.Time  `json:"issued_at"`
}
