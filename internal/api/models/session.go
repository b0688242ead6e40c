package models

import "time"

// CreateSessionRequest starts a session for a user already authenticated
// upstream (SSO handshake happens before this API).
type CreateSessionRequest struct {
	UserID string `json:"userId"`
}

// SessionResponse carries the issued session token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
