package models

import (
	"time"

	id "wanderlog/pkg/domain"
)

// User is a registered account. Username and email are unique across users.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is server-held proof of a successful login. It is the capability
// passed to every gated operation.
type Session struct {
	ID                id.SessionID `json:"id"`
	UserID            id.UserID    `json:"user_id"`
	Username          string       `json:"username"`
	Remember          bool         `json:"remember"`
	DeviceDisplayName string       `json:"device_display_name,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	ExpiresAt         time.Time    `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Owns reports whether the session's user is owner.
func (s *Session) Owns(owner id.UserID) bool {
	return s != nil && s.UserID == owner
}

// RegisterInput is the validated registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is the validated login form plus request metadata.
type LoginInput struct {
	Username  string
	Password  string
	Remember  bool
	UserAgent string
}
