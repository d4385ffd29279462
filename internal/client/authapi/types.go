// Package authapi defines the boundary to the remote identity backend: the
// Service interface the auth state machine consumes, the session/user/consent
// types crossing it, and an HTTP implementation. Token verification and
// password hashing live on the backend; this layer only transports.
package authapi

import "time"

// User identifies the signed-in principal.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Session holds the current user plus token material. Token fields are
// opaque to callers outside this package; nothing above this layer persists
// them.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past (or within a minute of)
// its expiry.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(time.Minute).Before(s.ExpiresAt)
}

// SignUpResult describes the outcome of a sign-up attempt. When the backend
// requires email confirmation no session is established yet.
type SignUpResult struct {
	ConfirmationRequired bool
	Session              *Session
}

// ConsentRecord is the latest recorded policy consent for a user.
type ConsentRecord struct {
	PolicyVersion string    `json:"policy_version"`
	RecordedAt    time.Time `json:"recorded_at"`
	UserAgent     string    `json:"user_agent,omitempty"`
}
