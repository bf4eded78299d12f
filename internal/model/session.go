package model

import "time"

// SessionData is what a session token resolves to. Admin sessions may
// exist without a user profile (the admin console does not require one).
type SessionData struct {
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	Admin       bool      `json:"admin"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
