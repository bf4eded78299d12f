package model

import "time"

// User is the profile row backing an authenticated account.
// Balance is authoritative only in the remote store; every copy held here
// is a cache patched from server-confirmed data.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
