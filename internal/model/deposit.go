package model

import "time"

// Deposit request statuses. A request transitions pending -> approved or
// pending -> rejected exactly once, and only via the remote
// process-deposit function.
const (
	DepositStatusPending  = "pending"
	DepositStatusApproved = "approved"
	DepositStatusRejected = "rejected"
)

// DepositRequest is a user-submitted claim of an external bank transfer,
// pending admin verification.
type DepositRequest struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Amount       float64   `json:"amount"`
	PaymentProof string    `json:"payment_proof"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	// User carries the embedded join from select=*,users(username).
	User *UserRef `json:"users,omitempty"`

	// Username is the flattened submitter name used by admin views.
	Username string `json:"username,omitempty"`
}

// UserRef is the embedded user fragment returned by joined selects.
type UserRef struct {
	Username string `json:"username"`
}

// Normalize flattens the embedded join into Username.
func (d *DepositRequest) Normalize() {
	if d.User != nil && d.User.Username != "" {
		d.Username = d.User.Username
	} else if d.Username == "" {
		d.Username = "Unknown User"
	}
}
