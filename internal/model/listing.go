package model

import "time"

// Listing types.
const (
	ListingTypeSocial = "social"
	ListingTypeNumber = "number"
)

// Listing statuses. A sold listing is never purchasable; the transition
// available -> sold happens only through the remote purchase function.
const (
	ListingStatusAvailable = "available"
	ListingStatusSold      = "sold"
)

// Listing is a purchasable digital good: a virtual phone number or a
// social-media account.
type Listing struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Platform    string    `json:"platform"`
	Region      string    `json:"region,omitempty"`
	Details     string    `json:"details"`
	Price       float64   `json:"price"`
	Status      string    `json:"status"`
	Credentials string    `json:"credentials,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
