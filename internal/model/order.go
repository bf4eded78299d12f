package model

import "time"

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusDisputed  = "disputed"
)

// Order is created by the remote purchase function, never by this service.
// Credentials are populated asynchronously on the remote side.
type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ListingID   string    `json:"listing_id"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Credentials string    `json:"credentials,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Listing carries the embedded join from select=*,listings(name).
	Listing *ListingRef `json:"listings,omitempty"`

	// ProductName is the flattened listing name used by views.
	ProductName string `json:"product_name,omitempty"`
}

// ListingRef is the embedded listing fragment returned by joined selects.
type ListingRef struct {
	Name string `json:"name"`
}

// Normalize flattens the embedded join into ProductName.
func (o *Order) Normalize() {
	if o.Listing != nil && o.Listing.Name != "" {
		o.ProductName = o.Listing.Name
	} else if o.ProductName == "" {
		o.ProductName = "Unknown Listing"
	}
}
