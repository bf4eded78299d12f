package backend

import (
	"context"
	"fmt"

	"victor-smm-api/internal/model"
)

// Table endpoints live under /rest/v1 and speak PostgREST conventions:
// equality filters as column=eq.value query params, ordering via order=,
// embedded joins via select=, and Prefer: return=representation to get the
// written row back.

// FetchListings returns the full catalog ordered by creation time
// descending. There is no incremental variant; realtime events trigger a
// full refetch.
func (c *Client) FetchListings(ctx context.Context) ([]model.Listing, error) {
	var listings []model.Listing

	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "created_at.desc").
		SetResult(&listings).
		Get("/rest/v1/listings")
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}

	return listings, nil
}

// InsertListing creates a listing and returns the stored row.
func (c *Client) InsertListing(ctx context.Context, listing model.Listing) (model.Listing, error) {
	var rows []model.Listing

	resp, err := c.request("").
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(listing).
		SetResult(&rows).
		Post("/rest/v1/listings")
	if err != nil {
		return model.Listing{}, fmt.Errorf("insert listing: %w", err)
	}
	if resp.IsError() {
		return model.Listing{}, remoteError(resp)
	}
	if len(rows) == 0 {
		return model.Listing{}, fmt.Errorf("insert listing: empty response")
	}

	return rows[0], nil
}

// UpdateListing updates a listing row by id.
func (c *Client) UpdateListing(ctx context.Context, listing model.Listing) error {
	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("id", "eq."+listing.ID).
		SetBody(listing).
		Patch("/rest/v1/listings")
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}

// DeleteListing deletes a listing row by id.
func (c *Client) DeleteListing(ctx context.Context, id string) error {
	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		Delete("/rest/v1/listings")
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}

// FetchUser returns a single profile row, authorized as the user.
func (c *Client) FetchUser(ctx context.Context, accessToken, userID string) (*model.User, error) {
	var users []model.User

	resp, err := c.request(accessToken).
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("id", "eq."+userID).
		SetResult(&users).
		Get("/rest/v1/users")
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("fetch user: not found")
	}

	return &users[0], nil
}

// FetchUsers returns all profile rows (admin view).
func (c *Client) FetchUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User

	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetResult(&users).
		Get("/rest/v1/users")
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}

	return users, nil
}

// UpdateUserBalance writes the balance field of a users row directly.
// Admin-only; every other balance change goes through a remote settlement
// function.
func (c *Client) UpdateUserBalance(ctx context.Context, userID string, balance float64) error {
	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("id", "eq."+userID).
		SetBody(map[string]float64{"balance": balance}).
		Patch("/rest/v1/users")
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}

// FetchOrders returns one user's orders joined with the listing name.
func (c *Client) FetchOrders(ctx context.Context, accessToken, userID string) ([]model.Order, error) {
	return c.fetchOrders(ctx, accessToken, userID)
}

// FetchAllOrders returns every order joined with the listing name (admin
// view).
func (c *Client) FetchAllOrders(ctx context.Context) ([]model.Order, error) {
	return c.fetchOrders(ctx, "", "")
}

func (c *Client) fetchOrders(ctx context.Context, accessToken, userID string) ([]model.Order, error) {
	var orders []model.Order

	req := c.request(accessToken).
		SetContext(ctx).
		SetQueryParam("select", "*,listings(name)").
		SetResult(&orders)
	if userID != "" {
		req.SetQueryParam("user_id", "eq."+userID)
	}

	resp, err := req.Get("/rest/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}

	for i := range orders {
		orders[i].Normalize()
	}
	return orders, nil
}

// FetchDeposits returns one user's deposit requests.
func (c *Client) FetchDeposits(ctx context.Context, accessToken, userID string) ([]model.DepositRequest, error) {
	var deposits []model.DepositRequest

	resp, err := c.request(accessToken).
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("user_id", "eq."+userID).
		SetResult(&deposits).
		Get("/rest/v1/deposits")
	if err != nil {
		return nil, fmt.Errorf("fetch deposits: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}

	return deposits, nil
}

// FetchAllDeposits returns every deposit request joined with the
// submitter's username (admin view).
func (c *Client) FetchAllDeposits(ctx context.Context) ([]model.DepositRequest, error) {
	var deposits []model.DepositRequest

	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("select", "*,users(username)").
		SetResult(&deposits).
		Get("/rest/v1/deposits")
	if err != nil {
		return nil, fmt.Errorf("fetch deposits: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}

	for i := range deposits {
		deposits[i].Normalize()
	}
	return deposits, nil
}

// InsertDeposit creates a pending deposit row for the user.
func (c *Client) InsertDeposit(ctx context.Context, accessToken string, deposit model.DepositRequest) (model.DepositRequest, error) {
	var rows []model.DepositRequest

	resp, err := c.request(accessToken).
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(map[string]interface{}{
			"user_id":       deposit.UserID,
			"amount":        deposit.Amount,
			"payment_proof": deposit.PaymentProof,
			"status":        deposit.Status,
		}).
		SetResult(&rows).
		Post("/rest/v1/deposits")
	if err != nil {
		return model.DepositRequest{}, fmt.Errorf("insert deposit: %w", err)
	}
	if resp.IsError() {
		return model.DepositRequest{}, remoteError(resp)
	}
	if len(rows) == 0 {
		return model.DepositRequest{}, fmt.Errorf("insert deposit: empty response")
	}

	return rows[0], nil
}

// FetchSiteSettings reads the singleton settings row (id=1).
func (c *Client) FetchSiteSettings(ctx context.Context) (*model.SiteSettings, error) {
	var rows []model.SiteSettings

	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("id", "eq.1").
		SetResult(&rows).
		Get("/rest/v1/site_settings")
	if err != nil {
		return nil, fmt.Errorf("fetch site settings: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fetch site settings: not found")
	}

	return &rows[0], nil
}

// UpdateSiteSettings writes the singleton settings row (id=1).
func (c *Client) UpdateSiteSettings(ctx context.Context, settings model.SiteSettings) error {
	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("id", "eq.1").
		SetBody(settings).
		Patch("/rest/v1/site_settings")
	if err != nil {
		return fmt.Errorf("update site settings: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}
