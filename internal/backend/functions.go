package backend

import (
	"context"
	"fmt"
)

// The two settlement functions are opaque remote procedures. Purchase
// settlement and deposit settlement both mutate balances and statuses in a
// single remote transaction; this client only invokes them and reports the
// outcome.

// InvokePurchase runs the purchase settlement function as the buying user.
func (c *Client) InvokePurchase(ctx context.Context, accessToken, listingID string) error {
	resp, err := c.request(accessToken).
		SetContext(ctx).
		SetBody(map[string]string{"listing_id": listingID}).
		Post("/functions/v1/purchase")
	if err != nil {
		return fmt.Errorf("invoke purchase: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}

// InvokeProcessDeposit runs the deposit settlement function. status must be
// approved or rejected; the pending -> final transition happens remotely
// exactly once.
func (c *Client) InvokeProcessDeposit(ctx context.Context, requestID, status string) error {
	resp, err := c.request("").
		SetContext(ctx).
		SetBody(map[string]string{"request_id": requestID, "status": status}).
		Post("/functions/v1/process-deposit")
	if err != nil {
		return fmt.Errorf("invoke process-deposit: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}
