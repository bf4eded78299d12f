package backend

import (
	"context"
	"fmt"
)

// ProofBucket is the object-storage bucket holding payment-proof uploads.
const ProofBucket = "payment-proofs"

// UploadProof stores a payment-proof object under the given key and
// returns its public URL.
func (c *Client) UploadProof(ctx context.Context, key, contentType string, data []byte) (string, error) {
	resp, err := c.request("").
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Post("/storage/v1/object/" + ProofBucket + "/" + key)
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}
	if resp.IsError() {
		return "", remoteError(resp)
	}

	return c.ProofPublicURL(key), nil
}

// ProofPublicURL returns the public URL for a stored proof object.
func (c *Client) ProofPublicURL(key string) string {
	return c.baseURL + "/storage/v1/object/public/" + ProofBucket + "/" + key
}

// DeleteProof removes a stored proof object. Used by the orphan sweep for
// uploads whose deposit insert never succeeded.
func (c *Client) DeleteProof(ctx context.Context, key string) error {
	resp, err := c.request("").
		SetContext(ctx).
		Delete("/storage/v1/object/" + ProofBucket + "/" + key)
	if err != nil {
		return fmt.Errorf("delete proof: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}
