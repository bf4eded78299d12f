// Package backend is the only boundary to the remote backend-as-a-service:
// row CRUD over the REST endpoint, the two settlement functions, object
// storage for payment proofs, auth, and the realtime change feed.
package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"victor-smm-api/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the remote service. All authoritative state lives on the
// other side of it.
type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
	log     *zap.Logger
}

// NewClient creates a backend client from the required base URL and public
// API key.
func NewClient(cfg config.BackendConfig, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		log:     log,
	}
}

// request prepares a request authorized either with the caller's access
// token (row-level security applies remotely) or, when none is given, the
// public API key.
func (c *Client) request(accessToken string) *resty.Request {
	req := c.http.R()
	if accessToken != "" {
		req.SetHeader("Authorization", "Bearer "+accessToken)
	} else {
		req.SetHeader("Authorization", "Bearer "+c.apiKey)
	}
	return req
}

// remoteError extracts the error message the remote service returned.
func remoteError(resp *resty.Response) error {
	var body struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	msg := ""
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Msg != "":
			msg = body.Msg
		case body.ErrorDescription != "":
			msg = body.ErrorDescription
		}
	}
	if msg == "" {
		msg = resp.Status()
	}
	return fmt.Errorf("backend: %s", msg)
}
