package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// AuthSession is the result of a successful remote sign-in.
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn performs a password grant against the remote auth provider. No
// credential checking happens locally.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	var session AuthSession

	resp, err := c.request("").
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&session).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp)
	}

	return &session, nil
}

// SignUp creates a remote account. The username travels as signup metadata;
// the profile row itself is created by a remote trigger, never from here.
func (c *Client) SignUp(ctx context.Context, username, email, password string) error {
	resp, err := c.request("").
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"email":    email,
			"password": password,
			"data":     map[string]string{"username": username},
		}).
		Post("/auth/v1/signup")
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}

// SignOut revokes the remote session for the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.request(accessToken).
		SetContext(ctx).
		Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if resp.IsError() {
		return remoteError(resp)
	}
	return nil
}

// TokenClaims are the access-token claims this service cares about.
// Signature verification is the remote provider's job; the token is only
// decoded to recover subject and expiry.
type TokenClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// ParseAccessToken decodes an access token without verifying it.
func ParseAccessToken(token string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	out := &TokenClaims{}
	if sub, ok := claims["sub"].(string); ok {
		out.UserID = sub
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
