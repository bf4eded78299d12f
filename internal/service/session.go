package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"victor-smm-api/internal/backend"
	"victor-smm-api/internal/cache"
	"victor-smm-api/internal/config"
	"victor-smm-api/internal/model"
	"victor-smm-api/pkg/uid"

	"go.uber.org/zap"
)

const sessionKeyPrefix = "victor:session:"

var (
	// ErrSessionNotFound means the token resolved to no live session.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrInvalidAdminCredentials means the admin credential pair did not
	// match the configured one.
	ErrInvalidAdminCredentials = errors.New("invalid admin credentials")
)

// AuthProvider is the remote credential authority. No password ever gets
// checked locally.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*backend.AuthSession, error)
	SignUp(ctx context.Context, username, email, password string) error
	SignOut(ctx context.Context, accessToken string) error
}

// Session is a live session: an opaque token plus the data it resolves to.
type Session struct {
	Token string `json:"token"`
	model.SessionData
}

// SessionService owns the session/profile store: it delegates credential
// checks to the remote provider and keeps session tokens in the cache
// backend.
type SessionService struct {
	auth  AuthProvider
	cache cache.Cache
	admin config.AdminConfig
	ttl   time.Duration
	log   *zap.Logger
}

// NewSessionService creates the session store.
func NewSessionService(auth AuthProvider, c cache.Cache, admin config.AdminConfig, ttl time.Duration, log *zap.Logger) *SessionService {
	return &SessionService{
		auth:  auth,
		cache: c,
		admin: admin,
		ttl:   ttl,
		log:   log,
	}
}

// Login delegates the credential check and, on success, mints a session
// token for the remote session.
func (s *SessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	authSession, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	userID := authSession.User.ID
	if userID == "" {
		// fall back to the token subject
		if claims, err := backend.ParseAccessToken(authSession.AccessToken); err == nil {
			userID = claims.UserID
		}
	}

	now := time.Now()
	session := &Session{
		Token: uid.New(),
		SessionData: model.SessionData{
			UserID:      userID,
			Email:       authSession.User.Email,
			AccessToken: authSession.AccessToken,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		},
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", userID))
	return session, nil
}

// SignUp delegates account creation. The profile row is created by a
// remote trigger; inserting it from here would only race that trigger.
func (s *SessionService) SignUp(ctx context.Context, username, email, password string) error {
	return s.auth.SignUp(ctx, username, email, password)
}

// Logout revokes the remote session best-effort and deletes the local
// one. Dropping the session clears the authenticated user and the admin
// flag in one step.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	session, err := s.Get(ctx, token)
	if err != nil {
		return nil
	}

	if session.AccessToken != "" {
		if err := s.auth.SignOut(ctx, session.AccessToken); err != nil {
			s.log.Warn("remote sign-out failed", zap.Error(err))
		}
	}

	return s.cache.Delete(ctx, sessionKeyPrefix+token)
}

// AdminLogin compares against the configured credential pair. On a match
// it marks the existing session as admin, or mints an admin-only session
// when the caller has none (the admin console does not require a user
// profile).
func (s *SessionService) AdminLogin(ctx context.Context, token, email, password string) (*Session, error) {
	if email != s.admin.Email || password != s.admin.Password {
		return nil, ErrInvalidAdminCredentials
	}

	if token != "" {
		if session, err := s.Get(ctx, token); err == nil {
			session.Admin = true
			if err := s.save(ctx, session); err != nil {
				return nil, err
			}
			return session, nil
		}
	}

	now := time.Now()
	session := &Session{
		Token: uid.New(),
		SessionData: model.SessionData{
			Admin:     true,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		},
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("admin logged in")
	return session, nil
}

// AdminLogout clears the admin flag. A session that was admin-only is
// dropped entirely.
func (s *SessionService) AdminLogout(ctx context.Context, token string) error {
	session, err := s.Get(ctx, token)
	if err != nil {
		return nil
	}

	if session.UserID == "" {
		return s.cache.Delete(ctx, sessionKeyPrefix+token)
	}

	session.Admin = false
	return s.save(ctx, session)
}

// Get resolves a session token.
func (s *SessionService) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.cache.Get(ctx, sessionKeyPrefix+token)
	if err == cache.ErrCacheMiss {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	var sessionData model.SessionData
	if err := json.Unmarshal(data, &sessionData); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}

	if time.Now().After(sessionData.ExpiresAt) {
		_ = s.cache.Delete(ctx, sessionKeyPrefix+token)
		return nil, ErrSessionNotFound
	}

	return &Session{Token: token, SessionData: sessionData}, nil
}

func (s *SessionService) save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session.SessionData)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionNotFound
	}

	return s.cache.Set(ctx, sessionKeyPrefix+session.Token, data, ttl)
}
