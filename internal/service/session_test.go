package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"victor-smm-api/internal/backend"
	"victor-smm-api/internal/cache"
	"victor-smm-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	email      string
	password   string
	userID     string
	signedOut  []string
	signedUp   []string
	signInErr  error
	signUpErr  error
	signOutErr error
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*backend.AuthSession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if email != f.email || password != f.password {
		return nil, fmt.Errorf("backend: Invalid login credentials")
	}
	session := &backend.AuthSession{AccessToken: "jwt-" + f.userID}
	session.User.ID = f.userID
	session.User.Email = email
	return session, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, username, email, password string) error {
	if f.signUpErr != nil {
		return f.signUpErr
	}
	f.signedUp = append(f.signedUp, email)
	return nil
}

func (f *fakeAuth) SignOut(ctx context.Context, accessToken string) error {
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

func testSessionService(auth *fakeAuth) *SessionService {
	admin := config.AdminConfig{Email: "123@gmail.com", Password: "Ratking345"}
	return NewSessionService(auth, cache.NewMemoryCache(), admin, time.Hour, zap.NewNop())
}

func TestSessionLoginAndGet(t *testing.T) {
	auth := &fakeAuth{email: "alice@example.com", password: "secret", userID: "u1"}
	svc := testSessionService(auth)

	session, err := svc.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "u1", session.UserID)
	assert.False(t, session.Admin)

	got, err := svc.Get(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "jwt-u1", got.AccessToken)
}

func TestSessionLoginBadCredentials(t *testing.T) {
	auth := &fakeAuth{email: "alice@example.com", password: "secret", userID: "u1"}
	svc := testSessionService(auth)

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
}

func TestSessionLogoutRevokesEverything(t *testing.T) {
	auth := &fakeAuth{email: "alice@example.com", password: "secret", userID: "u1"}
	svc := testSessionService(auth)

	session, err := svc.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)

	// make the session admin too; logout must clear both roles at once
	_, err = svc.AdminLogin(context.Background(), session.Token, "123@gmail.com", "Ratking345")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), session.Token))

	_, err = svc.Get(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []string{"jwt-u1"}, auth.signedOut)

	// logging out an unknown token is a no-op
	assert.NoError(t, svc.Logout(context.Background(), "no-such-token"))
}

func TestAdminLoginCredentialPair(t *testing.T) {
	auth := &fakeAuth{}
	svc := testSessionService(auth)

	// only the configured pair works
	_, err := svc.AdminLogin(context.Background(), "", "123@gmail.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidAdminCredentials)
	_, err = svc.AdminLogin(context.Background(), "", "admin@example.com", "Ratking345")
	assert.ErrorIs(t, err, ErrInvalidAdminCredentials)

	session, err := svc.AdminLogin(context.Background(), "", "123@gmail.com", "Ratking345")
	require.NoError(t, err)
	assert.True(t, session.Admin)
	assert.Empty(t, session.UserID, "admin console needs no user profile")

	got, err := svc.Get(context.Background(), session.Token)
	require.NoError(t, err)
	assert.True(t, got.Admin)
}

func TestAdminLoginUpgradesExistingSession(t *testing.T) {
	auth := &fakeAuth{email: "alice@example.com", password: "secret", userID: "u1"}
	svc := testSessionService(auth)

	userSession, err := svc.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)

	adminSession, err := svc.AdminLogin(context.Background(), userSession.Token, "123@gmail.com", "Ratking345")
	require.NoError(t, err)
	assert.Equal(t, userSession.Token, adminSession.Token, "same session, upgraded in place")
	assert.Equal(t, "u1", adminSession.UserID)
	assert.True(t, adminSession.Admin)
}

func TestAdminLogoutKeepsUserSession(t *testing.T) {
	auth := &fakeAuth{email: "alice@example.com", password: "secret", userID: "u1"}
	svc := testSessionService(auth)

	session, err := svc.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	_, err = svc.AdminLogin(context.Background(), session.Token, "123@gmail.com", "Ratking345")
	require.NoError(t, err)

	require.NoError(t, svc.AdminLogout(context.Background(), session.Token))

	got, err := svc.Get(context.Background(), session.Token)
	require.NoError(t, err)
	assert.False(t, got.Admin)
	assert.Equal(t, "u1", got.UserID, "the user session stays live")
}

func TestAdminLogoutDropsAdminOnlySession(t *testing.T) {
	svc := testSessionService(&fakeAuth{})

	session, err := svc.AdminLogin(context.Background(), "", "123@gmail.com", "Ratking345")
	require.NoError(t, err)

	require.NoError(t, svc.AdminLogout(context.Background(), session.Token))

	_, err = svc.Get(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpiry(t *testing.T) {
	auth := &fakeAuth{email: "alice@example.com", password: "secret", userID: "u1"}
	admin := config.AdminConfig{Email: "123@gmail.com", Password: "Ratking345"}
	svc := NewSessionService(auth, cache.NewMemoryCache(), admin, 10*time.Millisecond, zap.NewNop())

	session, err := svc.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = svc.Get(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
