// Package session is the single source of truth for the client's identity
// state. The Coordinator drives sign-in (password and biometric), sign-out
// and the cross-cutting cache invalidation that keeps one user's data out of
// the next user's session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tablemate/tablemate/internal/client/api"
)

// Status is the session lifecycle state. It starts idle, moves through
// loading during any identity operation, and rests at signed-in or
// signed-out; both terminal states are re-entrant.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSignedIn  Status = "signed-in"
	StatusSignedOut Status = "signed-out"
)

// These messages are surfaced verbatim by the UI layer, so they are phrased
// for people, not logs.
var (
	ErrNoSavedCredentials = errors.New("No saved credentials")
	ErrBiometricFailed    = errors.New("Biometric authentication failed")
	ErrSessionExpired     = errors.New("Session expired")
)

// IdentityClient is the slice of the API client the coordinator needs.
type IdentityClient interface {
	Login(ctx context.Context, email, password string) (api.Credentials, *api.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context, accessToken string) (*api.User, error)
	ExpireAuthCookies()
}

// TokenSource is the slice of the token manager the coordinator needs.
type TokenSource interface {
	SetTokensFromLogin(ctx context.Context, accessToken, refreshToken string)
	ValidAccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// BiometricGate is the slice of the biometric service the coordinator needs.
type BiometricGate interface {
	Email(ctx context.Context) string
	Authenticate(ctx context.Context, reason string) bool
	ClearData(ctx context.Context)
}

// EntitlementCache is the process-wide user-scoped cache. The coordinator is
// the only component allowed to clear it.
type EntitlementCache interface {
	Clear()
}

// Navigator returns the UI to the login surface after sign-out. Best effort.
type Navigator interface {
	RedirectToLogin()
}

// Coordinator owns the session's user and status. Its methods are intended
// to be driven one at a time (the UI disables actions while loading); the
// internal transitions are mutex-guarded but the flows themselves are not
// reentrant.
type Coordinator struct {
	identity   IdentityClient
	tokens     TokenSource
	biometrics BiometricGate
	cache      EntitlementCache
	nav        Navigator
	logger     *slog.Logger

	mu     sync.Mutex
	status Status
	user   *api.User
}

func NewCoordinator(
	identity IdentityClient,
	tokens TokenSource,
	biometrics BiometricGate,
	cache EntitlementCache,
	nav Navigator,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		identity:   identity,
		tokens:     tokens,
		biometrics: biometrics,
		cache:      cache,
		nav:        nav,
		logger:     logger,
		status:     StatusIdle,
	}
}

// Status returns the current lifecycle state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// User returns the signed-in user's profile, nil when none is loaded.
func (c *Coordinator) User() *api.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Coordinator) setLoading() {
	c.mu.Lock()
	c.status = StatusLoading
	c.mu.Unlock()
}

func (c *Coordinator) settle(user *api.User, status Status) {
	c.mu.Lock()
	c.user = user
	c.status = status
	c.mu.Unlock()
}

// Initialize resolves the persisted session on startup: a valid (or
// refreshable) token settles signed-in, anything else signed-out. The profile
// fetch is opportunistic; its failure still leaves the session signed-in,
// just without a populated user.
func (c *Coordinator) Initialize(ctx context.Context) {
	c.setLoading()

	accessToken, err := c.tokens.ValidAccessToken(ctx)
	if err != nil || accessToken == "" {
		if err != nil {
			c.logger.Debug("session init: token check failed", "error", err)
		}
		c.settle(nil, StatusSignedOut)
		return
	}

	user, err := c.identity.Me(ctx, accessToken)
	if err != nil {
		c.logger.Debug("session init: profile fetch failed", "error", err)
		user = nil
	}
	c.settle(user, StatusSignedIn)
}

// SignIn exchanges credentials for a session. On failure the session settles
// signed-out and the error is re-raised; the UI layer owns the messaging.
func (c *Coordinator) SignIn(ctx context.Context, email, password string) error {
	c.setLoading()

	creds, user, err := c.identity.Login(ctx, email, password)
	if err != nil {
		c.settle(nil, StatusSignedOut)
		return err
	}

	c.tokens.SetTokensFromLogin(ctx, creds.AccessToken, creds.RefreshToken)
	c.settle(user, StatusSignedIn)
	return nil
}

// SignInWithBiometrics signs in off the stored biometric email: prompt, then
// mint a fresh access token through the token manager's shared refresh path.
// Each failure settles signed-out with its own user-meaningful error, and a
// failed prompt never reaches the refresh call.
func (c *Coordinator) SignInWithBiometrics(ctx context.Context) error {
	c.setLoading()

	email := c.biometrics.Email(ctx)
	if email == "" {
		c.settle(nil, StatusSignedOut)
		return ErrNoSavedCredentials
	}

	if !c.biometrics.Authenticate(ctx, "Sign in to TableMate") {
		c.settle(nil, StatusSignedOut)
		return ErrBiometricFailed
	}

	accessToken, err := c.tokens.Refresh(ctx)
	if err != nil {
		c.settle(nil, StatusSignedOut)
		return err
	}
	if accessToken == "" {
		c.settle(nil, StatusSignedOut)
		return ErrSessionExpired
	}

	user, err := c.identity.Me(ctx, accessToken)
	if err != nil {
		c.logger.Debug("biometric sign-in: profile fetch failed", "error", err)
		user = nil
	}
	c.settle(user, StatusSignedIn)
	return nil
}

// SignOut tears the session down. Every step is attempted regardless of the
// ones before it: the logout endpoint and cookie expiry are best effort, but
// biometric data, tokens and the entitlement cache are always cleared, and
// the session always settles signed-out.
func (c *Coordinator) SignOut(ctx context.Context) {
	c.setLoading()

	if err := c.identity.Logout(ctx); err != nil {
		c.logger.Debug("logout request failed", "error", err)
	}
	c.identity.ExpireAuthCookies()

	c.biometrics.ClearData(ctx)
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear persisted tokens on sign-out", "error", err)
	}

	c.cache.Clear()

	c.settle(nil, StatusSignedOut)
	c.nav.RedirectToLogin()
}
