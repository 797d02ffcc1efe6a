// Package token owns the access/refresh token lifecycle: in-memory caching,
// expiry evaluation, persisted fallback and a deduplicated refresh.
package token

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tablemate/tablemate/pkg/securestore"
)

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"

	// expiryBuffer is the safety margin subtracted from a token's expiry so a
	// request is never raced against imminent expiry.
	expiryBuffer = 30 * time.Second
)

// Credentials is a token pair returned by the refresh call.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// RefreshFunc performs the refresh network call with the persisted refresh
// token ("" when none is stored).
type RefreshFunc func(ctx context.Context, refreshToken string) (Credentials, error)

// Manager owns the in-memory token cache and the single in-flight refresh
// slot. The access token lives in memory for the fast path and is mirrored
// into the secure store; the refresh token is persisted-only and never cached
// beyond the refresh call that consumes it.
type Manager struct {
	store   *securestore.Store
	refresh RefreshFunc
	logger  *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time // zero means no decodable expiry: valid until cleared
	inflight    *refreshCall
}

// refreshCall is the in-flight refresh slot. The first caller that needs a
// refresh creates it and runs the network call; later callers wait on done
// and observe the same token.
type refreshCall struct {
	done  chan struct{}
	token string
}

func NewManager(store *securestore.Store, refresh RefreshFunc, logger *slog.Logger) *Manager {
	return &Manager{store: store, refresh: refresh, logger: logger}
}

// SetTokensFromLogin caches the access token and its decoded expiry in memory
// before persisting both tokens. The refresh token is only written when the
// response actually carried one, so a rotating deployment never wipes a still
// valid refresh token with an empty value.
func (m *Manager) SetTokensFromLogin(ctx context.Context, accessToken, refreshToken string) {
	m.mu.Lock()
	m.accessToken = accessToken
	m.expiresAt = decodeExpiry(accessToken)
	m.mu.Unlock()

	m.store.Set(ctx, accessTokenKey, accessToken)
	if refreshToken != "" {
		m.store.Set(ctx, refreshTokenKey, refreshToken)
	}
}

// AccessToken returns the in-memory access token without any validity check
// or I/O. It is the fast path for attaching an Authorization header.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// ValidAccessToken returns a token guaranteed valid under the expiry buffer:
// the in-memory token when it is still good, the persisted token after
// hydration when that one is, and otherwise the result of the shared refresh.
// "" with a nil error is the uniform no-session signal; the error is reserved
// for context cancellation.
func (m *Manager) ValidAccessToken(ctx context.Context) (string, error) {
	now := time.Now()

	m.mu.Lock()
	if m.validLocked(now) {
		token := m.accessToken
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	// Hydrate from the secure store; a restart loses the in-memory cache but
	// not the persisted token.
	if stored := m.store.Get(ctx, accessTokenKey); stored != "" {
		m.mu.Lock()
		m.accessToken = stored
		m.expiresAt = decodeExpiry(stored)
		valid := m.validLocked(now)
		m.mu.Unlock()
		if valid {
			return stored, nil
		}
	}

	return m.Refresh(ctx)
}

// Refresh performs, or joins, the single in-flight refresh and returns the
// resulting access token. Failure clears all tokens and yields "" with a nil
// error so every concurrent caller sees the same outcome.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	// The network call is shared by every waiter, so it must not die with its
	// initiating caller; it is bounded by the HTTP client timeout instead.
	call.token = m.doRefresh(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(call.done)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return call.token, nil
	}
}

func (m *Manager) doRefresh(ctx context.Context) string {
	refreshToken := m.store.Get(ctx, refreshTokenKey)

	creds, err := m.refresh(ctx, refreshToken)
	if err != nil || creds.AccessToken == "" {
		if err != nil {
			m.logger.Warn("token refresh failed", "error", err)
		}
		if clearErr := m.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to clear tokens after refresh failure", "error", clearErr)
		}
		return ""
	}

	m.SetTokensFromLogin(ctx, creds.AccessToken, creds.RefreshToken)
	return creds.AccessToken
}

// Clear wipes the in-memory state and deletes both persisted tokens. Both
// deletions are attempted; their errors are joined and returned because a
// silent failure to wipe credentials is security-relevant.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.accessToken = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()

	return errors.Join(
		m.store.Delete(ctx, accessTokenKey),
		m.store.Delete(ctx, refreshTokenKey),
	)
}

// validLocked reports whether the cached token is usable at now. A token with
// no decodable expiry reads as perpetually valid until explicitly cleared;
// revocation is handled by response-level 401 handling, not here.
func (m *Manager) validLocked(now time.Time) bool {
	if m.accessToken == "" {
		return false
	}
	if m.expiresAt.IsZero() {
		return true
	}
	return now.Add(expiryBuffer).Before(m.expiresAt)
}

// decodeExpiry extracts the exp claim without verifying the signature; the
// client only needs the timestamp, the server is the one that trusts it.
// Returns the zero time when the token or claim is not decodable.
func decodeExpiry(tokenStr string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
