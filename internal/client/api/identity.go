package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNoToken reports a credential response that carried no access token under
// any of the recognized shapes.
var ErrNoToken = errors.New("api: response contained no access token")

// Login exchanges credentials for a token pair and, when the service includes
// one, the signed-in user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, *User, error) {
	if err := c.tokenLimiter.Wait(ctx); err != nil {
		return Credentials{}, nil, err
	}

	var payload credentialPayload
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "", &payload)
	if err != nil {
		return Credentials{}, nil, err
	}

	creds := payload.credentials()
	if creds.AccessToken == "" {
		return Credentials{}, nil, ErrNoToken
	}

	return creds, payload.user(), nil
}

// Refresh exchanges a refresh token for a new token pair. An empty
// refreshToken is sent as an empty body; some deployments refresh off an
// auth cookie instead.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	if err := c.tokenLimiter.Wait(ctx); err != nil {
		return Credentials{}, err
	}

	body := map[string]string{}
	if refreshToken != "" {
		body["refreshToken"] = refreshToken
	}

	var payload credentialPayload
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", body, "", &payload); err != nil {
		return Credentials{}, err
	}

	creds := payload.credentials()
	if creds.AccessToken == "" {
		return Credentials{}, ErrNoToken
	}

	return creds, nil
}

// Logout tells the service to invalidate the current session. The response
// body is ignored; callers treat the whole call as best effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", map[string]string{}, "", nil)
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/auth/me"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp, bodyBytes)
	}

	user := decodeUser(bodyBytes)
	if user == nil {
		return nil, fmt.Errorf("failed to decode user profile")
	}
	return user, nil
}
