// Package api is the HTTP client for the TableMate service: the identity
// endpoints consumed by the auth core plus the dinner/attendance endpoints
// the feature layer reads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tablemate/tablemate/pkg/slogx"
	"golang.org/x/time/rate"
)

// requestTimeout bounds every call to the service. There is no cancellation
// threaded through the auth flows; a timed-out call reads as a failure.
const requestTimeout = 15 * time.Second

// Client is a client for the TableMate service API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// tokenLimiter throttles the credential endpoints (login, refresh) so a
	// misbehaving caller cannot hammer the identity service. 5 per minute,
	// all available as a burst.
	tokenLimiter *rate.Limiter

	deviceID string
	logger   *slog.Logger
}

// NewClient creates a service client with a logging transport, a cookie jar
// (so web-style auth cookies can be expired on sign-out) and the fixed
// request timeout.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Jar:       jar,
			Transport: slogx.NewTransport(logger, nil),
		},
		tokenLimiter: rate.NewLimiter(rate.Every(time.Minute/5), 5),
		logger:       logger,
	}
}

// SetDeviceID attaches a persistent device identifier to every request.
func (c *Client) SetDeviceID(id string) {
	c.deviceID = id
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.baseURL + path
}

// doJSON performs a request with an optional JSON body and optional bearer
// token, decoding a 2xx response body into target (when non-nil).
func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	payload any,
	accessToken string,
	target any,
) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp, bodyBytes)
	}

	if target == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// authCookiePattern matches the cookie names the web deployment has used for
// identity over time.
var authCookiePattern = regexp.MustCompile(`(?i)(auth|token|session)`)

// ExpireAuthCookies overwrites any auth-related cookies held in the client's
// jar with already-expired replacements. Best effort: a client without a jar
// or with an unparseable base URL is left alone.
func (c *Client) ExpireAuthCookies() {
	jar := c.httpClient.Jar
	if jar == nil {
		return
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}

	for _, cookie := range jar.Cookies(u) {
		if !authCookiePattern.MatchString(cookie.Name) {
			continue
		}
		jar.SetCookies(u, []*http.Cookie{{
			Name:    cookie.Name,
			Value:   "",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		}})
	}
}
