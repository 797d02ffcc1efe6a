package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tablemate/tablemate/pkg/idx"
)

// Transport is an http.RoundTripper that stamps each outgoing request with a
// ULID request ID and logs method/path/status/duration. Wrap the API client's
// transport with it so every call to the service is traceable.
type Transport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil) with request logging.
func NewTransport(logger *slog.Logger, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	reqID := req.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = idx.New().String()
		req.Header.Set("X-Request-ID", reqID)
	}

	logger := t.logger.With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
	)

	resp, err := t.base.RoundTrip(req)

	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Debug("http_request", "error", err, "duration_ms", duration)
		return nil, err
	}

	logger.Debug("http_request", "status", resp.StatusCode, "duration_ms", duration)
	return resp, nil
}
