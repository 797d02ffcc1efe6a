// Package securestore persists small secrets (tokens, biometric preferences)
// behind a narrow key/value contract with a capability-gated backend: the OS
// keyring where one is usable, an encrypted SQLite file otherwise, and a
// null backend as the last resort.
package securestore

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotFound reports an absent key. Backends return it from Get; the Store
// facade translates it into the empty string.
var ErrNotFound = errors.New("securestore: not found")

// Backend is a raw secret backend. Backends report their failures; the Store
// facade decides which of them surface to callers. Deleting an absent key is
// not an error.
type Backend interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store wraps a Backend with the failure boundary the rest of the client
// relies on: reads and writes never fail, they degrade to "absent" / no-op.
// Delete is the one method that reports its error, because a failed
// credential wipe must be visible to security-relevant callers (token
// clearing); everyone else discards it.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New wraps an explicit backend. Most callers should use Open instead.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Config selects and configures the backend probed by Open.
type Config struct {
	// Service is the keyring service name secrets are filed under.
	Service string

	// FilePath is the encrypted SQLite fallback database path.
	FilePath string

	// SkipKeyring forces the file backend even when a keyring is usable.
	SkipKeyring bool

	Logger *slog.Logger
}

// Open probes for the best available backend and never fails: a backend that
// cannot be opened falls through to the next, ending at the null backend.
func Open(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.SkipKeyring {
		if b, err := newKeyringBackend(cfg.Service); err == nil {
			logger.Debug("securestore: using os keyring", "service", cfg.Service)
			return New(b, logger)
		} else {
			logger.Debug("securestore: keyring unavailable", "error", err)
		}
	}

	if cfg.FilePath != "" {
		if b, err := newFileBackend(cfg.FilePath); err == nil {
			logger.Debug("securestore: using encrypted file store", "path", cfg.FilePath)
			return New(b, logger)
		} else {
			logger.Warn("securestore: file store unavailable", "path", cfg.FilePath, "error", err)
		}
	}

	logger.Warn("securestore: no usable backend, secrets will not persist")
	return New(nullBackend{}, logger)
}

// Set persists value under key. Failures are swallowed: the caller observes a
// store that simply didn't retain the value.
func (s *Store) Set(ctx context.Context, key, value string) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Warn("securestore: set failed", "key", key, "error", err)
	}
}

// Get returns the value stored under key, or "" when absent or unreadable.
func (s *Store) Get(ctx context.Context, key string) string {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("securestore: get failed", "key", key, "error", err)
		}
		return ""
	}
	return value
}

// Delete removes key. Absent keys are not an error. Most callers ignore the
// returned error; the token manager propagates it.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Close releases backend resources.
func (s *Store) Close() error {
	return s.backend.Close()
}
