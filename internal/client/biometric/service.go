package biometric

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tablemate/tablemate/pkg/securestore"
)

const (
	enabledKey = "biometric_enabled"
	emailKey   = "biometric_email"
)

// Service is the facade over an Authenticator and the secure store. Every
// method is total: capability, prompt and storage failures come back as
// false/"" rather than errors, so callers never need a failure path of their
// own.
type Service struct {
	auth   Authenticator
	store  *securestore.Store
	logger *slog.Logger
}

func NewService(auth Authenticator, store *securestore.Store, logger *slog.Logger) *Service {
	return &Service{auth: auth, store: store, logger: logger}
}

// IsAvailable reports whether the device has biometric hardware with at least
// one biometric enrolled. The hardware check runs first and short-circuits:
// when it is false or fails, the enrollment check is never consulted.
func (s *Service) IsAvailable(ctx context.Context) bool {
	present, err := s.auth.HardwarePresent(ctx)
	if err != nil {
		s.logger.Debug("biometric hardware check failed", "error", err)
		return false
	}
	if !present {
		return false
	}

	enrolled, err := s.auth.Enrolled(ctx)
	if err != nil {
		s.logger.Debug("biometric enrollment check failed", "error", err)
		return false
	}
	return enrolled
}

// Authenticate triggers the platform prompt and reports explicit success.
// Any failure reads as a declined prompt.
func (s *Service) Authenticate(ctx context.Context, reason string) bool {
	ok, err := s.auth.Prompt(ctx, reason)
	if err != nil {
		s.logger.Debug("biometric prompt failed", "error", err)
		return false
	}
	return ok
}

// SavePreference persists the opt-in flag as the literal strings
// "true"/"false".
func (s *Service) SavePreference(ctx context.Context, enabled bool) {
	s.store.Set(ctx, enabledKey, strconv.FormatBool(enabled))
}

// Preference reads the opt-in flag. Only an exact "true" counts; anything
// else in the store ("1", "TRUE", corruption, absence) reads as false.
func (s *Service) Preference(ctx context.Context) bool {
	return s.store.Get(ctx, enabledKey) == "true"
}

// SaveEmail persists the account email biometric sign-in maps to.
func (s *Service) SaveEmail(ctx context.Context, email string) {
	s.store.Set(ctx, emailKey, email)
}

// Email returns the stored account email, "" when absent.
func (s *Service) Email(ctx context.Context) string {
	return s.store.Get(ctx, emailKey)
}

// ClearData deletes the preference flag and the email. Each deletion is
// attempted independently: a failure on one key must not stop the other.
func (s *Service) ClearData(ctx context.Context) {
	if err := s.store.Delete(ctx, enabledKey); err != nil {
		s.logger.Warn("failed to delete biometric preference", "error", err)
	}
	if err := s.store.Delete(ctx, emailKey); err != nil {
		s.logger.Warn("failed to delete biometric email", "error", err)
	}
}
