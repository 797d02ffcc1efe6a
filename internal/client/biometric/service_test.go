package biometric

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tablemate/tablemate/pkg/securestore"
)

// fakeAuthenticator scripts each capability check and records what was
// consulted.
type fakeAuthenticator struct {
	hardware    bool
	hardwareErr error
	enrolled    bool
	enrolledErr error
	promptOK    bool
	promptErr   error

	enrolledCalls int
	promptCalls   int
}

func (f *fakeAuthenticator) HardwarePresent(context.Context) (bool, error) {
	return f.hardware, f.hardwareErr
}

func (f *fakeAuthenticator) Enrolled(context.Context) (bool, error) {
	f.enrolledCalls++
	return f.enrolled, f.enrolledErr
}

func (f *fakeAuthenticator) Prompt(context.Context, string) (bool, error) {
	f.promptCalls++
	return f.promptOK, f.promptErr
}

// memBackend is a minimal in-memory securestore backend with injectable
// per-key delete failures.
type memBackend struct {
	mu      sync.Mutex
	values  map[string]string
	failDel map[string]error
}

func newMemBackend() *memBackend {
	return &memBackend{values: make(map[string]string), failDel: make(map[string]error)}
}

func (b *memBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

func (b *memBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	if !ok {
		return "", securestore.ErrNotFound
	}
	return v, nil
}

func (b *memBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failDel[key]; err != nil {
		return err
	}
	delete(b.values, key)
	return nil
}

func (b *memBackend) Close() error { return nil }

func newTestService(auth Authenticator, backend securestore.Backend) *Service {
	return NewService(auth, securestore.New(backend, slog.Default()), slog.Default())
}

func TestIsAvailable(t *testing.T) {
	ctx := context.Background()

	t.Run("hardware and enrollment present", func(t *testing.T) {
		auth := &fakeAuthenticator{hardware: true, enrolled: true}
		require.True(t, newTestService(auth, newMemBackend()).IsAvailable(ctx))
	})

	t.Run("no hardware short-circuits enrollment", func(t *testing.T) {
		auth := &fakeAuthenticator{hardware: false, enrolled: true}
		require.False(t, newTestService(auth, newMemBackend()).IsAvailable(ctx))
		require.Zero(t, auth.enrolledCalls)
	})

	t.Run("hardware check failure short-circuits enrollment", func(t *testing.T) {
		auth := &fakeAuthenticator{hardwareErr: errors.New("dbus down"), enrolled: true}
		require.False(t, newTestService(auth, newMemBackend()).IsAvailable(ctx))
		require.Zero(t, auth.enrolledCalls)
	})

	t.Run("hardware without enrollment", func(t *testing.T) {
		auth := &fakeAuthenticator{hardware: true, enrolled: false}
		require.False(t, newTestService(auth, newMemBackend()).IsAvailable(ctx))
		require.Equal(t, 1, auth.enrolledCalls)
	})

	t.Run("enrollment check failure", func(t *testing.T) {
		auth := &fakeAuthenticator{hardware: true, enrolledErr: errors.New("daemon gone")}
		require.False(t, newTestService(auth, newMemBackend()).IsAvailable(ctx))
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit success", func(t *testing.T) {
		auth := &fakeAuthenticator{promptOK: true}
		require.True(t, newTestService(auth, newMemBackend()).Authenticate(ctx, "sign in"))
	})

	t.Run("declined prompt", func(t *testing.T) {
		auth := &fakeAuthenticator{promptOK: false}
		require.False(t, newTestService(auth, newMemBackend()).Authenticate(ctx, "sign in"))
	})

	t.Run("prompt failure reads as declined", func(t *testing.T) {
		auth := &fakeAuthenticator{promptErr: errors.New("helper crashed")}
		require.False(t, newTestService(auth, newMemBackend()).Authenticate(ctx, "sign in"))
	})
}

func TestPreferenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeAuthenticator{}, newMemBackend())

	require.False(t, s.Preference(ctx))

	s.SavePreference(ctx, true)
	require.True(t, s.Preference(ctx))

	s.SavePreference(ctx, false)
	require.False(t, s.Preference(ctx))
}

func TestPreferenceOnlyExactTrueCounts(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	s := newTestService(&fakeAuthenticator{}, backend)

	for _, stored := range []string{"1", "TRUE", "True", "yes", "corrupted"} {
		backend.values[enabledKey] = stored
		require.False(t, s.Preference(ctx), "stored value %q must read as false", stored)
	}
}

func TestEmailRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeAuthenticator{}, newMemBackend())

	require.Equal(t, "", s.Email(ctx))

	s.SaveEmail(ctx, "sam@example.com")
	require.Equal(t, "sam@example.com", s.Email(ctx))
}

func TestClearData(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeAuthenticator{}, newMemBackend())

	s.SavePreference(ctx, true)
	s.SaveEmail(ctx, "sam@example.com")
	s.ClearData(ctx)

	require.False(t, s.Preference(ctx))
	require.Equal(t, "", s.Email(ctx))
}

func TestClearDataAttemptsBothKeysIndependently(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	backend.failDel[enabledKey] = errors.New("keyring locked")
	s := newTestService(&fakeAuthenticator{}, backend)

	s.SavePreference(ctx, true)
	s.SaveEmail(ctx, "sam@example.com")
	s.ClearData(ctx)

	// The first key failed to delete, the second must still be gone.
	require.Equal(t, "", s.Email(ctx))
}
