package securestore

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// keyringBackend stores secrets in the OS-native secret service (Keychain on
// macOS, wincred on Windows, Secret Service / kwallet over D-Bus on Linux).
type keyringBackend struct {
	service string
}

const probeKey = "securestore_probe"

// newKeyringBackend probes the platform keyring with a canary write before
// committing to it. Headless machines and stripped-down desktops routinely
// have no usable secret service, so any probe failure disqualifies the
// backend rather than surfacing later on real secrets.
func newKeyringBackend(service string) (*keyringBackend, error) {
	if service == "" {
		return nil, errors.New("securestore: empty keyring service name")
	}

	if err := keyring.Set(service, probeKey, "ok"); err != nil {
		return nil, err
	}
	if _, err := keyring.Get(service, probeKey); err != nil {
		return nil, err
	}
	_ = keyring.Delete(service, probeKey)

	return &keyringBackend{service: service}, nil
}

func (b *keyringBackend) Set(_ context.Context, key, value string) error {
	return keyring.Set(b.service, key, value)
}

func (b *keyringBackend) Get(_ context.Context, key string) (string, error) {
	value, err := keyring.Get(b.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (b *keyringBackend) Delete(_ context.Context, key string) error {
	err := keyring.Delete(b.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func (b *keyringBackend) Close() error { return nil }
