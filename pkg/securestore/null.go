package securestore

import "context"

// nullBackend retains nothing. It exists so the rest of the client can keep
// functioning on platforms where neither the keyring nor the file store can
// be opened; secrets simply do not persist.
type nullBackend struct{}

func (nullBackend) Set(context.Context, string, string) error { return nil }

func (nullBackend) Get(context.Context, string) (string, error) { return "", ErrNotFound }

func (nullBackend) Delete(context.Context, string) error { return nil }

func (nullBackend) Close() error { return nil }
