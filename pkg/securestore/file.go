package securestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tablemate/tablemate/pkg/cryptox"

	_ "modernc.org/sqlite"
)

// fileBackend is the fallback when no OS keyring is usable: a local SQLite
// database with every value sealed via cryptox before it touches disk.
type fileBackend struct {
	db *sql.DB
}

func newFileBackend(path string) (*fileBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	b := &fileBackend{db: db}
	if err := b.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

func (b *fileBackend) Set(ctx context.Context, key, value string) error {
	sealed, err := cryptox.Seal([]byte(value))
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO secrets (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
	`, key, sealed, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (b *fileBackend) Get(ctx context.Context, key string) (string, error) {
	var sealed []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?;`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	value, err := cryptox.Open(sealed)
	if err != nil {
		// Undecryptable rows (rotated master key, corruption) read as absent.
		return "", ErrNotFound
	}
	return string(value), nil
}

func (b *fileBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?;`, key)
	return err
}

func (b *fileBackend) Close() error { return b.db.Close() }
