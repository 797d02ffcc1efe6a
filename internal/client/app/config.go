package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// APIBaseURL is the TableMate service the client talks to.
	APIBaseURL string `env:"TABLEMATE_API_URL" envDefault:"https://api.tablemate.app"`

	// KeyringService is the OS keyring service name secrets are filed under.
	KeyringService string `env:"TABLEMATE_KEYRING_SERVICE" envDefault:"tablemate"`

	// SkipKeyring forces the encrypted file store, useful on headless boxes
	// where probing the keyring is slow or noisy.
	SkipKeyring bool `env:"TABLEMATE_NO_KEYRING"`

	// StateDir holds the fallback secret database. Defaults to the
	// user config dir.
	StateDir string `env:"TABLEMATE_STATE_DIR"`

	// MasterKeyPath optionally points at key material for sealing the file
	// store; without it values are sealed with an ephemeral key.
	MasterKeyPath string `env:"TABLEMATE_MASTER_KEY_PATH"`

	// CacheTTL bounds how long user-scoped data is served without a refetch.
	CacheTTL time.Duration `env:"TABLEMATE_CACHE_TTL" envDefault:"5m"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.StateDir = filepath.Join(base, "tablemate")
	}

	return cfg, nil
}
