// Package app wires the client together: config, logging, secret storage,
// token lifecycle, biometric capability, API client, entitlement cache and
// the session coordinator.
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tablemate/tablemate/internal/client/api"
	"github.com/tablemate/tablemate/internal/client/attend"
	"github.com/tablemate/tablemate/internal/client/biometric"
	"github.com/tablemate/tablemate/internal/client/entitle"
	"github.com/tablemate/tablemate/internal/client/session"
	"github.com/tablemate/tablemate/internal/client/token"
	"github.com/tablemate/tablemate/pkg/cryptox"
	"github.com/tablemate/tablemate/pkg/idx"
	"github.com/tablemate/tablemate/pkg/securestore"
	"github.com/tablemate/tablemate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	deviceIDKey = "device_id"
)

// Application encapsulates the client with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store      *securestore.Store
	apiClient  *api.Client
	tokens     *token.Manager
	biometrics *biometric.Service
	cache      *entitle.Cache

	Session    *session.Coordinator
	Attendance *attend.Service
}

// New initializes the application. It never fails on degraded capability
// (missing keyring, no biometric hardware); only genuinely broken
// configuration surfaces as an error.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tablemate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
	}

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		app.logger.Warn("cannot create state dir, file store disabled", "dir", cfg.StateDir, "error", err)
	}

	app.store = securestore.Open(securestore.Config{
		Service:     cfg.KeyringService,
		FilePath:    filepath.Join(cfg.StateDir, "secrets.db"),
		SkipKeyring: cfg.SkipKeyring,
		Logger:      app.logger,
	})

	app.apiClient = api.NewClient(cfg.APIBaseURL, app.logger)
	app.apiClient.SetDeviceID(app.deviceID())

	app.tokens = token.NewManager(app.store, app.refreshTokens, app.logger)
	app.biometrics = biometric.NewService(biometric.Detect(app.logger), app.store, app.logger)
	app.cache = entitle.New(cfg.CacheTTL)

	app.Session = session.NewCoordinator(
		app.apiClient,
		app.tokens,
		app.biometrics,
		app.cache,
		&loginHint{logger: app.logger},
		app.logger,
	)
	app.Attendance = attend.NewService(app.apiClient, app.tokens, app.cache, app.logger)

	return app, nil
}

// Biometrics exposes the biometric service for enrollment commands.
func (app *Application) Biometrics() *biometric.Service { return app.biometrics }

// Logger exposes the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Close releases storage resources.
func (app *Application) Close() error {
	return app.store.Close()
}

// refreshTokens adapts the API client's refresh call to the token manager's
// callback shape.
func (app *Application) refreshTokens(ctx context.Context, refreshToken string) (token.Credentials, error) {
	creds, err := app.apiClient.Refresh(ctx, refreshToken)
	if err != nil {
		return token.Credentials{}, err
	}
	return token.Credentials{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}, nil
}

// deviceID returns the persisted device identifier, minting one on first run.
func (app *Application) deviceID() string {
	ctx := context.Background()

	if id := app.store.Get(ctx, deviceIDKey); id != "" {
		return id
	}

	id := idx.New().String()
	app.store.Set(ctx, deviceIDKey, id)
	return id
}

// loginHint is the CLI's navigator: there is no screen to redirect, so it
// tells the user what to run next.
type loginHint struct {
	logger *slog.Logger
}

func (n *loginHint) RedirectToLogin() {
	n.logger.Info("signed out; run `tablemate login` to sign back in")
}
