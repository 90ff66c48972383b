package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/internal/credstore/redis"
	"github.com/aussiebroadwan/sessionkit/internal/credstore/sqlite"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// credentialStore is a CredentialStore the application must close.
type credentialStore interface {
	authsdk.CredentialStore
	Close() error
}

type memoryStore struct{ *authsdk.MemoryStore }

func (memoryStore) Close() error { return nil }

// Application is one sessionctl invocation with its store and session.
type Application struct {
	cfg    Config
	logger *slog.Logger
	out    io.Writer

	store   credentialStore
	nav     *terminalNavigator
	session *authsdk.Session
}

// New opens the configured credential store and builds the session.
// Command output goes to stdout, logs to stderr.
func New(ctx context.Context, cfg Config, stdout, stderr io.Writer) (*Application, error) {
	app := &Application{
		cfg: cfg,
		out: stdout,
		logger: slogx.New(slogx.Config{
			Service: "sessionctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  stderr,
		}),
		nav: &terminalNavigator{out: stdout},
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	app.initSession()

	return app, nil
}

// Close releases the credential store.
func (app *Application) Close() error {
	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
		return err
	}
	return nil
}

// Session exposes the session for callers embedding the application.
func (app *Application) Session() *authsdk.Session { return app.session }

// initStore opens the credential store selected by cfg.Store
func (app *Application) initStore(ctx context.Context) error {
	switch app.cfg.Store {
	case StoreSQLite:
		db, err := sqlite.Open(app.cfg.DatabaseFile)
		if err != nil {
			return err
		}
		app.store = db
	case StoreRedis:
		rdb, err := redis.Open(ctx, app.cfg.RedisAddr, app.cfg.RedisPrefix)
		if err != nil {
			return err
		}
		app.store = rdb
	case StoreMemory:
		app.store = memoryStore{authsdk.NewMemoryStore()}
	default:
		return fmt.Errorf("unknown store %q", app.cfg.Store)
	}

	app.logger.Debug("credential store opened", "driver", app.cfg.Store)
	return nil
}

func (app *Application) initSession() {
	client := authsdk.NewSDKClient(app.cfg.APIURL)
	client.HTTPClient = &http.Client{Timeout: app.cfg.Timeout}
	client.LoginPath = loginPath
	client.Logger = app.logger

	app.session = client.NewSession(app.store, app.nav)
}
