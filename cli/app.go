// ABOUTME: Runtime wiring shared by all commands
// ABOUTME: Loads config, opens the configured storage backend, store, mirror and service
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harperreed/advisor-crm/charm"
	"github.com/harperreed/advisor-crm/config"
	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/db"
	"github.com/harperreed/advisor-crm/logging"
	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/store"
)

// ErrNotLoggedIn is returned by commands that need a user when neither
// --user nor a stored session names one.
var ErrNotLoggedIn = errors.New("not logged in; run 'advisor login' or pass --user")

// App is one opened runtime.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   *store.Store
	Service *crm.Service

	charm *charm.Client
	user  string
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}
	if opts.Driver != "" {
		cfg.Storage.Driver = opts.Driver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads config and opens every layer. Callers must Close it.
func openApp(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := logging.Default(cfg.Log)
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	app := &App{Config: cfg, Logger: logger, user: opts.User}
	backend, err := app.openBackend()
	if err != nil {
		return nil, err
	}
	logger.Debug("opened storage", "driver", cfg.Storage.Driver, "dir", cfg.Storage.DataDir)

	st, err := store.Open(backend,
		store.WithLogger(logger),
		store.WithDemoPassword(cfg.Auth.DemoPassword),
	)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	app.Store = st

	var remote mirror.Remote
	gh, err := mirror.NewGitHubStore(ctx, cfg.Mirror)
	switch {
	case errors.Is(err, mirror.ErrDisabled):
		logger.Debug("remote mirror disabled, running local-only")
	case err != nil:
		_ = st.Close()
		return nil, err
	default:
		remote = gh
	}

	app.Service = crm.New(st, mirror.New(remote, logger),
		crm.WithLogger(logger),
		crm.WithPushTimeout(cfg.Mirror.PushTimeout),
	)
	return app, nil
}

func (a *App) openBackend() (store.Backend, error) {
	switch a.Config.Storage.Driver {
	case config.DriverBadger:
		return charm.OpenLocal(a.Config.BadgerDir())
	case config.DriverCharm:
		c, err := charm.Open(&a.Config.Charm)
		if err != nil {
			return nil, err
		}
		a.charm = c
		return c, nil
	default:
		return db.Open(a.Config.SQLitePath())
	}
}

// Session resolves the acting user: --user wins over the stored login.
func (a *App) Session() (store.Session, error) {
	if a.user != "" {
		return a.Store.SessionFor(a.user)
	}
	sess, err := a.Store.CurrentSession()
	if err != nil {
		return store.Session{}, err
	}
	if sess.User == nil {
		return store.Session{}, ErrNotLoggedIn
	}
	return sess, nil
}

// Close lets in-flight mirror pushes finish, then closes storage.
func (a *App) Close() error {
	a.Service.Wait()
	return a.Store.Close()
}

// withApp opens the runtime around fn.
func withApp(ctx context.Context, opts *RootOptions, fn func(app *App) error) error {
	app, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("failed to close store", "err", err)
		}
	}()
	return fn(app)
}

// withSession opens the runtime and resolves the session around fn.
func withSession(ctx context.Context, opts *RootOptions, fn func(app *App, sess store.Session) error) error {
	return withApp(ctx, opts, func(app *App) error {
		sess, err := app.Session()
		if err != nil {
			return err
		}
		return fn(app, sess)
	})
}
