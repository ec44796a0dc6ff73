// Package app provides the application context and dependency management
// for the forgetap CLI: configuration, logging and capture clients.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/internal/appcontext"
	"github.com/agentstation/forgetap/internal/config"
	"github.com/agentstation/forgetap/pkg/errors"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the forgetap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// customLogger keeps a logger set with WithLogger across flag parsing
	customLogger bool

	// Clients created for commands, stopped on Shutdown
	mu      sync.Mutex
	clients []forgetap.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		cfg, err := LoadConfig("")
		if err != nil {
			return nil, errors.NewConfigError("app", "loading config", err)
		}
		app.config = cfg
	}
	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Settings returns the resolved capture settings.
func (a *App) Settings() config.Settings { return a.config.Settings }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Client creates a capture client from the settings. opts are applied
// after the configured options.
func (a *App) Client(opts ...forgetap.Option) (forgetap.Client, error) {
	all := append(a.config.Settings.ClientOptions(a.logger), opts...)
	client, err := forgetap.New(all...)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.clients = append(a.clients, client)
	a.mu.Unlock()
	return client, nil
}

// Shutdown stops background work of every client the app created and
// applies anything still queued.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	clients := a.clients
	a.clients = nil
	a.mu.Unlock()

	for _, c := range clients {
		if err := c.AutoDrainOff(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop auto drain during shutdown")
		}
		c.Drain()
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.customLogger = logger != nil
		return nil
	}
}
