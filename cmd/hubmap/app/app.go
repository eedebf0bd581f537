// Package app provides the application context and dependency management
// for the hubmap CLI. It centralizes configuration, logging and the
// lazily created catalog session shared by every command.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/pkg/errors"
)

// App represents the hubmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Lazily initialized singletons
	mu      sync.RWMutex
	client  hubmap.Client
	metrics *metrics.Metrics
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// Configuration is loaded from the default locations and can be
// replaced with functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the --format value, empty when auto-detected.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Metrics returns the shared Prometheus collectors, or nil when metrics are
// disabled. The catalog session and the HTTP server record into the same
// registry.
func (a *App) Metrics() *metrics.Metrics {
	if !a.config.Metrics {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	return a.metrics
}

// Client returns the catalog session, creating it lazily if needed.
// This is thread-safe and ensures only one session is created, so every
// command and request shares the same per-category snapshots.
func (a *App) Client() (hubmap.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	m := a.Metrics()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	opts := append(a.config.ClientOptions(), hubmap.WithLogger(a.logger))
	if m != nil {
		opts = append(opts, hubmap.WithMetricsCollector(m))
	}

	c, err := hubmap.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.Organization, err)
	}

	a.client = c
	return c, nil
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()

	if c != nil {
		loaded := 0
		for _, ok := range c.Loaded() {
			if ok {
				loaded++
			}
		}
		a.logger.Debug().Int("loaded_categories", loaded).Msg("Releasing catalog session")
	}

	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "must not be nil")
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom catalog session (useful for testing).
func WithClient(c hubmap.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
