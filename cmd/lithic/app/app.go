// Package app wires configuration, logging and the lithic pipeline into the
// lithic command line tool.
package app

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/lithic"
	"github.com/agentstation/lithic/pkg/errors"
)

// App represents the lithic application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// extra is appended to the options built from config (used by tests).
	extra []lithic.Option
}

// New creates a new App instance with the given version information.
// Settings are loaded from .env files, the environment and the optional
// .lithic.yaml settings file.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapConfig("settings", err)
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

// Lithic builds a pipeline instance from the current configuration.
func (a *App) Lithic() (*lithic.Lithic, error) {
	l, err := lithic.New(append(a.lithicOptions(), a.extra...)...)
	if err != nil {
		return nil, errors.WrapConfig("settings", err)
	}
	return l, nil
}

// lithicOptions constructs pipeline options from the app configuration.
func (a *App) lithicOptions() []lithic.Option {
	c := a.config
	opts := []lithic.Option{
		lithic.WithRoot(c.Root),
		lithic.WithGenerator(c.Generator),
		lithic.WithFormatter(c.Formatter),
		lithic.WithHeader(c.Header),
		lithic.WithPackageMarker(c.PackageMarker),
		lithic.WithGitHost(c.GitHost),
		lithic.WithTimeouts(c.CloneTimeout, c.GenerateTimeout, c.FormatTimeout),
		lithic.WithLogger(a.logger),
	}
	if c.GitToken != "" || c.CloneDepth > 0 {
		opts = append(opts, lithic.WithGitAuth(c.GitToken, c.CloneDepth))
	}
	if c.ScratchDir != "" {
		opts = append(opts, lithic.WithScratchDir(c.ScratchDir))
	}
	return opts
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
		return nil
	}
}

// WithLithicOptions adds pipeline options applied after the configured ones.
func WithLithicOptions(opts ...lithic.Option) Option {
	return func(a *App) error {
		a.extra = append(a.extra, opts...)
		return nil
	}
}
