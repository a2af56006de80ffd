package lithic

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/internal/repocache"
	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
)

// settings holds the configuration for a Lithic instance.
type settings struct {
	root       string
	scratchDir string

	cloner repocache.Cloner
	runner process.Runner

	generatorCmd  string
	formatterCmd  string
	header        string
	packageMarker string
	gitHost       string

	cloneTimeout    time.Duration
	generateTimeout time.Duration
	formatTimeout   time.Duration

	now    func() time.Time
	logger *zerolog.Logger
}

func defaults() *settings {
	return &settings{
		root:            ".",
		cloner:          &repocache.GitCloner{},
		generatorCmd:    constants.DefaultGenerator,
		formatterCmd:    constants.DefaultFormatter,
		header:          constants.DefaultHeader,
		packageMarker:   constants.DefaultPackageMarker,
		gitHost:         constants.DefaultGitHost,
		cloneTimeout:    constants.CloneTimeout,
		generateTimeout: constants.GenerateTimeout,
		formatTimeout:   constants.FormatTimeout,
		now:             time.Now,
	}
}

// Option is a function that configures a Lithic instance.
type Option func(*settings) error

func (l *Lithic) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(l.settings); err != nil {
			return err
		}
	}
	return nil
}

// WithRoot sets the module root output locations are relative to.
func WithRoot(root string) Option {
	return func(c *settings) error {
		if root == "" {
			return errors.NewValidationError("root", root, "cannot be empty")
		}
		c.root = root
		return nil
	}
}

// WithScratchDir sets where clone and generation scratch directories are created.
func WithScratchDir(dir string) Option {
	return func(c *settings) error {
		c.scratchDir = dir
		return nil
	}
}

// WithCloner replaces the go-git cloner.
func WithCloner(cloner repocache.Cloner) Option {
	return func(c *settings) error {
		if cloner == nil {
			return errors.NewValidationError("cloner", nil, "cannot be nil")
		}
		c.cloner = cloner
		return nil
	}
}

// WithGitAuth configures the go-git cloner's HTTPS token and clone depth.
func WithGitAuth(token string, depth int) Option {
	return func(c *settings) error {
		if depth < 0 {
			return errors.NewValidationError("clone_depth", depth, "must be non-negative")
		}
		c.cloner = &repocache.GitCloner{Token: token, Depth: depth}
		return nil
	}
}

// WithRunner replaces the process runner used for the generator and formatter.
func WithRunner(runner process.Runner) Option {
	return func(c *settings) error {
		c.runner = runner
		return nil
	}
}

// WithGenerator sets the generator command line.
func WithGenerator(command string) Option {
	return func(c *settings) error {
		c.generatorCmd = command
		return nil
	}
}

// WithFormatter sets the formatter command line.
func WithFormatter(command string) Option {
	return func(c *settings) error {
		c.formatterCmd = command
		return nil
	}
}

// WithHeader sets the header passed to the generator when args lack one.
func WithHeader(header string) Option {
	return func(c *settings) error {
		c.header = header
		return nil
	}
}

// WithPackageMarker sets the empty file created in each output directory.
func WithPackageMarker(name string) Option {
	return func(c *settings) error {
		c.packageMarker = name
		return nil
	}
}

// WithGitHost sets the host for bare owner/name repository identifiers.
func WithGitHost(host string) Option {
	return func(c *settings) error {
		c.gitHost = host
		return nil
	}
}

// WithTimeouts sets the clone, generate and format timeouts. Zero leaves a
// timeout unbounded.
func WithTimeouts(clone, generate, format time.Duration) Option {
	return func(c *settings) error {
		for name, d := range map[string]time.Duration{"clone_timeout": clone, "generate_timeout": generate, "format_timeout": format} {
			if d < 0 {
				return errors.NewValidationError(name, d, "must be non-negative")
			}
		}
		c.cloneTimeout = clone
		c.generateTimeout = generate
		c.formatTimeout = format
		return nil
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *settings) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithLogger sets the logger Sync attaches to its context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *settings) error {
		c.logger = logger
		return nil
	}
}
