// Package normalizer runs the external formatter over generated output in
// fix mode.
package normalizer

import (
	"context"
	"time"

	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// Normalizer formats files in place.
type Normalizer struct {
	command []string
	timeout time.Duration
	runner  process.Runner
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithCommand sets the formatter command line. The path is appended to it.
func WithCommand(command string) Option {
	return func(n *Normalizer) error {
		words, err := process.Split(command)
		if err != nil {
			return err
		}
		if len(words) == 0 {
			return errors.NewValidationError("formatter", command, "command is empty")
		}
		n.command = words
		return nil
	}
}

// WithTimeout bounds each formatter run.
func WithTimeout(d time.Duration) Option {
	return func(n *Normalizer) error {
		n.timeout = d
		return nil
	}
}

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) Option {
	return func(n *Normalizer) error {
		if r == nil {
			return errors.NewValidationError("runner", nil, "cannot be nil")
		}
		n.runner = r
		return nil
	}
}

// New creates a Normalizer running the default formatter unless overridden.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{timeout: constants.FormatTimeout, runner: process.NewExecRunner()}
	if err := WithCommand(constants.DefaultFormatter)(n); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Normalize formats path, a file or directory tree, in place. A failing
// formatter yields an *errors.FormatError carrying its diagnostics verbatim.
func (n *Normalizer) Normalize(ctx context.Context, path string) error {
	log := logging.FromContext(ctx)
	log.Info().Str(logging.FieldPath, path).Msg("Running formatter")

	cmd := process.Command{
		Operation: "format",
		Name:      n.command[0],
		Args:      append(append([]string(nil), n.command[1:]...), path),
		Timeout:   n.timeout,
	}
	if _, err := n.runner.Run(ctx, cmd); err != nil {
		diag := ""
		var pe *errors.ProcessError
		if errors.As(err, &pe) {
			diag = pe.Output
		}
		return errors.NewFormatError(path, diag, err)
	}

	log.Debug().Str(logging.FieldPath, path).Msg("Formatter completed")
	return nil
}
