// Package process runs the external collaborators (generator and formatter)
// with a timeout and captured output.
package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Command describes one external invocation.
type Command struct {
	// Operation names the step for error messages ("generate", "format").
	Operation string
	Name      string
	Args      []string
	Dir       string

	// Timeout bounds the invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Output is what a finished process wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd. A non-zero exit, a failure to start, or a timeout yields
// an *errors.ProcessError whose Output holds stderr (stdout when stderr is empty).
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // command comes from operator configuration
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = waitDelay

	logging.FromContext(ctx).Debug().
		Str("command", cmd.String()).
		Str("operation", cmd.Operation).
		Msg("Running external command")

	err := c.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	text := out.Stderr
	if strings.TrimSpace(text) == "" {
		text = out.Stdout
	}

	cause := err
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		cause = errors.NewTimeoutError(cmd.Operation, cmd.Timeout.String(), err.Error())
	case stderrors.Is(ctx.Err(), context.Canceled):
		cause = errors.Join(errors.ErrCanceled, err)
	}

	pe := errors.NewProcessError(cmd.Operation, cmd.String(), text, cause)
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		pe.ExitCode = exitErr.ExitCode()
	}
	return out, pe
}

// Split tokenizes a command line with POSIX shell quoting rules. Shell
// operators such as ; | & < > are ordinary characters, and environment
// variables and backticks are left unexpanded.
func Split(line string) ([]string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return nil, errors.WrapParse("shell words", "", err)
	}
	return words, nil
}
