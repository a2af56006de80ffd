// Package generator invokes the external schema generator for one resolved
// source.
package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/pkg/config"
	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// Generator runs the generator executable.
type Generator struct {
	command []string
	header  string
	marker  string
	timeout time.Duration
	runner  process.Runner
}

// Option configures a Generator.
type Option func(*Generator) error

// WithCommand sets the generator command line, split with shell quoting.
func WithCommand(command string) Option {
	return func(g *Generator) error {
		words, err := process.Split(command)
		if err != nil {
			return err
		}
		if len(words) == 0 {
			return errors.NewValidationError("generator", command, "command is empty")
		}
		g.command = words
		return nil
	}
}

// WithHeader sets the file header injected when args do not carry one.
func WithHeader(header string) Option {
	return func(g *Generator) error {
		g.header = header
		return nil
	}
}

// WithPackageMarker sets the file created empty in every output directory.
// An empty name disables the marker.
func WithPackageMarker(name string) Option {
	return func(g *Generator) error {
		if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
			return errors.NewValidationError("package_marker", name, "must be a file name")
		}
		g.marker = name
		return nil
	}
}

// WithTimeout bounds each generator run.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) error {
		g.timeout = d
		return nil
	}
}

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) Option {
	return func(g *Generator) error {
		if r == nil {
			return errors.NewValidationError("runner", nil, "cannot be nil")
		}
		g.runner = r
		return nil
	}
}

// New creates a Generator with defaults for anything not set by opts.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		command: []string{constants.DefaultGenerator},
		header:  constants.DefaultHeader,
		marker:  constants.DefaultPackageMarker,
		timeout: constants.GenerateTimeout,
		runner:  process.NewExecRunner(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BuildArgs splits args with shell quoting and appends the input and output
// flags. The header flag is appended only when args do not already set it.
func BuildArgs(args, input, output, header string) ([]string, error) {
	words, err := process.Split(args)
	if err != nil {
		return nil, err
	}
	words = append(words, "--input", input, "--output", output)
	if !hasFlag(words, constants.HeaderFlag) {
		words = append(words, constants.HeaderFlag, header)
	}
	return words, nil
}

func hasFlag(words []string, flag string) bool {
	for _, w := range words {
		if w == flag || strings.HasPrefix(w, flag+"=") {
			return true
		}
	}
	return false
}

// Generate writes the generated module for r into outputDir, reading the
// input from the checkout at repoPath.
func (g *Generator) Generate(ctx context.Context, r config.Resolved, repoPath, outputDir string) error {
	input := filepath.Join(repoPath, filepath.FromSlash(r.Input))
	args, err := BuildArgs(r.Args, input, outputDir, g.header)
	if err != nil {
		return errors.NewGenerationError(r.Name(), nil, err)
	}

	if err := g.prepare(outputDir); err != nil {
		return errors.NewGenerationError(r.Name(), args, err)
	}

	logging.FromContext(ctx).Info().
		Str(logging.FieldPath, outputDir).
		Msg("Generating schema")

	cmd := process.Command{
		Operation: "generate",
		Name:      g.command[0],
		Args:      append(append([]string(nil), g.command[1:]...), args...),
		Dir:       repoPath,
		Timeout:   g.timeout,
	}
	if _, err := g.runner.Run(ctx, cmd); err != nil {
		return errors.NewGenerationError(r.Name(), cmd.Args, err)
	}
	return nil
}

// prepare creates outputDir and its package marker.
func (g *Generator) prepare(outputDir string) error {
	if err := os.MkdirAll(outputDir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", outputDir, err)
	}
	if g.marker == "" {
		return nil
	}
	marker := filepath.Join(outputDir, g.marker)
	if _, err := os.Stat(marker); err == nil {
		return nil
	}
	if err := os.WriteFile(marker, nil, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", marker, err)
	}
	logging.Debug().Str(logging.FieldPath, outputDir).Msg("Created module")
	return nil
}
