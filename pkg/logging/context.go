package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const loggerKey contextKey = iota

// Field names shared by pipeline components.
const (
	FieldSource = "source"
	FieldRepo   = "repo"
	FieldBranch = "branch"
	FieldOutput = "output"
	FieldPath   = "path"
	FieldState  = "state"
	FieldMode   = "mode"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// Ctx is a short alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithField adds a single string field to the logger in the context.
func WithField(ctx context.Context, key, value string) context.Context {
	l := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &l)
}

// WithSource tags the context logger with a source name.
func WithSource(ctx context.Context, name string) context.Context {
	return WithField(ctx, FieldSource, name)
}

// WithRepo tags the context logger with a repository and branch.
func WithRepo(ctx context.Context, repo, branch string) context.Context {
	l := FromContext(ctx).With().Str(FieldRepo, repo).Str(FieldBranch, branch).Logger()
	return WithLogger(ctx, &l)
}

// WithOutput tags the context logger with an output location.
func WithOutput(ctx context.Context, output string) context.Context {
	return WithField(ctx, FieldOutput, output)
}
