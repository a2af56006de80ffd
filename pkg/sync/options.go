// Package sync provides the options and result types of a lithic run.
package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
)

// Mode selects what the reconciler does with generated output.
type Mode int

const (
	// ModeVerify compares the module tree with generated output and reports drift.
	ModeVerify Mode = iota
	// ModePublish replaces the module tree with generated output.
	ModePublish
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeVerify:
		return "verify"
	case ModePublish:
		return "publish"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "verify" or "publish".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verify", "check", "":
		return ModeVerify, nil
	case "publish", "generate":
		return ModePublish, nil
	}
	return ModeVerify, errors.NewValidationError("mode", s, "must be verify or publish")
}

// Options controls one run of Lithic.Sync.
type Options struct {
	Mode    Mode
	Jobs    int           // Sources processed concurrently
	Timeout time.Duration // Bound for the whole run; zero means none
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		Mode:    ModeVerify,
		Jobs:    constants.DefaultJobs,
		Timeout: constants.SyncTimeout,
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Mode != ModeVerify && s.Mode != ModePublish {
		return &errors.ValidationError{Field: "Mode", Value: s.Mode, Message: "unknown mode"}
	}
	if s.Jobs < 1 || s.Jobs > constants.MaxJobs {
		return &errors.ValidationError{
			Field:   "Jobs",
			Value:   s.Jobs,
			Message: fmt.Sprintf("must be between 1 and %d", constants.MaxJobs),
		}
	}
	if s.Timeout < 0 {
		return &errors.ValidationError{Field: "Timeout", Value: s.Timeout, Message: "timeout must be non-negative"}
	}
	return nil
}

// WithMode sets the reconcile mode.
func WithMode(mode Mode) Option {
	return func(opts *Options) {
		opts.Mode = mode
	}
}

// WithPublish selects publish mode when publish is true and verify mode otherwise.
func WithPublish(publish bool) Option {
	return func(opts *Options) {
		opts.Mode = ModeVerify
		if publish {
			opts.Mode = ModePublish
		}
	}
}

// WithJobs sets how many sources are processed at once.
func WithJobs(jobs int) Option {
	return func(opts *Options) {
		opts.Jobs = jobs
	}
}

// WithTimeout configures the sync timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}
