// Package errors provides custom error types for the lithic pipeline.
// These errors enable programmatic error checking at the per-source
// isolation boundary and carry enough context for operators to act on
// a failed run without re-running it.
package errors

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Aliases for the standard library helpers so callers need a single import.
var (
	Join = errors.Join
	Is   = errors.Is
	As   = errors.As
)

// Common sentinel errors for the lithic pipeline
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates the configuration could not be loaded or validated
	ErrConfig = errors.New("configuration error")

	// ErrSourceFailed indicates one source failed to clone, generate or format
	ErrSourceFailed = errors.New("source failed")

	// ErrDrift indicates the on-disk tree differs from what regeneration produces
	ErrDrift = errors.New("drift detected")

	// ErrRunFailed indicates the run as a whole did not succeed
	ErrRunFailed = errors.New("run failed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error. It is fatal: the run
// aborts before any source is processed.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Path, msg)
	}
	return fmt.Sprintf("configuration error: %s", msg)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(path, message string, err error) *ConfigError {
	return &ConfigError{
		Path:    path,
		Message: message,
		Err:     err,
	}
}

// CloneError reports a failed clone of one (repo, branch) pair.
type CloneError struct {
	Repo   string
	Branch string
	Err    error
}

// Error implements the error interface
func (e *CloneError) Error() string {
	return fmt.Sprintf("clone %s@%s failed: %v", e.Repo, e.Branch, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CloneError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CloneError) Is(target error) bool {
	return target == ErrSourceFailed
}

// NewCloneError creates a new CloneError
func NewCloneError(repo, branch string, err error) *CloneError {
	return &CloneError{Repo: repo, Branch: branch, Err: err}
}

// GenerationError reports a failed generator invocation for one source.
type GenerationError struct {
	Source string
	Args   []string
	Err    error
}

// Error implements the error interface
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.Source, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *GenerationError) Is(target error) bool {
	return target == ErrSourceFailed
}

// NewGenerationError creates a new GenerationError
func NewGenerationError(source string, args []string, err error) *GenerationError {
	return &GenerationError{Source: source, Args: args, Err: err}
}

// FormatError reports a failed formatter invocation. Diagnostics carries the
// formatter's stderr verbatim.
type FormatError struct {
	Path        string
	Diagnostics string
	Err         error
}

// Error implements the error interface
func (e *FormatError) Error() string {
	if e.Diagnostics != "" {
		return fmt.Sprintf("formatter failed on %s:\n%s", e.Path, e.Diagnostics)
	}
	return fmt.Sprintf("formatter failed on %s: %v", e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FormatError) Is(target error) bool {
	return target == ErrSourceFailed
}

// NewFormatError creates a new FormatError
func NewFormatError(path, diagnostics string, err error) *FormatError {
	return &FormatError{Path: path, Diagnostics: diagnostics, Err: err}
}

// ReconciliationKind classifies a ReconciliationError.
type ReconciliationKind string

// Reconciliation kinds.
const (
	KindDrift      ReconciliationKind = "drift"
	KindMissing    ReconciliationKind = "missing"
	KindExtra      ReconciliationKind = "extra"
	KindIncomplete ReconciliationKind = "incomplete"
	KindPublish    ReconciliationKind = "publish"
	KindIO         ReconciliationKind = "io"
)

// ReconciliationError reports one finding of the reconciler: a drifted,
// missing or extra file, an output location that could not be fully
// covered, or a publish step that failed.
type ReconciliationError struct {
	Kind    ReconciliationKind
	Output  string // output location the finding belongs to
	Path    string // file path, relative to Output when applicable
	Diff    string // unified diff for KindDrift
	Sources []string
	Err     error
}

// Error implements the error interface
func (e *ReconciliationError) Error() string {
	switch e.Kind {
	case KindDrift:
		p := e.Path
		if e.Output != "" {
			p = path.Join(filepath.ToSlash(e.Output), e.Path)
		}
		if e.Diff != "" {
			return fmt.Sprintf("schema comparison failed for %s:\n%s", p, e.Diff)
		}
		return fmt.Sprintf("schema comparison failed for %s", p)
	case KindMissing:
		return fmt.Sprintf("generated file %s is missing from %s", e.Path, e.Output)
	case KindExtra:
		return fmt.Sprintf("extra file %s in %s", e.Path, e.Output)
	case KindIncomplete:
		return fmt.Sprintf("%s is incomplete: sources failed: %s", e.Output, strings.Join(e.Sources, ", "))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %v", e.Kind, e.Output, e.Err)
		}
		return fmt.Sprintf("%s %s", e.Kind, e.Output)
	}
}

// Unwrap implements errors.Unwrap
func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrDrift
}

// SourceError attaches a source name and the stage it failed in to a
// per-source failure.
type SourceError struct {
	Source string
	Stage  string
	Err    error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	return fmt.Sprintf("error processing %s (%s): %v", e.Source, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError
func NewSourceError(source, stage string, err error) *SourceError {
	return &SourceError{Source: source, Stage: stage, Err: err}
}

// RunFailure aggregates every failure of a run. It is returned only at the
// very end, after all sources and all reconciliation checks have run.
type RunFailure struct {
	Failures []error
}

// Error implements the error interface
func (e *RunFailure) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("run failed: %v", e.Failures[0])
	}
	return fmt.Sprintf("run failed with %d errors", len(e.Failures))
}

// Unwrap exposes every individual failure to errors.Is and errors.As
func (e *RunFailure) Unwrap() []error {
	return e.Failures
}

// Is implements errors.Is support
func (e *RunFailure) Is(target error) bool {
	return target == ErrRunFailed
}

// NewRunFailure returns nil when there are no failures.
func NewRunFailure(failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &RunFailure{Failures: failures}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsSourceFailure checks if an error is a per-source clone, generation or format failure
func IsSourceFailure(err error) bool {
	return errors.Is(err, ErrSourceFailed)
}

// IsDrift checks if an error is a reconciliation finding
func IsDrift(err error) bool {
	return errors.Is(err, ErrDrift)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "yaml", "shell words"
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "copy", "rename"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// ProcessError represents an error from an external process or command
type ProcessError struct {
	Operation string // What operation was being performed
	Command   string // The command that was executed
	Output    string // Stderr output from the process (stdout when stderr is empty)
	ExitCode  int    // Exit code if available, -1 otherwise
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("process error during %s (command: %s): %v\nOutput: %s", e.Operation, e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("process error during %s (command: %s): %v", e.Operation, e.Command, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// NewProcessError creates a new ProcessError
func NewProcessError(operation, command, output string, err error) *ProcessError {
	return &ProcessError{
		Operation: operation,
		Command:   command,
		Output:    output,
		ExitCode:  -1,
		Err:       err,
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapConfig wraps an error as a ConfigError
func WrapConfig(path string, err error) error {
	if err == nil {
		return nil
	}
	return NewConfigError(path, "", err)
}
