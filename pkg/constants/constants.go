// Package constants provides shared constants used throughout the lithic codebase.
// This includes timeouts, file permissions, default collaborator commands and
// other values that should be consistent across the application.
package constants

import "time"

// Timeout constants bound the external collaborators. Every clone, generate
// and format call runs under one of these unless overridden.
const (
	// CloneTimeout is the default timeout for cloning one repository
	CloneTimeout = 5 * time.Minute

	// GenerateTimeout is the default timeout for one generator invocation
	GenerateTimeout = 10 * time.Minute

	// FormatTimeout is the default timeout for one formatter invocation
	FormatTimeout = 5 * time.Minute

	// SyncTimeout is the default timeout for a whole run (0 disables it)
	SyncTimeout time.Duration = 0

	// ShutdownTimeout is how long graceful shutdown may take after an error
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants
const (
	// DefaultJobs is the number of sources processed concurrently by default.
	// One keeps runs sequential and their logs readable.
	DefaultJobs = 1

	// MaxJobs caps --jobs
	MaxJobs = 64

	// DiffContextLines is the number of context lines in drift diffs
	DiffContextLines = 3
)

// Collaborator defaults
const (
	// DefaultGenerator is the generator executable
	DefaultGenerator = "datamodel-codegen"

	// DefaultFormatter is the formatter command; the target path is appended
	DefaultFormatter = "ruff check --fix"

	// HeaderFlag is the generator flag carrying the file header
	HeaderFlag = "--custom-file-header"

	// DefaultHeader is injected when the source args do not set HeaderFlag
	DefaultHeader = "# lithic-schemagen"

	// DefaultPackageMarker is created in every generated output directory
	DefaultPackageMarker = "__init__.py"

	// DefaultGitHost is used to expand bare owner/name repository identifiers
	DefaultGitHost = "github.com"
)

// Path constants
const (
	// DefaultSettingsName is the settings file searched in $HOME and the working directory
	DefaultSettingsName = ".lithic"

	// EnvPrefix prefixes every environment variable read through viper
	EnvPrefix = "LITHIC"

	// ScratchPrefix prefixes every scratch directory created by a run
	ScratchPrefix = "lithic-"

	// StagingSuffix marks an output tree being assembled before it is renamed into place
	StagingSuffix = ".lithic-staging"
)

// Format constants
const (
	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)
