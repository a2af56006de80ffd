package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
	pkgsync "github.com/agentstation/lithic/pkg/sync"
)

// Config holds the application configuration loaded from .env files,
// LITHIC_ environment variables and the optional .lithic.yaml settings file.
// Command-line flags are applied on top by the root command.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// SettingsFile is the settings file that was read, if any.
	SettingsFile string

	// Run. Mode is "verify" or "publish"; Generate forces publish.
	Generate bool
	Mode     string
	Root     string
	Jobs     int
	Timeout  time.Duration

	// Collaborators
	Generator     string
	Formatter     string
	Header        string
	PackageMarker string
	ScratchDir    string

	// Git
	GitHost    string
	GitToken   string
	CloneDepth int

	// Per-step timeouts
	CloneTimeout    time.Duration
	GenerateTimeout time.Duration
	FormatTimeout   time.Duration

	// Logging configuration. LogLevel is the --log-level flag; EnvLogLevel
	// comes from settings or the environment and ranks below -v/-q.
	LogLevel    string
	EnvLogLevel string
	LogFormat   string
	LogOutput   string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. LITHIC_ environment variables
// 3. .env files
// 4. Settings file (./.lithic.yaml or ~/.lithic.yaml, or $LITHIC_SETTINGS)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("settings"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError(file, "reading settings", err)
		}
	} else {
		v.SetConfigName(constants.DefaultSettingsName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError(v.ConfigFileUsed(), "reading settings", err)
			}
		}
	}

	config := &Config{
		SettingsFile: v.ConfigFileUsed(),

		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),

		Mode:    v.GetString("mode"),
		Root:    v.GetString("root"),
		Jobs:    v.GetInt("jobs"),
		Timeout: v.GetDuration("timeout"),

		Generator:     v.GetString("generator"),
		Formatter:     v.GetString("formatter"),
		Header:        v.GetString("header"),
		PackageMarker: v.GetString("package_marker"),
		ScratchDir:    v.GetString("scratch_dir"),

		GitHost:    v.GetString("git_host"),
		GitToken:   v.GetString("git_token"),
		CloneDepth: v.GetInt("clone_depth"),

		CloneTimeout:    v.GetDuration("clone_timeout"),
		GenerateTimeout: v.GetDuration("generate_timeout"),
		FormatTimeout:   v.GetDuration("format_timeout"),

		EnvLogLevel: v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		LogOutput:   v.GetString("log_output"),
	}
	if config.EnvLogLevel == "" {
		config.EnvLogLevel = os.Getenv("LOG_LEVEL")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", pkgsync.ModeVerify.String())
	v.SetDefault("root", ".")
	v.SetDefault("jobs", constants.DefaultJobs)
	v.SetDefault("timeout", constants.SyncTimeout)
	v.SetDefault("generator", constants.DefaultGenerator)
	v.SetDefault("formatter", constants.DefaultFormatter)
	v.SetDefault("header", constants.DefaultHeader)
	v.SetDefault("package_marker", constants.DefaultPackageMarker)
	v.SetDefault("git_host", constants.DefaultGitHost)
	v.SetDefault("clone_timeout", constants.CloneTimeout)
	v.SetDefault("generate_timeout", constants.GenerateTimeout)
	v.SetDefault("format_timeout", constants.FormatTimeout)
	v.SetDefault("log_format", getEnvOrDefault("LOG_FORMAT", "auto"))
	v.SetDefault("log_output", getEnvOrDefault("LOG_OUTPUT", "stderr"))
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set are left alone, so the first file to set a key wins.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
