package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Provider ProviderConfig `yaml:"provider"`
	Git      GitConfig      `yaml:"git"`
	State    StateConfig    `yaml:"state"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`

	// ShutdownTimeoutSeconds bounds how long in-flight polls may run after
	// a shutdown signal.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" validate:"gte=0"`
}

// ShutdownTimeout returns the graceful shutdown period, 30s when unset.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	if s.ShutdownTimeoutSeconds == 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// ProviderConfig selects the hosting provider and holds the defaults applied
// to every material polled through it.
type ProviderConfig struct {
	Name string `yaml:"name" validate:"required,oneof=git github gitlab bitbucket stash gerrit"`

	// PopulateDetails controls whether revisions are enriched with pull
	// request metadata from the provider's API.
	PopulateDetails bool `yaml:"populate_details"`

	APIURL      string `yaml:"api_url" validate:"omitempty,url"`
	ProjectName string `yaml:"project_name"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// GitConfig holds settings for the git command runner.
type GitConfig struct {
	CommandTimeoutSeconds int    `yaml:"command_timeout_seconds" validate:"gt=0"`
	WorkDir               string `yaml:"work_dir"`
	Submodules            bool   `yaml:"submodules"`

	// RetentionDays removes working folders under WorkDir that have not
	// been polled for this many days. Zero keeps them forever.
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`
}

// StateConfig holds the location of the local scm-data store used by the
// poll command.
type StateConfig struct {
	Path string `yaml:"path"`
}

// CommandTimeout returns the per-command timeout for git invocations.
func (g GitConfig) CommandTimeout() time.Duration {
	return time.Duration(g.CommandTimeoutSeconds) * time.Second
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var validate = validator.New()

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8153,
			ShutdownTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Provider: ProviderConfig{
			Name:            "git",
			PopulateDetails: true,
		},
		Git: GitConfig{
			CommandTimeoutSeconds: 60,
			WorkDir:               "/var/lib/scmpoll/work",
			Submodules:            true,
		},
		State: StateConfig{
			Path: "/var/lib/scmpoll/state.db",
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
