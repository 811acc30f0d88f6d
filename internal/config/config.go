// Package config loads, validates and persists bulkport settings.
//
// Settings come from ~/.bulkport/config.yaml (BULKPORT_HOME moves the directory),
// optionally overlaid by a project-local .bulkport/config.yaml, and finally by
// BULKPORT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultConcurrency   = 5
	DefaultRetryCount    = 3
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultAPITimeout    = 30 * time.Second
	DefaultOutputFormat  = "table"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultJournalTTLSec = 7 * 24 * 3600

	MaxConcurrency = 100
	MaxRetryCount  = 10

	configFileName = "config.yaml"
	outputTypeFile = "file"
)

// Environment variable overrides.
const (
	EnvHome        = "BULKPORT_HOME"
	EnvProjectDir  = "BULKPORT_PROJECT_DIR"
	EnvAPIURL      = "BULKPORT_API_URL"
	EnvToken       = "BULKPORT_TOKEN"
	EnvTenantID    = "BULKPORT_TENANT_ID"
	EnvConcurrency = "BULKPORT_CONCURRENCY"
	EnvRetryCount  = "BULKPORT_RETRY_COUNT"
	EnvLogLevel    = "BULKPORT_LOG_LEVEL"
	EnvLogFormat   = "BULKPORT_LOG_FORMAT"
)

// Config is the full bulkport configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Import  ImportConfig  `yaml:"import"`
	Journal JournalConfig `yaml:"journal"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`

	configPath string
}

// APIConfig locates and authenticates against the backend.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Token    string        `yaml:"token,omitempty"`
	TenantID string        `yaml:"tenant_id,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ImportConfig holds the batch import defaults.
type ImportConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	RetryCount    int           `yaml:"retry_count"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	SkipSucceeded bool          `yaml:"skip_succeeded"`
}

// JournalConfig controls the record of already imported rows.
type JournalConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Directory  string `yaml:"directory,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// OutputConfig holds presentation defaults.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: DefaultAPITimeout,
		},
		Import: ImportConfig{
			Concurrency: DefaultConcurrency,
			RetryCount:  DefaultRetryCount,
			RetryDelay:  DefaultRetryDelay,
		},
		Journal: JournalConfig{
			Enabled:    true,
			TTLSeconds: DefaultJournalTTLSec,
		},
		Output: OutputConfig{
			DefaultFormat: DefaultOutputFormat,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
	if dir, err := GetConfigDir(); err == nil {
		cfg.configPath = filepath.Join(dir, configFileName)
		cfg.Journal.Directory = filepath.Join(dir, "journal")
	}
	return cfg
}

// New returns the defaults, overlaid by the global config file when present and
// then by environment variables. A broken config file is ignored.
func New() *Config {
	cfg := Default()
	if cfg.configPath != "" {
		if _, err := os.Stat(cfg.configPath); err == nil {
			_ = cfg.Load()
		}
	}
	cfg.ApplyEnv()
	return cfg
}

// ConfigPath returns the file Save writes to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes the file Load and Save use.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Load reads the config file over the current values.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", c.configPath, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", c.configPath, err)
	}
	return nil
}

// Save writes the configuration to its config path.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// ApplyEnv applies BULKPORT_* overrides. Unparseable numbers are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv(EnvTenantID); v != "" {
		c.API.TenantID = v
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Import.Concurrency = n
		}
	}
	if v := os.Getenv(EnvRetryCount); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Import.RetryCount = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative, got %s", c.API.Timeout))
	}
	if c.Import.Concurrency < 1 || c.Import.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("import.concurrency must be between 1 and %d, got %d",
			MaxConcurrency, c.Import.Concurrency))
	}
	if c.Import.RetryCount < 1 || c.Import.RetryCount > MaxRetryCount {
		errs = append(errs, fmt.Errorf("import.retry_count must be between 1 and %d, got %d",
			MaxRetryCount, c.Import.RetryCount))
	}
	if c.Import.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("import.retry_delay must not be negative, got %s", c.Import.RetryDelay))
	}
	if c.Journal.Enabled && c.Journal.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("journal.ttl_seconds must be positive, got %d", c.Journal.TTLSeconds))
	}
	switch c.Output.DefaultFormat {
	case "table", "json", "plain":
	default:
		errs = append(errs, fmt.Errorf("output.default_format must be table, json or plain, got %q",
			c.Output.DefaultFormat))
	}
	return errors.Join(errs...)
}
