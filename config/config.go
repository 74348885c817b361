// Package config loads the console configuration from YAML or TOML with
// ${VAR} environment expansion, then applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 30 * time.Second

	BackendBbolt  = "bbolt"
	BackendMemory = "memory"
	BackendRedis  = "redis"

	EnvConfig   = "ADCONSOLE_CONFIG"
	EnvAPIURL   = "ADCONSOLE_API_URL"
	EnvLanguage = "ADCONSOLE_LANG"

	appDir = "adconsole"
)

// Config is the complete console configuration.
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	UI      UIConfig      `yaml:"ui" toml:"ui"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// StorageConfig selects where the bearer token is persisted.
type StorageConfig struct {
	Backend   string `yaml:"backend" toml:"backend"`
	Path      string `yaml:"path" toml:"path"`
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" toml:"redis_db"`
	KeyFile   string `yaml:"key_file" toml:"key_file"`
}

// UIConfig controls operator-facing output.
type UIConfig struct {
	Language string `yaml:"language" toml:"language"`
	Color    *bool  `yaml:"color" toml:"color"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dir := Dir()
	return &Config{
		API: APIConfig{BaseURL: DefaultBaseURL, Timeout: DefaultTimeout},
		Storage: StorageConfig{
			Backend: BackendBbolt,
			Path:    filepath.Join(dir, "session.db"),
			KeyFile: filepath.Join(dir, "device.key"),
		},
		UI:      UIConfig{Language: "en"},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, appDir)
	}
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, appDir)
	}
	return filepath.Join(os.TempDir(), appDir)
}

// DefaultPath is the config file looked for when none is named.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the file at path over the defaults. An empty path means
// $ADCONSOLE_CONFIG or DefaultPath; a missing default file is not an error.
// Environment overrides are applied and the result validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, expandEnvVars(string(data)), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func decode(path, data string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(data, cfg)
		return err
	}
	return yaml.Unmarshal([]byte(data), cfg)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or the
// empty string when unset.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	if cfg.API.TimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(cfg.API.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
	}
	cfg.API.Timeout = d
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.UI.Language = v
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if c.API.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	switch c.Storage.Backend {
	case BackendBbolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the bbolt backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != BackendMemory && c.Storage.KeyFile == "" {
		return fmt.Errorf("storage.key_file is required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// ColorEnabled reports whether colored output is wanted; unset means yes.
func (c *Config) ColorEnabled() bool {
	return c.UI.Color == nil || *c.UI.Color
}
