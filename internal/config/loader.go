package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thruflo/rain/internal/logging"
)

// Default values for Config.
const (
	DefaultServerURL     = "http://localhost:6000/api/"
	DefaultSyncInterval  = time.Second
	DefaultSyncTimeout   = 10 * time.Second
	DefaultUITick        = 50 * time.Millisecond
	DefaultToastTTL      = 4 * time.Second
	DefaultCacheSize     = 4096
	DefaultLogLevel      = "warn"
	DefaultServerAddr    = "localhost:6000"
	maxDecoderCacheSize  = 1 << 20
	minUITick            = time.Millisecond
	EnvToken             = "RAIN_TOKEN"
	EnvServerURL         = "RAIN_SERVER"
	configDirName        = "rain"
	configFileName       = "config.yaml"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ServerURL: DefaultServerURL,
		Sync: Sync{
			Interval: DefaultSyncInterval,
			Timeout:  DefaultSyncTimeout,
		},
		UI: UI{
			Tick:     DefaultUITick,
			ToastTTL: DefaultToastTTL,
		},
		Decoder: Decoder{CacheSize: DefaultCacheSize},
		Log:     Log{Level: DefaultLogLevel},
		Server:  Server{Addr: DefaultServerAddr},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/rain/config.yaml, falling back to
// the platform user config directory.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, configDirName, configFileName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Load reads and parses the config file at path. A missing file yields the
// default config. Defaults are applied for any missing fields, then
// environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		logging.Debug("no config file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ApplyEnv(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides the token and server URL from the environment.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.ServerURL = v
	}
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "server_url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "server_url", Message: "scheme must be http or https"}
	}
	if cfg.Sync.Interval <= 0 {
		return ValidationError{Field: "sync.interval", Message: "must be positive"}
	}
	if cfg.Sync.Timeout <= 0 {
		return ValidationError{Field: "sync.timeout", Message: "must be positive"}
	}
	if cfg.UI.Tick < minUITick {
		return ValidationError{Field: "ui.tick", Message: "must be at least 1ms"}
	}
	if cfg.UI.ToastTTL <= 0 {
		return ValidationError{Field: "ui.toast_ttl", Message: "must be positive"}
	}
	if cfg.Decoder.CacheSize < 0 || cfg.Decoder.CacheSize > maxDecoderCacheSize {
		return ValidationError{Field: "decoder.cache_size", Message: fmt.Sprintf("must be between 0 and %d", maxDecoderCacheSize)}
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return ValidationError{Field: "log.level", Message: "must be one of debug, info, warn, error"}
	}
	if cfg.Server.Addr == "" {
		return ValidationError{Field: "server.addr", Message: "required field is empty"}
	}
	return nil
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
