// Package config loads the client configuration: built-in defaults,
// then the YAML config file, then STRIDE_* environment overrides.
// Command-line flags are applied on top by the CLI layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Data  DataConfig  `mapstructure:"data"`
	Sync  SyncConfig  `mapstructure:"sync"`
	Push  PushConfig  `mapstructure:"push"`
	Spool SpoolConfig `mapstructure:"spool"`
	Log   LogConfig   `mapstructure:"log"`
}

// APIConfig points the transport at the backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DataConfig locates local state.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// SyncConfig tunes the background sync loop.
type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Budget   time.Duration `mapstructure:"budget"`
}

// PushConfig controls the websocket wake-up channel.
type PushConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// SpoolConfig locates the health-sample spool directory.
type SpoolConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig controls log level and the daemon's rotating file.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".stride")
	return Config{
		API:   APIConfig{BaseURL: "https://api.stridehealth.io", Timeout: 30 * time.Second},
		Data:  DataConfig{Dir: base},
		Sync:  SyncConfig{Interval: 15 * time.Minute, Budget: time.Minute},
		Push:  PushConfig{Enabled: false, URL: "wss://api.stridehealth.io/v1/notify"},
		Spool: SpoolConfig{Dir: filepath.Join(base, "spool")},
		Log:   LogConfig{Level: "info"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Default().Data.Dir, "config.yaml")
}

// Load reads the config file and environment overrides on top of the
// defaults. An empty path means the default location, where a missing
// file is fine; an explicit path must exist.
func Load(path string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.token", def.API.Token)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("data.dir", def.Data.Dir)
	v.SetDefault("sync.interval", def.Sync.Interval)
	v.SetDefault("sync.budget", def.Sync.Budget)
	v.SetDefault("push.enabled", def.Push.Enabled)
	v.SetDefault("push.url", def.Push.URL)
	v.SetDefault("spool.dir", def.Spool.Dir)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	v.SetEnvPrefix("STRIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(def.Data.Dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the constraints the rest of the client relies on.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync.interval must be at least 1m, got %s", c.Sync.Interval)
	}
	if c.Sync.Budget <= 0 {
		return fmt.Errorf("sync.budget must be positive, got %s", c.Sync.Budget)
	}
	if c.Push.Enabled && c.Push.URL == "" {
		return fmt.Errorf("push.url must be set when push is enabled")
	}
	return nil
}

// DBPath returns the SQLite database location under the data dir.
func (c Config) DBPath() string {
	return filepath.Join(c.Data.Dir, "stride.db")
}

// LogPath returns the daemon's rotating log file location.
func (c Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Data.Dir, "stride.log")
}

// Render returns the effective configuration as YAML, with the API
// token redacted.
func (c Config) Render() ([]byte, error) {
	token := ""
	if c.API.Token != "" {
		token = "(set)"
	}
	out, err := yaml.Marshal(map[string]any{
		"api": map[string]any{
			"base_url": c.API.BaseURL,
			"token":    token,
			"timeout":  c.API.Timeout.String(),
		},
		"data": map[string]any{"dir": c.Data.Dir},
		"sync": map[string]any{
			"interval": c.Sync.Interval.String(),
			"budget":   c.Sync.Budget.String(),
		},
		"push": map[string]any{
			"enabled": c.Push.Enabled,
			"url":     c.Push.URL,
		},
		"spool": map[string]any{"dir": c.Spool.Dir},
		"log": map[string]any{
			"level": c.Log.Level,
			"file":  c.Log.File,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

const fileTemplate = `# Stride client configuration.
# Every value can be overridden with a STRIDE_* environment variable,
# for example STRIDE_API_TOKEN.

api:
  base_url: %q
  token: %q
  timeout: %s

data:
  dir: %q

sync:
  interval: %s
  budget: %s

push:
  enabled: %t
  url: %q

spool:
  dir: %q

log:
  level: %q
  file: %q
`

// Save writes cfg to path atomically (temp file, then rename). The
// file is created with 0600 because it may hold the API token.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data := fmt.Sprintf(fileTemplate,
		cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout,
		cfg.Data.Dir,
		cfg.Sync.Interval, cfg.Sync.Budget,
		cfg.Push.Enabled, cfg.Push.URL,
		cfg.Spool.Dir,
		cfg.Log.Level, cfg.Log.File)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
