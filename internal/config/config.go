// Package config loads the client configuration from an optional YAML file,
// a .env file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when nothing else is configured.
const (
	DefaultBackendURL      = "http://127.0.0.1:8000"
	DefaultListenAddr      = ":8080"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
)

// Logging controls the logger construction.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full client configuration.
type Config struct {
	// BackendURL is the Smolville backend base URL.
	BackendURL string `yaml:"backend_url"`
	// ListenAddr is the local HTTP API bind address.
	ListenAddr string `yaml:"listen_addr"`
	// BotToken validates Telegram initData signatures. Empty disables the
	// WebApp runtime; the client then runs with the guest identity.
	BotToken string `yaml:"bot_token"`
	// InitData is the raw Telegram WebApp init payload, normally passed via
	// environment by the hosting shell.
	InitData string `yaml:"-"`
	// RequestTimeout bounds every backend request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RefreshInterval is the store re-sync period. Zero disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Logging         Logging       `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL:      DefaultBackendURL,
		ListenAddr:      DefaultListenAddr,
		RequestTimeout:  DefaultRequestTimeout,
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// SMOLVILLE_CONFIG (if any), then .env, then environment variables.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("SMOLVILLE_CONFIG")); path != "" {
		loaded, err := LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.applyEnv()

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("config: backend URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return cfg, nil
}

// LoadFromPath reads a YAML configuration file on top of the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_BACKEND_URL")); v != "" {
		c.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_LISTEN_ADDR")); v != "" {
		c.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_BOT_TOKEN")); v != "" {
		c.BotToken = v
	}
	if v := os.Getenv("SMOLVILLE_INIT_DATA"); v != "" {
		c.InitData = v
	}
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_REQUEST_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_REFRESH_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.RefreshInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("SMOLVILLE_LOG_FORMAT")); v != "" {
		c.Logging.Format = v
	}
}
