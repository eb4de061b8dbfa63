package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != DefaultBackendURL {
		t.Fatalf("got backend %q", cfg.BackendURL)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("got listen addr %q", cfg.ListenAddr)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("got timeout %v", cfg.RequestTimeout)
	}
	if cfg.RefreshInterval != DefaultRefreshInterval {
		t.Fatalf("got refresh interval %v", cfg.RefreshInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SMOLVILLE_BACKEND_URL", "https://hundredtries.ru/smolville/server")
	t.Setenv("SMOLVILLE_LISTEN_ADDR", ":9090")
	t.Setenv("SMOLVILLE_BOT_TOKEN", "123456:TEST-TOKEN")
	t.Setenv("SMOLVILLE_REQUEST_TIMEOUT", "3s")
	t.Setenv("SMOLVILLE_REFRESH_INTERVAL", "0s")
	t.Setenv("SMOLVILLE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://hundredtries.ru/smolville/server" {
		t.Fatalf("got backend %q", cfg.BackendURL)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("got listen addr %q", cfg.ListenAddr)
	}
	if cfg.BotToken != "123456:TEST-TOKEN" {
		t.Fatalf("got bot token %q", cfg.BotToken)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("got timeout %v", cfg.RequestTimeout)
	}
	if cfg.RefreshInterval != 0 {
		t.Fatalf("refresh interval must allow opt-out, got %v", cfg.RefreshInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("got log level %q", cfg.Logging.Level)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `backend_url: https://hundredtries.ru/smolville/server
listen_addr: ":7070"
request_timeout: 5s
logging:
  level: warn
  format: console
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SMOLVILLE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://hundredtries.ru/smolville/server" {
		t.Fatalf("got backend %q", cfg.BackendURL)
	}
	if cfg.ListenAddr != ":7070" {
		t.Fatalf("got listen addr %q", cfg.ListenAddr)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("got timeout %v", cfg.RequestTimeout)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "console" {
		t.Fatalf("got logging %+v", cfg.Logging)
	}
	// The file omits refresh_interval, so the default survives.
	if cfg.RefreshInterval != DefaultRefreshInterval {
		t.Fatalf("got refresh interval %v", cfg.RefreshInterval)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend_url: http://file.example\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SMOLVILLE_CONFIG", path)
	t.Setenv("SMOLVILLE_BACKEND_URL", "http://env.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://env.example" {
		t.Fatalf("got backend %q, env must win", cfg.BackendURL)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file must be an error")
	}
}
