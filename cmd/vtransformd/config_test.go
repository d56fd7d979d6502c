package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}

func TestLoadConfigFile_YAMLOverDefaults(t *testing.T) {
	p := writeConfig(t, "vtransformd.yaml", `
store:
  backend: redis
  redis:
    addr: 10.0.0.5:6379
    db: 2
logging:
  level: debug
  format: pretty
`)

	cfg, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != StoreBackendRedis || cfg.Store.Redis.Addr != "10.0.0.5:6379" || cfg.Store.Redis.DB != 2 {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	// Untouched keys keep their defaults.
	if cfg.Store.Redis.Key != DefaultConfig().Store.Redis.Key {
		t.Fatalf("expected default redis key, got %q", cfg.Store.Redis.Key)
	}
	if cfg.HTTP.Listen != DefaultConfig().HTTP.Listen {
		t.Fatalf("expected default listen address, got %q", cfg.HTTP.Listen)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
}

func TestLoadConfigFile_TOML(t *testing.T) {
	p := writeConfig(t, "vtransformd.toml", `
[input]
enabled = true
devices = ["/dev/input/event3", "/dev/input/event4"]

[http]
listen = ":9000"
`)

	cfg, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Input.Enabled || len(cfg.Input.Devices) != 2 {
		t.Fatalf("unexpected input config: %+v", cfg.Input)
	}
	if cfg.HTTP.Listen != ":9000" {
		t.Fatalf("expected listen :9000, got %q", cfg.HTTP.Listen)
	}
}

func TestLoadConfigFile_RejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "c.yaml", "htp:\n  listen: \":1\"\n"},
		{"toml", "c.toml", "[http]\nlisten = \":1\"\nport = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatalf("expected unknown field to be rejected")
			}
		})
	}
}

func TestLoadConfigFile_RejectsTrailingYAMLDocument(t *testing.T) {
	p := writeConfig(t, "c.yaml", "logging:\n  level: info\n---\nlogging:\n  level: debug\n")
	_, err := LoadConfigFile(p)
	if err == nil || !strings.Contains(err.Error(), "trailing document") {
		t.Fatalf("expected trailing document error, got %v", err)
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	dev := "/dev/input/event3,/dev/input/event7"
	empty := ""
	memory := StoreBackendMemory

	FlagOverrides{InputDevice: &dev, HTTPListen: &empty, StoreBackend: &memory}.Apply(&cfg)

	if !cfg.Input.Enabled || len(cfg.Input.Devices) != 2 || cfg.Input.Devices[1] != "/dev/input/event7" {
		t.Fatalf("unexpected input config: %+v", cfg.Input)
	}
	if cfg.HTTP.Listen != "" {
		t.Fatalf("zero-valued override must still apply, got %q", cfg.HTTP.Listen)
	}
	if cfg.Store.Backend != StoreBackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.IPC.SocketPath != DefaultConfig().IPC.SocketPath {
		t.Fatalf("unset overrides must leave values alone")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"input without devices", func(c *Config) { c.Input.Enabled = true }, "input.devices"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "s3" }, "store.backend"},
		{"empty file path", func(c *Config) { c.Store.File.Path = "" }, "store.file.path"},
		{"negative settle", func(c *Config) { c.Store.File.SettleMS = -1 }, "store.file.settle_ms"},
		{"redis without addr", func(c *Config) { c.Store.Backend = StoreBackendRedis; c.Store.Redis.Addr = "" }, "store.redis.addr"},
		{"both passwords", func(c *Config) {
			c.Store.Backend = StoreBackendRedis
			c.Store.Redis.Password = "a"
			c.Store.Redis.PasswordFile = "/b"
		}, "mutually exclusive"},
		{"empty socket", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRedisStoreConfig_PasswordFile(t *testing.T) {
	p := writeConfig(t, "redis.pw", "s3cret\n")
	rc, err := RedisStoreConfig{Addr: "x:1", PasswordFile: p}.ToRedisConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Password != "s3cret" {
		t.Fatalf("expected trimmed password, got %q", rc.Password)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x/options.json"); got != filepath.Join(home, "x/options.json") {
		t.Fatalf("got %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute paths must be unchanged, got %q", got)
	}
}
