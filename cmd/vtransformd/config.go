package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"vtransform/internal/ipc"
	"vtransform/internal/store"
)

// Config is the top-level configuration for the vtransformd daemon.
//
// YAML is the primary format; files ending in .toml are decoded with the same
// field names. Keep defaults and validation centralized so the rest of the
// code can assume a well-formed config.
type Config struct {
	// Keyboard input from evdev devices
	Input InputConfig `yaml:"input" toml:"input"`

	// Where options are persisted
	Store StoreConfig `yaml:"store" toml:"store"`

	// HTTP API and style websocket
	HTTP HTTPConfig `yaml:"http" toml:"http"`

	// Control socket
	IPC IPCConfig `yaml:"ipc" toml:"ipc"`

	// Websocket hub buffers
	Hub HubFileConfig `yaml:"hub" toml:"hub"`

	// Logging
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

type InputConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Devices []string `yaml:"devices,omitempty" toml:"devices,omitempty"`
}

// Store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

type StoreConfig struct {
	Backend string           `yaml:"backend" toml:"backend"`
	File    FileStoreConfig  `yaml:"file" toml:"file"`
	Redis   RedisStoreConfig `yaml:"redis" toml:"redis"`
}

type FileStoreConfig struct {
	Path     string `yaml:"path" toml:"path"`
	SettleMS int    `yaml:"settle_ms" toml:"settle_ms"` // quiet period before an outside edit is reported; 0 uses the store default
}

type RedisStoreConfig struct {
	Addr         string `yaml:"addr" toml:"addr"`
	Password     string `yaml:"password,omitempty" toml:"password,omitempty"`
	PasswordFile string `yaml:"password_file,omitempty" toml:"password_file,omitempty"`
	DB           int    `yaml:"db" toml:"db"`
	Key          string `yaml:"key" toml:"key"`
	Channel      string `yaml:"channel" toml:"channel"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen" toml:"listen"` // empty disables the HTTP API
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path" toml:"socket_path"`
}

type HubFileConfig struct {
	SendBuf      int `yaml:"send_buf" toml:"send_buf"`
	BroadcastBuf int `yaml:"broadcast_buf" toml:"broadcast_buf"`
}

// Log formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatPretty = "pretty"
)

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Enabled: false,
		},
		Store: StoreConfig{
			Backend: StoreBackendFile,
			File: FileStoreConfig{
				Path:     "~/.config/vtransform/options.json",
				SettleMS: 50,
			},
			Redis: RedisStoreConfig{
				Addr:    "127.0.0.1:6379",
				Key:     store.DefaultRedisKey,
				Channel: store.DefaultRedisChannel,
			},
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:8765",
		},
		IPC: IPCConfig{
			SocketPath: ipc.DefaultSocketPath,
		},
		Hub: HubFileConfig{
			SendBuf:      32,
			BroadcastBuf: 128,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// LoadConfigFile reads and parses a config file over the defaults.
//
// Unknown fields are rejected in both formats to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return decodeTOML(b)
	}
	return decodeYAML(b)
}

func decodeYAML(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

func decodeTOML(b []byte) (Config, error) {
	cfg := DefaultConfig()

	md, err := toml.Decode(string(b), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("decode config toml: unknown fields: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// FlagOverrides holds values from flags that were set explicitly. A nil
// pointer leaves the config untouched; a non-nil one is applied even when it
// is the zero value.
type FlagOverrides struct {
	InputDevice *string

	StoreBackend *string
	StorePath    *string
	RedisAddr    *string

	HTTPListen    *string
	IPCSocketPath *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		cfg.Input.Enabled = *o.InputDevice != ""
		cfg.Input.Devices = nil
		if *o.InputDevice != "" {
			cfg.Input.Devices = strings.Split(*o.InputDevice, ",")
		}
	}

	if o.StoreBackend != nil {
		cfg.Store.Backend = *o.StoreBackend
	}
	if o.StorePath != nil {
		cfg.Store.File.Path = *o.StorePath
	}
	if o.RedisAddr != nil {
		cfg.Store.Redis.Addr = *o.RedisAddr
	}

	if o.HTTPListen != nil {
		cfg.HTTP.Listen = *o.HTTPListen
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Input
	if c.Input.Enabled {
		if len(c.Input.Devices) == 0 {
			return errors.New("input.devices must not be empty when input.enabled is true")
		}
		for i, dev := range c.Input.Devices {
			if strings.TrimSpace(dev) == "" {
				return fmt.Errorf("input.devices[%d] is empty", i)
			}
		}
	}

	// Store
	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.File.Path == "" {
			return errors.New("store.file.path must not be empty")
		}
		if c.Store.File.SettleMS < 0 {
			return errors.New("store.file.settle_ms must be >= 0")
		}
	case StoreBackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr must not be empty")
		}
		if c.Store.Redis.DB < 0 {
			return errors.New("store.redis.db must be >= 0")
		}
		if c.Store.Redis.Password != "" && c.Store.Redis.PasswordFile != "" {
			return errors.New("store.redis.password and store.redis.password_file are mutually exclusive")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("store.backend must be %q, %q or %q", StoreBackendFile, StoreBackendRedis, StoreBackendMemory)
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Hub
	if c.Hub.SendBuf < 0 || c.Hub.BroadcastBuf < 0 {
		return errors.New("hub buffers must be >= 0")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case LogFormatText, LogFormatJSON, LogFormatPretty:
	default:
		return fmt.Errorf("logging.format must be %q, %q or %q", LogFormatText, LogFormatJSON, LogFormatPretty)
	}

	return nil
}

// Settle is the file store's event coalescing window.
func (c FileStoreConfig) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// ToRedisConfig resolves the password file and converts to the store config.
func (c RedisStoreConfig) ToRedisConfig() (store.RedisConfig, error) {
	pw := c.Password
	if c.PasswordFile != "" {
		b, err := os.ReadFile(ExpandPath(c.PasswordFile))
		if err != nil {
			return store.RedisConfig{}, fmt.Errorf("read redis password file: %w", err)
		}
		pw = strings.TrimSpace(string(b))
	}
	return store.RedisConfig{
		Addr:     c.Addr,
		Password: pw,
		DB:       c.DB,
		Key:      c.Key,
		Channel:  c.Channel,
	}, nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
