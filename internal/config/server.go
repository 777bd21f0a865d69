package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before mapping them to
// config keys: NETPONG_SERVER_PORT -> server.port.
const EnvPrefix = "NETPONG_"

// DefaultServerConfigPaths lists where `netpong serve` looks for a config
// file when --config is not given. The first file found wins.
var DefaultServerConfigPaths = []string{
	"netpong.yaml",
	"netpong.yml",
	"/etc/netpong/netpong.yaml",
}

// ServerConfig is the relay process configuration.
type ServerConfig struct {
	HTTP     HTTPConfig     `koanf:"server"`
	Match    MatchConfig    `koanf:"match"`
	Database DatabaseConfig `koanf:"database"`
	SSH      SSHConfig      `koanf:"ssh"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// HTTPConfig controls the chi router and its listener.
type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	APIRateLimit    int           `koanf:"api_rate_limit" validate:"gte=1"`
	APIRateWindow   time.Duration `koanf:"api_rate_window" validate:"gt=0"`
}

// MatchConfig controls matchmaking and per-connection limits.
type MatchConfig struct {
	SearchTimeout   time.Duration `koanf:"search_timeout" validate:"gt=0"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`
	SendBuffer      int           `koanf:"send_buffer" validate:"gte=1"`
	InputRate       float64       `koanf:"input_rate" validate:"gt=0"`
	InputBurst      int           `koanf:"input_burst" validate:"gte=1"`
	MaxMessageBytes int64         `koanf:"max_message_bytes" validate:"gte=512"`
}

// DatabaseConfig points at the sqlite results store.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// SSHConfig controls `netpong ssh`.
type SSHConfig struct {
	Host    string `koanf:"host"`
	Port    int    `koanf:"port" validate:"gte=1,lte=65535"`
	KeyPath string `koanf:"key_path" validate:"required"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Addr returns the listen address of the HTTP server.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the listen address of the SSH server.
func (c SSHConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultServerConfig returns the defaults applied before file and env layers.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTP: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			APIRateLimit:    60,
			APIRateWindow:   time.Minute,
		},
		Match: MatchConfig{
			SearchTimeout:   60 * time.Second,
			CleanupInterval: 5 * time.Second,
			SendBuffer:      256,
			InputRate:       120,
			InputBurst:      60,
			MaxMessageBytes: 64 * 1024,
		},
		Database: DatabaseConfig{
			Path: "~/.netpong/netpong.db",
		},
		SSH: SSHConfig{
			Host:    "0.0.0.0",
			Port:    23234,
			KeyPath: ".ssh/netpong_ed25519",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadServer layers struct defaults, an optional yaml file and NETPONG_*
// environment variables, then validates the result.
func LoadServer(path string) (*ServerConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultServerConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	if path == "" {
		path = findServerConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment: %w", err)
	}

	cfg := &ServerConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section's constraints.
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid server config: %w", err)
	}
	return nil
}

// envKey maps NETPONG_MATCH_SEARCH_TIMEOUT to match.search_timeout.
// Only the first underscore separates the section from the key.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func findServerConfigFile() string {
	for _, p := range DefaultServerConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
