// Package config loads the settings of a FlowX client session from YAML and
// FLOWX_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/cache"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	API         api.Config        `yaml:"api"`
	Auth        AuthConfig        `yaml:"auth"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Cache       cache.Config      `yaml:"cache"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Log         LogConfig         `yaml:"log"`
}

// AuthConfig holds the bearer token sent with every request.
type AuthConfig struct {
	// Token is the bearer token. Prefer FLOWX_TOKEN over writing it to disk.
	Token string `yaml:"token"`
}

// WebSocketConfig controls the notification socket.
type WebSocketConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// Validate checks the URL when one is set.
func (w WebSocketConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.URL, is.URL),
		validation.Field(&w.ReconnectDelay, validation.Min(time.Duration(0))),
	)
}

// Persistence drivers.
const (
	PersistNone     = "none"
	PersistMemory   = "memory"
	PersistSQLite   = "sqlite"
	PersistPostgres = "postgres"
)

// PersistenceConfig selects where store snapshots are written.
type PersistenceConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Codec  string `yaml:"codec"`
}

// Validate checks the driver, codec and DSN combination.
func (p PersistenceConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.In(PersistNone, PersistMemory, PersistSQLite, PersistPostgres)),
		validation.Field(&p.DSN, validation.When(p.Driver == PersistSQLite || p.Driver == PersistPostgres, validation.Required)),
		validation.Field(&p.Codec, validation.In("json", "msgpack")),
	)
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate accepts the known levels and formats.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns a configuration that only lacks the backend URL and token.
func Default() Config {
	return Config{
		API:         api.Config{Timeout: api.DefaultTimeout, UserAgent: "flowx-go"},
		WebSocket:   WebSocketConfig{ReconnectDelay: 5 * time.Second},
		Cache:       cache.DefaultConfig(),
		Persistence: PersistenceConfig{Driver: PersistNone, Codec: "json"},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.API),
		validation.Field(&c.WebSocket),
		validation.Field(&c.Cache),
		validation.Field(&c.Persistence),
		validation.Field(&c.Log),
	)
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDerived completes values that follow from others.
func (c *Config) fillDerived() {
	if c.WebSocket.URL == "" && c.API.BaseURL != "" {
		base := strings.TrimRight(c.API.BaseURL, "/")
		switch {
		case strings.HasPrefix(base, "https://"):
			c.WebSocket.URL = "wss://" + strings.TrimPrefix(base, "https://") + "/ws/notifications"
		case strings.HasPrefix(base, "http://"):
			c.WebSocket.URL = "ws://" + strings.TrimPrefix(base, "http://") + "/ws/notifications"
		}
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = PersistNone
	}
}
