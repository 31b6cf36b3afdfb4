package cache

import (
	"github.com/goliatone/go-flowx/internal/cacheinfra"
)

// Config is the cache configuration. It aliases the adapter's type so the
// YAML configuration can be decoded straight into it.
type Config = cacheinfra.Config

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// ConfigError reports an invalid configuration field.
type ConfigError = cacheinfra.ConfigError

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.NewSturdycService(cfg)
}
