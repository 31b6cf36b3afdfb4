package config

import "os"

// applyEnvOverrides replaces file values with FLOWX_* variables that are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLOWX_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("FLOWX_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("FLOWX_WS_URL"); v != "" {
		cfg.WebSocket.URL = v
	}
	if v := os.Getenv("FLOWX_PERSIST_DRIVER"); v != "" {
		cfg.Persistence.Driver = v
	}
	if v := os.Getenv("FLOWX_PERSIST_DSN"); v != "" {
		cfg.Persistence.DSN = v
	}
	if v := os.Getenv("FLOWX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
