package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Locale   LocaleConfig   `toml:"locale"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int    `toml:"port"`
	APIToken    string `toml:"api_token"`
	DisableAuth bool   `toml:"disable_auth"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CacheConfig holds the in-process value cache settings.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	TTLSeconds int    `toml:"ttl_seconds"`
	Prefix     string `toml:"prefix"`
}

// LocaleConfig holds translation locale settings.
type LocaleConfig struct {
	Default  string `toml:"default"`
	Fallback string `toml:"fallback"`
}

const defaultConfigContent = `[server]
port = 8080
api_token = ""                    # Bearer token for the API (or set SETTINGSKIT_API_TOKEN env var)
disable_auth = false              # Set true for local development only

[database]
path = "settingskit.db"

[cache]
enabled = true
ttl_seconds = 3600
prefix = "settingskit"

[locale]
default = "en"
fallback = "en"
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("cache", "ttl_seconds") {
		if cfg.Cache.TTLSeconds < 1 {
			return fmt.Errorf("invalid cache.ttl_seconds %d: must be >= 1", cfg.Cache.TTLSeconds)
		}
	}
	return nil
}

// applyDefaults sets default values for any unset fields. The TOML metadata
// distinguishes "cache.enabled omitted" (defaults to true) from an explicit
// "enabled = false", which a plain bool zero value cannot.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "settingskit.db"
	}
	if !md.IsDefined("cache", "enabled") {
		cfg.Cache.Enabled = true
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 3600
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "settingskit"
	}
	if cfg.Locale.Default == "" {
		cfg.Locale.Default = "en"
	}
	if cfg.Locale.Fallback == "" {
		cfg.Locale.Fallback = "en"
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SETTINGSKIT_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("SETTINGSKIT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	if cfg.Cache.TTLSeconds < 1 {
		return fmt.Errorf("invalid cache.ttl_seconds %d: must be >= 1", cfg.Cache.TTLSeconds)
	}

	if cfg.Server.APIToken == "" && !cfg.Server.DisableAuth {
		slog.Warn("server.api_token is empty: set it in the config file or via SETTINGSKIT_API_TOKEN environment variable")
	}

	return nil
}
