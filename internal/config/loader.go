package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override the api section. They are read here
// and nowhere else.
const (
	EnvAPIProtocol   = "FILESCOPE_API_PROTOCOL"
	EnvAPIHost       = "FILESCOPE_API_HOST"
	EnvAPIPort       = "FILESCOPE_API_PORT"
	EnvAPIPathPrefix = "FILESCOPE_API_PATH_PREFIX"
)

// ConfigPath returns the default config file location.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "filescope", "config.json")
	}
	return filepath.Join(home, ".config", "filescope", "config.json")
}

// Load reads the default config file, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom is Load for an explicit path. Files ending in .toml are parsed as
// TOML, everything else as JSON.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	path = expandHome(path)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var fc fileConfig
	if isTOML(path) {
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return merge(cfg, fc)
}

// merge copies the values present in fc onto cfg.
func merge(cfg *Config, fc fileConfig) error {
	a := fc.API
	if a.Protocol != "" {
		cfg.API.Protocol = a.Protocol
	}
	if a.Host != "" {
		cfg.API.Host = a.Host
	}
	if a.Port != nil {
		cfg.API.Port = *a.Port
	}
	if a.PathPrefix != nil {
		cfg.API.PathPrefix = *a.PathPrefix
	}
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			return fmt.Errorf("config: api.timeout: %w", err)
		}
		cfg.API.Timeout = d
	}
	if a.MaxInFlight != nil {
		cfg.API.MaxInFlight = *a.MaxInFlight
	}
	if a.RateLimit != nil {
		cfg.API.RateLimit = *a.RateLimit
	}
	if a.RateBurst != nil {
		cfg.API.RateBurst = *a.RateBurst
	}
	if a.CacheTTL != "" {
		d, err := time.ParseDuration(a.CacheTTL)
		if err != nil {
			return fmt.Errorf("config: api.cacheTTL: %w", err)
		}
		cfg.API.CacheTTL = d
	}
	if a.CacheSize != nil {
		cfg.API.CacheSize = *a.CacheSize
	}

	l := fc.Listing
	if l.FirstLimit != nil {
		cfg.Listing.FirstLimit = *l.FirstLimit
	}
	if l.Threshold != nil {
		cfg.Listing.Threshold = *l.Threshold
	}
	if l.MinimumBatchSize != nil {
		cfg.Listing.MinimumBatchSize = *l.MinimumBatchSize
	}

	if fc.UI.ShowIndex != nil {
		cfg.UI.ShowIndex = *fc.UI.ShowIndex
	}
	if fc.UI.Theme != "" {
		cfg.UI.Theme = fc.UI.Theme
	}

	for name, on := range fc.Features.Flags {
		cfg.Features.Flags[name] = on
	}
	return nil
}

// applyEnv overrides the api section from the environment.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIProtocol); ok && v != "" {
		cfg.API.Protocol = v
	}
	if v, ok := lookup(EnvAPIHost); ok && v != "" {
		cfg.API.Host = v
	}
	if v, ok := lookup(EnvAPIPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvAPIPort, err)
		}
		cfg.API.Port = port
	}
	if v, ok := lookup(EnvAPIPathPrefix); ok {
		cfg.API.PathPrefix = v
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
