package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk form. Durations are strings and every scalar is
// optional so a partial file only overrides what it names.
type fileConfig struct {
	API      fileAPIConfig     `json:"api" toml:"api"`
	Listing  fileListingConfig `json:"listing" toml:"listing"`
	UI       fileUIConfig      `json:"ui" toml:"ui"`
	Features FeaturesConfig    `json:"features,omitempty" toml:"features,omitempty"`
}

type fileAPIConfig struct {
	Protocol    string   `json:"protocol,omitempty" toml:"protocol,omitempty"`
	Host        string   `json:"host,omitempty" toml:"host,omitempty"`
	Port        *int     `json:"port,omitempty" toml:"port,omitempty"`
	PathPrefix  *string  `json:"pathPrefix,omitempty" toml:"pathPrefix,omitempty"`
	Timeout     string   `json:"timeout,omitempty" toml:"timeout,omitempty"`
	MaxInFlight *int     `json:"maxInFlight,omitempty" toml:"maxInFlight,omitempty"`
	RateLimit   *float64 `json:"rateLimit,omitempty" toml:"rateLimit,omitempty"`
	RateBurst   *int     `json:"rateBurst,omitempty" toml:"rateBurst,omitempty"`
	CacheTTL    string   `json:"cacheTTL,omitempty" toml:"cacheTTL,omitempty"`
	CacheSize   *int     `json:"cacheSize,omitempty" toml:"cacheSize,omitempty"`
}

type fileListingConfig struct {
	FirstLimit       *int `json:"firstLimit,omitempty" toml:"firstLimit,omitempty"`
	Threshold        *int `json:"threshold,omitempty" toml:"threshold,omitempty"`
	MinimumBatchSize *int `json:"minimumBatchSize,omitempty" toml:"minimumBatchSize,omitempty"`
}

type fileUIConfig struct {
	ShowIndex *bool  `json:"showIndex,omitempty" toml:"showIndex,omitempty"`
	Theme     string `json:"theme,omitempty" toml:"theme,omitempty"`
}

// toFileConfig converts Config to the serializable format.
func toFileConfig(cfg *Config) fileConfig {
	return fileConfig{
		API: fileAPIConfig{
			Protocol:    cfg.API.Protocol,
			Host:        cfg.API.Host,
			Port:        &cfg.API.Port,
			PathPrefix:  &cfg.API.PathPrefix,
			Timeout:     cfg.API.Timeout.String(),
			MaxInFlight: &cfg.API.MaxInFlight,
			RateLimit:   &cfg.API.RateLimit,
			RateBurst:   &cfg.API.RateBurst,
			CacheTTL:    cfg.API.CacheTTL.String(),
			CacheSize:   &cfg.API.CacheSize,
		},
		Listing: fileListingConfig{
			FirstLimit:       &cfg.Listing.FirstLimit,
			Threshold:        &cfg.Listing.Threshold,
			MinimumBatchSize: &cfg.Listing.MinimumBatchSize,
		},
		UI: fileUIConfig{
			ShowIndex: &cfg.UI.ShowIndex,
			Theme:     cfg.UI.Theme,
		},
		Features: cfg.Features,
	}
}

// Save writes the config to ~/.config/filescope/config.json
func Save(cfg *Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path. A .toml extension selects TOML.
func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fc := toFileConfig(cfg)
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(fc)
	} else {
		data, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
