package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	API      APIConfig      `json:"api"`
	Listing  ListingConfig  `json:"listing"`
	UI       UIConfig       `json:"ui"`
	Features FeaturesConfig `json:"features"`
}

// FeaturesConfig holds feature flag settings.
type FeaturesConfig struct {
	Flags map[string]bool `json:"flags" toml:"flags"`
}

// APIConfig locates the listing endpoint and bounds the load put on it.
type APIConfig struct {
	Protocol    string        `json:"protocol"`   // "http" or "https"
	Host        string        `json:"host"`       // default "localhost"
	Port        int           `json:"port"`       // default 8080
	PathPrefix  string        `json:"pathPrefix"` // prepended to /rest/files
	Timeout     time.Duration `json:"timeout"`
	MaxInFlight int           `json:"maxInFlight"` // concurrent requests
	RateLimit   float64       `json:"rateLimit"`   // requests per second, 0 = unlimited
	RateBurst   int           `json:"rateBurst"`
	CacheTTL    time.Duration `json:"cacheTTL"` // page cache lifetime, 0 = disabled
	CacheSize   int           `json:"cacheSize"`
}

// BaseURL composes the endpoint root, e.g. "http://localhost:8080/admin".
func (a APIConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d%s", a.Protocol, a.Host, a.Port, a.PathPrefix)
}

// ListingConfig tunes how the listing requests rows.
type ListingConfig struct {
	// FirstLimit is the window fetched whenever the search text changes.
	FirstLimit int `json:"firstLimit"`
	// Threshold is how many rows beyond the visible ones are kept loaded.
	Threshold int `json:"threshold"`
	// MinimumBatchSize is the smallest range requested while scrolling.
	MinimumBatchSize int `json:"minimumBatchSize"`
}

// UIConfig configures UI appearance.
type UIConfig struct {
	ShowIndex bool   `json:"showIndex"`
	Theme     string `json:"theme"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Protocol:    "http",
			Host:        "localhost",
			Port:        8080,
			PathPrefix:  "",
			Timeout:     30 * time.Second,
			MaxInFlight: 8,
			RateBurst:   1,
			CacheSize:   256,
		},
		Listing: ListingConfig{
			FirstLimit:       100,
			Threshold:        100,
			MinimumBatchSize: 10,
		},
		UI: UIConfig{
			ShowIndex: true,
			Theme:     "default",
		},
		Features: FeaturesConfig{
			Flags: make(map[string]bool),
		},
	}
}

// Validate checks the configuration for errors. Out-of-range tuning values
// are reset to their defaults; an unusable endpoint is an error.
func (c *Config) Validate() error {
	c.API.Protocol = strings.ToLower(strings.TrimSpace(c.API.Protocol))
	switch c.API.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("config: api.protocol must be http or https, got %q", c.API.Protocol)
	}
	if strings.TrimSpace(c.API.Host) == "" {
		return fmt.Errorf("config: api.host is empty")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port out of range: %d", c.API.Port)
	}
	c.API.PathPrefix = normalizePrefix(c.API.PathPrefix)

	if c.API.Timeout <= 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.MaxInFlight <= 0 {
		c.API.MaxInFlight = 8
	}
	if c.API.RateLimit < 0 {
		c.API.RateLimit = 0
	}
	if c.API.RateBurst <= 0 {
		c.API.RateBurst = 1
	}
	if c.API.CacheTTL < 0 {
		c.API.CacheTTL = 0
	}
	if c.API.CacheSize <= 0 {
		c.API.CacheSize = 256
	}

	if c.Listing.FirstLimit <= 0 {
		c.Listing.FirstLimit = 100
	}
	if c.Listing.Threshold < 0 {
		c.Listing.Threshold = 100
	}
	if c.Listing.MinimumBatchSize <= 0 {
		c.Listing.MinimumBatchSize = 10
	}

	if c.UI.Theme == "" {
		c.UI.Theme = "default"
	}
	if c.Features.Flags == nil {
		c.Features.Flags = make(map[string]bool)
	}
	return nil
}

// normalizePrefix returns "" or a path starting with "/" and no trailing "/".
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
