package app

import (
	"log/slog"

	"github.com/wilbur182/filescope/internal/config"
	"github.com/wilbur182/filescope/internal/features"
	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/remote"
)

// NewClient builds the listing client described by cfg. The page cache is
// only enabled when the response_cache flag is on.
func NewClient(cfg *config.Config, flags *features.Manager, logger *slog.Logger) *remote.Client {
	opts := remote.Options{
		Timeout:     cfg.API.Timeout,
		MaxInFlight: int64(cfg.API.MaxInFlight),
		RateLimit:   cfg.API.RateLimit,
		RateBurst:   cfg.API.RateBurst,
		CacheSize:   cfg.API.CacheSize,
		Logger:      logger,
	}
	if flags.Enabled(features.ResponseCache) {
		opts.CacheTTL = cfg.API.CacheTTL
	}
	return remote.New(cfg.API.BaseURL(), opts)
}

// LoaderConfig maps the listing section and feature flags onto a
// coordinator configuration.
func LoaderConfig(cfg *config.Config, flags *features.Manager, metrics *loader.Metrics, logger *slog.Logger) loader.Config {
	return loader.Config{
		FirstLimit:     cfg.Listing.FirstLimit,
		DedupeInFlight: flags.Enabled(features.DedupeInFlight),
		Logger:         logger,
		Metrics:        metrics,
	}
}
