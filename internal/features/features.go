package features

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wilbur182/filescope/internal/config"
)

// Feature represents a known feature flag with its default value.
type Feature struct {
	Name        string
	Default     bool
	Description string
}

// Known feature flags.
var (
	// DedupeInFlight skips range requests identical to one still outstanding.
	DedupeInFlight = Feature{
		Name:        "dedupe_inflight",
		Default:     true,
		Description: "Skip range requests identical to one already in flight",
	}
	// ResponseCache keeps recent pages in the client for api.cacheTTL.
	ResponseCache = Feature{
		Name:        "response_cache",
		Default:     false,
		Description: "Cache listing pages in the client for api.cacheTTL",
	}
	// MarkdownDetail renders the detail pane through glamour.
	MarkdownDetail = Feature{
		Name:        "markdown_detail",
		Default:     true,
		Description: "Render the file detail pane as markdown",
	}
)

var allFeatures = []Feature{
	DedupeInFlight,
	ResponseCache,
	MarkdownDetail,
}

var defaultValues = func() map[string]bool {
	m := make(map[string]bool, len(allFeatures))
	for _, f := range allFeatures {
		m[f.Name] = f.Default
	}
	return m
}()

// IsKnownFeature returns true if the feature name is registered.
func IsKnownFeature(name string) bool {
	_, ok := defaultValues[name]
	return ok
}

// ListAll returns all known features with metadata.
func ListAll() []Feature {
	out := make([]Feature, len(allFeatures))
	copy(out, allFeatures)
	return out
}

// Manager resolves flag state. Priority: override > config > default.
type Manager struct {
	mu        sync.RWMutex
	flags     map[string]bool
	overrides map[string]bool
}

// NewManager creates a manager over the config's flags. A nil cfg uses
// defaults only.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		flags:     make(map[string]bool),
		overrides: make(map[string]bool),
	}
	if cfg != nil {
		for k, v := range cfg.Features.Flags {
			m.flags[k] = v
		}
	}
	return m
}

// SetOverride forces a flag regardless of config.
func (m *Manager) SetOverride(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[name] = enabled
}

// Reload replaces the config-sourced flags, keeping overrides.
func (m *Manager) Reload(cfg *config.Config) {
	flags := make(map[string]bool)
	if cfg != nil {
		for k, v := range cfg.Features.Flags {
			flags[k] = v
		}
	}
	m.mu.Lock()
	m.flags = flags
	m.mu.Unlock()
}

// Enabled reports whether f is on.
func (m *Manager) Enabled(f Feature) bool {
	return m.IsEnabled(f.Name)
}

// IsEnabled reports whether the named flag is on. Unknown flags are off
// unless set explicitly.
func (m *Manager) IsEnabled(name string) bool {
	if m == nil {
		return defaultValues[name]
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.overrides[name]; ok {
		return v
	}
	if v, ok := m.flags[name]; ok {
		return v
	}
	return defaultValues[name]
}

// List returns every known feature with its current state.
func (m *Manager) List() map[string]bool {
	out := make(map[string]bool, len(allFeatures))
	for _, f := range allFeatures {
		out[f.Name] = m.IsEnabled(f.Name)
	}
	return out
}

// ParseOverrides parses "name=bool,name" (a bare name means true).
func ParseOverrides(s string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, hasVal := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !IsKnownFeature(name) {
			return nil, fmt.Errorf("features: unknown feature %q (known: %s)", name, strings.Join(names(), ", "))
		}
		enabled := true
		if hasVal {
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("features: %s: %w", name, err)
			}
			enabled = b
		}
		out[name] = enabled
	}
	return out, nil
}

func names() []string {
	out := make([]string, 0, len(allFeatures))
	for _, f := range allFeatures {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

var (
	globalMu      sync.RWMutex
	globalManager *Manager
)

// Init installs the process-wide manager. Call once at startup after the
// config is loaded.
func Init(cfg *config.Config) *Manager {
	m := NewManager(cfg)
	globalMu.Lock()
	globalManager = m
	globalMu.Unlock()
	return m
}

// Default returns the process-wide manager, or nil before Init.
func Default() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// IsEnabled checks a flag on the process-wide manager, falling back to the
// compiled-in default before Init.
func IsEnabled(name string) bool {
	return Default().IsEnabled(name)
}
