package styles

import (
	"regexp"
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// themeMu protects access to themeRegistry and currentTheme for thread safety
var themeMu sync.RWMutex

// hexColorRegex validates hex color codes (#RRGGBB or #RRGGBBAA with alpha)
var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}([0-9A-Fa-f]{2})?$`)

// ColorPalette holds all theme colors
type ColorPalette struct {
	Primary string `json:"primary"`
	Accent  string `json:"accent"`

	Success string `json:"success"`
	Warning string `json:"warning"`
	Error   string `json:"error"`

	TextPrimary   string `json:"textPrimary"`
	TextSecondary string `json:"textSecondary"`
	TextMuted     string `json:"textMuted"`
	TextSubtle    string `json:"textSubtle"`

	BgSelection string `json:"bgSelection"` // Highlighted row background

	BorderNormal string `json:"borderNormal"`
	BorderActive string `json:"borderActive"`

	Link string `json:"link"`

	// Third-party theme names
	SyntaxTheme   string `json:"syntaxTheme"`   // Chroma theme name
	MarkdownTheme string `json:"markdownTheme"` // Glamour theme name
}

// Theme represents a complete theme configuration
type Theme struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	Colors      ColorPalette `json:"colors"`
}

// Built-in themes
var (
	DefaultTheme = Theme{
		Name:        "default",
		DisplayName: "Default Dark",
		Colors: ColorPalette{
			Primary: "#7C3AED", // Purple
			Accent:  "#F59E0B", // Amber

			Success: "#10B981",
			Warning: "#F59E0B",
			Error:   "#EF4444",

			TextPrimary:   "#F9FAFB",
			TextSecondary: "#9CA3AF",
			TextMuted:     "#6B7280",
			TextSubtle:    "#4B5563",

			BgSelection: "#374151",

			BorderNormal: "#374151",
			BorderActive: "#7C3AED",

			Link: "#60A5FA",

			SyntaxTheme:   "monokai",
			MarkdownTheme: "dark",
		},
	}

	NordTheme = Theme{
		Name:        "nord",
		DisplayName: "Nord",
		Colors: ColorPalette{
			Primary: "#88C0D0", // Frost Cyan
			Accent:  "#EBCB8B", // Aurora Yellow

			Success: "#A3BE8C",
			Warning: "#EBCB8B",
			Error:   "#BF616A",

			TextPrimary:   "#D8DEE9",
			TextSecondary: "#E5E9F0",
			TextMuted:     "#4C566A",
			TextSubtle:    "#434C5E",

			BgSelection: "#434C5E",

			BorderNormal: "#4C566A",
			BorderActive: "#88C0D0",

			Link: "#88C0D0",

			SyntaxTheme:   "nord",
			MarkdownTheme: "dark",
		},
	}

	TokyoNightTheme = Theme{
		Name:        "tokyo-night",
		DisplayName: "Tokyo Night",
		Colors: ColorPalette{
			Primary: "#7AA2F7",
			Accent:  "#FF9E64",

			Success: "#9ECE6A",
			Warning: "#E0AF68",
			Error:   "#F7768E",

			TextPrimary:   "#C0CAF5",
			TextSecondary: "#A9B1D6",
			TextMuted:     "#565F89",
			TextSubtle:    "#414868",

			BgSelection: "#414868",

			BorderNormal: "#565F89",
			BorderActive: "#7AA2F7",

			Link: "#73DACA",

			SyntaxTheme:   "tokyo-night",
			MarkdownTheme: "dark",
		},
	}

	LightTheme = Theme{
		Name:        "light",
		DisplayName: "Light",
		Colors: ColorPalette{
			Primary: "#6D28D9",
			Accent:  "#B45309",

			Success: "#047857",
			Warning: "#B45309",
			Error:   "#B91C1C",

			TextPrimary:   "#111827",
			TextSecondary: "#374151",
			TextMuted:     "#6B7280",
			TextSubtle:    "#9CA3AF",

			BgSelection: "#E5E7EB",

			BorderNormal: "#D1D5DB",
			BorderActive: "#6D28D9",

			Link: "#1D4ED8",

			SyntaxTheme:   "github",
			MarkdownTheme: "light",
		},
	}
)

// themeRegistry holds all available themes
var themeRegistry = map[string]Theme{
	"default":     DefaultTheme,
	"light":       LightTheme,
	"nord":        NordTheme,
	"tokyo-night": TokyoNightTheme,
}

var currentTheme = DefaultTheme

// IsValidHexColor checks if a string is a valid hex color code (#RRGGBB or #RRGGBBAA)
func IsValidHexColor(hex string) bool {
	return hexColorRegex.MatchString(hex)
}

// IsValidTheme checks if a theme name exists in the registry
func IsValidTheme(name string) bool {
	themeMu.RLock()
	defer themeMu.RUnlock()
	_, ok := themeRegistry[name]
	return ok
}

// GetTheme returns a theme by name, or the default theme if not found
func GetTheme(name string) Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	if theme, ok := themeRegistry[name]; ok {
		return theme
	}
	return DefaultTheme
}

// GetCurrentTheme returns the currently active theme
func GetCurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// ListThemes returns the names of all available themes in sorted order
func ListThemes() []string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	names := make([]string, 0, len(themeRegistry))
	for name := range themeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextTheme returns the theme after name in ListThemes order, wrapping around.
func NextTheme(name string) string {
	names := ListThemes()
	for i, n := range names {
		if n == name {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// ApplyTheme applies a theme by name, updating all style variables.
//
// Not safe for use concurrently with rendering; call it from the event loop.
func ApplyTheme(name string) {
	ApplyThemeColors(GetTheme(name))
}

// ApplyThemeColors updates all style package variables from a theme.
// Colors that are not valid hex codes keep their previous value.
func ApplyThemeColors(theme Theme) {
	c := theme.Colors
	set := func(dst *lipgloss.Color, hex string) {
		if IsValidHexColor(hex) {
			*dst = lipgloss.Color(hex)
		}
	}

	set(&Primary, c.Primary)
	set(&Accent, c.Accent)
	set(&Success, c.Success)
	set(&Warning, c.Warning)
	set(&Error, c.Error)
	set(&TextPrimary, c.TextPrimary)
	set(&TextSecondary, c.TextSecondary)
	set(&TextMuted, c.TextMuted)
	set(&TextSubtle, c.TextSubtle)
	set(&BgSelection, c.BgSelection)
	set(&BorderNormal, c.BorderNormal)
	set(&BorderActive, c.BorderActive)
	set(&LinkColor, c.Link)

	themeMu.Lock()
	currentTheme = theme
	themeMu.Unlock()

	rebuildStyles()
}

// GetSyntaxTheme returns the current syntax highlighting theme name
func GetSyntaxTheme() string {
	return GetCurrentTheme().Colors.SyntaxTheme
}

// GetMarkdownTheme returns the current markdown rendering theme name
func GetMarkdownTheme() string {
	if t := GetCurrentTheme().Colors.MarkdownTheme; t != "" {
		return t
	}
	return "dark"
}
