// Package styles holds the color palette and the lipgloss styles shared by
// the TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Colors, replaced by ApplyThemeColors.
var (
	Primary lipgloss.Color
	Accent  lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	TextSubtle    lipgloss.Color

	BgSelection lipgloss.Color

	BorderNormal lipgloss.Color
	BorderActive lipgloss.Color

	LinkColor lipgloss.Color
)

// Styles, rebuilt from the colors above.
var (
	Title       lipgloss.Style
	Header      lipgloss.Style
	Body        lipgloss.Style
	Muted       lipgloss.Style
	Subtle      lipgloss.Style
	ErrorText   lipgloss.Style
	StatusOK    lipgloss.Style
	Link        lipgloss.Style
	IndexColumn lipgloss.Style
	Placeholder lipgloss.Style
	Selected    lipgloss.Style
	KeyHint     lipgloss.Style

	PanelActive   lipgloss.Style
	PanelInactive lipgloss.Style
)

func init() {
	ApplyThemeColors(DefaultTheme)
}

// rebuildStyles recreates all lipgloss styles with current colors
func rebuildStyles() {
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	Body = lipgloss.NewStyle().
		Foreground(TextPrimary)

	Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	Subtle = lipgloss.NewStyle().
		Foreground(TextSubtle)

	ErrorText = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	StatusOK = lipgloss.NewStyle().
		Foreground(Success)

	Link = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	IndexColumn = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Right)

	Placeholder = lipgloss.NewStyle().
		Foreground(TextSubtle).
		Italic(true)

	Selected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(BgSelection).
		Bold(true)

	KeyHint = lipgloss.NewStyle().
		Foreground(Accent)

	PanelActive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderActive).
		Padding(0, 1)

	PanelInactive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderNormal).
		Padding(0, 1)
}
