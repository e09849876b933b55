// Package ui holds small rendering widgets used by the listing view.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wilbur182/filescope/internal/styles"
)

// TickInterval is the frame rate for the spinner and placeholder shimmer.
const TickInterval = 80 * time.Millisecond

// TickMsg advances animations by one frame.
type TickMsg time.Time

// Tick schedules the next animation frame.
func Tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// BrailleSpinner renders a rolling braille dot pattern while requests are
// in flight. It does not schedule its own ticks; call Tick on each TickMsg.
type BrailleSpinner struct {
	frame  int
	active bool
}

var brailleFrames = []string{
	"⠋ ⠙ ⠹ ⠸",
	"⠙ ⠹ ⠸ ⠼",
	"⠹ ⠸ ⠼ ⠴",
	"⠸ ⠼ ⠴ ⠦",
	"⠼ ⠴ ⠦ ⠧",
	"⠴ ⠦ ⠧ ⠇",
	"⠦ ⠧ ⠇ ⠏",
	"⠧ ⠇ ⠏ ⠋",
	"⠇ ⠏ ⠋ ⠙",
	"⠏ ⠋ ⠙ ⠹",
}

// SetActive starts or stops the spinner. Starting an already running spinner
// keeps its frame.
func (b *BrailleSpinner) SetActive(active bool) {
	if active && !b.active {
		b.frame = 0
	}
	b.active = active
}

// IsActive reports whether the spinner is running.
func (b BrailleSpinner) IsActive() bool {
	return b.active
}

// Tick advances the frame when running.
func (b *BrailleSpinner) Tick() {
	if b.active {
		b.frame++
	}
}

// View renders the current frame, or nothing when stopped.
func (b BrailleSpinner) View() string {
	if !b.active {
		return ""
	}
	return lipgloss.NewStyle().Foreground(styles.Accent).Render(brailleFrames[b.frame%len(brailleFrames)])
}

// ViewLabel renders the frame followed by a muted label.
func (b BrailleSpinner) ViewLabel(label string) string {
	if !b.active {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(b.View())
	if label != "" {
		sb.WriteString(" ")
		sb.WriteString(styles.Muted.Render(label))
	}
	return sb.String()
}
