package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wilbur182/filescope/internal/styles"
)

// rowWidths gives placeholder rows a varied, realistic length in percent.
var rowWidths = []int{85, 60, 75, 55, 80, 65, 70, 50}

const shimmerWidth = 6

// PlaceholderRow renders the stand-in for a row that is not loaded yet: a
// dim bar with a bright band that moves with frame. index picks the bar
// length so neighbouring rows differ.
func PlaceholderRow(index, width, frame int) string {
	if width <= 0 {
		return ""
	}
	barWidth := min(max(width*rowWidths[index%len(rowWidths)]/100, 3), width)

	cycle := width + shimmerWidth*2
	pos := (frame + index*2) % cycle

	dim := lipgloss.NewStyle().Foreground(styles.TextSubtle)
	bright := lipgloss.NewStyle().Foreground(styles.TextMuted)

	var sb strings.Builder
	start := 0
	inBand := false
	for col := 0; col <= barWidth; col++ {
		d := col - (pos - shimmerWidth)
		now := d >= 0 && d < shimmerWidth && col < barWidth
		if col == barWidth || now != inBand {
			if n := col - start; n > 0 {
				if inBand {
					sb.WriteString(bright.Render(strings.Repeat("▒", n)))
				} else {
					sb.WriteString(dim.Render(strings.Repeat("░", n)))
				}
			}
			start = col
			inBand = now
		}
	}
	return sb.String()
}
