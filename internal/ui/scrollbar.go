package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wilbur182/filescope/internal/styles"
)

// ScrollbarParams configures a vertical scrollbar.
type ScrollbarParams struct {
	TotalRows   int // Rows in the listing (the matching count)
	Top         int // Index of the first visible row
	VisibleRows int // Rows that fit in the viewport
	TrackHeight int // Height of the track in terminal rows
}

// RenderScrollbar returns TrackHeight newline-separated cells, one column
// wide. When everything fits, the column is blank so layout stays stable.
func RenderScrollbar(p ScrollbarParams) string {
	if p.TrackHeight < 1 {
		return ""
	}

	lines := make([]string, p.TrackHeight)
	if p.TotalRows <= p.VisibleRows {
		for i := range lines {
			lines[i] = " "
		}
		return strings.Join(lines, "\n")
	}

	thumbSize := min(max((p.VisibleRows*p.TrackHeight)/p.TotalRows, 1), p.TrackHeight)
	maxTop := max(p.TotalRows-p.VisibleRows, 1)
	thumbPos := min(max((p.Top*(p.TrackHeight-thumbSize))/maxTop, 0), p.TrackHeight-thumbSize)

	track := lipgloss.NewStyle().Foreground(styles.BorderNormal).Render("│")
	thumb := lipgloss.NewStyle().Foreground(styles.BorderActive).Render("┃")
	for i := range lines {
		if i >= thumbPos && i < thumbPos+thumbSize {
			lines[i] = thumb
		} else {
			lines[i] = track
		}
	}
	return strings.Join(lines, "\n")
}
