package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/cellbuf"
	"github.com/mattn/go-runewidth"

	"github.com/wilbur182/filescope/internal/features"
	"github.com/wilbur182/filescope/internal/markdown"
	"github.com/wilbur182/filescope/internal/remote"
	"github.com/wilbur182/filescope/internal/styles"
	"github.com/wilbur182/filescope/internal/ui"
	"github.com/wilbur182/filescope/internal/window"
)

const (
	uidWidth     = 8
	createdWidth = 19
	minNameWidth = 8

	// splitWidth is the narrowest terminal that shows the detail pane beside
	// the table instead of over it.
	splitWidth = 100
)

// View renders the model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	body := m.renderBody()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderSearch(),
		body,
		m.renderFooter(),
	)
}

// headerStatus is the plain status text: an error, "Searching..." while a
// request of the current generation is outstanding, or the match counts.
func (m Model) headerStatus() string {
	if err := m.coord.Err(); err != "" {
		return err
	}
	if m.coord.Loading() {
		return "Searching..."
	}
	store := m.coord.Store()
	return fmt.Sprintf("Matched %d of %d", store.Matching(), store.Total())
}

func (m Model) renderHeader() string {
	title := styles.Title.Render(" filescope ")

	var status string
	switch {
	case m.coord.Err() != "":
		status = styles.ErrorText.Render(m.headerStatus())
	case m.coord.Loading():
		status = m.spinner.ViewLabel(m.headerStatus())
		if status == "" {
			status = styles.Muted.Render(m.headerStatus())
		}
	default:
		status = styles.StatusOK.Render(m.headerStatus())
	}
	return ansi.Truncate(title+" "+status, m.width, "…")
}

func (m Model) renderSearch() string {
	return ansi.Truncate(m.input.View(), m.width, "")
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		style := styles.Muted
		if m.statusIsError {
			style = styles.ErrorText
		}
		return ansi.Truncate(style.Render(m.statusMsg), m.width, "…")
	}
	if m.showHelp {
		// the full help replaces the footer line with several columns
		return m.help.View(m.keys)
	}
	return ansi.Truncate(m.help.View(m.keys), m.width, "")
}

func (m Model) renderBody() string {
	h := m.listHeight()
	if !m.showDetail {
		return m.renderTable(m.width, h)
	}
	if m.width < splitWidth {
		return m.renderDetail(m.width, h)
	}
	listW := m.width * 3 / 5
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTable(listW, h),
		m.renderDetail(m.width-listW, h),
	)
}

// renderTable draws the visible rows plus a scrollbar column. Rows that are
// not loaded yet are drawn as placeholders.
func (m Model) renderTable(width, height int) string {
	n := m.rowCount()
	rowW := max(width-1, 1)

	lines := make([]string, height)
	start, stop, ok := m.visibleRange()
	for i := range lines {
		idx := start + i
		if !ok || idx > stop {
			lines[i] = strings.Repeat(" ", rowW)
			continue
		}
		lines[i] = m.renderRow(m.listing.RowAt(idx), rowW, idx == m.cursor)
	}
	if !ok && !m.coord.Loading() && m.coord.Err() == "" {
		lines[0] = padANSI(styles.Muted.Render("No files"), rowW)
	}

	bar := ui.RenderScrollbar(ui.ScrollbarParams{
		TotalRows:   n,
		Top:         m.top,
		VisibleRows: height,
		TrackHeight: height,
	})
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(lines, "\n"), bar)
}

func (m Model) indexWidth() int {
	if !m.cfg.UI.ShowIndex {
		return 0
	}
	return len(strconv.Itoa(max(m.rowCount()-1, 0)))
}

// renderRow formats one row padded to exactly width cells.
func (m Model) renderRow(row window.Row, width int, selected bool) string {
	var prefix string
	if iw := m.indexWidth(); iw > 0 {
		prefix = runewidth.FillLeft(strconv.Itoa(row.Index), iw) + " "
	}
	rest := max(width-runewidth.StringWidth(prefix), 0)

	if !row.Loaded() {
		line := styles.IndexColumn.Render(prefix) + ui.PlaceholderRow(row.Index, rest, m.frame)
		return padANSI(line, width)
	}

	nameW := max(rest-uidWidth-createdWidth-4, minNameWidth)
	name := runewidth.FillRight(runewidth.Truncate(row.String("name"), nameW, "…"), nameW)
	uid := runewidth.FillRight(runewidth.Truncate(row.String("uid"), uidWidth, ""), uidWidth)
	created := runewidth.Truncate(row.String("file_created_at"), createdWidth, "")

	if selected {
		plain := ansi.Truncate(prefix+name+"  "+uid+"  "+created, width, "")
		return styles.Selected.Render(runewidth.FillRight(plain, width))
	}
	line := styles.IndexColumn.Render(prefix) +
		styles.Body.Render(name) + "  " +
		styles.Muted.Render(uid) + "  " +
		styles.Subtle.Render(created)
	return padANSI(ansi.Truncate(line, width, ""), width)
}

// padANSI right-pads a styled string to width visible cells.
func padANSI(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// detailLines returns the content of the detail pane for the selected row.
func (m Model) detailLines(width int) []string {
	row := m.listing.RowAt(m.cursor)
	if !row.Loaded() {
		return []string{styles.Muted.Render("Loading...")}
	}
	if m.rawDetail || !m.opts.Flags.Enabled(features.MarkdownDetail) {
		out := markdown.Highlight(markdown.RawJSON(row.Fields), "json", styles.GetSyntaxTheme())
		return strings.Split(cellbuf.Wrap(out, width, ",:"), "\n")
	}
	return m.renderer.Render(markdown.FileDocument(remote.FileFromFields(row.Fields)), width)
}

func (m Model) renderDetail(width, height int) string {
	inner := max(width-4, 1)
	lines := m.detailLines(inner)
	if len(lines) > height-2 {
		lines = lines[:max(height-2, 0)]
	}
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, inner, "")
	}
	return styles.PanelActive.
		Width(width - 2).
		Height(max(height-2, 0)).
		Render(strings.Join(lines, "\n"))
}
