// Package viewport is the contract between a scrolling list renderer and the
// loader. The renderer asks whether rows are loaded, reads them, and reports
// which indices it drew; the package turns that into range requests.
package viewport

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/window"
)

// Adapter is what a renderer needs from the data layer.
type Adapter interface {
	IsLoaded(index int) bool
	RowAt(index int) window.Row
	RequestRange(offset, limit int) tea.Cmd
	LoadedRowCount() int
}

// Listing adapts a Coordinator to Adapter.
type Listing struct {
	coord *loader.Coordinator
}

var _ Adapter = (*Listing)(nil)

// NewListing wraps c.
func NewListing(c *loader.Coordinator) *Listing {
	return &Listing{coord: c}
}

// IsLoaded reports whether index is loaded under the current generation.
func (l *Listing) IsLoaded(index int) bool {
	return l.coord.Store().IsLoaded(index)
}

// RowAt returns the row at index or a placeholder.
func (l *Listing) RowAt(index int) window.Row {
	return l.coord.Store().RowAt(index)
}

// RequestRange asks the coordinator for [offset, offset+limit).
func (l *Listing) RequestRange(offset, limit int) tea.Cmd {
	return l.coord.EnsureRange(offset, limit)
}

// LoadedRowCount returns the matching count, which is the number of rows the
// renderer should lay out.
func (l *Listing) LoadedRowCount() int {
	return l.coord.Store().Matching()
}

// Generation returns the session generation the rows belong to.
func (l *Listing) Generation() uint64 {
	return l.coord.Session().Generation()
}

// TotalRowCount returns the size of the unfiltered collection.
func (l *Listing) TotalRowCount() int {
	return l.coord.Store().Total()
}
