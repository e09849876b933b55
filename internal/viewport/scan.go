package viewport

import (
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wilbur182/filescope/internal/window"
)

// Defaults for Loader.
const (
	DefaultThreshold        = 100
	DefaultMinimumBatchSize = 10
)

// ScanRanges returns the unloaded runs a renderer showing rows start..stop
// (inclusive) should request. The scan covers threshold rows on either side
// of the visible span, clipped to rowCount. The last run is extended forward
// and the first run backward over unloaded rows until it reaches
// minBatch rows, so scrolling one row at a time does not issue one-row
// requests.
func ScanRanges(isLoaded func(int) bool, start, stop, threshold, minBatch, rowCount int) []window.Range {
	if rowCount <= 0 || stop < start {
		return nil
	}
	lo := max(0, start-threshold)
	hi := min(rowCount-1, stop+threshold)
	if lo > hi {
		return nil
	}

	// inclusive [start, stop] pairs
	var runs [][2]int
	runStart, runStop := -1, -1
	for i := lo; i <= hi; i++ {
		if !isLoaded(i) {
			runStop = i
			if runStart == -1 {
				runStart = i
			}
		} else if runStop != -1 {
			runs = append(runs, [2]int{runStart, runStop})
			runStart, runStop = -1, -1
		}
	}

	if runStop != -1 {
		limit := min(max(runStop, runStart+minBatch-1), rowCount-1)
		for i := runStop + 1; i <= limit; i++ {
			if isLoaded(i) {
				break
			}
			runStop = i
		}
		runs = append(runs, [2]int{runStart, runStop})
	}

	if len(runs) > 0 {
		first := &runs[0]
		for first[1]-first[0]+1 < minBatch && first[0] > 0 {
			if isLoaded(first[0] - 1) {
				break
			}
			first[0]--
		}
	}

	out := make([]window.Range, 0, len(runs))
	for _, r := range runs {
		out = append(out, window.Range{Offset: r[0], Limit: r[1] - r[0] + 1})
	}
	return out
}

// Loader requests the rows around whatever the renderer last drew.
//
// It remembers the unloaded ranges it last asked for. A scan that finds the
// same ranges again issues nothing, so a window that failed or came back
// short is not re-requested until the viewport moves, the loaded set
// changes, or the adapter's generation changes.
type Loader struct {
	Threshold        int
	MinimumBatchSize int

	last       []window.Range
	generation uint64
}

// generational is implemented by adapters whose contents are replaced
// wholesale, such as Listing on a criterion change.
type generational interface {
	Generation() uint64
}

// NewLoader returns a Loader with the given look-ahead and batch size.
// Non-positive values select the defaults.
func NewLoader(threshold, minBatch int) *Loader {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if minBatch <= 0 {
		minBatch = DefaultMinimumBatchSize
	}
	return &Loader{Threshold: threshold, MinimumBatchSize: minBatch}
}

// Reset forgets the ranges last requested.
func (l *Loader) Reset() {
	l.last = nil
}

// OnRowsRendered is called after the renderer drew rows start..stop
// (inclusive). It returns the batched requests for the unloaded rows nearby,
// or nil.
func (l *Loader) OnRowsRendered(a Adapter, start, stop int) tea.Cmd {
	if g, ok := a.(generational); ok {
		if gen := g.Generation(); gen != l.generation {
			l.generation = gen
			l.Reset()
		}
	}

	ranges := ScanRanges(a.IsLoaded, start, stop, l.Threshold, l.MinimumBatchSize, a.LoadedRowCount())
	if slices.Equal(ranges, l.last) {
		return nil
	}
	l.last = ranges
	if len(ranges) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(ranges))
	for _, r := range ranges {
		cmds = append(cmds, a.RequestRange(r.Offset, r.Limit))
	}
	return tea.Batch(cmds...)
}
