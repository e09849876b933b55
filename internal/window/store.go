// Package window provides the sparse, index-addressed row store behind a
// virtualized listing. A Store is owned by exactly one session generation and
// is replaced, never merged, when the generation changes.
package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// MaxIndex is the largest absolute row index a Store can hold.
const MaxIndex int64 = math.MaxUint32

// ErrGenerationMismatch is returned when a page from another generation is
// applied to a Store.
var ErrGenerationMismatch = errors.New("window: page generation does not own store")

// Page is one accepted response from the listing endpoint.
type Page struct {
	Generation uint64
	Offset     int
	Rows       []map[string]any
	Matching   int
	Total      int
}

// Range is a half-open span of absolute indices [Offset, Offset+Limit).
type Range struct {
	Offset int
	Limit  int
}

// End returns the first index past the range.
func (r Range) End() int { return r.Offset + r.Limit }

// Empty reports whether the range holds no indices.
func (r Range) Empty() bool { return r.Limit <= 0 }

// InBounds reports whether r lies within [0, MaxIndex]. Empty ranges are in
// bounds.
func (r Range) InBounds() bool {
	if r.Empty() {
		return true
	}
	return inBounds(r.Offset) &&
		r.Limit <= math.MaxInt-r.Offset &&
		int64(r.Limit) <= MaxIndex+1-int64(r.Offset)
}

func inBounds(index int) bool {
	return index >= 0 && int64(index) <= MaxIndex
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Offset, r.End())
}

// Store is a partially populated sequence of rows plus aggregate counts.
//
// A Store is not safe for concurrent use. It is mutated only from the event
// loop that owns its session.
type Store struct {
	generation uint64
	rows       map[int]Row
	loaded     *roaring.Bitmap
	matching   int
	total      int
}

// NewStore creates an empty store owned by the given generation.
func NewStore(generation uint64) *Store {
	return &Store{
		generation: generation,
		rows:       make(map[int]Row),
		loaded:     roaring.New(),
	}
}

// Generation returns the generation that owns the store.
func (s *Store) Generation() uint64 {
	return s.generation
}

// Matching returns the count of rows satisfying the criterion, as reported
// by the most recently applied page.
func (s *Store) Matching() int {
	return s.matching
}

// Total returns the count of all rows, as reported by the most recently
// applied page.
func (s *Store) Total() int {
	return s.total
}

// Len returns the number of loaded rows.
func (s *Store) Len() int {
	return int(s.loaded.GetCardinality())
}

// IsLoaded reports whether a loaded row exists at index.
func (s *Store) IsLoaded(index int) bool {
	if !inBounds(index) {
		return false
	}
	return s.loaded.Contains(uint32(index))
}

// RowAt returns the row at index, or a placeholder when it is not loaded.
func (s *Store) RowAt(index int) Row {
	if row, ok := s.rows[index]; ok {
		return row
	}
	return Placeholder(index)
}

// Complete reports whether every index in r is loaded. An empty range is
// complete.
func (s *Store) Complete(r Range) bool {
	if r.Empty() {
		return true
	}
	if !r.InBounds() {
		return false
	}
	return s.countLoaded(r) == uint64(r.Limit)
}

// Missing returns the maximal runs of unloaded indices inside r, in order.
// Ranges outside [0, MaxIndex] have none.
func (s *Store) Missing(r Range) []Range {
	if r.Empty() || !r.InBounds() {
		return nil
	}
	if s.Complete(r) {
		return nil
	}

	var runs []Range
	start := -1
	for i := r.Offset; i < r.End(); i++ {
		if !s.IsLoaded(i) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			runs = append(runs, Range{Offset: start, Limit: i - start})
			start = -1
		}
	}
	if start != -1 {
		runs = append(runs, Range{Offset: start, Limit: r.End() - start})
	}
	return runs
}

// Apply merges an accepted page. The page must belong to the store's
// generation; otherwise nothing is written and ErrGenerationMismatch is
// returned. Rows without an identifying field are skipped, and indices that
// already hold a loaded row keep it. Counts are overwritten unconditionally.
// Apply returns the number of rows written.
func (s *Store) Apply(p Page) (int, error) {
	if p.Generation != s.generation {
		return 0, fmt.Errorf("%w: page %d, store %d", ErrGenerationMismatch, p.Generation, s.generation)
	}

	written := 0
	for i, fields := range p.Rows {
		index := p.Offset + i
		if !inBounds(index) || !hasID(fields) {
			continue
		}
		if s.loaded.Contains(uint32(index)) {
			continue
		}
		s.rows[index] = Row{
			Index:      index,
			Fields:     fields,
			Generation: p.Generation,
		}
		s.loaded.Add(uint32(index))
		written++
	}

	s.matching = p.Matching
	s.total = p.Total
	return written, nil
}

// countLoaded counts loaded indices in a non-empty, in-bounds range.
func (s *Store) countLoaded(r Range) uint64 {
	hi := s.loaded.Rank(uint32(r.End() - 1))
	if r.Offset == 0 {
		return hi
	}
	return hi - s.loaded.Rank(uint32(r.Offset-1))
}
