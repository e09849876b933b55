package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(n int, firstID int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"id": firstID + i, "name": "file"}
	}
	return out
}

func TestApplyWritesAbsoluteIndices(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	n, err := s.Apply(Page{Generation: 0, Offset: 50, Rows: rows(100, 1), Matching: 500, Total: 900})
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	assert.True(t, s.IsLoaded(75))
	assert.Equal(t, 75, s.RowAt(75).Index)
	assert.Equal(t, 26, s.RowAt(75).ID())
	assert.False(t, s.IsLoaded(49))
	assert.False(t, s.IsLoaded(150))
	assert.Equal(t, 500, s.Matching())
	assert.Equal(t, 900, s.Total())
	assert.Equal(t, 100, s.Len())
}

func TestApplyRejectsOtherGeneration(t *testing.T) {
	t.Parallel()

	s := NewStore(2)
	n, err := s.Apply(Page{Generation: 1, Offset: 0, Rows: rows(10, 1), Matching: 10, Total: 10})
	require.ErrorIs(t, err, ErrGenerationMismatch)
	assert.Zero(t, n)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Matching())
	assert.Zero(t, s.Total())
}

func TestApplyFirstWriteWins(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	_, err := s.Apply(Page{Offset: 0, Rows: rows(10, 100), Matching: 10, Total: 20})
	require.NoError(t, err)

	n, err := s.Apply(Page{Offset: 5, Rows: rows(10, 500), Matching: 15, Total: 21})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, 105, s.RowAt(5).ID())
	assert.Equal(t, 505, s.RowAt(10).ID())
	// counts follow the latest accepted page
	assert.Equal(t, 15, s.Matching())
	assert.Equal(t, 21, s.Total())
}

func TestApplySkipsRowsWithoutID(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	page := []map[string]any{
		{"id": 1},
		{"name": "no id"},
		{"id": nil},
		nil,
		{"id": "x"},
	}
	n, err := s.Apply(Page{Offset: 0, Rows: page, Matching: 5, Total: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, s.IsLoaded(0))
	assert.False(t, s.IsLoaded(1))
	assert.False(t, s.IsLoaded(2))
	assert.False(t, s.IsLoaded(3))
	assert.True(t, s.IsLoaded(4))
}

func TestRowAtPlaceholder(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	row := s.RowAt(42)
	assert.Equal(t, 42, row.Index)
	assert.False(t, row.Loaded())
	assert.Nil(t, row.ID())
	assert.Equal(t, "", row.String("name"))
}

func TestCompleteAndMissing(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	_, err := s.Apply(Page{Offset: 10, Rows: rows(10, 1)})
	require.NoError(t, err)
	_, err = s.Apply(Page{Offset: 30, Rows: rows(5, 1)})
	require.NoError(t, err)

	assert.True(t, s.Complete(Range{Offset: 10, Limit: 10}))
	assert.True(t, s.Complete(Range{Offset: 12, Limit: 3}))
	assert.True(t, s.Complete(Range{Offset: 0, Limit: 0}))
	assert.False(t, s.Complete(Range{Offset: 9, Limit: 2}))
	assert.False(t, s.Complete(Range{Offset: 0, Limit: 40}))
	assert.False(t, s.Complete(Range{Offset: -1, Limit: 2}))

	assert.Equal(t, []Range{
		{Offset: 0, Limit: 10},
		{Offset: 20, Limit: 10},
		{Offset: 35, Limit: 5},
	}, s.Missing(Range{Offset: 0, Limit: 40}))
	assert.Nil(t, s.Missing(Range{Offset: 10, Limit: 10}))
	assert.Nil(t, s.Missing(Range{Offset: 5, Limit: 0}))
}

func TestRangeBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    Range
		want bool
	}{
		{"empty", Range{Offset: 5, Limit: 0}, true},
		{"first rows", Range{Offset: 0, Limit: 1 << 20}, true},
		{"negative offset", Range{Offset: -1, Limit: 2}, false},
		{"end overflows int", Range{Offset: math.MaxInt - 5, Limit: 10}, false},
		{"huge limit", Range{Offset: 1, Limit: math.MaxInt}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.InBounds())
		})
	}

	s := NewStore(0)
	assert.False(t, s.Complete(Range{Offset: math.MaxInt - 5, Limit: 10}))
	assert.Nil(t, s.Missing(Range{Offset: math.MaxInt - 5, Limit: 10}))
	assert.False(t, s.IsLoaded(math.MaxInt))
}

func TestRowString(t *testing.T) {
	t.Parallel()

	row := Row{Fields: map[string]any{
		"id":    float64(12),
		"ratio": 0.5,
		"name":  "a.txt",
		"flag":  true,
	}}
	assert.Equal(t, "12", row.String("id"))
	assert.Equal(t, "0.5", row.String("ratio"))
	assert.Equal(t, "a.txt", row.String("name"))
	assert.Equal(t, "true", row.String("flag"))
	assert.Equal(t, "", row.String("missing"))
}
