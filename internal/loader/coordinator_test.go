package loader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilbur182/filescope/internal/remote"
	"github.com/wilbur182/filescope/internal/session"
	"github.com/wilbur182/filescope/internal/window"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []remote.Query
	fn    func(ctx context.Context, q remote.Query) (*remote.Page, error)
}

func (f *fakeSource) ListFiles(ctx context.Context, q remote.Query) (*remote.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	return f.fn(ctx, q)
}

func (f *fakeSource) Calls() []remote.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.Query(nil), f.calls...)
}

// listing serves matching rows out of total, ids counting down from total.
func listing(matching, total int) *fakeSource {
	return &fakeSource{fn: func(_ context.Context, q remote.Query) (*remote.Page, error) {
		var files []map[string]any
		for i := q.Offset; i < q.Offset+q.Limit && i < matching; i++ {
			files = append(files, map[string]any{"id": total - i, "name": q.Text})
		}
		return &remote.Page{Files: files, Matching: matching, Total: total}, nil
	}}
}

func newCoordinator(src Source, dedupe bool) (*Coordinator, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	c := New(session.New(), src, Config{DedupeInFlight: dedupe, Metrics: m})
	return c, m
}

func exec(t *testing.T, cmd tea.Cmd) RangeResultMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(RangeResultMsg)
	require.True(t, ok, "expected RangeResultMsg")
	return msg
}

func count(m *Metrics, outcome string) float64 {
	return testutil.ToFloat64(m.requests.WithLabelValues(outcome))
}

func TestEnsureRangeMergesAtAbsoluteIndex(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(listing(500, 900), true)
	msg := exec(t, c.EnsureRange(50, 100))
	assert.Equal(t, 50, msg.Request.Offset)
	assert.Equal(t, 100, msg.Request.Limit)
	assert.Equal(t, uint64(0), msg.GetGeneration())
	assert.NotEmpty(t, msg.Request.ID)

	require.True(t, c.Update(msg))

	store := c.Store()
	assert.True(t, store.IsLoaded(75))
	assert.Equal(t, 75, store.RowAt(75).Index)
	assert.Equal(t, 500, store.Matching())
	assert.Equal(t, 900, store.Total())
	assert.False(t, store.IsLoaded(49))
	assert.False(t, store.IsLoaded(150))
	assert.False(t, c.Loading())
	assert.Empty(t, c.Err())
}

func TestEnsureRangeSkipsLoadedAndEmpty(t *testing.T) {
	t.Parallel()

	src := listing(500, 900)
	c, _ := newCoordinator(src, true)
	c.Update(exec(t, c.EnsureRange(0, 100)))

	assert.Nil(t, c.EnsureRange(0, 100))
	assert.Nil(t, c.EnsureRange(10, 20))
	assert.Nil(t, c.EnsureRange(10, 0))
	assert.Nil(t, c.EnsureRange(-5, 10))
	assert.Nil(t, c.EnsureRange(math.MaxInt-5, 10))
	assert.Nil(t, c.EnsureRange(1, math.MaxInt))

	// one missing index fetches the whole span
	msg := exec(t, c.EnsureRange(90, 20))
	assert.Equal(t, 90, msg.Request.Offset)
	assert.Equal(t, 20, msg.Request.Limit)
	assert.Len(t, src.Calls(), 2)
}

func TestNilPageRecordsError(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	src := &fakeSource{fn: func(context.Context, remote.Query) (*remote.Page, error) {
		return nil, nil
	}}
	c := New(session.New(), src, Config{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})

	assert.True(t, c.Update(exec(t, c.Start())))
	assert.Equal(t, ErrorPrefix+"empty response", c.Err())
	assert.False(t, c.Loading())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "loader: fetch returned no page")
}

func TestEnsureRangeDedupesInFlight(t *testing.T) {
	t.Parallel()

	c, m := newCoordinator(listing(500, 900), true)
	first := c.EnsureRange(0, 100)
	require.NotNil(t, first)
	assert.True(t, c.Loading())

	assert.Nil(t, c.EnsureRange(0, 100))
	assert.Equal(t, float64(1), count(m, OutcomeDeduplicated))

	// overlapping but distinct ranges are both issued
	second := c.EnsureRange(50, 100)
	require.NotNil(t, second)

	c.Update(exec(t, second))
	assert.True(t, c.Loading())
	c.Update(exec(t, first))
	assert.False(t, c.Loading())

	// first accepted write per index wins; both pages carry the same rows here
	assert.Equal(t, 900-60, c.Store().RowAt(60).ID())
	assert.Equal(t, float64(2), count(m, OutcomeApplied))
}

func TestEnsureRangeWithoutDedupe(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(listing(500, 900), false)
	a := c.EnsureRange(0, 100)
	b := c.EnsureRange(0, 100)
	require.NotNil(t, a)
	require.NotNil(t, b)

	c.Update(exec(t, a))
	assert.True(t, c.Loading())
	c.Update(exec(t, b))
	assert.False(t, c.Loading())
}

func TestSetCriterionIdempotent(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(listing(500, 900), true)
	require.NotNil(t, c.SetCriterion("invoice"))
	gen := c.Session().Generation()

	assert.Nil(t, c.SetCriterion("invoice"))
	assert.Equal(t, gen, c.Session().Generation())
}

func TestStaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	c, m := newCoordinator(listing(500, 900), true)
	old := c.EnsureRange(0, 100)
	require.NotNil(t, old)

	require.NotNil(t, c.SetCriterion("invoice"))

	assert.False(t, c.Update(exec(t, old)))
	assert.False(t, c.Store().IsLoaded(0))
	assert.Zero(t, c.Store().Matching())
	assert.Zero(t, c.Store().Total())
	assert.Empty(t, c.Err())
	assert.Equal(t, float64(1), count(m, OutcomeStale))
}

func TestStaleFailureDoesNotSetError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{fn: func(context.Context, remote.Query) (*remote.Page, error) {
		return nil, errors.New("boom")
	}}
	c, _ := newCoordinator(src, true)
	old := c.EnsureRange(0, 100)
	c.SetCriterion("x")

	assert.False(t, c.Update(exec(t, old)))
	assert.Empty(t, c.Err())
}

func TestInvalidationClearsVisibility(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(listing(500, 900), true)
	c.Update(exec(t, c.EnsureRange(0, 100)))
	require.True(t, c.Store().IsLoaded(10))

	pending := c.EnsureRange(100, 100)
	require.NotNil(t, pending)

	cmd := c.SetCriterion("invoice")
	require.NotNil(t, cmd)
	for i := 0; i < 200; i++ {
		require.False(t, c.Store().IsLoaded(i))
	}
	assert.Zero(t, c.Store().Matching())

	// only the new first window is outstanding
	assert.True(t, c.Loading())
	c.Update(exec(t, cmd))
	assert.False(t, c.Loading())
	c.Update(exec(t, pending))
	assert.False(t, c.Store().IsLoaded(150))
}

func TestFailureIsolation(t *testing.T) {
	t.Parallel()

	fail := true
	src := &fakeSource{fn: func(_ context.Context, q remote.Query) (*remote.Page, error) {
		if fail {
			return nil, &remote.TransportError{Op: "list", Err: errors.New("connection refused")}
		}
		return listing(500, 900).fn(context.Background(), q)
	}}
	c, m := newCoordinator(src, true)
	c.Update(exec(t, c.EnsureRange(0, 50)))
	require.Empty(t, c.Err())

	msg := exec(t, c.EnsureRange(50, 50))
	require.Error(t, msg.Err)
	assert.True(t, c.Update(msg))

	assert.Equal(t, "Error loading files: files: list: request failed: connection refused", c.Err())
	assert.False(t, c.Loading())
	assert.Equal(t, 50, c.Store().Len())
	assert.Equal(t, 500, c.Store().Matching())
	assert.Equal(t, uint64(0), c.Session().Generation())
	assert.Equal(t, float64(1), count(m, OutcomeFailed))

	// no latch: the same range can be retried and success clears the error
	fail = false
	retry := c.EnsureRange(50, 50)
	require.NotNil(t, retry)
	c.Update(exec(t, retry))
	assert.Empty(t, c.Err())
	assert.Equal(t, 100, c.Store().Len())
}

func TestCriterionChangeClearsError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{fn: func(context.Context, remote.Query) (*remote.Page, error) {
		return nil, errors.New("boom")
	}}
	c, _ := newCoordinator(src, true)
	c.Update(exec(t, c.Start()))
	require.Equal(t, "Error loading files: boom", c.Err())

	c.SetCriterion("x")
	assert.Empty(t, c.Err())
}

func TestOutOfOrderResponses(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(listing(1000, 1000), true)
	cmds := []tea.Cmd{c.EnsureRange(0, 100), c.EnsureRange(100, 100), c.EnsureRange(200, 100)}
	msgs := make([]RangeResultMsg, len(cmds))
	for i, cmd := range cmds {
		msgs[i] = exec(t, cmd)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		c.Update(msgs[i])
	}
	assert.True(t, c.Store().Complete(window.Range{Offset: 0, Limit: 300}))
	assert.Equal(t, 1000-250, c.Store().RowAt(250).ID())
}

func TestEndToEndCriterionSwitch(t *testing.T) {
	t.Parallel()

	src := &fakeSource{fn: func(_ context.Context, q remote.Query) (*remote.Page, error) {
		if q.Text == "" {
			return listing(37, 900).fn(context.Background(), q)
		}
		return listing(3, 900).fn(context.Background(), q)
	}}
	c, _ := newCoordinator(src, true)

	gen0 := c.Start()
	require.NotNil(t, gen0)
	first := exec(t, gen0)
	c.Update(first)
	assert.Equal(t, 37, c.Store().Matching())
	assert.Equal(t, 900, c.Store().Total())

	// a second gen-0 request is outstanding when the criterion changes
	lateGen0 := exec(t, c.EnsureRange(0, 100))
	require.Equal(t, uint64(0), lateGen0.GetGeneration())

	gen1 := c.SetCriterion("invoice")
	require.NotNil(t, gen1)
	assert.Equal(t, uint64(1), c.Session().Generation())
	assert.Zero(t, c.Store().Matching())

	assert.False(t, c.Update(lateGen0))
	assert.Zero(t, c.Store().Matching())

	c.Update(exec(t, gen1))
	assert.Equal(t, 3, c.Store().Matching())
	assert.True(t, c.Store().IsLoaded(2))
	assert.False(t, c.Store().IsLoaded(3))
}

func TestCloseStopsIssuing(t *testing.T) {
	t.Parallel()

	src := &fakeSource{fn: func(ctx context.Context, q remote.Query) (*remote.Page, error) {
		return nil, ctx.Err()
	}}
	c, _ := newCoordinator(src, true)
	pending := c.EnsureRange(0, 10)
	require.NotNil(t, pending)

	c.Close()
	c.Close()
	assert.Nil(t, c.EnsureRange(10, 10))
	assert.False(t, c.Loading())

	msg := exec(t, pending)
	assert.ErrorIs(t, msg.Err, context.Canceled)
}

func TestUpdateIgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(listing(1, 1), true)
	assert.False(t, c.Update(tea.KeyMsg{}))
	assert.False(t, c.Update(nil))
}

func TestDecide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Extend, Decide(session.Criterion{Text: "a"}, session.Criterion{Text: "a"}))
	assert.Equal(t, Clear, Decide(session.Criterion{Text: "a"}, session.Criterion{Text: "b"}))
	assert.Equal(t, Clear, Decide(session.Criterion{Text: "a"}, session.Criterion{}))
	assert.Equal(t, "clear", Clear.String())
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	c := New(session.New(), listing(10, 10), Config{})
	c.Update(exec(t, c.Start()))
	assert.Equal(t, 10, c.Store().Len())
}

func TestMetricsInFlightGauge(t *testing.T) {
	t.Parallel()

	c, m := newCoordinator(listing(500, 900), true)
	a := c.EnsureRange(0, 10)
	b := c.EnsureRange(10, 10)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.inFlight))

	c.SetCriterion("x")
	c.Update(exec(t, a))
	c.Update(exec(t, b))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inFlight))
	assert.Equal(t, float64(2), count(m, OutcomeStale))
	assert.Equal(t, float64(3), count(m, OutcomeIssued))
}
