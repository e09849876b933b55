// Package loader turns requested index ranges into generation-tagged remote
// fetches and merges their results into the session's window store.
//
// All Coordinator methods run on the bubbletea event loop. Network calls
// happen inside the returned tea.Cmd values; their results come back as
// RangeResultMsg and are applied by Update.
package loader

import (
	"context"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/wilbur182/filescope/internal/remote"
	"github.com/wilbur182/filescope/internal/session"
	"github.com/wilbur182/filescope/internal/window"
)

// DefaultFirstLimit is the size of the window requested after a criterion
// change.
const DefaultFirstLimit = 100

// ErrorPrefix precedes the error text recorded for a failed fetch.
const ErrorPrefix = "Error loading files: "

// Source fetches one window of the remote listing. *remote.Client
// implements it.
type Source interface {
	ListFiles(ctx context.Context, q remote.Query) (*remote.Page, error)
}

// Config configures a Coordinator.
type Config struct {
	FirstLimit     int  // Window requested on criterion change (default 100)
	DedupeInFlight bool // Skip ranges identical to one already outstanding
	Logger         *slog.Logger
	Metrics        *Metrics
}

// Request is an issued range fetch. It is immutable once issued.
type Request struct {
	ID         string
	Generation uint64
	Criterion  string
	Offset     int
	Limit      int
}

func (r Request) key() rangeKey {
	return rangeKey{generation: r.Generation, offset: r.Offset, limit: r.Limit}
}

// RangeResultMsg carries the outcome of one Request back to the event loop.
type RangeResultMsg struct {
	Request Request
	Page    *remote.Page
	Err     error
	Elapsed time.Duration
}

// GetGeneration implements session.GenerationMessage.
func (m RangeResultMsg) GetGeneration() uint64 { return m.Request.Generation }

type rangeKey struct {
	generation uint64
	offset     int
	limit      int
}

// Coordinator issues range fetches for one session and applies their
// responses.
type Coordinator struct {
	session *session.Session
	source  Source
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	inflight map[rangeKey]int
	err      string
}

// New creates a coordinator bound to sess and src.
func New(sess *session.Session, src Source, cfg Config) *Coordinator {
	if cfg.FirstLimit <= 0 {
		cfg.FirstLimit = DefaultFirstLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		session:  sess,
		source:   src,
		cfg:      cfg,
		logger:   logger,
		metrics:  cfg.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[rangeKey]int),
	}
}

// Session returns the session the coordinator serves.
func (c *Coordinator) Session() *session.Session {
	return c.session
}

// Store returns the session's live store.
func (c *Coordinator) Store() *window.Store {
	return c.session.Store()
}

// Start requests the first window for the current criterion.
func (c *Coordinator) Start() tea.Cmd {
	return c.EnsureRange(0, c.cfg.FirstLimit)
}

// EnsureRange returns a command fetching [offset, offset+limit) when any index
// in it is unloaded under the current generation. It returns nil when the
// range is empty, loaded or past window.MaxIndex, when an identical request
// is already outstanding, or after Close.
func (c *Coordinator) EnsureRange(offset, limit int) tea.Cmd {
	if c.closed || limit <= 0 || offset < 0 {
		return nil
	}
	r := window.Range{Offset: offset, Limit: limit}
	if !r.InBounds() {
		c.logger.Warn("loader: range out of bounds", "offset", offset, "limit", limit)
		return nil
	}
	if c.session.Store().Complete(r) {
		return nil
	}

	req := Request{
		Generation: c.session.Generation(),
		Criterion:  c.session.Criterion().Text,
		Offset:     offset,
		Limit:      limit,
	}
	key := req.key()
	if c.cfg.DedupeInFlight && c.inflight[key] > 0 {
		c.metrics.deduplicated()
		c.logger.Debug("loader: range already in flight", "range", r, "generation", req.Generation)
		return nil
	}

	req.ID = newRequestID()
	c.inflight[key]++
	c.metrics.issued()
	c.logger.Debug("loader: fetch", "id", req.ID, "range", r, "generation", req.Generation, "query", req.Criterion)

	return c.fetch(req)
}

func (c *Coordinator) fetch(req Request) tea.Cmd {
	ctx := c.ctx
	src := c.source
	return func() tea.Msg {
		start := time.Now()
		page, err := src.ListFiles(ctx, remote.Query{
			Offset:    req.Offset,
			Limit:     req.Limit,
			Text:      req.Criterion,
			RequestID: req.ID,
		})
		return RangeResultMsg{Request: req, Page: page, Err: err, Elapsed: time.Since(start)}
	}
}

// Update applies a RangeResultMsg. It reports whether visible state changed.
// Messages of other types are ignored.
func (c *Coordinator) Update(msg tea.Msg) bool {
	m, ok := msg.(RangeResultMsg)
	if !ok {
		return false
	}

	if session.IsStale(c.session, m) {
		c.metrics.answered(OutcomeStale, m.Elapsed, m.Err)
		c.logger.Debug("loader: discard stale response",
			"id", m.Request.ID,
			"generation", m.Request.Generation,
			"current", c.session.Generation(),
		)
		return false
	}

	key := m.Request.key()
	if n := c.inflight[key]; n > 1 {
		c.inflight[key] = n - 1
	} else {
		delete(c.inflight, key)
	}

	if m.Err != nil {
		c.metrics.answered(OutcomeFailed, m.Elapsed, m.Err)
		c.err = ErrorPrefix + m.Err.Error()
		c.logger.Warn("loader: fetch failed", "id", m.Request.ID, "offset", m.Request.Offset, "limit", m.Request.Limit, "err", m.Err)
		return true
	}
	if m.Page == nil {
		c.metrics.answered(OutcomeFailed, m.Elapsed, nil)
		c.err = ErrorPrefix + "empty response"
		c.logger.Warn("loader: fetch returned no page", "id", m.Request.ID, "offset", m.Request.Offset, "limit", m.Request.Limit)
		return true
	}

	n, err := c.session.Store().Apply(window.Page{
		Generation: m.Request.Generation,
		Offset:     m.Request.Offset,
		Rows:       m.Page.Files,
		Matching:   m.Page.Matching,
		Total:      m.Page.Total,
	})
	if err != nil {
		// Unreachable while the session swaps its store on every bump.
		c.metrics.answered(OutcomeStale, m.Elapsed, nil)
		c.logger.Debug("loader: store rejected page", "err", err)
		return false
	}

	c.metrics.answered(OutcomeApplied, m.Elapsed, nil)
	c.metrics.loaded(n)
	c.err = ""
	return true
}

// SetCriterion changes the search text. On a genuine change the store is
// invalidated and a command for the first window is returned; identical text
// returns nil.
func (c *Coordinator) SetCriterion(text string) tea.Cmd {
	if Decide(c.session.Criterion(), session.Criterion{Text: text}) == Extend {
		return nil
	}
	prev := c.session.Generation()
	c.session.SetCriterion(text)
	c.invalidate()
	c.logger.Debug("loader: criterion changed", "query", text, "generation", c.session.Generation(), "previous", prev)
	return c.EnsureRange(0, c.cfg.FirstLimit)
}

// Loading reports whether a request of the current generation is
// outstanding.
func (c *Coordinator) Loading() bool {
	return len(c.inflight) > 0
}

// Err returns the error text of the last failed fetch, or "".
func (c *Coordinator) Err() string {
	return c.err
}

// Close ends the session. Commands already returned observe a cancelled
// context; later calls issue nothing.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.inflight = make(map[rangeKey]int)
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
