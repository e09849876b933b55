// Package app is the interactive listing: a search box, a scrolling table
// that fills in as windows arrive, and a detail pane for the selected file.
package app

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wilbur182/filescope/internal/config"
	"github.com/wilbur182/filescope/internal/configwatch"
	"github.com/wilbur182/filescope/internal/features"
	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/markdown"
	"github.com/wilbur182/filescope/internal/session"
	"github.com/wilbur182/filescope/internal/styles"
	"github.com/wilbur182/filescope/internal/ui"
	"github.com/wilbur182/filescope/internal/viewport"
)

// ToastMsg shows a transient message in the footer.
type ToastMsg struct {
	Message  string
	Duration time.Duration
	IsError  bool
}

type focusArea int

const (
	focusList focusArea = iota
	focusSearch
)

// Options wires the model to its collaborators.
type Options struct {
	Config *config.Config
	Query  string // Initial search text

	// NewSource builds the listing source for a configuration. It is called
	// once at startup and again whenever a reload changes the endpoint.
	NewSource func(cfg *config.Config) loader.Source

	Flags   *features.Manager
	Metrics *loader.Metrics
	Logger  *slog.Logger
	Watcher *configwatch.Watcher // Optional; enables reload on save
}

// Model is the root Bubble Tea model.
type Model struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	session *session.Session

	coord   *loader.Coordinator
	listing *viewport.Listing
	scan    *viewport.Loader

	keys     keyMap
	help     help.Model
	input    textinput.Model
	spinner  ui.BrailleSpinner
	renderer *markdown.Renderer

	width, height int
	focus         focusArea
	cursor        int // Selected row index
	top           int // First visible row index
	frame         int // Animation frame for placeholders

	showDetail bool
	rawDetail  bool
	showHelp   bool

	statusMsg     string
	statusExpiry  time.Time
	statusIsError bool
}

// New creates the model. No request is issued until Init runs.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Flags == nil {
		opts.Flags = features.NewManager(cfg)
	}
	styles.ApplyTheme(cfg.UI.Theme)

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search files"
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.SetValue(opts.Query)

	sess := session.New()
	sess.SetCriterion(opts.Query)

	m := Model{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		session:  sess,
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    ti,
		renderer: markdown.NewRenderer(logger),
	}
	m.connect(cfg)
	return m
}

// connect builds a coordinator for cfg on the model's session.
func (m *Model) connect(cfg *config.Config) {
	m.coord = loader.New(m.session, m.opts.NewSource(cfg), LoaderConfig(cfg, m.opts.Flags, m.opts.Metrics, m.logger))
	m.listing = viewport.NewListing(m.coord)
	m.scan = viewport.NewLoader(cfg.Listing.Threshold, cfg.Listing.MinimumBatchSize)
}

// Init requests the first window and starts the animation and config
// watcher loops.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.coord.Start(), ui.Tick()}
	if m.opts.Watcher != nil {
		cmds = append(cmds, m.opts.Watcher.Wait())
	}
	return tea.Batch(cmds...)
}

// Coordinator returns the active coordinator.
func (m Model) Coordinator() *loader.Coordinator {
	return m.coord
}

// Close cancels outstanding requests. Call it after the program exits.
func (m Model) Close() {
	m.coord.Close()
}

// ShowToast displays a temporary status message.
func (m *Model) ShowToast(msg string, duration time.Duration) {
	m.statusMsg = msg
	m.statusExpiry = time.Now().Add(duration)
	m.statusIsError = false
}

// ClearToast clears any expired toast message.
func (m *Model) ClearToast() {
	if m.statusMsg != "" && time.Now().After(m.statusExpiry) {
		m.statusMsg = ""
		m.statusIsError = false
	}
}

// rowCount is the number of rows laid out: the matching count.
func (m Model) rowCount() int {
	return m.listing.LoadedRowCount()
}

// listHeight is the number of table rows that fit below the header and
// search line and above the footer.
func (m Model) listHeight() int {
	return max(m.height-3, 1)
}

// visibleRange returns the inclusive range of rows the table draws.
func (m Model) visibleRange() (start, stop int, ok bool) {
	n := m.rowCount()
	if n == 0 || m.height == 0 {
		return 0, 0, false
	}
	start = min(m.top, n-1)
	stop = min(start+m.listHeight(), n) - 1
	return start, stop, true
}

// loadVisible requests the unloaded rows around the drawn ones.
func (m Model) loadVisible() tea.Cmd {
	start, stop, ok := m.visibleRange()
	if !ok {
		return nil
	}
	return m.scan.OnRowsRendered(m.listing, start, stop)
}

// moveCursor moves the selection by delta rows and scrolls to keep it shown.
func (m *Model) moveCursor(delta int) {
	n := m.rowCount()
	if n == 0 {
		m.cursor, m.top = 0, 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	h := m.listHeight()
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+h {
		m.top = m.cursor - h + 1
	}
	m.top = max(m.top, 0)
}
