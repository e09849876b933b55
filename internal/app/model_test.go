package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilbur182/filescope/internal/config"
	"github.com/wilbur182/filescope/internal/configwatch"
	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/remote"
)

var stems = []string{"invoice", "lesson", "report"}

// fakeFiles serves total rows named "<stem>-NNN.pdf", filtered by substring.
type fakeFiles struct {
	mu    sync.Mutex
	total int
	fail  error
	calls []remote.Query
}

func (f *fakeFiles) ListFiles(_ context.Context, q remote.Query) (*remote.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if f.fail != nil {
		return nil, f.fail
	}

	var matched []map[string]any
	for i := 0; i < f.total; i++ {
		name := fmt.Sprintf("%s-%03d.pdf", stems[i%len(stems)], i)
		if !strings.Contains(name, q.Text) {
			continue
		}
		matched = append(matched, map[string]any{
			"id":              f.total - i,
			"uid":             fmt.Sprintf("%08x", i),
			"name":            name,
			"file_created_at": "2024-05-01 10:00:00",
		})
	}
	var files []map[string]any
	for i := q.Offset; i < q.Offset+q.Limit && i < len(matched); i++ {
		files = append(files, matched[i])
	}
	return &remote.Page{Files: files, Matching: len(matched), Total: f.total}, nil
}

func newTestModel(t *testing.T, src *fakeFiles) Model {
	t.Helper()
	m := New(Options{
		Config:    config.Default(),
		NewSource: func(*config.Config) loader.Source { return src },
	})
	t.Cleanup(m.Close)
	return m
}

// drive runs cmd and every command produced while handling its messages.
func drive(m Model, cmd tea.Cmd) Model {
	loader.Run(cmd, func(msg tea.Msg) tea.Cmd {
		next, more := m.Update(msg)
		m = next.(Model)
		return more
	})
	return m
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, src *fakeFiles, width, height int) Model {
	t.Helper()
	m := newTestModel(t, src)
	m, cmd := send(m, tea.WindowSizeMsg{Width: width, Height: height})
	assert.Nil(t, cmd, "nothing to lay out before the first response")
	return drive(m, m.coord.Start())
}

func TestFirstWindowAndLookAhead(t *testing.T) {
	src := &fakeFiles{total: 300}
	m := loaded(t, src, 80, 20)

	store := m.coord.Store()
	assert.Equal(t, 300, store.Matching())
	assert.Equal(t, 300, store.Total())
	// the first window plus the look-ahead past the visible rows
	for i := 0; i < 100+17; i++ {
		require.True(t, store.IsLoaded(i), "row %d", i)
	}
	assert.Equal(t, "Matched 300 of 300", m.headerStatus())
	assert.False(t, m.coord.Loading())

	calls := src.calls
	require.NotEmpty(t, calls)
	assert.Equal(t, 0, calls[0].Offset)
	assert.Equal(t, 100, calls[0].Limit)
}

func TestViewShowsRowsAndPlaceholders(t *testing.T) {
	src := &fakeFiles{total: 300}
	m := newTestModel(t, src)
	m, _ = send(m, tea.WindowSizeMsg{Width: 80, Height: 10})
	first := m.coord.Start()
	require.NotNil(t, first)

	// before the first response the header reports the outstanding request
	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Searching...")

	// apply only the first window, then scroll past it without loading
	m, _ = send(m, first())
	view = ansi.Strip(m.View())
	assert.Contains(t, view, "invoice-000.pdf")
	assert.Contains(t, view, "00000000")

	m, _ = send(m, runes("G"))
	assert.Equal(t, 299, m.cursor)
	assert.Equal(t, 299-m.listHeight()+1, m.top)
	view = ansi.Strip(m.View())
	assert.Contains(t, view, "░", "unloaded rows render as placeholders")
	assert.Contains(t, view, "299 ", "index column shows absolute positions")
}

func TestTypingDiscardsStaleWindows(t *testing.T) {
	src := &fakeFiles{total: 300}
	m := loaded(t, src, 80, 20)

	m, cmd := send(m, runes("/"))
	assert.Nil(t, cmd)
	require.Equal(t, focusSearch, m.focus)

	// one generation per keystroke; hold the fetches back
	var pending []tea.Cmd
	for _, r := range "inv" {
		var c tea.Cmd
		m, c = send(m, runes(string(r)))
		require.NotNil(t, c)
		pending = append(pending, c)
	}
	assert.Equal(t, "inv", m.coord.Session().Criterion().Text)
	assert.Equal(t, "Searching...", m.headerStatus())

	// answer newest first so the older generations arrive late
	for i := len(pending) - 1; i >= 0; i-- {
		m = drive(m, pending[i])
	}

	store := m.coord.Store()
	assert.Equal(t, 100, store.Matching())
	assert.Equal(t, 300, store.Total())
	for i := 0; i < 100; i++ {
		row := store.RowAt(i)
		require.True(t, row.Loaded())
		assert.True(t, strings.HasPrefix(row.String("name"), "invoice-"), "row %d is %q", i, row.String("name"))
	}
	assert.Equal(t, "Matched 100 of 300", m.headerStatus())
}

func TestEscapeCancelsSearch(t *testing.T) {
	src := &fakeFiles{total: 30}
	m := loaded(t, src, 80, 20)

	m, _ = send(m, runes("/"))
	m, cmd := send(m, runes("x"))
	m = drive(m, cmd)
	assert.Equal(t, 0, m.coord.Store().Matching())
	assert.Contains(t, ansi.Strip(m.View()), "No files")

	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, focusList, m.focus)
	assert.Equal(t, "", m.input.Value())
	m = drive(m, cmd)
	assert.Equal(t, "", m.coord.Session().Criterion().Text)
	assert.Equal(t, 30, m.coord.Store().Matching())

	// esc with nothing to cancel issues nothing
	_, cmd = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
}

func TestFetchErrorInHeader(t *testing.T) {
	src := &fakeFiles{total: 10, fail: errors.New("files: list: status 502: bad gateway")}
	m := loaded(t, src, 80, 20)

	assert.Equal(t, "Error loading files: files: list: status 502: bad gateway", m.headerStatus())
	assert.Contains(t, ansi.Strip(m.View()), "Error loading files")

	// a successful response for the same criterion clears it
	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = drive(m, cmd)
	assert.Equal(t, "Matched 10 of 10", m.headerStatus())
}

func TestFailedWindowNotRetriedUntilViewportMoves(t *testing.T) {
	src := &fakeFiles{total: 1000}
	m := loaded(t, src, 80, 20)

	src.mu.Lock()
	src.fail = errors.New("files: list: status 503: unavailable")
	before := len(src.calls)
	src.mu.Unlock()

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnd})
	require.NotNil(t, cmd)

	handled := 0
	loader.Run(cmd, func(msg tea.Msg) tea.Cmd {
		handled++
		if handled > 50 {
			return nil
		}
		next, more := m.Update(msg)
		m = next.(Model)
		return more
	})

	src.mu.Lock()
	after := src.calls[before:]
	src.mu.Unlock()
	require.Len(t, after, 1, "a failed window is requested once")
	assert.Equal(t, 1000-m.listHeight()-100, after[0].Offset)
	assert.False(t, m.coord.Loading())
	assert.Contains(t, m.headerStatus(), "Error loading files")

	// redrawing the same rows asks for nothing
	m, cmd = send(m, tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Nil(t, cmd)

	// once the endpoint recovers, leaving and coming back retries
	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()
	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyHome})
	m = drive(m, cmd)
	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyEnd})
	m = drive(m, cmd)
	assert.True(t, m.coord.Store().IsLoaded(999))
	assert.Equal(t, "Matched 1000 of 1000", m.headerStatus())
}

func TestDetailPane(t *testing.T) {
	src := &fakeFiles{total: 30}
	m := loaded(t, src, 120, 30)

	m, _ = send(m, runes("j"))
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.showDetail)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "lesson-001.pdf")
	assert.Contains(t, view, "00000001")

	m, _ = send(m, runes("r"))
	assert.Contains(t, ansi.Strip(m.View()), `"uid": "00000001"`)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showDetail)
	assert.Equal(t, "", m.coord.Session().Criterion().Text)
}

func TestCopyUIDNeedsLoadedRow(t *testing.T) {
	src := &fakeFiles{total: 300}
	m := newTestModel(t, src)
	m, _ = send(m, tea.WindowSizeMsg{Width: 80, Height: 20})

	_, cmd := send(m, runes("y"))
	assert.Nil(t, cmd, "placeholder rows have nothing to copy")

	m = drive(m, m.coord.Start())
	_, cmd = send(m, runes("y"))
	assert.NotNil(t, cmd)
}

func TestToastExpires(t *testing.T) {
	m := newTestModel(t, &fakeFiles{})
	m, _ = send(m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m, _ = send(m, ToastMsg{Message: "Copied: 00000001", Duration: -1})
	assert.Contains(t, ansi.Strip(m.View()), "Copied: 00000001")

	m.statusExpiry = m.statusExpiry.Add(-toastDuration)
	m.ClearToast()
	assert.NotContains(t, ansi.Strip(m.View()), "Copied")
}

func TestConfigReloadRestartsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ui":{"theme":"nord"}}`), 0644))

	var built []int
	src := &fakeFiles{total: 50}
	m := New(Options{
		Config: config.Default(),
		NewSource: func(cfg *config.Config) loader.Source {
			built = append(built, cfg.API.Port)
			return src
		},
	})
	t.Cleanup(m.Close)
	m, _ = send(m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m = drive(m, m.coord.Start())
	gen := m.coord.Session().Generation()

	// theme only: applied in place
	m, cmd := send(m, configwatch.ChangedMsg{Path: path})
	assert.Nil(t, cmd)
	assert.Equal(t, "nord", m.cfg.UI.Theme)
	assert.Equal(t, []int{8080}, built)

	// an in-flight window from before the restart must not land
	late := m.coord.EnsureRange(60, 10)
	if late == nil {
		late = func() tea.Msg {
			return loader.RangeResultMsg{Request: loader.Request{Generation: gen, Offset: 0, Limit: 1}, Page: &remote.Page{Matching: 1, Total: 1}}
		}
	}

	require.NoError(t, os.WriteFile(path, []byte(`{"api":{"port":9090}}`), 0644))
	m, cmd = send(m, configwatch.ChangedMsg{Path: path})
	require.NotNil(t, cmd)
	assert.Equal(t, []int{8080, 9090}, built)
	assert.Greater(t, m.coord.Session().Generation(), gen)

	m = drive(m, late)
	assert.Equal(t, 0, m.coord.Store().Matching(), "stale window applied")
	m = drive(m, cmd)
	assert.Equal(t, 50, m.coord.Store().Matching())
}

func TestConfigReloadErrorKeepsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api":{"port":0}}`), 0644))

	m := loaded(t, &fakeFiles{total: 5}, 80, 20)
	gen := m.coord.Session().Generation()

	m, _ = send(m, configwatch.ChangedMsg{Path: path})
	assert.True(t, m.statusIsError)
	assert.Contains(t, m.statusMsg, "Config error")
	assert.Equal(t, gen, m.coord.Session().Generation())
}
