package app

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wilbur182/filescope/internal/config"
	"github.com/wilbur182/filescope/internal/configwatch"
	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/styles"
	"github.com/wilbur182/filescope/internal/ui"
)

const toastDuration = 2 * time.Second

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		m.ensureCursorVisible()
		return m, m.loadVisible()

	case loader.RangeResultMsg:
		if !m.coord.Update(msg) {
			return m, nil
		}
		m.spinner.SetActive(m.coord.Loading())
		if n := m.rowCount(); m.cursor >= n {
			m.cursor = max(n-1, 0)
			m.ensureCursorVisible()
		}
		return m, m.loadVisible()

	case ui.TickMsg:
		m.spinner.SetActive(m.coord.Loading())
		m.spinner.Tick()
		m.frame++
		m.ClearToast()
		return m, ui.Tick()

	case ToastMsg:
		d := msg.Duration
		if d <= 0 {
			d = toastDuration
		}
		m.ShowToast(msg.Message, d)
		m.statusIsError = msg.IsError
		return m, nil

	case configwatch.ChangedMsg:
		var cmds []tea.Cmd
		if m.opts.Watcher != nil {
			cmds = append(cmds, m.opts.Watcher.Wait())
		}
		cfg, err := config.LoadFrom(msg.Path)
		if err != nil {
			m.logger.Warn("app: config reload failed", "path", msg.Path, "err", err)
			m.ShowToast("Config error: "+err.Error(), 4*time.Second)
			m.statusIsError = true
			return m, tea.Batch(cmds...)
		}
		cmds = append(cmds, m.applyConfig(cfg))
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyConfig adopts a reloaded configuration. Theme and display settings
// apply in place; a change to the endpoint, listing tuning or feature flags
// restarts the session under the same search text.
func (m *Model) applyConfig(cfg *config.Config) tea.Cmd {
	prev := m.cfg
	prevFlags := m.opts.Flags.List()
	m.opts.Flags.Reload(cfg)
	m.cfg = cfg
	styles.ApplyTheme(cfg.UI.Theme)

	if prev.API == cfg.API && prev.Listing == cfg.Listing && sameFlags(prevFlags, m.opts.Flags.List()) {
		return nil
	}
	m.logger.Info("app: restarting session", "base_url", cfg.API.BaseURL())
	return m.restart()
}

// restart discards everything loaded so far and requests the first window
// again through a fresh source.
func (m *Model) restart() tea.Cmd {
	m.coord.Close()
	m.session.Reset()
	m.connect(m.cfg)
	m.cursor, m.top = 0, 0
	m.spinner.SetActive(true)
	return m.coord.Start()
}

func sameFlags(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// setCriterion forwards the search text to the coordinator and resets the
// scroll position when it changed.
func (m *Model) setCriterion(text string) tea.Cmd {
	cmd := m.coord.SetCriterion(text)
	if cmd == nil {
		return nil
	}
	m.cursor, m.top = 0, 0
	m.spinner.SetActive(true)
	return cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.focus == focusSearch {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.cursor)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.rowCount())
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Cancel):
		if m.showDetail {
			m.showDetail = false
			return m, nil
		}
		m.input.SetValue("")
		return m, m.setCriterion("")
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		return m, nil
	case key.Matches(msg, m.keys.Raw):
		m.rawDetail = !m.rawDetail
		return m, nil
	case key.Matches(msg, m.keys.CopyUID):
		return m, m.copySelectedUID()
	case key.Matches(msg, m.keys.Theme):
		next := styles.NextTheme(styles.GetCurrentTheme().Name)
		styles.ApplyTheme(next)
		m.cfg.UI.Theme = next
		m.ShowToast("Theme: "+styles.GetTheme(next).DisplayName, toastDuration)
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.restart()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	default:
		return m, nil
	}
	return m, m.loadVisible()
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.focus = focusList
		m.input.SetValue("")
		return m, m.setCriterion("")
	case tea.KeyEnter, tea.KeyDown, tea.KeyTab:
		m.input.Blur()
		m.focus = focusList
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(cmd, m.setCriterion(m.input.Value()))
}

// copySelectedUID copies the selected row's uid to the system clipboard off
// the event loop.
func (m Model) copySelectedUID() tea.Cmd {
	row := m.listing.RowAt(m.cursor)
	if !row.Loaded() {
		return nil
	}
	uid := row.String("uid")
	if uid == "" {
		return func() tea.Msg {
			return ToastMsg{Message: "Selected file has no uid", IsError: true}
		}
	}
	return func() tea.Msg {
		if err := clipboard.WriteAll(uid); err != nil {
			return ToastMsg{Message: "Failed to copy uid", IsError: true}
		}
		return ToastMsg{Message: "Copied: " + uid}
	}
}
