// Package markdown renders the detail pane for a selected file, either as
// glamour markdown or as highlighted JSON.
package markdown

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/wilbur182/filescope/internal/styles"
)

const (
	// MinWidthForMarkdown is the narrowest pane glamour is used for.
	// Below this, text is wrapped plainly.
	MinWidthForMarkdown = 30

	// MaxCacheEntries bounds the render cache; it is dropped wholesale when full.
	MaxCacheEntries = 100
)

// Renderer wraps a glamour TermRenderer with a per-width render cache.
type Renderer struct {
	mu        sync.Mutex
	renderer  *glamour.TermRenderer
	lastWidth int
	lastTheme string
	cache     map[uint64][]string
	logger    *slog.Logger
}

// NewRenderer returns a renderer. A nil logger discards render errors.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{
		cache:  make(map[uint64][]string),
		logger: logger,
	}
}

// Render turns markdown into styled lines no wider than width.
func (r *Renderer) Render(content string, width int) []string {
	if content == "" {
		return nil
	}
	if width < MinWidthForMarkdown {
		return WrapText(content, width)
	}

	theme := styles.GetMarkdownTheme()
	key := cacheKey(content, width, theme)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[key]; ok {
		return cached
	}

	tr, err := r.termRenderer(width, theme)
	if err != nil {
		r.logger.Warn("markdown renderer", "error", err)
		return WrapText(content, width)
	}
	out, err := tr.Render(content)
	if err != nil {
		r.logger.Warn("markdown render", "error", err)
		return WrapText(content, width)
	}

	lines := strings.Split(strings.TrimRight(out, "\n\r\t "), "\n")
	if len(r.cache) >= MaxCacheEntries {
		r.cache = make(map[uint64][]string)
	}
	r.cache[key] = lines
	return lines
}

func cacheKey(content string, width int, theme string) uint64 {
	h := xxhash.New()
	h.WriteString(theme)
	h.WriteString("\x00")
	h.WriteString(strconv.Itoa(width))
	h.WriteString("\x00")
	h.WriteString(content)
	return h.Sum64()
}

// termRenderer must be called with r.mu held. A width or theme change
// replaces the renderer and clears the cache.
func (r *Renderer) termRenderer(width int, theme string) (*glamour.TermRenderer, error) {
	if r.renderer != nil && r.lastWidth == width && r.lastTheme == theme {
		return r.renderer, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	r.renderer = tr
	r.lastWidth = width
	r.lastTheme = theme
	r.cache = make(map[uint64][]string)
	return tr, nil
}

// WrapText wraps text on word boundaries to fit maxWidth display cells.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	words := strings.Fields(strings.ReplaceAll(text, "\n", " "))
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if runewidth.StringWidth(current)+1+runewidth.StringWidth(word) <= maxWidth {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
