package markdown

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/wilbur182/filescope/internal/remote"
)

// FileDocument describes a file as markdown for the detail pane.
func FileDocument(f remote.File) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(f.Title()))

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		if v == "" {
			return
		}
		fmt.Fprintf(&b, "| %s | `%s` |\n", k, strings.ReplaceAll(v, "`", "'"))
	}
	row("id", f.ID)
	row("uid", f.UID)
	row("created", f.CreatedAt)

	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row(k, f.Extra[k])
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "`", `\`+"`")
	return r.Replace(s)
}

// RawJSON pretty-prints a row with sorted keys.
func RawJSON(fields map[string]any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fields); err != nil {
		return fmt.Sprint(fields)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Highlight returns content colored by chroma for the given lexer.
// On failure the input is returned unchanged.
func Highlight(content, lexer, syntaxTheme string) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, lexer, "terminal256", syntaxTheme); err != nil {
		return content
	}
	return strings.TrimRight(buf.String(), "\n")
}
