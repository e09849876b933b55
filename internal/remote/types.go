package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StatusOK is the only response status treated as success.
const StatusOK = "ok"

// Query selects one window of the listing.
type Query struct {
	Offset    int
	Limit     int
	Text      string
	RequestID string // Sent as X-Request-ID; generated when empty
}

func (q Query) key() string {
	return strconv.Itoa(q.Offset) + "\x00" + strconv.Itoa(q.Limit) + "\x00" + q.Text
}

// Page is a decoded listing response. Files are shared between callers that
// were collapsed onto the same request and must be treated as read-only.
type Page struct {
	Files    []map[string]any
	Matching int
	Total    int
}

// listResponse is the wire form of GET /rest/files.
type listResponse struct {
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Files    []map[string]any `json:"files"`
	Matching int              `json:"matching"`
	Total    int              `json:"total"`
}

// errorResponse is the body returned alongside non-2xx statuses.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// File is the typed view of a listing row used by the detail pane.
type File struct {
	ID        string
	UID       string
	Name      string
	CreatedAt string
	Extra     map[string]string
}

// FileFromFields extracts the known columns from a raw row. Unknown fields
// are kept in Extra.
func FileFromFields(fields map[string]any) File {
	f := File{Extra: make(map[string]string)}
	for k, v := range fields {
		s := formatValue(v)
		switch k {
		case "id":
			f.ID = s
		case "uid":
			f.UID = s
		case "name":
			f.Name = s
		case "file_created_at":
			f.CreatedAt = s
		default:
			f.Extra[k] = s
		}
	}
	return f
}

// Title returns a short display label.
func (f File) Title() string {
	if f.Name != "" {
		return f.Name
	}
	if f.UID != "" {
		return f.UID
	}
	return "#" + f.ID
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
