package window

import (
	"encoding/json"
	"fmt"
)

// IDField is the field whose presence marks a row as loaded.
const IDField = "id"

// Row is a single listing entry at an absolute position.
type Row struct {
	Index      int            // Absolute position in the listing
	Fields     map[string]any // Raw fields as returned by the endpoint
	Generation uint64         // Generation of the response that wrote the row
}

// Placeholder returns the row reported for an index that has not been loaded.
func Placeholder(index int) Row {
	return Row{Index: index}
}

// Loaded reports whether the row carries an identifying field.
func (r Row) Loaded() bool {
	return hasID(r.Fields)
}

// ID returns the identifying field, or nil for a placeholder.
func (r Row) ID() any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[IDField]
}

// String returns a field formatted for display. Missing fields yield "".
func (r Row) String(key string) string {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		// encoding/json decodes integers as float64 unless UseNumber is set
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

func hasID(fields map[string]any) bool {
	if fields == nil {
		return false
	}
	v, ok := fields[IDField]
	return ok && v != nil
}
