package main

import (
	"encoding/json"
	"io"
)

// writeJSON prints v as indented JSON. HTML escaping is off so topics like
// "a < b" and media URLs come out as typed.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
