package domain

import (
	"bytes"
	"encoding/json"
)

// Layout is an opaque layout document. Only its JSON form travels through the core.
type Layout = json.RawMessage

// LayoutDocument is the typed shape of the default layout. Stored layouts are
// never decoded into it; it exists so defaults and tests have a schema.
type LayoutDocument struct {
	Widgets    []Widget `json:"widgets"`
	Background string   `json:"background"`
}

// Widget is a single positioned element of a layout.
type Widget struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	X        int            `json:"x"`
	Y        int            `json:"y"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Settings map[string]any `json:"settings,omitempty"`
}

// IsLayoutObject reports whether raw is a well-formed JSON object.
func IsLayoutObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}
