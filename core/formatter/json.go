package formatter

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format writes {"kind", "count", "data"} with rows restricted to the columns.
func (f *JSONFormatter) Format(w io.Writer, t Table, opts Options) error {
	output := map[string]any{
		"kind":  t.Kind,
		"count": len(t.Rows),
		"data":  t.project(),
	}

	encoder := json.NewEncoder(w)
	if !opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(output)
}
