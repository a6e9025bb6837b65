package formatter

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Format writes the same document as JSONFormatter, as YAML.
func (f *YAMLFormatter) Format(w io.Writer, t Table, _ Options) error {
	output := map[string]any{
		"kind":  t.Kind,
		"count": len(t.Rows),
		"data":  t.project(),
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(output)
}
