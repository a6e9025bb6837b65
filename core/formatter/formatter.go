// Package formatter renders command output as tables, JSON or YAML.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Formatter renders a Table in one output format.
type Formatter interface {
	// Name returns the format name used by --output.
	Name() string

	// Format writes t to w.
	Format(w io.Writer, t Table, opts Options) error
}

// Table is a list of records with an ordered set of columns.
type Table struct {
	// Kind names the records, e.g. "schemas".
	Kind string

	// Columns lists the record keys to render, in order.
	Columns []string

	Rows []map[string]any
}

// Options configures formatting behavior.
type Options struct {
	// NoHeader disables the header row for tables.
	NoHeader bool

	// Compact minimizes whitespace in JSON.
	Compact bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// project returns the rows restricted to the table's columns.
func (t Table) project() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		if len(t.Columns) == 0 {
			out[i] = row
			continue
		}
		r := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			if v, ok := row[col]; ok {
				r[col] = v
			}
		}
		out[i] = r
	}
	return out
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry creates a registry holding the table, json and yaml formatters.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		r.formatters[f.Name()] = f
	}
	return r
}

// Register adds a formatter.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", name, r.names())
	}
	return f, nil
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Write renders t with the named formatter from the default registry.
func Write(w io.Writer, name string, t Table, opts Options) error {
	f, err := Get(name)
	if err != nil {
		return err
	}
	return f.Format(w, t, opts)
}
