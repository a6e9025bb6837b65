package bootstrap

import (
	"fmt"
	"sync"

	"github.com/artpar/objectschema/adapters/metrics"
	"github.com/artpar/objectschema/core/deps"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/rs/zerolog"
)

// LoadResult summarizes one pass over the schema directories.
type LoadResult struct {
	Schemas    []string         // keys of the registered schemas, in load order
	Unresolved []schema.TypeRef // references no registered schema satisfies
}

// Loader registers every schema document found under a set of directories.
type Loader struct {
	registry *registry.Registry
	logger   zerolog.Logger
	metrics  *metrics.Collector
	opts     []schema.Option

	mu   sync.Mutex
	dirs []string
}

// NewLoader creates a loader for dirs. m may be nil.
func NewLoader(reg *registry.Registry, dirs []string, logger zerolog.Logger, m *metrics.Collector, opts ...schema.Option) *Loader {
	return &Loader{
		registry: reg,
		logger:   logger,
		metrics:  m,
		opts:     opts,
		dirs:     append([]string(nil), dirs...),
	}
}

// Dirs returns the directories the loader reads.
func (l *Loader) Dirs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.dirs...)
}

// SetDirs replaces the directories the loader reads.
func (l *Loader) SetDirs(dirs []string) {
	l.mu.Lock()
	l.dirs = append([]string(nil), dirs...)
	l.mu.Unlock()
}

// Load parses every directory and registers the result. Nothing is
// registered if any document fails to parse.
func (l *Loader) Load() (*LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.load()
	if l.metrics != nil {
		n := 0
		if res != nil {
			n = len(res.Schemas)
		}
		l.metrics.RecordSchemaReload(n, err)
	}
	return res, err
}

func (l *Loader) load() (*LoadResult, error) {
	var parsed []*schema.ObjectSchema
	for _, dir := range l.dirs {
		schemas, err := schema.ParseDir(dir, l.opts...)
		if err != nil {
			return nil, fmt.Errorf("load schemas: %w", err)
		}
		parsed = append(parsed, schemas...)
	}

	res := &LoadResult{}
	seen := make(map[string]bool, len(parsed))
	var refs []schema.TypeRef
	for _, sch := range parsed {
		if seen[sch.Key()] {
			l.logger.Warn().Str("schema", sch.Key()).Msg("schema defined more than once, last definition wins")
		}
		seen[sch.Key()] = true

		if err := l.registry.RegisterSchema(sch); err != nil {
			return res, err
		}
		res.Schemas = append(res.Schemas, sch.Key())
		refs = append(refs, deps.ExtractSchema(sch)...)
	}

	missing, err := deps.Unresolved(l.registry.Store(), refs)
	if err != nil {
		return res, fmt.Errorf("check references: %w", err)
	}
	res.Unresolved = missing
	for _, ref := range missing {
		l.logger.Warn().Str("ref", ref.String()).Msg("unresolved schema reference")
	}

	l.logger.Info().
		Int("schemas", len(res.Schemas)).
		Int("unresolved", len(res.Unresolved)).
		Strs("dirs", l.dirs).
		Msg("schemas loaded")
	return res, nil
}
