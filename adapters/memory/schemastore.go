// Package memory provides concurrency-safe in-memory stores.
package memory

import (
	"sync"

	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/ports"
)

// SchemaStore is an in-memory implementation of ports.SchemaStore that is
// safe for concurrent use.
type SchemaStore struct {
	mu      sync.RWMutex
	schemas map[string]*schema.ObjectSchema // by namespace/version
}

// NewSchemaStore creates a new in-memory schema store.
func NewSchemaStore() *SchemaStore {
	return &SchemaStore{
		schemas: make(map[string]*schema.ObjectSchema),
	}
}

// GetSchemaType returns the referenced type, or nil if the schema or type is missing.
func (s *SchemaStore) GetSchemaType(ref schema.TypeRef) (*schema.Type, error) {
	s.mu.RLock()
	sch, ok := s.schemas[ref.SchemaKey()]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	t, ok := sch.Type(ref.Type)
	if !ok {
		return nil, nil
	}
	return t, nil
}

// RegisterSchema stores a schema, replacing any previous one with the same key.
func (s *SchemaStore) RegisterSchema(sch *schema.ObjectSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemas[sch.Key()] = sch
	return nil
}

// GetSchema returns a registered schema, or nil.
func (s *SchemaStore) GetSchema(namespace, version string) (*schema.ObjectSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.schemas[schema.SchemaKey(namespace, version)], nil
}

// RemoveSchema deletes a schema. It reports whether one was present.
func (s *SchemaStore) RemoveSchema(namespace, version string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := schema.SchemaKey(namespace, version)
	_, ok := s.schemas[key]
	delete(s.schemas, key)
	return ok, nil
}

// ListSchemas summarizes every schema, by namespace then semantic version.
func (s *SchemaStore) ListSchemas() ([]ports.SchemaInfo, error) {
	s.mu.RLock()
	all := make([]*schema.ObjectSchema, 0, len(s.schemas))
	for _, sch := range s.schemas {
		all = append(all, sch)
	}
	s.mu.RUnlock()

	infos := make([]ports.SchemaInfo, 0, len(all))
	for _, sch := range all {
		info, err := registry.Describe(sch)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	registry.SortInfos(infos)
	return infos, nil
}

// LatestSchema returns the highest registered version of namespace, or nil.
func (s *SchemaStore) LatestSchema(namespace string) (*schema.ObjectSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *schema.ObjectSchema
	for _, sch := range s.schemas {
		if sch.Namespace() != namespace {
			continue
		}
		if best == nil || registry.CompareVersions(sch.Version(), best.Version()) > 0 {
			best = sch
		}
	}
	return best, nil
}

// Ensure interface compliance.
var (
	_ ports.SchemaStore   = (*SchemaStore)(nil)
	_ ports.SchemaLister  = (*SchemaStore)(nil)
	_ ports.SchemaGetter  = (*SchemaStore)(nil)
	_ ports.SchemaRemover = (*SchemaStore)(nil)
	_ ports.LatestGetter  = (*SchemaStore)(nil)
)
