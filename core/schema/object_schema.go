package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/artpar/objectschema/core/capability"
)

// ObjectSchema is a namespaced, versioned collection of named types.
//
// Namespace and Version are fixed at construction. Types may be added,
// replaced and removed afterwards; each change bumps UpdatedOn and the
// revision. An
// ObjectSchema is safe for concurrent use.
type ObjectSchema struct {
	identity    Identity
	namespace   string
	version     string
	description string

	mu       sync.RWMutex
	types    map[string]*Type
	revision uint64
	caps   *capability.Registry
	source IdentitySource
}

// Option configures schema, type and property construction.
type Option func(*options)

type options struct {
	caps     *capability.Registry
	source   IdentitySource
	identity *Identity
}

func newOptions(opts []Option) options {
	o := options{
		caps:   capability.Default(),
		source: DefaultIdentitySource(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCapabilities sets the kind/method table. Defaults to capability.Default().
func WithCapabilities(c *capability.Registry) Option {
	return func(o *options) {
		if c != nil {
			o.caps = c
		}
	}
}

// WithIdentitySource sets the ID and clock source.
func WithIdentitySource(s IdentitySource) Option {
	return func(o *options) {
		if s != nil {
			o.source = s
		}
	}
}

// WithIdentity restores a previously issued identity instead of minting one.
func WithIdentity(id Identity) Option {
	return func(o *options) {
		o.identity = &id
	}
}

// New builds an ObjectSchema from its definition.
//
// Malformed top-level fields are reported together in a
// *StructuralValidationError. Types are then built in name order and the
// first failure is returned.
func New(def Definition, opts ...Option) (*ObjectSchema, error) {
	if err := checkStructure(def); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	s := &ObjectSchema{
		namespace:   def.Namespace,
		version:     def.Version,
		description: def.Description,
		types:       make(map[string]*Type, len(def.Types)),
		caps:        o.caps,
		source:      o.source,
	}
	if o.identity != nil {
		s.identity = *o.identity
		if s.identity.EntityType == "" {
			s.identity.EntityType = EntityType
		}
	} else {
		s.identity = o.source.NewIdentity(EntityType)
	}

	for _, name := range sortedKeys(def.Types) {
		t, err := newType(name, name, def.Types[name], s.caps)
		if err != nil {
			return nil, err
		}
		s.types[name] = t
	}
	return s, nil
}

func checkStructure(def Definition) error {
	var fields []FieldError
	if !ValidNamespace(def.Namespace) {
		fields = append(fields, FieldError{Field: "namespace", Value: def.Namespace, Expected: "a string matching ns://<path>"})
	}
	if !ValidVersion(def.Version) {
		fields = append(fields, FieldError{Field: "version", Value: def.Version, Expected: "a string matching <major>.<minor>.<patch>"})
	}
	if strings.TrimSpace(def.Description) == "" {
		fields = append(fields, FieldError{Field: "description", Value: def.Description, Expected: "a non-empty string"})
	}
	for _, name := range sortedKeys(def.Types) {
		if strings.TrimSpace(name) == "" {
			fields = append(fields, FieldError{Field: "types", Value: name, Expected: "non-empty type names"})
		}
	}
	if len(fields) > 0 {
		return &StructuralValidationError{Fields: fields}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Identity returns the entity envelope.
func (s *ObjectSchema) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Namespace returns the namespace, e.g. "ns://acme/crm".
func (s *ObjectSchema) Namespace() string { return s.namespace }

// Version returns the semantic version.
func (s *ObjectSchema) Version() string { return s.version }

// Description returns the description.
func (s *ObjectSchema) Description() string { return s.description }

// Key returns the registry key "<namespace>/<version>".
func (s *ObjectSchema) Key() string {
	return SchemaKey(s.namespace, s.version)
}

// Ref returns a reference to the named type in this schema.
func (s *ObjectSchema) Ref(typeName string) TypeRef {
	return TypeRef{Namespace: s.namespace, Version: s.version, Type: typeName}
}

// Type returns the named type.
func (s *ObjectSchema) Type(name string) (*Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// TypeNames returns type names in sorted order.
func (s *ObjectSchema) TypeNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.types)
}

// Types returns every type in name order.
func (s *ObjectSchema) Types() []*Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Type, 0, len(s.types))
	for _, name := range sortedKeys(s.types) {
		out = append(out, s.types[name])
	}
	return out
}

// AddType builds and adds a new type. It fails if the name is taken.
func (s *ObjectSchema) AddType(name string, def TypeDef) (*Type, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &StructuralValidationError{Fields: []FieldError{{Field: "types", Value: name, Expected: "non-empty type names"}}}
	}
	t, err := newType(name, name, def, s.caps)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.types[name]; exists {
		return nil, &DuplicateTypeError{Schema: s.Key(), Name: name}
	}
	s.types[name] = t
	s.touch()
	return t, nil
}

// SetType builds a type and adds or replaces it. It returns the replaced
// type, if any.
func (s *ObjectSchema) SetType(name string, def TypeDef) (*Type, bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, &StructuralValidationError{Fields: []FieldError{{Field: "types", Value: name, Expected: "non-empty type names"}}}
	}
	t, err := newType(name, name, def, s.caps)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, replaced := s.types[name]
	s.types[name] = t
	s.touch()
	return old, replaced, nil
}

// RemoveType removes and returns the named type.
func (s *ObjectSchema) RemoveType(name string) (*Type, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[name]
	if !ok {
		return nil, false
	}
	delete(s.types, name)
	s.touch()
	return t, true
}

// touch must be called with mu held.
func (s *ObjectSchema) touch() {
	s.identity.UpdatedOn = s.source.Now()
	s.revision++
}

// Revision counts the type changes made since construction.
func (s *ObjectSchema) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Definition returns the plain-data form of the schema, including types
// added after construction.
func (s *ObjectSchema) Definition() Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def := Definition{
		Namespace:   s.namespace,
		Version:     s.version,
		Description: s.description,
	}
	if len(s.types) > 0 {
		def.Types = make(map[string]TypeDef, len(s.types))
		for name, t := range s.types {
			def.Types[name] = t.def
		}
	}
	return def
}
