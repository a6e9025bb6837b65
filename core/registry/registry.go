// Package registry maps namespace and version to object schemas and
// resolves cross-schema type references for validation.
//
// The registry is a facade over a pluggable ports.SchemaStore. The default
// store is a plain map and is not safe for concurrent use; substitute
// adapters/memory or adapters/sqlite through NewWithStore when the registry
// is shared between goroutines.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/core/validation"
	"github.com/artpar/objectschema/ports"
	"github.com/rs/zerolog"
)

// Observer receives the outcome of every Validate call.
type Observer interface {
	ObserveValidation(ref schema.TypeRef, elapsed time.Duration, err error)
}

// Registry stores schemas and resolves type references.
type Registry struct {
	store    ports.SchemaStore
	compiler *validation.Compiler
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithCompiler sets the validator compiler.
func WithCompiler(c *validation.Compiler) Option {
	return func(r *Registry) {
		if c != nil {
			r.compiler = c
		}
	}
}

// WithObserver sets a validation observer, typically a metrics collector.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// New creates a registry backed by an in-memory map.
func New(opts ...Option) *Registry {
	return newRegistry(newMapStore(), opts)
}

// NewWithStore creates a registry backed by impl. It fails with
// *InterfaceContractError if impl is nil or lacks GetSchemaType or
// RegisterSchema with the expected signatures.
func NewWithStore(impl any, opts ...Option) (*Registry, error) {
	store, err := asStore(impl)
	if err != nil {
		return nil, err
	}
	return newRegistry(store, opts), nil
}

func newRegistry(store ports.SchemaStore, opts []Option) *Registry {
	r := &Registry{
		store:    store,
		compiler: validation.NewCompiler(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func asStore(impl any) (ports.SchemaStore, error) {
	required := []string{"GetSchemaType", "RegisterSchema"}

	if impl == nil {
		return nil, &InterfaceContractError{Got: "<nil>", Missing: required}
	}
	rv := reflect.ValueOf(impl)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		if rv.IsNil() {
			return nil, &InterfaceContractError{Got: fmt.Sprintf("nil %T", impl), Missing: required}
		}
	}

	if store, ok := impl.(ports.SchemaStore); ok {
		return store, nil
	}

	rt := reflect.TypeOf(impl)
	want := reflect.TypeOf((*ports.SchemaStore)(nil)).Elem()
	var missing []string
	for _, name := range required {
		m, ok := rt.MethodByName(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		wm, _ := want.MethodByName(name)
		// m.Type includes the receiver; compare parameter and result lists.
		if !sameSignature(m.Type, wm.Type) {
			missing = append(missing, name+" (wrong signature)")
		}
	}
	return nil, &InterfaceContractError{Got: rt.String(), Missing: missing}
}

func sameSignature(method, iface reflect.Type) bool {
	if method.NumIn()-1 != iface.NumIn() || method.NumOut() != iface.NumOut() {
		return false
	}
	for i := 0; i < iface.NumIn(); i++ {
		if method.In(i+1) != iface.In(i) {
			return false
		}
	}
	for i := 0; i < iface.NumOut(); i++ {
		if method.Out(i) != iface.Out(i) {
			return false
		}
	}
	return true
}

// Store returns the backing store.
func (r *Registry) Store() ports.SchemaStore {
	return r.store
}

// Compiler returns the validator compiler.
func (r *Registry) Compiler() *validation.Compiler {
	return r.compiler
}

// RegisterSchema stores s under "<namespace>/<version>". A schema already
// registered under the same key is replaced.
func (r *Registry) RegisterSchema(s *schema.ObjectSchema) error {
	if s == nil {
		return fmt.Errorf("register schema: nil schema")
	}

	replaced := false
	if g, ok := r.store.(ports.SchemaGetter); ok {
		if old, err := g.GetSchema(s.Namespace(), s.Version()); err == nil && old != nil {
			replaced = old != s
		}
	}

	if err := r.store.RegisterSchema(s); err != nil {
		return fmt.Errorf("register schema %s: %w", s.Key(), err)
	}

	event := r.logger.Debug()
	if replaced {
		event = r.logger.Info()
	}
	event.
		Str("schema", s.Key()).
		Int("types", len(s.TypeNames())).
		Bool("replaced", replaced).
		Msg("schema registered")
	return nil
}

// GetSchemaType returns the referenced type. It returns
// *InvalidLookupKeyError for a malformed key and nil, nil when the schema or
// the type is missing.
func (r *Registry) GetSchemaType(ref schema.TypeRef) (*schema.Type, error) {
	if err := ref.Validate(); err != nil {
		var ie *schema.InvalidRefError
		reason := err.Error()
		if errors.As(err, &ie) {
			reason = ie.Reason
		}
		return nil, &InvalidLookupKeyError{Ref: ref, Reason: reason}
	}
	return r.store.GetSchemaType(ref)
}

// Resolve adapts GetSchemaType to validation.Resolver. Store failures are
// logged and reported as unresolved.
func (r *Registry) Resolve(ref schema.TypeRef) (*schema.Type, bool) {
	t, err := r.GetSchemaType(ref)
	if err != nil {
		r.logger.Warn().Err(err).Str("ref", ref.String()).Msg("type lookup failed")
		return nil, false
	}
	return t, t != nil
}

// Resolver returns Resolve as a validation.Resolver.
func (r *Registry) Resolver() validation.Resolver {
	return r.Resolve
}

// Validate looks up the referenced type and checks value against it.
func (r *Registry) Validate(ref schema.TypeRef, value any) error {
	start := time.Now()
	err := r.validate(ref, value)
	if r.observer != nil {
		r.observer.ObserveValidation(ref, time.Since(start), err)
	}
	return err
}

func (r *Registry) validate(ref schema.TypeRef, value any) error {
	t, err := r.GetSchemaType(ref)
	if err != nil {
		return err
	}
	if t == nil {
		return &TypeNotFoundError{Ref: ref}
	}
	return r.compiler.Compile(t).Validate(value, r.Resolve)
}

// Schema returns the registered schema, if the store supports whole-schema
// lookups.
func (r *Registry) Schema(namespace, version string) (*schema.ObjectSchema, error) {
	g, ok := r.store.(ports.SchemaGetter)
	if !ok {
		return nil, ErrNotSupported
	}
	return g.GetSchema(namespace, version)
}

// List summarizes every registered schema, if the store supports listing.
func (r *Registry) List() ([]ports.SchemaInfo, error) {
	l, ok := r.store.(ports.SchemaLister)
	if !ok {
		return nil, ErrNotSupported
	}
	return l.ListSchemas()
}

// Latest returns the highest registered version of namespace, or nil.
func (r *Registry) Latest(namespace string) (*schema.ObjectSchema, error) {
	if !schema.ValidNamespace(namespace) {
		return nil, &InvalidLookupKeyError{
			Ref:    schema.TypeRef{Namespace: namespace},
			Reason: "namespace must match ns://.+",
		}
	}
	if g, ok := r.store.(ports.LatestGetter); ok {
		return g.LatestSchema(namespace)
	}

	infos, err := r.List()
	if err != nil {
		return nil, err
	}
	version := ""
	for _, info := range infos {
		if info.Namespace == namespace && (version == "" || CompareVersions(info.Version, version) > 0) {
			version = info.Version
		}
	}
	if version == "" {
		return nil, nil
	}
	return r.Schema(namespace, version)
}

// RemoveSchema drops a registered schema, if the store supports removal. It
// reports whether the schema was registered.
func (r *Registry) RemoveSchema(namespace, version string) (bool, error) {
	rm, ok := r.store.(ports.SchemaRemover)
	if !ok {
		return false, ErrNotSupported
	}
	removed, err := rm.RemoveSchema(namespace, version)
	if err != nil {
		return false, fmt.Errorf("remove schema %s: %w", schema.SchemaKey(namespace, version), err)
	}
	if removed {
		r.logger.Info().Str("schema", schema.SchemaKey(namespace, version)).Msg("schema removed")
	}
	return removed, nil
}
