// Package deps finds the cross-schema type references of schemas and makes
// sure the referenced schemas are registered before validation traffic.
package deps

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/ports"
)

// Extract returns the distinct objectSchemaType references of t, sorted.
// References inside inline typeArgs and includes/excludes descriptions belong
// to t and are included. Referenced types are not followed.
func Extract(t *schema.Type) []schema.TypeRef {
	seen := make(map[schema.TypeRef]bool)
	collectType(t, seen)
	return sorted(seen)
}

// ExtractSchema returns the distinct references of every type in s, sorted.
func ExtractSchema(s *schema.ObjectSchema) []schema.TypeRef {
	seen := make(map[schema.TypeRef]bool)
	for _, t := range s.Types() {
		collectType(t, seen)
	}
	return sorted(seen)
}

func collectType(t *schema.Type, seen map[schema.TypeRef]bool) {
	for _, p := range t.Properties() {
		collectProperty(p, seen)
	}
}

func collectProperty(p *schema.Property, seen map[schema.TypeRef]bool) {
	if inline := p.TypeArgs(); inline != nil {
		collectType(inline, seen)
	}
	for _, c := range p.Constraints() {
		if ref, ok := c.Ref(); ok {
			seen[ref] = true
		}
		for _, n := range c.Nested() {
			collectProperty(n, seen)
		}
	}
}

func sorted(seen map[schema.TypeRef]bool) []schema.TypeRef {
	refs := make([]schema.TypeRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs
}

// Unresolved returns the refs that store cannot resolve.
func Unresolved(store ports.SchemaStore, refs []schema.TypeRef) ([]schema.TypeRef, error) {
	var missing []schema.TypeRef
	for _, ref := range refs {
		t, err := store.GetSchemaType(ref)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", ref, err)
		}
		if t == nil {
			missing = append(missing, ref)
		}
	}
	return missing, nil
}

// ErrNotFound is returned by a Fetcher that has no schema for a key.
var ErrNotFound = errors.New("deps: schema not found")

// Fetcher loads a schema by namespace and version.
type Fetcher func(ctx context.Context, namespace, version string) (*schema.ObjectSchema, error)

// FromSchemas returns a Fetcher over an already-parsed library of schemas.
func FromSchemas(library []*schema.ObjectSchema) Fetcher {
	byKey := make(map[string]*schema.ObjectSchema, len(library))
	for _, s := range library {
		byKey[s.Key()] = s
	}
	return func(_ context.Context, namespace, version string) (*schema.ObjectSchema, error) {
		if s, ok := byKey[schema.SchemaKey(namespace, version)]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, schema.SchemaKey(namespace, version))
	}
}

// PrewarmResult reports what Prewarm did.
type PrewarmResult struct {
	Registered []string         // schema keys fetched and registered
	Missing    []schema.TypeRef // refs still unresolved afterwards
	Failed     map[string]error // schema keys whose fetch failed
}

// Prewarm fetches and registers the schemas behind every unresolved ref,
// then repeats for the references of each newly registered schema until
// nothing new can be fetched. Fetch failures are collected, not returned;
// the error return is for store failures and cancellation.
func Prewarm(ctx context.Context, store ports.SchemaStore, refs []schema.TypeRef, fetch Fetcher) (*PrewarmResult, error) {
	res := &PrewarmResult{Failed: make(map[string]error)}
	attempted := make(map[string]bool)
	queue := append([]schema.TypeRef(nil), refs...)
	pending := make(map[schema.TypeRef]bool)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ref := queue[0]
		queue = queue[1:]

		t, err := store.GetSchemaType(ref)
		if err != nil {
			return res, fmt.Errorf("lookup %s: %w", ref, err)
		}
		if t != nil {
			delete(pending, ref)
			continue
		}
		pending[ref] = true

		key := ref.SchemaKey()
		if attempted[key] {
			continue
		}
		attempted[key] = true

		s, err := fetch(ctx, ref.Namespace, ref.Version)
		if err != nil {
			res.Failed[key] = err
			continue
		}
		if err := store.RegisterSchema(s); err != nil {
			return res, fmt.Errorf("register %s: %w", key, err)
		}
		res.Registered = append(res.Registered, key)

		// Re-check this ref now that its schema is registered, then queue
		// the new schema's own references.
		queue = append(queue, ref)
		queue = append(queue, ExtractSchema(s)...)
	}

	for ref := range pending {
		res.Missing = append(res.Missing, ref)
	}
	sort.Slice(res.Missing, func(i, j int) bool {
		return res.Missing[i].String() < res.Missing[j].String()
	})
	return res, nil
}
