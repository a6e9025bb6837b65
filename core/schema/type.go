package schema

import (
	"sort"
	"sync"

	"github.com/artpar/objectschema/core/capability"
)

// Leniency controls how a type treats keys and conversions at validation time.
type Leniency struct {
	AllowExtraKeys  bool
	SkipFunctions   bool
	SaveConversions bool
	SkipConversions bool
	StripExtraKeys  bool
}

// Type is a named, immutable object shape.
type Type struct {
	name        string
	description string
	leniency    Leniency
	properties  map[string]*Property
	names       []string
	def         TypeDef

	compiled sync.Map // owner -> compiled form
}

// NewType builds a standalone type. Types built this way are not attached to
// any schema.
func NewType(name string, def TypeDef, opts ...Option) (*Type, error) {
	o := newOptions(opts)
	return newType(name, name, def, o.caps)
}

func newType(path, name string, def TypeDef, caps *capability.Registry) (*Type, error) {
	t := &Type{
		name:        name,
		description: def.Description,
		leniency: Leniency{
			AllowExtraKeys:  def.AllowExtraKeys,
			SkipFunctions:   def.SkipFunctions,
			SaveConversions: def.SaveConversions,
			SkipConversions: def.SkipConversions,
			StripExtraKeys:  def.StripExtraKeys,
		},
		properties: make(map[string]*Property, len(def.Properties)),
		def:        def,
	}
	if t.description == "" {
		t.description = name
	}

	for pname := range def.Properties {
		t.names = append(t.names, pname)
	}
	sort.Strings(t.names)

	for _, pname := range t.names {
		p, err := newProperty(path+"."+pname, pname, def.Properties[pname], caps)
		if err != nil {
			return nil, err
		}
		t.properties[pname] = p
	}
	return t, nil
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Description returns the description, which defaults to the name.
func (t *Type) Description() string { return t.description }

// Leniency returns the key and conversion flags.
func (t *Type) Leniency() Leniency { return t.leniency }

// Property returns the named property.
func (t *Type) Property(name string) (*Property, bool) {
	p, ok := t.properties[name]
	return p, ok
}

// PropertyNames returns property names in sorted order.
func (t *Type) PropertyNames() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Properties returns the properties in name order.
func (t *Type) Properties() []*Property {
	out := make([]*Property, len(t.names))
	for i, n := range t.names {
		out[i] = t.properties[n]
	}
	return out
}

// Compiled returns the value cached on t for owner, calling build on first
// use. Cached values are released together with the type.
func (t *Type) Compiled(owner any, build func() any) any {
	if v, ok := t.compiled.Load(owner); ok {
		return v
	}
	v, _ := t.compiled.LoadOrStore(owner, build())
	return v
}

// Definition returns the plain-data form the type was built from.
func (t *Type) Definition() TypeDef {
	return t.def
}
