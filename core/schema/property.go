package schema

import (
	"fmt"

	"github.com/artpar/objectschema/core/capability"
)

// Constraint is a (method, args) pair that has been checked against the
// capability table for its property's kind.
type Constraint struct {
	Method capability.Method
	Args   []any

	spec   capability.Spec
	ref    *TypeRef
	nested []*Property
}

// Spec returns the capability entry for the method.
func (c Constraint) Spec() capability.Spec {
	return c.spec
}

// Ref returns the referenced type of an objectSchemaType constraint.
func (c Constraint) Ref() (TypeRef, bool) {
	if c.ref == nil {
		return TypeRef{}, false
	}
	return *c.ref, true
}

// Nested returns the element descriptions of an includes or excludes constraint.
func (c Constraint) Nested() []*Property {
	return c.nested
}

// Property is one named field of a Type.
type Property struct {
	name        string
	path        string
	description string
	kind        capability.Kind
	constraints []Constraint
	typeArgs    *Type
	def         PropertyDef
}

// NewProperty builds a standalone property. Path is used in error messages.
func NewProperty(path string, def PropertyDef, opts ...Option) (*Property, error) {
	o := newOptions(opts)
	return newProperty(path, path, def, o.caps)
}

func newProperty(path, name string, def PropertyDef, caps *capability.Registry) (*Property, error) {
	if !caps.HasKind(def.Type) {
		return nil, &capability.UnsupportedTypeError{Path: path, Kind: def.Type}
	}

	p := &Property{
		name:        name,
		path:        path,
		description: def.Description,
		kind:        def.Type,
		def:         def,
	}

	if def.TypeArgs != nil {
		if def.Type != capability.Object {
			return nil, &TypeArgsMisuseError{Path: path, Kind: def.Type, Reason: "only Object properties take an inline type"}
		}
		inline, err := newType(path, name, *def.TypeArgs, caps)
		if err != nil {
			return nil, err
		}
		p.typeArgs = inline
	}

	for _, cd := range def.Constraints {
		c, err := newConstraint(path, def.Type, cd, caps)
		if err != nil {
			return nil, err
		}
		if c.ref != nil && p.typeArgs != nil {
			return nil, &TypeArgsMisuseError{Path: path, Kind: def.Type, Reason: "cannot be combined with objectSchemaType"}
		}
		p.constraints = append(p.constraints, c)
	}
	return p, nil
}

func newConstraint(path string, kind capability.Kind, cd ConstraintDef, caps *capability.Registry) (Constraint, error) {
	spec, err := caps.Lookup(kind, cd.Method)
	if err != nil {
		return Constraint{}, capability.WithPath(err, path)
	}
	if err := spec.CheckArgs(cd.Args); err != nil {
		return Constraint{}, capability.WithPath(err, path)
	}

	c := Constraint{Method: cd.Method, Args: cd.Args, spec: spec}

	switch spec.Shape {
	case capability.ShapeTypeRef:
		ref, err := decodeRef(cd.Args[0])
		if err != nil {
			return Constraint{}, &capability.ConstraintArgsError{
				Path: path, Method: cd.Method, Args: cd.Args, Expected: spec.Shape, Reason: err.Error(),
			}
		}
		c.ref = &ref

	case capability.ShapeDescriptions:
		for i, arg := range cd.Args {
			pd, err := decodePropertyDef(arg)
			if err != nil {
				return Constraint{}, &capability.ConstraintArgsError{
					Path: path, Method: cd.Method, Args: cd.Args, Expected: spec.Shape,
					Reason: fmt.Sprintf("argument %d: %v", i, err),
				}
			}
			elemPath := fmt.Sprintf("%s.%s[%d]", path, cd.Method, i)
			nested, err := newProperty(elemPath, "", pd, caps)
			if err != nil {
				return Constraint{}, err
			}
			c.nested = append(c.nested, nested)
		}
	}
	return c, nil
}

// Name returns the property key. Element descriptions of includes and
// excludes have no name.
func (p *Property) Name() string { return p.name }

// Path returns the dotted location used in construction errors.
func (p *Property) Path() string { return p.path }

// Description returns the free-form description.
func (p *Property) Description() string { return p.description }

// Kind returns the base kind.
func (p *Property) Kind() capability.Kind { return p.kind }

// TypeArgs returns the inline nested type, or nil.
func (p *Property) TypeArgs() *Type { return p.typeArgs }

// Constraints returns the constraints in declared order.
func (p *Property) Constraints() []Constraint {
	out := make([]Constraint, len(p.constraints))
	copy(out, p.constraints)
	return out
}

// Has reports whether the property declares method.
func (p *Property) Has(method capability.Method) bool {
	for _, c := range p.constraints {
		if c.Method == method {
			return true
		}
	}
	return false
}

// Required reports whether the property must be present.
func (p *Property) Required() bool {
	return p.Has(capability.MethodRequired)
}

// Definition returns the plain-data form the property was built from.
func (p *Property) Definition() PropertyDef {
	return p.def
}
