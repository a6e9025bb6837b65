// Package validation compiles schema types into validators and runs them.
//
// A compiled Validator is immutable and safe for concurrent use. Cross-schema
// objectSchemaType references are not bound at compile time; each call to
// Validate receives a Resolver, so a schema registered after compilation is
// still found, and replacing a schema takes effect on the next call.
package validation

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/artpar/objectschema/core/capability"
	"github.com/artpar/objectschema/core/schema"
)

// DefaultMaxDepth bounds nested objectSchemaType and typeArgs validation.
const DefaultMaxDepth = 64

// Resolver looks up a referenced type at validation time.
type Resolver func(ref schema.TypeRef) (*schema.Type, bool)

// Compiler turns types into validators. Validators are cached on the type
// they were built from, so replacing a schema releases them with its types.
type Compiler struct {
	maxDepth int
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithMaxDepth sets the nesting bound. Values below 1 are ignored.
func WithMaxDepth(n int) CompilerOption {
	return func(c *Compiler) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// NewCompiler creates a compiler.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxDepth returns the nesting bound.
func (c *Compiler) MaxDepth() int {
	return c.maxDepth
}

var defaultCompiler = NewCompiler()

// Validate checks value against t with a shared compiler.
func Validate(t *schema.Type, value any, resolve Resolver) error {
	return defaultCompiler.Compile(t).Validate(value, resolve)
}

// Compile returns the validator for t, built once per compiler and type.
func (c *Compiler) Compile(t *schema.Type) *Validator {
	return t.Compiled(c, func() any { return c.build(t) }).(*Validator)
}

func (c *Compiler) build(t *schema.Type) *Validator {
	v := &Validator{
		compiler: c,
		typ:      t,
		leniency: t.Leniency(),
		known:    make(map[string]bool),
	}
	for _, p := range t.Properties() {
		v.props = append(v.props, c.plan(p))
		v.known[p.Name()] = true
	}
	return v
}

// valueSet is one allow/deny/valid/invalid constraint.
type valueSet struct {
	method capability.Method
	values []any
}

// step is one ordered check that runs after the base kind check.
type step struct {
	method capability.Method
	rule   capability.Rule
	ref    *schema.TypeRef
	nested []*plan
}

// plan is the compiled form of a property or of an array element description.
type plan struct {
	name      string
	kind      capability.Kind
	required  bool
	nullOk    bool
	emptyOk   bool
	onlyValid []any
	sets      []valueSet
	inline    *schema.Type
	steps     []step
}

func (c *Compiler) plan(p *schema.Property) *plan {
	pl := &plan{
		name:   p.Name(),
		kind:   p.Kind(),
		inline: p.TypeArgs(),
	}

	for _, con := range p.Constraints() {
		if con.Method.IsValueSet() {
			pl.sets = append(pl.sets, valueSet{method: con.Method, values: con.Args})
			if con.Method == capability.MethodValid {
				pl.onlyValid = append(pl.onlyValid, con.Args...)
			}
			continue
		}
		switch con.Method {
		case capability.MethodRequired:
			pl.required = true
		case capability.MethodNullOk:
			pl.nullOk = true
		case capability.MethodEmptyOk:
			pl.emptyOk = true
		case capability.MethodObjectSchemaType:
			ref, _ := con.Ref()
			pl.steps = append(pl.steps, step{method: con.Method, ref: &ref})
		case capability.MethodIncludes, capability.MethodExcludes:
			s := step{method: con.Method}
			for _, n := range con.Nested() {
				s.nested = append(s.nested, c.plan(n))
			}
			pl.steps = append(pl.steps, s)
		default:
			if spec := con.Spec(); !spec.Structural() {
				pl.steps = append(pl.steps, step{method: con.Method, rule: spec.Build(con.Args)})
			}
		}
	}
	return pl
}

// Validator checks values against one compiled type.
type Validator struct {
	compiler *Compiler
	typ      *schema.Type
	leniency schema.Leniency
	props    []*plan
	known    map[string]bool
}

// Type returns the compiled type.
func (v *Validator) Type() *schema.Type {
	return v.typ
}

// Validate checks value and returns a *ValidationError listing every
// violation, or nil. With StripExtraKeys or SaveConversions set, value is
// modified in place. A nil resolve treats every reference as unresolved.
func (v *Validator) Validate(value any, resolve Resolver) error {
	r := &run{
		compiler: v.compiler,
		resolve:  resolve,
		inFlight: make(map[visit]bool),
	}
	if viols := v.check(r, "", value); len(viols) > 0 {
		return &ValidationError{Type: v.typ.Name(), Violations: viols}
	}
	return nil
}

// visit identifies one (referenced type, object) pair currently being validated.
type visit struct {
	ref schema.TypeRef
	obj uintptr
}

type run struct {
	compiler *Compiler
	resolve  Resolver
	inFlight map[visit]bool
	depth    int
}

func (v *Validator) check(r *run, prefix string, value any) []Violation {
	obj, ok := value.(map[string]any)
	if !ok {
		if m, isObj := capability.AsObject(value); isObj {
			obj = m
		} else {
			return []Violation{{Path: prefix, Constraint: "type", Message: "must be an object", Value: value}}
		}
	}

	var viols []Violation

	for _, pl := range v.props {
		path := join(prefix, pl.name)
		value, present := obj[pl.name]
		if !present {
			if pl.required {
				viols = append(viols, Violation{Path: path, Constraint: string(capability.MethodRequired), Message: "is required"})
			}
			continue
		}

		normalized, converted, pv := pl.check(r, path, value, obj, v.leniency)
		viols = append(viols, pv...)
		if len(pv) == 0 && converted && v.leniency.SaveConversions {
			obj[pl.name] = normalized
		}
	}

	for _, key := range sortedKeys(obj) {
		if v.known[key] {
			continue
		}
		switch {
		case v.leniency.AllowExtraKeys:
		case v.leniency.SkipFunctions && capability.IsFunc(obj[key]):
		case v.leniency.StripExtraKeys:
			delete(obj, key)
		default:
			viols = append(viols, Violation{Path: join(prefix, key), Constraint: "unknown", Message: "is not allowed", Value: obj[key]})
		}
	}

	return viols
}

// check validates one present value. It returns the normalized value and
// whether it came from a conversion.
func (pl *plan) check(r *run, path string, value any, parent map[string]any, lenient schema.Leniency) (any, bool, []Violation) {
	fail := func(constraint, msg string, expected any) (any, bool, []Violation) {
		return nil, false, []Violation{{Path: path, Constraint: constraint, Message: msg, Value: value, Expected: expected}}
	}

	if value == nil && pl.nullOk {
		return nil, false, nil
	}

	for _, set := range pl.sets {
		if !contains(set.values, value) {
			continue
		}
		switch set.method {
		case capability.MethodAllow, capability.MethodValid:
			return value, false, nil
		default:
			return fail(string(set.method), fmt.Sprintf("must not be one of %v", set.values), set.values)
		}
	}
	if len(pl.onlyValid) > 0 {
		return fail(string(capability.MethodValid), fmt.Sprintf("must be one of %v", pl.onlyValid), pl.onlyValid)
	}

	if value == nil {
		return fail("null", "must not be null", nil)
	}

	normalized, converted, f := capability.CheckKind(pl.kind, value, !lenient.SkipConversions)
	if f != nil {
		return fail(f.Constraint, f.Message, pl.kind)
	}
	if s, ok := normalized.(string); ok && pl.kind == capability.String && s == "" && !pl.emptyOk {
		return fail("empty", "must not be empty", nil)
	}

	if pl.inline != nil {
		if viols := r.nested(r.compiler.Compile(pl.inline), path, normalized); len(viols) > 0 {
			return nil, false, viols
		}
	}

	for _, s := range pl.steps {
		if viols := s.apply(r, path, pl.name, normalized, parent, lenient); len(viols) > 0 {
			return nil, false, viols
		}
	}
	return normalized, converted, nil
}

func (s step) apply(r *run, path, key string, value any, parent map[string]any, lenient schema.Leniency) []Violation {
	switch {
	case s.rule != nil:
		if f := s.rule(capability.Input{Key: key, Value: value, Parent: parent}); f != nil {
			return []Violation{{Path: path, Constraint: f.Constraint, Message: f.Message, Value: value, Expected: f.Expected}}
		}
		return nil

	case s.ref != nil:
		return r.reference(*s.ref, path, value)

	case s.method == capability.MethodIncludes:
		return r.includes(s.nested, path, value.([]any), lenient)

	case s.method == capability.MethodExcludes:
		return r.excludes(s.nested, path, value.([]any), lenient)
	}
	return nil
}

func (r *run) reference(ref schema.TypeRef, path string, value any) []Violation {
	refViolation := func(msg string, err error) []Violation {
		return []Violation{{Path: path, Constraint: string(capability.MethodObjectSchemaType), Message: msg, Value: value, Expected: ref, Err: err}}
	}

	key := visit{ref: ref, obj: identity(value)}
	if key.obj != 0 && r.inFlight[key] {
		return refViolation("cyclic reference to "+ref.String(), &CyclicReferenceError{Path: path, Ref: ref})
	}

	var t *schema.Type
	ok := false
	if r.resolve != nil {
		t, ok = r.resolve(ref)
	}
	if !ok || t == nil {
		return refViolation("unresolved schema type "+ref.String(), &UnresolvedSchemaTypeError{Path: path, Ref: ref})
	}

	if key.obj != 0 {
		r.inFlight[key] = true
		defer delete(r.inFlight, key)
	}
	return r.nested(r.compiler.Compile(t), path, value)
}

func (r *run) nested(v *Validator, path string, value any) []Violation {
	if r.depth >= r.compiler.maxDepth {
		err := &DepthExceededError{Path: path, Limit: r.compiler.maxDepth}
		return []Violation{{Path: path, Constraint: "depth", Message: fmt.Sprintf("nesting deeper than %d levels", err.Limit), Err: err}}
	}
	r.depth++
	defer func() { r.depth-- }()
	return v.check(r, path, value)
}

func (r *run) includes(descs []*plan, path string, items []any, lenient schema.Leniency) []Violation {
	var viols []Violation
	for i, item := range items {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		var first []Violation
		matched := false
		for _, d := range descs {
			_, _, ev := d.check(r, elemPath, item, nil, lenient)
			if len(ev) == 0 {
				matched = true
				break
			}
			if first == nil {
				first = ev
			}
		}
		if matched {
			continue
		}
		if len(descs) == 1 {
			viols = append(viols, first...)
			continue
		}
		viols = append(viols, Violation{Path: elemPath, Constraint: string(capability.MethodIncludes), Message: "does not match any allowed type", Value: item})
	}
	return viols
}

func (r *run) excludes(descs []*plan, path string, items []any, lenient schema.Leniency) []Violation {
	var viols []Violation
	for i, item := range items {
		for _, d := range descs {
			if _, _, ev := d.check(r, "", item, nil, lenient); len(ev) == 0 {
				viols = append(viols, Violation{Path: fmt.Sprintf("%s[%d]", path, i), Constraint: string(capability.MethodExcludes), Message: "matches a forbidden type", Value: item})
				break
			}
		}
	}
	return viols
}

// identity returns the map header address of an object value, or 0.
func identity(v any) uintptr {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return 0
	}
	return rv.Pointer()
}

func contains(values []any, v any) bool {
	for _, candidate := range values {
		if equal(candidate, v) {
			return true
		}
	}
	return false
}

// equal compares numbers by value and everything else deeply.
func equal(a, b any) bool {
	fa, errA := capability.ToFloat64(a)
	fb, errB := capability.ToFloat64(b)
	if errA == nil && errB == nil {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}
