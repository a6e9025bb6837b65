package capability

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Spec describes one legal method: the argument shape it expects and how to
// build its rule. Build is nil for methods the compiler handles structurally
// (required, nullOk, emptyOk, the value-set methods, objectSchemaType,
// includes and excludes).
type Spec struct {
	Method Method
	Shape  Shape
	Build  Builder
}

// Structural reports whether the compiler must handle this method itself.
func (s Spec) Structural() bool {
	return s.Build == nil
}

// CheckArgs verifies args against the method's shape. Nested shapes
// (ShapeTypeRef, ShapeDescriptions) are only checked for arity here; their
// contents are decoded by the schema model.
func (s Spec) CheckArgs(args []any) error {
	fail := func(reason string) error {
		return &ConstraintArgsError{Method: s.Method, Args: args, Expected: s.Shape, Reason: reason}
	}

	switch s.Shape {
	case ShapeNone:
		if len(args) != 0 {
			return fail(fmt.Sprintf("got %d arguments", len(args)))
		}

	case ShapeNumber:
		if len(args) != 1 {
			return fail(fmt.Sprintf("got %d arguments", len(args)))
		}
		if _, err := ToFloat64(args[0]); err != nil {
			return fail(err.Error())
		}

	case ShapeCount:
		if len(args) != 1 {
			return fail(fmt.Sprintf("got %d arguments", len(args)))
		}
		n, err := ToInt(args[0])
		if err != nil {
			return fail(err.Error())
		}
		if n < 0 {
			return fail("must not be negative")
		}

	case ShapeRegex:
		if len(args) != 1 {
			return fail(fmt.Sprintf("got %d arguments", len(args)))
		}
		s, ok := args[0].(string)
		if !ok {
			return fail(fmt.Sprintf("got %T", args[0]))
		}
		if _, err := regexp.Compile(s); err != nil {
			return fail(err.Error())
		}

	case ShapeValues, ShapeDescriptions:
		if len(args) == 0 {
			return fail("got no arguments")
		}

	case ShapeKeys:
		if len(args) == 0 {
			return fail("got no arguments")
		}
		for i, a := range args {
			if k, ok := a.(string); !ok || k == "" {
				return fail(fmt.Sprintf("argument %d is not a key name", i))
			}
		}

	case ShapeTypeRef:
		if len(args) != 1 {
			return fail(fmt.Sprintf("got %d arguments", len(args)))
		}
	}
	return nil
}

// Registry is the immutable kind/method table.
type Registry struct {
	base  map[Method]Spec
	kinds map[Kind]map[Method]Spec
}

var defaultRegistry = sync.OnceValue(newDefault)

// Default returns the shared built-in table. It is safe for concurrent use.
func Default() *Registry {
	return defaultRegistry()
}

func newDefault() *Registry {
	return &Registry{
		base: index(
			Spec{Method: MethodRequired, Shape: ShapeNone},
			Spec{Method: MethodAllow, Shape: ShapeValues},
			Spec{Method: MethodDeny, Shape: ShapeValues},
			Spec{Method: MethodValid, Shape: ShapeValues},
			Spec{Method: MethodInvalid, Shape: ShapeValues},
			Spec{Method: MethodWith, Shape: ShapeKeys, Build: with},
			Spec{Method: MethodWithout, Shape: ShapeKeys, Build: without},
			Spec{Method: MethodNullOk, Shape: ShapeNone},
		),
		kinds: map[Kind]map[Method]Spec{
			String: index(
				Spec{Method: MethodEmptyOk, Shape: ShapeNone},
				Spec{Method: MethodMin, Shape: ShapeCount, Build: minLength},
				Spec{Method: MethodMax, Shape: ShapeCount, Build: maxLength},
				Spec{Method: MethodLength, Shape: ShapeCount, Build: exactLength},
				Spec{Method: MethodAlphanum, Shape: ShapeNone, Build: alphanum},
				Spec{Method: MethodRegex, Shape: ShapeRegex, Build: pattern},
				Spec{Method: MethodEmail, Shape: ShapeNone, Build: email},
				Spec{Method: MethodDate, Shape: ShapeNone, Build: date},
				Spec{Method: MethodLowercase, Shape: ShapeNone, Build: lowercase},
				Spec{Method: MethodUppercase, Shape: ShapeNone, Build: uppercase},
			),
			Number: index(
				Spec{Method: MethodInteger, Shape: ShapeNone, Build: integer},
				Spec{Method: MethodMin, Shape: ShapeNumber, Build: minNumber},
				Spec{Method: MethodMax, Shape: ShapeNumber, Build: maxNumber},
				Spec{Method: MethodPositive, Shape: ShapeNone, Build: positive},
				Spec{Method: MethodNegative, Shape: ShapeNone, Build: negative},
			),
			Boolean: index(),
			Array: index(
				Spec{Method: MethodIncludes, Shape: ShapeDescriptions},
				Spec{Method: MethodExcludes, Shape: ShapeDescriptions},
				Spec{Method: MethodMin, Shape: ShapeCount, Build: minItems},
				Spec{Method: MethodMax, Shape: ShapeCount, Build: maxItems},
				Spec{Method: MethodLength, Shape: ShapeCount, Build: exactItems},
			),
			Object: index(
				Spec{Method: MethodObjectSchemaType, Shape: ShapeTypeRef},
			),
			Function: index(),
			Any:      index(),
		},
	}
}

func index(specs ...Spec) map[Method]Spec {
	m := make(map[Method]Spec, len(specs))
	for _, s := range specs {
		m[s.Method] = s
	}
	return m
}

// HasKind reports whether kind is in the table.
func (r *Registry) HasKind(kind Kind) bool {
	_, ok := r.kinds[kind]
	return ok
}

// Lookup returns the spec for method on kind. Kind-specific entries take
// precedence over base methods.
func (r *Registry) Lookup(kind Kind, method Method) (Spec, error) {
	methods, ok := r.kinds[kind]
	if !ok {
		return Spec{}, &UnsupportedTypeError{Kind: kind}
	}
	if s, ok := methods[method]; ok {
		return s, nil
	}
	if s, ok := r.base[method]; ok {
		return s, nil
	}
	return Spec{}, &UnsupportedConstraintError{Kind: kind, Method: method}
}

// Methods returns every method legal for kind, sorted by name.
func (r *Registry) Methods(kind Kind) []Method {
	methods, ok := r.kinds[kind]
	if !ok {
		return nil
	}
	out := make([]Method, 0, len(methods)+len(r.base))
	for m := range r.base {
		out = append(out, m)
	}
	for m := range methods {
		if _, dup := r.base[m]; !dup {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
