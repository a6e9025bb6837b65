// Package capability defines which constraint methods are legal for each base kind.
//
// A kind is a base validator category (String, Number, ...). A method is a
// constraint that refines a kind (min, regex, includes, ...). The table is
// built once and never mutated; schema construction consults it to reject
// illegal authoring before any value is validated.
package capability

import (
	"fmt"
	"strings"
)

// Kind is a base validator category.
type Kind string

// Built-in kinds.
const (
	String   Kind = "String"
	Number   Kind = "Number"
	Boolean  Kind = "Boolean"
	Array    Kind = "Array"
	Object   Kind = "Object"
	Function Kind = "Function"
	Any      Kind = "Any"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if k is one of the built-in kinds.
func (k Kind) IsValid() bool {
	switch k {
	case String, Number, Boolean, Array, Object, Function, Any:
		return true
	default:
		return false
	}
}

// ParseKind parses a kind name. Matching is exact: "string" is not a kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if !k.IsValid() {
		return "", &UnsupportedTypeError{Kind: Kind(s)}
	}
	return k, nil
}

// AllKinds returns every built-in kind in declaration order.
func AllKinds() []Kind {
	return []Kind{String, Number, Boolean, Array, Object, Function, Any}
}

// Method names a constraint.
type Method string

// Base methods, legal for every kind.
const (
	MethodRequired Method = "required"
	MethodAllow    Method = "allow"
	MethodDeny     Method = "deny"
	MethodValid    Method = "valid"
	MethodInvalid  Method = "invalid"
	MethodWith     Method = "with"
	MethodWithout  Method = "without"
	MethodNullOk   Method = "nullOk"
)

// Kind-specific methods.
const (
	MethodEmptyOk   Method = "emptyOk"
	MethodMin       Method = "min"
	MethodMax       Method = "max"
	MethodLength    Method = "length"
	MethodAlphanum  Method = "alphanum"
	MethodRegex     Method = "regex"
	MethodEmail     Method = "email"
	MethodDate      Method = "date"
	MethodLowercase Method = "lowercase"
	MethodUppercase Method = "uppercase"

	MethodInteger  Method = "integer"
	MethodPositive Method = "positive"
	MethodNegative Method = "negative"

	MethodIncludes Method = "includes"
	MethodExcludes Method = "excludes"

	MethodObjectSchemaType Method = "objectSchemaType"
)

// String returns the method name.
func (m Method) String() string {
	return string(m)
}

// IsValueSet reports whether m decides on membership of an explicit value list.
func (m Method) IsValueSet() bool {
	switch m {
	case MethodAllow, MethodDeny, MethodValid, MethodInvalid:
		return true
	default:
		return false
	}
}

// Shape is the expected shape of a constraint's argument list.
type Shape int

const (
	// ShapeNone takes no arguments.
	ShapeNone Shape = iota
	// ShapeNumber takes exactly one number.
	ShapeNumber
	// ShapeCount takes exactly one non-negative integer.
	ShapeCount
	// ShapeRegex takes exactly one string that compiles as a regular expression.
	ShapeRegex
	// ShapeValues takes one or more literal values.
	ShapeValues
	// ShapeKeys takes one or more sibling key names.
	ShapeKeys
	// ShapeTypeRef takes exactly one {namespace, version, type} object.
	ShapeTypeRef
	// ShapeDescriptions takes one or more nested {type, constraints} descriptions.
	ShapeDescriptions
)

// String describes the shape for error messages.
func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "no arguments"
	case ShapeNumber:
		return "one number"
	case ShapeCount:
		return "one non-negative integer"
	case ShapeRegex:
		return "one regular expression string"
	case ShapeValues:
		return "one or more values"
	case ShapeKeys:
		return "one or more key names"
	case ShapeTypeRef:
		return "one {namespace, version, type} object"
	case ShapeDescriptions:
		return "one or more {type, constraints} descriptions"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}
