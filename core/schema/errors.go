package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/objectschema/core/capability"
)

// Sentinel errors matched by errors.Is.
var (
	ErrStructural     = errors.New("schema: invalid object schema")
	ErrDuplicateType  = errors.New("schema: duplicate type")
	ErrTypeArgsMisuse = errors.New("schema: typeArgs misuse")
	ErrInvalidRef     = errors.New("schema: invalid type reference")
)

// FieldError is one rejected top-level field.
type FieldError struct {
	Field    string
	Value    any
	Expected string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: got %#v, expected %s", e.Field, e.Value, e.Expected)
}

// StructuralValidationError lists every malformed top-level field of a
// schema definition.
type StructuralValidationError struct {
	Fields []FieldError
}

func (e *StructuralValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return "invalid object schema: " + strings.Join(msgs, "; ")
}

// Is reports whether target is ErrStructural.
func (e *StructuralValidationError) Is(target error) bool {
	return target == ErrStructural
}

// DuplicateTypeError is returned by AddType for an existing name.
type DuplicateTypeError struct {
	Schema string
	Name   string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("type %q already exists in %s", e.Name, e.Schema)
}

// Is reports whether target is ErrDuplicateType.
func (e *DuplicateTypeError) Is(target error) bool {
	return target == ErrDuplicateType
}

// TypeArgsMisuseError is returned when typeArgs appears on a non-Object
// property or alongside objectSchemaType.
type TypeArgsMisuseError struct {
	Path   string
	Kind   capability.Kind
	Reason string
}

func (e *TypeArgsMisuseError) Error() string {
	return fmt.Sprintf("%s: typeArgs on %s property: %s", e.Path, e.Kind, e.Reason)
}

// Is reports whether target is ErrTypeArgsMisuse.
func (e *TypeArgsMisuseError) Is(target error) bool {
	return target == ErrTypeArgsMisuse
}

// InvalidRefError is returned when a {namespace, version, type} triple is malformed.
type InvalidRefError struct {
	Ref    TypeRef
	Reason string
}

func (e *InvalidRefError) Error() string {
	return fmt.Sprintf("invalid type reference %s: %s", e.Ref, e.Reason)
}

// Is reports whether target is ErrInvalidRef.
func (e *InvalidRefError) Is(target error) bool {
	return target == ErrInvalidRef
}
