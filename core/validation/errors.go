package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/objectschema/core/schema"
)

// Sentinel errors matched by errors.Is.
var (
	ErrValidation           = errors.New("validation: value rejected")
	ErrUnresolvedSchemaType = errors.New("validation: unresolved schema type")
	ErrCyclicReference      = errors.New("validation: cyclic schema reference")
	ErrDepthExceeded        = errors.New("validation: nesting depth exceeded")
)

// Violation is one rejected value.
type Violation struct {
	Path       string // "age", "address.city", "tags[0]"
	Constraint string // method name, or "type", "unknown", "null", "empty"
	Message    string
	Value      any
	Expected   any
	Err        error // set for reference failures
}

func (v *Violation) Error() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Unwrap returns the underlying reference error, if any.
func (v *Violation) Unwrap() error {
	return v.Err
}

// ValidationError collects every violation found in one value.
type ValidationError struct {
	Type       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i := range e.Violations {
		msgs[i] = e.Violations[i].Error()
	}
	return fmt.Sprintf("invalid %s: %s", e.Type, strings.Join(msgs, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap exposes each violation so errors.Is and errors.As reach reference errors.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i := range e.Violations {
		errs[i] = &e.Violations[i]
	}
	return errs
}

// Has reports whether any violation is at path.
func (e *ValidationError) Has(path string) bool {
	for _, v := range e.Violations {
		if v.Path == path {
			return true
		}
	}
	return false
}

// UnresolvedSchemaTypeError reports an objectSchemaType reference that the
// resolver could not satisfy.
type UnresolvedSchemaTypeError struct {
	Path string
	Ref  schema.TypeRef
}

func (e *UnresolvedSchemaTypeError) Error() string {
	return prefixed(e.Path, "unresolved schema type "+e.Ref.String())
}

// Is reports whether target is ErrUnresolvedSchemaType.
func (e *UnresolvedSchemaTypeError) Is(target error) bool {
	return target == ErrUnresolvedSchemaType
}

// CyclicReferenceError reports a value that re-enters a type it is already
// being validated against.
type CyclicReferenceError struct {
	Path string
	Ref  schema.TypeRef
}

func (e *CyclicReferenceError) Error() string {
	return prefixed(e.Path, "cyclic reference to "+e.Ref.String())
}

// Is reports whether target is ErrCyclicReference.
func (e *CyclicReferenceError) Is(target error) bool {
	return target == ErrCyclicReference
}

// DepthExceededError reports nesting deeper than the compiler allows.
type DepthExceededError struct {
	Path  string
	Limit int
}

func (e *DepthExceededError) Error() string {
	return prefixed(e.Path, fmt.Sprintf("nesting deeper than %d levels", e.Limit))
}

// Is reports whether target is ErrDepthExceeded.
func (e *DepthExceededError) Is(target error) bool {
	return target == ErrDepthExceeded
}

func prefixed(path, msg string) string {
	if path == "" {
		return msg
	}
	return path + ": " + msg
}
