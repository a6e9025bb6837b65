package capability

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is.
var (
	ErrUnsupportedType       = errors.New("capability: unsupported type")
	ErrUnsupportedConstraint = errors.New("capability: unsupported constraint")
	ErrConstraintArgs        = errors.New("capability: invalid constraint arguments")
)

// UnsupportedTypeError is returned when a property names a kind that is not in the table.
type UnsupportedTypeError struct {
	Path string
	Kind Kind
}

func (e *UnsupportedTypeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: unsupported type %q", e.Path, e.Kind)
	}
	return fmt.Sprintf("unsupported type %q", e.Kind)
}

// Is reports whether target is ErrUnsupportedType.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// UnsupportedConstraintError is returned when a method is not legal for a kind.
type UnsupportedConstraintError struct {
	Path   string
	Kind   Kind
	Method Method
}

func (e *UnsupportedConstraintError) Error() string {
	msg := fmt.Sprintf("constraint %q is not supported for type %s", e.Method, e.Kind)
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

// Is reports whether target is ErrUnsupportedConstraint.
func (e *UnsupportedConstraintError) Is(target error) bool {
	return target == ErrUnsupportedConstraint
}

// ConstraintArgsError is returned when a legal method receives arguments of the wrong shape.
type ConstraintArgsError struct {
	Path     string
	Method   Method
	Args     []any
	Expected Shape
	Reason   string
}

func (e *ConstraintArgsError) Error() string {
	msg := fmt.Sprintf("constraint %q expects %s", e.Method, e.Expected)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

// Is reports whether target is ErrConstraintArgs.
func (e *ConstraintArgsError) Is(target error) bool {
	return target == ErrConstraintArgs
}

// WithPath sets the key path on any capability error and returns it.
// Other errors are returned unchanged.
func WithPath(err error, path string) error {
	var ut *UnsupportedTypeError
	if errors.As(err, &ut) {
		ut.Path = path
		return err
	}
	var uc *UnsupportedConstraintError
	if errors.As(err, &uc) {
		uc.Path = path
		return err
	}
	var ca *ConstraintArgsError
	if errors.As(err, &ca) {
		ca.Path = path
		return err
	}
	return err
}
