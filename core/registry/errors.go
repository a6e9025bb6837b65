package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/objectschema/core/schema"
)

// Sentinel errors matched by errors.Is.
var (
	ErrInvalidLookupKey  = errors.New("registry: invalid lookup key")
	ErrInterfaceContract = errors.New("registry: store does not satisfy the schema store contract")
	ErrNotSupported      = errors.New("registry: operation not supported by store")
	ErrTypeNotFound      = errors.New("registry: type not found")
)

// InvalidLookupKeyError is returned by GetSchemaType for a malformed
// {namespace, version, type} triple.
type InvalidLookupKeyError struct {
	Ref    schema.TypeRef
	Reason string
}

func (e *InvalidLookupKeyError) Error() string {
	return fmt.Sprintf("invalid lookup key %q/%q/%q: %s", e.Ref.Namespace, e.Ref.Version, e.Ref.Type, e.Reason)
}

// Is reports whether target is ErrInvalidLookupKey.
func (e *InvalidLookupKeyError) Is(target error) bool {
	return target == ErrInvalidLookupKey
}

// InterfaceContractError is returned by NewWithStore when the substituted
// store is missing required operations.
type InterfaceContractError struct {
	Got     string
	Missing []string
}

func (e *InterfaceContractError) Error() string {
	return fmt.Sprintf("schema store %s is missing: %s", e.Got, strings.Join(e.Missing, ", "))
}

// Is reports whether target is ErrInterfaceContract.
func (e *InterfaceContractError) Is(target error) bool {
	return target == ErrInterfaceContract
}

// TypeNotFoundError is returned by Validate when the target type is not registered.
type TypeNotFoundError struct {
	Ref schema.TypeRef
}

func (e *TypeNotFoundError) Error() string {
	return "type not found: " + e.Ref.String()
}

// Is reports whether target is ErrTypeNotFound.
func (e *TypeNotFoundError) Is(target error) bool {
	return target == ErrTypeNotFound
}
