package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/artpar/objectschema/core/capability"
)

var (
	namespacePattern = regexp.MustCompile(`^ns://.+$`)
	versionPattern   = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// ValidNamespace reports whether ns has the form "ns://<path>". The whole
// string must match; "xns://a" is rejected.
func ValidNamespace(ns string) bool {
	return namespacePattern.MatchString(ns)
}

// ValidVersion reports whether v is exactly "<major>.<minor>.<patch>".
// Prefixes and pre-release or build suffixes such as "1.0.0-rc1" are rejected.
func ValidVersion(v string) bool {
	return versionPattern.MatchString(v)
}

// SchemaKey returns the registry key for a namespace and version.
func SchemaKey(namespace, version string) string {
	return namespace + "/" + version
}

// TypeRef names a type inside a registered schema.
type TypeRef struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Version   string `json:"version" yaml:"version"`
	Type      string `json:"type" yaml:"type"`
}

// SchemaKey returns the registry key of the referenced schema.
func (r TypeRef) SchemaKey() string {
	return SchemaKey(r.Namespace, r.Version)
}

// String renders the reference as "ns://x/1.0.0#Type".
func (r TypeRef) String() string {
	return r.SchemaKey() + "#" + r.Type
}

// Validate checks that every part of the reference is well formed.
func (r TypeRef) Validate() error {
	switch {
	case !ValidNamespace(r.Namespace):
		return &InvalidRefError{Ref: r, Reason: "namespace must match ns://<path>"}
	case !ValidVersion(r.Version):
		return &InvalidRefError{Ref: r, Reason: "version must be <major>.<minor>.<patch>"}
	case strings.TrimSpace(r.Type) == "":
		return &InvalidRefError{Ref: r, Reason: "type name is empty"}
	}
	return nil
}

// ParseTypeRef parses the "ns://x/1.0.0#Type" form produced by String.
func ParseTypeRef(s string) (TypeRef, error) {
	key, typ, ok := strings.Cut(s, "#")
	if !ok {
		return TypeRef{}, &InvalidRefError{Ref: TypeRef{Type: s}, Reason: "missing #type suffix"}
	}
	slash := strings.LastIndex(key, "/")
	if slash < 0 {
		return TypeRef{}, &InvalidRefError{Ref: TypeRef{Type: typ}, Reason: "missing /version"}
	}
	ref := TypeRef{Namespace: key[:slash], Version: key[slash+1:], Type: typ}
	if err := ref.Validate(); err != nil {
		return TypeRef{}, err
	}
	return ref, nil
}

// decodeRef converts an objectSchemaType argument into a TypeRef.
func decodeRef(arg any) (TypeRef, error) {
	var ref TypeRef
	switch v := arg.(type) {
	case TypeRef:
		ref = v
	case *TypeRef:
		if v == nil {
			return TypeRef{}, fmt.Errorf("nil reference")
		}
		ref = *v
	default:
		m, ok := capability.AsObject(arg)
		if !ok {
			return TypeRef{}, fmt.Errorf("expected a {namespace, version, type} object, got %T", arg)
		}
		fields := []struct {
			name string
			dst  *string
		}{
			{"namespace", &ref.Namespace},
			{"version", &ref.Version},
			{"type", &ref.Type},
		}
		for _, f := range fields {
			s, ok := m[f.name].(string)
			if !ok {
				return TypeRef{}, fmt.Errorf("field %q must be a string", f.name)
			}
			*f.dst = s
		}
	}
	if err := ref.Validate(); err != nil {
		return TypeRef{}, err
	}
	return ref, nil
}
