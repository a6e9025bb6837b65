// Package ports defines interfaces (contracts) between layers.
// Implementations live in adapters/.
package ports

import (
	"time"

	"github.com/artpar/objectschema/core/schema"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Schema Store Ports
// -----------------------------------------------------------------------------

// SchemaStore is the backing store of a schema registry. Any value with
// exactly these two operations can be substituted for the built-in map.
type SchemaStore interface {
	// GetSchemaType returns the named type, or nil when either the schema
	// or the type is missing. Errors are reserved for store failures.
	GetSchemaType(ref schema.TypeRef) (*schema.Type, error)

	// RegisterSchema stores s under its key, replacing any previous schema
	// with the same namespace and version.
	RegisterSchema(s *schema.ObjectSchema) error
}

// SchemaInfo summarizes one registered schema.
type SchemaInfo struct {
	Namespace   string    `json:"namespace"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Types       []string  `json:"types"`
	Digest      string    `json:"digest"`
	UpdatedOn   time.Time `json:"updatedOn"`
}

// Key returns the registry key of the summarized schema.
func (i SchemaInfo) Key() string {
	return schema.SchemaKey(i.Namespace, i.Version)
}

// SchemaLister is implemented by stores that can enumerate their contents.
type SchemaLister interface {
	ListSchemas() ([]SchemaInfo, error)
}

// SchemaGetter is implemented by stores that can return a whole schema.
type SchemaGetter interface {
	GetSchema(namespace, version string) (*schema.ObjectSchema, error)
}

// SchemaRemover is implemented by stores that can drop a schema.
type SchemaRemover interface {
	// RemoveSchema reports whether a schema was stored under the key.
	RemoveSchema(namespace, version string) (bool, error)
}

// LatestGetter is implemented by stores that can find the highest version of
// a namespace without listing everything.
type LatestGetter interface {
	// LatestSchema returns nil when the namespace has no schemas.
	LatestSchema(namespace string) (*schema.ObjectSchema, error)
}
