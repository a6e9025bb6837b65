package schema

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the entity tag carried by every ObjectSchema identity.
const EntityType = "ObjectSchema"

// Identity is the generic entity envelope of a schema.
type Identity struct {
	ID         string    `json:"id"`
	CreatedOn  time.Time `json:"createdOn"`
	UpdatedOn  time.Time `json:"updatedOn"`
	EntityType string    `json:"entityType"`
}

// IdentitySource mints identities and timestamps.
type IdentitySource interface {
	NewIdentity(entityType string) Identity
	Now() time.Time
}

type defaultIdentitySource struct{}

func (defaultIdentitySource) NewIdentity(entityType string) Identity {
	now := time.Now().UTC()
	return Identity{
		ID:         uuid.NewString(),
		CreatedOn:  now,
		UpdatedOn:  now,
		EntityType: entityType,
	}
}

func (defaultIdentitySource) Now() time.Time {
	return time.Now().UTC()
}

// DefaultIdentitySource returns the source used when no WithIdentitySource
// option is given: random UUIDs and UTC wall-clock time.
func DefaultIdentitySource() IdentitySource {
	return defaultIdentitySource{}
}
