package identity_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/artpar/objectschema/adapters/identity"
	"github.com/artpar/objectschema/core/schema"
)

func TestUUID_New(t *testing.T) {
	g := identity.UUID{}

	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.New()
		if !uuidRegex.MatchString(id) {
			t.Fatalf("ID %s doesn't match UUID v4 format", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestSequential(t *testing.T) {
	g := identity.NewSequential("schema-")

	if id := g.New(); id != "schema-1" {
		t.Errorf("first ID = %s, want schema-1", id)
	}
	if id := g.New(); id != "schema-2" {
		t.Errorf("second ID = %s, want schema-2", id)
	}

	g.Reset()
	if id := g.New(); id != "schema-1" {
		t.Errorf("after reset ID = %s, want schema-1", id)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := identity.NewFakeClock(start)

	c.Advance(time.Hour)
	if got := c.Now(); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("Now() = %v", got)
	}
}

func TestSource_DrivesSchemaIdentity(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := identity.NewFakeClock(start)
	src := identity.NewSource(identity.NewSequential("os-"), clock)

	s, err := schema.New(schema.Definition{
		Namespace:   "ns://acme/crm",
		Version:     "1.0.0",
		Description: "CRM",
	}, schema.WithIdentitySource(src))
	if err != nil {
		t.Fatal(err)
	}

	id := s.Identity()
	if id.ID != "os-1" || !id.CreatedOn.Equal(start) || id.EntityType != schema.EntityType {
		t.Errorf("Identity = %+v", id)
	}

	clock.Advance(time.Minute)
	if _, err := s.AddType("Person", schema.TypeDef{}); err != nil {
		t.Fatal(err)
	}
	if got := s.Identity().UpdatedOn; !got.Equal(start.Add(time.Minute)) {
		t.Errorf("UpdatedOn = %v", got)
	}
	if !s.Identity().CreatedOn.Equal(start) {
		t.Error("CreatedOn must not change")
	}
}

func TestNewSource_Defaults(t *testing.T) {
	src := identity.NewSource(nil, nil)
	id := src.NewIdentity("X")
	if id.ID == "" || id.CreatedOn.IsZero() || id.CreatedOn.Location() != time.UTC {
		t.Errorf("Identity = %+v", id)
	}
}
