package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/objectschema/adapters/identity"
	"github.com/artpar/objectschema/adapters/sqlite"
	"github.com/artpar/objectschema/core/capability"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "schemas.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func orderSchema(t *testing.T, version string) *schema.ObjectSchema {
	t.Helper()
	clock := identity.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s, err := schema.New(schema.Definition{
		Namespace:   "ns://shop",
		Version:     version,
		Description: "shop",
		Types: map[string]schema.TypeDef{
			"Order": {Properties: map[string]schema.PropertyDef{
				"total": {Type: capability.Number, Constraints: []schema.ConstraintDef{
					{Method: capability.MethodRequired},
					{Method: capability.MethodMin, Args: []any{0}},
				}},
				"lines": {Type: capability.Array, Constraints: []schema.ConstraintDef{
					{Method: capability.MethodIncludes, Args: []any{map[string]any{"type": "String"}}},
				}},
			}},
		},
	}, schema.WithIdentitySource(identity.NewSource(identity.NewSequential("order-"), clock)))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate failed: %v", err)
	}
}

func TestSchemaStore_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	original := orderSchema(t, "1.0.0")

	if err := sqlite.NewSchemaStore(db).RegisterSchema(original); err != nil {
		t.Fatalf("RegisterSchema: %v", err)
	}

	// A fresh store has an empty cache and must decode from the document.
	fresh := sqlite.NewSchemaStore(db)
	loaded, err := fresh.GetSchema("ns://shop", "1.0.0")
	if err != nil || loaded == nil {
		t.Fatalf("GetSchema = %v, %v", loaded, err)
	}
	if loaded == original {
		t.Fatal("expected a decoded copy")
	}

	id := loaded.Identity()
	if id.ID != "order-1" || !id.CreatedOn.Equal(original.Identity().CreatedOn) {
		t.Errorf("identity not restored: %+v", id)
	}

	want, _ := schema.Digest(original)
	got, _ := schema.Digest(loaded)
	if got != want {
		t.Error("decoded schema digest differs")
	}

	again, _ := fresh.GetSchema("ns://shop", "1.0.0")
	if again != loaded {
		t.Error("unchanged digest should return the cached schema")
	}
}

func TestSchemaStore_WithRegistry(t *testing.T) {
	db := setupTestDB(t)
	reg, err := registry.NewWithStore(sqlite.NewSchemaStore(db))
	if err != nil {
		t.Fatal(err)
	}
	s := orderSchema(t, "1.0.0")
	if err := reg.RegisterSchema(s); err != nil {
		t.Fatal(err)
	}

	ref := s.Ref("Order")
	if err := reg.Validate(ref, map[string]any{"total": 10, "lines": []any{"a"}}); err != nil {
		t.Errorf("valid order rejected: %v", err)
	}
	if err := reg.Validate(ref, map[string]any{"total": -1}); err == nil {
		t.Error("negative total accepted")
	}

	typ, err := reg.GetSchemaType(schema.TypeRef{Namespace: "ns://shop", Version: "1.0.0", Type: "Refund"})
	if err != nil || typ != nil {
		t.Errorf("missing type = %v, %v", typ, err)
	}
}

func TestSchemaStore_ListAndDelete(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewSchemaStore(db)
	for _, v := range []string{"2.0.0", "1.10.0", "1.2.0"} {
		if err := store.RegisterSchema(orderSchema(t, v)); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := store.ListSchemas()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 3 || infos[0].Version != "1.2.0" || infos[2].Version != "2.0.0" {
		t.Fatalf("ListSchemas = %+v", infos)
	}
	if len(infos[0].Types) != 1 || infos[0].Types[0] != "Order" {
		t.Errorf("Types = %v", infos[0].Types)
	}

	ctx := context.Background()
	removed, err := store.Delete(ctx, "ns://shop", "2.0.0")
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	if s, _ := store.Get(ctx, "ns://shop", "2.0.0"); s != nil {
		t.Error("deleted schema still returned")
	}
}

func TestSchemaStore_LatestAndRemove(t *testing.T) {
	store := sqlite.NewSchemaStore(setupTestDB(t))
	for _, v := range []string{"1.2.0", "1.10.0", "1.9.0"} {
		if err := store.RegisterSchema(orderSchema(t, v)); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := store.LatestSchema("ns://shop")
	if err != nil || latest == nil || latest.Version() != "1.10.0" {
		t.Fatalf("LatestSchema = %v, %v; want 1.10.0", latest, err)
	}

	if removed, err := store.RemoveSchema("ns://shop", "1.10.0"); err != nil || !removed {
		t.Fatalf("RemoveSchema = %v, %v", removed, err)
	}
	latest, err = store.LatestSchema("ns://shop")
	if err != nil || latest == nil || latest.Version() != "1.9.0" {
		t.Errorf("LatestSchema after remove = %v, %v; want 1.9.0", latest, err)
	}
	if latest, _ := store.LatestSchema("ns://none"); latest != nil {
		t.Errorf("LatestSchema(unknown) = %v, want nil", latest)
	}
}

func TestSchemaStore_Overwrite(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewSchemaStore(db)

	first := orderSchema(t, "1.0.0")
	_ = store.RegisterSchema(first)

	second := orderSchema(t, "1.0.0")
	if _, err := second.AddType("Refund", schema.TypeDef{}); err != nil {
		t.Fatal(err)
	}
	_ = store.RegisterSchema(second)

	fresh := sqlite.NewSchemaStore(db)
	typ, err := fresh.GetSchemaType(schema.TypeRef{Namespace: "ns://shop", Version: "1.0.0", Type: "Refund"})
	if err != nil || typ == nil {
		t.Errorf("overwritten schema should expose Refund: %v, %v", typ, err)
	}
}

func TestSchemaStore_PersistsInPlaceChanges(t *testing.T) {
	db := setupTestDB(t)
	store := sqlite.NewSchemaStore(db)
	sch := orderSchema(t, "1.0.0")
	if err := store.RegisterSchema(sch); err != nil {
		t.Fatal(err)
	}

	if _, err := sch.AddType("Refund", schema.TypeDef{}); err != nil {
		t.Fatal(err)
	}

	infos, err := store.ListSchemas()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || len(infos[0].Types) != 2 {
		t.Fatalf("listed types = %+v, want Order and Refund", infos)
	}

	if _, err := sch.AddType("Invoice", schema.TypeDef{}); err != nil {
		t.Fatal(err)
	}
	ref := schema.TypeRef{Namespace: "ns://shop", Version: "1.0.0", Type: "Invoice"}
	if typ, err := store.GetSchemaType(ref); err != nil || typ == nil {
		t.Fatalf("GetSchemaType = %v, %v", typ, err)
	}

	reopened := sqlite.NewSchemaStore(db)
	if typ, err := reopened.GetSchemaType(ref); err != nil || typ == nil {
		t.Errorf("type added in place should survive a restart: %v, %v", typ, err)
	}
}
