package memory_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/artpar/objectschema/adapters/memory"
	"github.com/artpar/objectschema/core/capability"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
)

func newSchema(t *testing.T, ns, version string) *schema.ObjectSchema {
	t.Helper()
	s, err := schema.New(schema.Definition{
		Namespace:   ns,
		Version:     version,
		Description: "test",
		Types: map[string]schema.TypeDef{
			"Item": {Properties: map[string]schema.PropertyDef{"n": {Type: capability.Number}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSchemaStore_GetSchemaType(t *testing.T) {
	store := memory.NewSchemaStore()
	if err := store.RegisterSchema(newSchema(t, "ns://shop", "1.0.0")); err != nil {
		t.Fatal(err)
	}

	typ, err := store.GetSchemaType(schema.TypeRef{Namespace: "ns://shop", Version: "1.0.0", Type: "Item"})
	if err != nil || typ == nil {
		t.Fatalf("GetSchemaType = %v, %v", typ, err)
	}

	typ, err = store.GetSchemaType(schema.TypeRef{Namespace: "ns://shop", Version: "1.0.0", Type: "Order"})
	if err != nil || typ != nil {
		t.Errorf("missing type = %v, %v", typ, err)
	}
}

func TestSchemaStore_Latest(t *testing.T) {
	store := memory.NewSchemaStore()
	for _, v := range []string{"1.2.0", "1.10.0", "1.9.0"} {
		_ = store.RegisterSchema(newSchema(t, "ns://shop", v))
	}
	_ = store.RegisterSchema(newSchema(t, "ns://other", "9.0.0"))

	latest, _ := store.LatestSchema("ns://shop")
	if latest == nil || latest.Version() != "1.10.0" {
		t.Errorf("LatestSchema = %v", latest)
	}
	if none, _ := store.LatestSchema("ns://none"); none != nil {
		t.Error("unknown namespace should have no latest")
	}

	infos, err := store.ListSchemas()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 4 || infos[0].Namespace != "ns://other" || infos[3].Version != "1.10.0" {
		t.Errorf("ListSchemas order = %+v", infos)
	}
}

func TestSchemaStore_Remove(t *testing.T) {
	store := memory.NewSchemaStore()
	_ = store.RegisterSchema(newSchema(t, "ns://shop", "1.0.0"))

	if removed, err := store.RemoveSchema("ns://shop", "1.0.0"); err != nil || !removed {
		t.Errorf("RemoveSchema = %v, %v, want true", removed, err)
	}
	if removed, _ := store.RemoveSchema("ns://shop", "1.0.0"); removed {
		t.Error("second RemoveSchema should report absence")
	}
	if infos, _ := store.ListSchemas(); len(infos) != 0 {
		t.Errorf("ListSchemas = %+v, want none", infos)
	}
}

func TestSchemaStore_ConcurrentRegistry(t *testing.T) {
	reg, err := registry.NewWithStore(memory.NewSchemaStore())
	if err != nil {
		t.Fatal(err)
	}

	schemas := make([]*schema.ObjectSchema, 20)
	for i := range schemas {
		schemas[i] = newSchema(t, "ns://shop", fmt.Sprintf("1.0.%d", i%5))
	}

	var wg sync.WaitGroup
	for i, s := range schemas {
		wg.Add(1)
		go func(i int, s *schema.ObjectSchema) {
			defer wg.Done()
			_ = reg.RegisterSchema(s)
			_ = reg.Validate(s.Ref("Item"), map[string]any{"n": i})
		}(i, s)
	}
	wg.Wait()

	infos, _ := reg.List()
	if len(infos) != 5 {
		t.Errorf("got %d schemas, want 5", len(infos))
	}
}
