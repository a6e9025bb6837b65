package deps_test

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/objectschema/core/capability"
	"github.com/artpar/objectschema/core/deps"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
)

func ref(ns, typ string) schema.TypeRef {
	return schema.TypeRef{Namespace: ns, Version: "1.0.0", Type: typ}
}

func refProp(r schema.TypeRef) schema.PropertyDef {
	return schema.PropertyDef{
		Type:        capability.Object,
		Constraints: []schema.ConstraintDef{{Method: capability.MethodObjectSchemaType, Args: []any{r}}},
	}
}

func mustSchema(t *testing.T, ns string, types map[string]schema.TypeDef) *schema.ObjectSchema {
	t.Helper()
	s, err := schema.New(schema.Definition{Namespace: ns, Version: "1.0.0", Description: ns, Types: types})
	if err != nil {
		t.Fatalf("New(%s): %v", ns, err)
	}
	return s
}

func TestExtract(t *testing.T) {
	addr := ref("ns://geo", "Address")
	conn := ref("ns://net", "Connection")

	s := mustSchema(t, "ns://crm", map[string]schema.TypeDef{
		"Person": {Properties: map[string]schema.PropertyDef{
			"home":   refProp(addr),
			"work":   refProp(addr),
			"server": refProp(conn),
			"inline": {Type: capability.Object, TypeArgs: &schema.TypeDef{Properties: map[string]schema.PropertyDef{
				"billing": refProp(addr),
			}}},
			"links": {Type: capability.Array, Constraints: []schema.ConstraintDef{
				{Method: capability.MethodIncludes, Args: []any{refProp(conn)}},
			}},
			"name": {Type: capability.String},
		}},
	})

	person, _ := s.Type("Person")
	got := deps.Extract(person)
	want := []schema.TypeRef{addr, conn}
	if len(got) != len(want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Extract[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExtract_NoReferences(t *testing.T) {
	s := mustSchema(t, "ns://a", map[string]schema.TypeDef{
		"T": {Properties: map[string]schema.PropertyDef{"n": {Type: capability.Number}}},
	})
	typ, _ := s.Type("T")
	if got := deps.Extract(typ); len(got) != 0 {
		t.Errorf("Extract = %v, want none", got)
	}
}

func TestExtractSchema_DoesNotFollow(t *testing.T) {
	geo := mustSchema(t, "ns://geo", map[string]schema.TypeDef{
		"Address": {Properties: map[string]schema.PropertyDef{"country": refProp(ref("ns://iso", "Country"))}},
	})
	crm := mustSchema(t, "ns://crm", map[string]schema.TypeDef{
		"Person":  {Properties: map[string]schema.PropertyDef{"home": refProp(ref("ns://geo", "Address"))}},
		"Company": {Properties: map[string]schema.PropertyDef{"hq": refProp(ref("ns://geo", "Address"))}},
	})

	reg := registry.New()
	_ = reg.RegisterSchema(geo)

	got := deps.ExtractSchema(crm)
	if len(got) != 1 || got[0] != ref("ns://geo", "Address") {
		t.Errorf("ExtractSchema = %v", got)
	}
}

func TestPrewarm(t *testing.T) {
	geo := mustSchema(t, "ns://geo", map[string]schema.TypeDef{
		"Address": {Properties: map[string]schema.PropertyDef{"country": refProp(ref("ns://iso", "Country"))}},
	})
	iso := mustSchema(t, "ns://iso", map[string]schema.TypeDef{"Country": {}})
	crm := mustSchema(t, "ns://crm", map[string]schema.TypeDef{
		"Person": {Properties: map[string]schema.PropertyDef{
			"home":  refProp(ref("ns://geo", "Address")),
			"other": refProp(ref("ns://mars", "Crater")),
		}},
	})

	reg := registry.New()
	_ = reg.RegisterSchema(crm)

	res, err := deps.Prewarm(context.Background(), reg, deps.ExtractSchema(crm), deps.FromSchemas([]*schema.ObjectSchema{geo, iso}))
	if err != nil {
		t.Fatalf("Prewarm: %v", err)
	}

	if len(res.Registered) != 2 {
		t.Errorf("Registered = %v, want geo and iso", res.Registered)
	}
	if len(res.Missing) != 1 || res.Missing[0] != ref("ns://mars", "Crater") {
		t.Errorf("Missing = %v", res.Missing)
	}
	if !errors.Is(res.Failed["ns://mars/1.0.0"], deps.ErrNotFound) {
		t.Errorf("Failed = %v", res.Failed)
	}

	missing, err := deps.Unresolved(reg, []schema.TypeRef{ref("ns://iso", "Country"), ref("ns://mars", "Crater")})
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 1 {
		t.Errorf("Unresolved = %v", missing)
	}
}

func TestPrewarm_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := deps.Prewarm(ctx, registry.New(), []schema.TypeRef{ref("ns://a", "T")}, deps.FromSchemas(nil))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
