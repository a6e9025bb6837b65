package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/objectschema/core/capability"
)

const crmYAML = `
namespace: ns://acme/crm
version: 1.0.0
description: CRM entities

types:
  Person:
    properties:
      age:
        type: Number
        constraints:
          - { method: required }
          - { method: min, args: [0] }
      tags:
        type: Array
        constraints:
          - method: includes
            args:
              - type: String
                constraints: [{ method: email }]
      home:
        type: Object
        typeArgs:
          - properties:
              city: { type: String }
      address:
        type: Object
        constraints:
          - method: objectSchemaType
            args: [{ namespace: "ns://acme/geo", version: "1.0.0", type: Address }]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(crmYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if s.Key() != "ns://acme/crm/1.0.0" {
		t.Errorf("Key() = %q", s.Key())
	}

	person, ok := s.Type("Person")
	if !ok {
		t.Fatal("Person type missing")
	}
	if person.Description() != "Person" {
		t.Errorf("Description defaults to name, got %q", person.Description())
	}

	age, _ := person.Property("age")
	if !age.Required() {
		t.Error("age should be required")
	}

	home, _ := person.Property("home")
	if home.TypeArgs() == nil {
		t.Fatal("home should carry an inline type from the list form")
	}
	if _, ok := home.TypeArgs().Property("city"); !ok {
		t.Error("inline type missing city")
	}

	address, _ := person.Property("address")
	ref, ok := address.Constraints()[0].Ref()
	if !ok || ref.String() != "ns://acme/geo/1.0.0#Address" {
		t.Errorf("address ref = %v, %v", ref, ok)
	}

	tags, _ := person.Property("tags")
	nested := tags.Constraints()[0].Nested()
	if len(nested) != 1 || nested[0].Kind() != capability.String {
		t.Errorf("includes nested = %+v", nested)
	}
	if nested[0].Path() != "Person.tags.includes[0]" {
		t.Errorf("nested path = %q", nested[0].Path())
	}
}

func TestParseJSON(t *testing.T) {
	data := `{
		"namespace": "ns://acme/geo",
		"version": "1.0.0",
		"description": "Geography",
		"types": {
			"Address": {
				"properties": {
					"zip": {"type": "String", "constraints": [{"method": "length", "args": [5]}]},
					"loc": {"type": "Object", "typeArgs": {"properties": {"lat": {"type": "Number"}}}}
				}
			}
		}
	}`

	s, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	addr, ok := s.Type("Address")
	if !ok {
		t.Fatal("Address missing")
	}
	loc, _ := addr.Property("loc")
	if loc.TypeArgs() == nil {
		t.Error("object form typeArgs not decoded")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "bad namespace",
			yaml: `
namespace: acme
version: 1.0.0
description: x
`,
			wantErr: ErrStructural,
		},
		{
			name: "unknown kind",
			yaml: `
namespace: ns://a
version: 1.0.0
description: x
types:
  T:
    properties:
      when: { type: Date }
`,
			wantErr: capability.ErrUnsupportedType,
		},
		{
			name: "illegal method",
			yaml: `
namespace: ns://a
version: 1.0.0
description: x
types:
  T:
    properties:
      n:
        type: Number
        constraints: [{ method: regex, args: ["a"] }]
`,
			wantErr: capability.ErrUnsupportedConstraint,
		},
		{
			name: "typeArgs with two entries",
			yaml: `
namespace: ns://a
version: 1.0.0
description: x
types:
  T:
    properties:
      o:
        type: Object
        typeArgs: [{}, {}]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "geo")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	write := func(path, content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(dir, "crm.yaml"), crmYAML)
	write(filepath.Join(sub, "geo.json"), `{"namespace":"ns://acme/geo","version":"1.0.0","description":"Geo"}`)
	write(filepath.Join(dir, "README.md"), "not a schema")

	schemas, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir failed: %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("got %d schemas, want 2", len(schemas))
	}
}

func TestParseFile_ReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("namespace: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ParseFile(path)
	if err == nil || !errors.Is(err, ErrStructural) {
		t.Fatalf("error = %v", err)
	}
}

func TestDigest(t *testing.T) {
	a, err := Parse([]byte(crmYAML))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte(crmYAML))
	if err != nil {
		t.Fatal(err)
	}

	da, _ := Digest(a)
	db, _ := Digest(b)
	if da != db {
		t.Error("identical definitions should share a digest")
	}
	if a.Identity().ID == b.Identity().ID {
		t.Error("separately parsed schemas should have distinct IDs")
	}

	if _, err := b.AddType("Extra", TypeDef{}); err != nil {
		t.Fatal(err)
	}
	if dc, _ := Digest(b); dc == da {
		t.Error("digest should change after AddType")
	}
}
