package capability_test

import (
	"errors"
	"testing"

	"github.com/artpar/objectschema/core/capability"
)

func TestDefault_Shared(t *testing.T) {
	if capability.Default() != capability.Default() {
		t.Error("Default should return the same registry")
	}
}

func TestLookup_BaseMethodsForEveryKind(t *testing.T) {
	reg := capability.Default()
	base := []capability.Method{
		capability.MethodRequired, capability.MethodAllow, capability.MethodDeny,
		capability.MethodValid, capability.MethodInvalid, capability.MethodWith,
		capability.MethodWithout, capability.MethodNullOk,
	}

	for _, kind := range capability.AllKinds() {
		for _, m := range base {
			if _, err := reg.Lookup(kind, m); err != nil {
				t.Errorf("Lookup(%s, %s) error: %v", kind, m, err)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		kind    capability.Kind
		method  capability.Method
		wantErr error
	}{
		{"string min", capability.String, capability.MethodMin, nil},
		{"number min", capability.Number, capability.MethodMin, nil},
		{"array includes", capability.Array, capability.MethodIncludes, nil},
		{"object ref", capability.Object, capability.MethodObjectSchemaType, nil},
		{"unknown kind", capability.Kind("Date"), capability.MethodRequired, capability.ErrUnsupportedType},
		{"lowercase kind name", capability.Kind("string"), capability.MethodMin, capability.ErrUnsupportedType},
		{"regex on number", capability.Number, capability.MethodRegex, capability.ErrUnsupportedConstraint},
		{"includes on string", capability.String, capability.MethodIncludes, capability.ErrUnsupportedConstraint},
		{"ref on array", capability.Array, capability.MethodObjectSchemaType, capability.ErrUnsupportedConstraint},
		{"unknown method", capability.Boolean, capability.Method("truthy"), capability.ErrUnsupportedConstraint},
	}

	reg := capability.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Lookup(tt.kind, tt.method)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLookup_ErrorDetails(t *testing.T) {
	_, err := capability.Default().Lookup(capability.Number, capability.MethodEmail)

	var uc *capability.UnsupportedConstraintError
	if !errors.As(err, &uc) {
		t.Fatalf("expected UnsupportedConstraintError, got %T", err)
	}
	if uc.Kind != capability.Number || uc.Method != capability.MethodEmail {
		t.Errorf("got kind=%s method=%s", uc.Kind, uc.Method)
	}

	err = capability.WithPath(err, "Person.age")
	if got := err.Error(); got != `Person.age: constraint "email" is not supported for type Number` {
		t.Errorf("Error() = %q", got)
	}
}

func TestSpec_CheckArgs(t *testing.T) {
	reg := capability.Default()
	tests := []struct {
		name   string
		kind   capability.Kind
		method capability.Method
		args   []any
		ok     bool
	}{
		{"required no args", capability.String, capability.MethodRequired, nil, true},
		{"required with args", capability.String, capability.MethodRequired, []any{1}, false},
		{"number min int", capability.Number, capability.MethodMin, []any{0}, true},
		{"number min float", capability.Number, capability.MethodMin, []any{-1.5}, true},
		{"number min string", capability.Number, capability.MethodMin, []any{"0"}, false},
		{"number min two args", capability.Number, capability.MethodMin, []any{0, 1}, false},
		{"string min count", capability.String, capability.MethodMin, []any{3}, true},
		{"string min negative", capability.String, capability.MethodMin, []any{-1}, false},
		{"string min fraction", capability.String, capability.MethodMin, []any{1.5}, false},
		{"regex valid", capability.String, capability.MethodRegex, []any{`^a+$`}, true},
		{"regex invalid", capability.String, capability.MethodRegex, []any{`(`}, false},
		{"regex not string", capability.String, capability.MethodRegex, []any{3}, false},
		{"valid values", capability.Any, capability.MethodValid, []any{"a", 1, nil}, true},
		{"valid empty", capability.Any, capability.MethodValid, nil, false},
		{"with keys", capability.String, capability.MethodWith, []any{"b"}, true},
		{"with empty key", capability.String, capability.MethodWith, []any{""}, false},
		{"includes empty", capability.Array, capability.MethodIncludes, nil, false},
		{"ref arity", capability.Object, capability.MethodObjectSchemaType, []any{1, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := reg.Lookup(tt.kind, tt.method)
			if err != nil {
				t.Fatalf("Lookup error: %v", err)
			}
			err = spec.CheckArgs(tt.args)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, capability.ErrConstraintArgs) {
				t.Errorf("error = %v, want ErrConstraintArgs", err)
			}
		})
	}
}

func TestMethods(t *testing.T) {
	reg := capability.Default()

	methods := reg.Methods(capability.Boolean)
	if len(methods) != 8 {
		t.Errorf("Boolean has %d methods, want 8 base methods", len(methods))
	}

	if reg.Methods(capability.Kind("Date")) != nil {
		t.Error("unknown kind should have no methods")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := capability.ParseKind("Number"); err != nil || k != capability.Number {
		t.Errorf("ParseKind(Number) = %v, %v", k, err)
	}
	if _, err := capability.ParseKind("number"); !errors.Is(err, capability.ErrUnsupportedType) {
		t.Errorf("ParseKind(number) error = %v", err)
	}
}
