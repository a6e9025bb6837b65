package capability_test

import (
	"encoding/json"
	"testing"

	"github.com/artpar/objectschema/core/capability"
)

func build(t *testing.T, kind capability.Kind, method capability.Method, args ...any) capability.Rule {
	t.Helper()
	spec, err := capability.Default().Lookup(kind, method)
	if err != nil {
		t.Fatalf("Lookup(%s, %s): %v", kind, method, err)
	}
	if err := spec.CheckArgs(args); err != nil {
		t.Fatalf("CheckArgs: %v", err)
	}
	if spec.Structural() {
		t.Fatalf("%s is structural", method)
	}
	return spec.Build(args)
}

func TestStringRules(t *testing.T) {
	tests := []struct {
		name   string
		method capability.Method
		args   []any
		value  string
		pass   bool
	}{
		{"min ok", capability.MethodMin, []any{3}, "abc", true},
		{"min short", capability.MethodMin, []any{3}, "ab", false},
		{"min counts runes", capability.MethodMin, []any{2}, "éé", true},
		{"max ok", capability.MethodMax, []any{3}, "abc", true},
		{"max long", capability.MethodMax, []any{3}, "abcd", false},
		{"length", capability.MethodLength, []any{2}, "ab", true},
		{"length mismatch", capability.MethodLength, []any{2}, "abc", false},
		{"alphanum", capability.MethodAlphanum, nil, "abc123", true},
		{"alphanum symbol", capability.MethodAlphanum, nil, "abc-123", false},
		{"regex", capability.MethodRegex, []any{`^\d{3}$`}, "123", true},
		{"regex miss", capability.MethodRegex, []any{`^\d{3}$`}, "12a", false},
		{"email", capability.MethodEmail, nil, "a@example.com", true},
		{"email invalid", capability.MethodEmail, nil, "not-an-email", false},
		{"email with name", capability.MethodEmail, nil, "Bob <bob@example.com>", false},
		{"date only", capability.MethodDate, nil, "2024-01-15", true},
		{"date rfc3339", capability.MethodDate, nil, "2024-01-15T12:00:00Z", true},
		{"date invalid", capability.MethodDate, nil, "yesterday", false},
		{"lowercase", capability.MethodLowercase, nil, "abc", true},
		{"lowercase mixed", capability.MethodLowercase, nil, "aBc", false},
		{"uppercase", capability.MethodUppercase, nil, "ABC", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := build(t, capability.String, tt.method, tt.args...)
			f := rule(capability.Input{Key: "s", Value: tt.value})
			if tt.pass && f != nil {
				t.Errorf("unexpected failure: %s", f.Message)
			}
			if !tt.pass && f == nil {
				t.Error("expected failure")
			}
		})
	}
}

func TestNumberRules(t *testing.T) {
	tests := []struct {
		name   string
		method capability.Method
		args   []any
		value  float64
		pass   bool
	}{
		{"min ok", capability.MethodMin, []any{0}, 0, true},
		{"min below", capability.MethodMin, []any{0}, -1, false},
		{"min json number", capability.MethodMin, []any{json.Number("10")}, 9, false},
		{"max ok", capability.MethodMax, []any{10.5}, 10.5, true},
		{"max above", capability.MethodMax, []any{10}, 11, false},
		{"integer", capability.MethodInteger, nil, 3, true},
		{"integer fraction", capability.MethodInteger, nil, 3.2, false},
		{"positive", capability.MethodPositive, nil, 1, true},
		{"positive zero", capability.MethodPositive, nil, 0, false},
		{"negative", capability.MethodNegative, nil, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := build(t, capability.Number, tt.method, tt.args...)
			f := rule(capability.Input{Value: tt.value})
			if tt.pass != (f == nil) {
				t.Errorf("pass = %v, failure = %+v", tt.pass, f)
			}
		})
	}
}

func TestArrayRules(t *testing.T) {
	rule := build(t, capability.Array, capability.MethodMin, 2)
	if f := rule(capability.Input{Value: []any{1}}); f == nil {
		t.Error("min(2) should reject one item")
	}
	rule = build(t, capability.Array, capability.MethodMax, 1)
	if f := rule(capability.Input{Value: []any{1}}); f != nil {
		t.Errorf("max(1) rejected one item: %s", f.Message)
	}
}

func TestPeerRules(t *testing.T) {
	withRule := build(t, capability.String, capability.MethodWith, "b", "c")
	f := withRule(capability.Input{Key: "a", Value: "x", Parent: map[string]any{"a": "x", "b": 1}})
	if f == nil || f.Message != "requires peers: c" {
		t.Errorf("with failure = %+v", f)
	}

	withoutRule := build(t, capability.String, capability.MethodWithout, "b")
	f = withoutRule(capability.Input{Key: "a", Value: "x", Parent: map[string]any{"a": "x", "b": 1}})
	if f == nil {
		t.Error("without should reject a present peer")
	}

	if f := withoutRule(capability.Input{Value: "x"}); f != nil {
		t.Error("peer rules must ignore values without a parent")
	}
}

func TestCheckKind(t *testing.T) {
	fn := func() {}
	tests := []struct {
		name          string
		kind          capability.Kind
		value         any
		convert       bool
		want          any
		wantConverted bool
		fail          bool
	}{
		{"string", capability.String, "a", true, "a", false, false},
		{"string rejects number", capability.String, 1, true, nil, false, true},
		{"number int", capability.Number, 30, true, 30.0, false, false},
		{"number json", capability.Number, json.Number("1.5"), true, 1.5, false, false},
		{"number from string", capability.Number, "42", true, 42.0, true, false},
		{"number string without conversion", capability.Number, "42", false, nil, false, true},
		{"number rejects word", capability.Number, "forty", true, nil, false, true},
		{"boolean", capability.Boolean, true, true, true, false, false},
		{"boolean from string", capability.Boolean, "false", true, false, true, false},
		{"array typed slice", capability.Array, []string{"a"}, true, nil, false, false},
		{"array rejects bytes", capability.Array, []byte("a"), true, nil, false, true},
		{"object", capability.Object, map[string]any{}, true, nil, false, false},
		{"object typed map", capability.Object, map[string]int{"a": 1}, true, nil, false, false},
		{"object rejects slice", capability.Object, []any{}, true, nil, false, true},
		{"function", capability.Function, fn, true, nil, false, false},
		{"function rejects string", capability.Function, "fn", true, nil, false, true},
		{"any", capability.Any, 7, true, 7, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, converted, f := capability.CheckKind(tt.kind, tt.value, tt.convert)
			if tt.fail {
				if f == nil {
					t.Fatal("expected failure")
				}
				if f.Constraint != "type" {
					t.Errorf("Constraint = %q, want type", f.Constraint)
				}
				return
			}
			if f != nil {
				t.Fatalf("unexpected failure: %s", f.Message)
			}
			if converted != tt.wantConverted {
				t.Errorf("converted = %v, want %v", converted, tt.wantConverted)
			}
			if tt.want != nil && got != tt.want {
				t.Errorf("normalized = %#v, want %#v", got, tt.want)
			}
		})
	}
}
