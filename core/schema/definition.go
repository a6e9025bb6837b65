package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/artpar/objectschema/core/capability"
	"gopkg.in/yaml.v3"
)

// Definition is the plain-data form of an ObjectSchema.
type Definition struct {
	Namespace   string             `json:"namespace" yaml:"namespace"`
	Version     string             `json:"version" yaml:"version"`
	Description string             `json:"description" yaml:"description"`
	Types       map[string]TypeDef `json:"types,omitempty" yaml:"types,omitempty"`
}

// TypeDef is the plain-data form of a Type.
type TypeDef struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// AllowExtraKeys accepts keys that are not declared as properties.
	AllowExtraKeys bool `json:"allowExtraKeys,omitempty" yaml:"allowExtraKeys,omitempty"`

	// SkipFunctions ignores undeclared keys whose values are functions.
	SkipFunctions bool `json:"skipFunctions,omitempty" yaml:"skipFunctions,omitempty"`

	// SaveConversions writes converted values back into the validated object.
	SaveConversions bool `json:"saveConversions,omitempty" yaml:"saveConversions,omitempty"`

	// SkipConversions disables string to number/boolean conversion.
	SkipConversions bool `json:"skipConversions,omitempty" yaml:"skipConversions,omitempty"`

	// StripExtraKeys deletes undeclared keys from the validated object.
	StripExtraKeys bool `json:"stripExtraKeys,omitempty" yaml:"stripExtraKeys,omitempty"`

	Properties map[string]PropertyDef `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// PropertyDef is the plain-data form of a Property.
type PropertyDef struct {
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Type        capability.Kind `json:"type" yaml:"type"`
	Constraints []ConstraintDef `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	// TypeArgs is an inline nested type. Only legal on Object properties.
	// Documents may write it as an object or as a one-element list.
	TypeArgs *TypeDef `json:"typeArgs,omitempty" yaml:"typeArgs,omitempty"`
}

// ConstraintDef is one (method, args) pair.
type ConstraintDef struct {
	Method capability.Method `json:"method" yaml:"method"`
	Args   []any             `json:"args,omitempty" yaml:"args,omitempty"`
}

// UnmarshalJSON accepts typeArgs as an object or a one-element array.
func (p *PropertyDef) UnmarshalJSON(data []byte) error {
	type plain PropertyDef
	var raw struct {
		*plain
		TypeArgs json.RawMessage `json:"typeArgs"`
	}
	raw.plain = (*plain)(p)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.TypeArgs = nil
	trimmed := bytes.TrimSpace(raw.TypeArgs)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		var list []TypeDef
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("typeArgs: %w", err)
		}
		if len(list) != 1 {
			return fmt.Errorf("typeArgs: expected one inline type, got %d", len(list))
		}
		p.TypeArgs = &list[0]
		return nil
	}

	var td TypeDef
	if err := json.Unmarshal(trimmed, &td); err != nil {
		return fmt.Errorf("typeArgs: %w", err)
	}
	p.TypeArgs = &td
	return nil
}

// UnmarshalYAML accepts typeArgs as a mapping or a one-element sequence.
func (p *PropertyDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value != "typeArgs" || node.Content[i+1].Kind != yaml.SequenceNode {
				continue
			}
			seq := node.Content[i+1]
			if len(seq.Content) != 1 {
				return fmt.Errorf("line %d: typeArgs: expected one inline type, got %d", seq.Line, len(seq.Content))
			}
			clone := *node
			clone.Content = append([]*yaml.Node(nil), node.Content...)
			clone.Content[i+1] = seq.Content[0]
			node = &clone
			break
		}
	}

	type plain PropertyDef
	return node.Decode((*plain)(p))
}

// decodePropertyDef converts an includes/excludes argument into a PropertyDef.
// Arguments arrive as decoded maps from documents or as PropertyDef values
// from Go callers.
func decodePropertyDef(arg any) (PropertyDef, error) {
	switch v := arg.(type) {
	case PropertyDef:
		return v, nil
	case *PropertyDef:
		if v == nil {
			return PropertyDef{}, fmt.Errorf("nil description")
		}
		return *v, nil
	}

	if _, ok := capability.AsObject(arg); !ok {
		return PropertyDef{}, fmt.Errorf("expected a {type, constraints} object, got %T", arg)
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return PropertyDef{}, err
	}
	var pd PropertyDef
	if err := json.Unmarshal(data, &pd); err != nil {
		return PropertyDef{}, err
	}
	return pd, nil
}
