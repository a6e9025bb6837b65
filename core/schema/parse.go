package schema

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Parse builds an object schema from YAML bytes.
func Parse(data []byte, opts ...Option) (*ObjectSchema, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return build(def, opts)
}

// ParseJSON builds an object schema from JSON bytes.
func ParseJSON(data []byte, opts ...Option) (*ObjectSchema, error) {
	var def Definition
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return build(def, opts)
}

func build(def Definition, opts []Option) (*ObjectSchema, error) {
	s, err := New(def, opts...)
	if err != nil {
		if def.Namespace != "" {
			return nil, fmt.Errorf("schema %s: %w", SchemaKey(def.Namespace, def.Version), err)
		}
		return nil, err
	}
	return s, nil
}

// ParseFile builds an object schema from a file. Files ending in .json are
// decoded as JSON, everything else as YAML.
func ParseFile(path string, opts ...Option) (*ObjectSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var s *ObjectSchema
	if IsJSONFile(path) {
		s, err = ParseJSON(data, opts...)
	} else {
		s, err = Parse(data, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseDir parses every schema file in dir, including subdirectories.
func ParseDir(dir string, opts ...Option) ([]*ObjectSchema, error) {
	var schemas []*ObjectSchema

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path, opts...)
			if err != nil {
				return nil, err
			}
			schemas = append(schemas, sub...)
			continue
		}

		if !IsSchemaFile(entry.Name()) {
			continue
		}

		s, err := ParseFile(path, opts...)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}

	return schemas, nil
}

// IsSchemaFile reports whether name has a schema file extension.
func IsSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// IsJSONFile reports whether name should be decoded as JSON.
func IsJSONFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// MarshalYAML renders the schema definition as YAML.
func MarshalYAML(s *ObjectSchema) ([]byte, error) {
	return yaml.Marshal(s.Definition())
}

// Digest returns a hex BLAKE2b-256 hash of the schema's canonical JSON form.
// Two schemas with the same definition have the same digest regardless of
// identity.
func Digest(s *ObjectSchema) (string, error) {
	data, err := json.Marshal(s.Definition())
	if err != nil {
		return "", fmt.Errorf("encode schema %s: %w", s.Key(), err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
