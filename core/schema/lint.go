package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed definition.schema.json
var documentSchema []byte

var (
	lintSchema = sync.OnceValues(compileLintSchema)
	printer    = message.NewPrinter(language.English)
)

// LintIssue is one document-shape problem.
type LintIssue struct {
	Path    string // instance location, e.g. "/types/Person/properties/age"
	Message string
	Keyword string
}

func (i LintIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// LintResult is the outcome of Lint.
type LintResult struct {
	Valid  bool
	Issues []LintIssue
}

func compileLintSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("decode document schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("objectschema.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add document schema: %w", err)
	}
	return c.Compile("objectschema.schema.json")
}

// Lint checks raw YAML or JSON bytes against the document schema before any
// model construction. It catches misspelled keys and wrong value types that
// plain decoding would silently ignore. The error return is reserved for
// undecodable input.
func Lint(data []byte) (*LintResult, error) {
	compiled, err := lintSchema()
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	encoded, err := json.Marshal(jsonCompatible(raw))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	err = compiled.Validate(inst)
	if err == nil {
		return &LintResult{Valid: true}, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}

	var issues []LintIssue
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		issues = []LintIssue{{Message: ve.Error()}}
	}
	return &LintResult{Issues: dedupIssues(issues)}, nil
}

// LintFile reads and lints a schema file.
func LintFile(path string) (*LintResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return Lint(data)
}

func collectIssues(ve *jsonschema.ValidationError, issues *[]LintIssue) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectIssues(cause, issues)
		}
		return
	}
	if ve.ErrorKind == nil {
		return
	}

	var keyword string
	if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
		keyword = kw[len(kw)-1]
	}
	switch keyword {
	case "", "oneOf", "anyOf", "allOf", "$ref":
		return
	}

	var path string
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	*issues = append(*issues, LintIssue{
		Path:    path,
		Message: ve.ErrorKind.LocalizedString(printer),
		Keyword: keyword,
	})
}

func dedupIssues(issues []LintIssue) []LintIssue {
	seen := make(map[LintIssue]bool, len(issues))
	out := issues[:0]
	for _, i := range issues {
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

// jsonCompatible converts yaml.v3 output into values encoding/json accepts.
func jsonCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = jsonCompatible(e)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[fmt.Sprint(k)] = jsonCompatible(e)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonCompatible(e)
		}
		return out
	default:
		return val
	}
}
