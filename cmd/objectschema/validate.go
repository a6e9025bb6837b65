package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/artpar/objectschema/core/deps"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/core/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validateCmd = &cobra.Command{
	Use:   "validate [VALUE_FILE...]",
	Short: "Validate values against a schema type",
	Long: `Validate JSON or YAML values against a registered type.

Every document under --schemas is registered. Documents under --library are
registered only when a loaded schema references them, directly or through
another library schema. Values are read from the given files, or from stdin
when no file (or "-") is given.

Examples:
  objectschema validate --schemas schemas/ --type 'ns://acme/crm/1.0.0#Person' person.json
  objectschema validate --schemas crm/ --library shared/ --type 'ns://acme/crm/1.0.0#Person' < person.json`,
	RunE: runValidate,
}

var (
	validateSchemaDirs  []string
	validateLibraryDirs []string
	validateType        string
	validateMaxDepth    int
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringSliceVar(&validateSchemaDirs, "schemas", nil, "schema directories to register")
	validateCmd.Flags().StringSliceVar(&validateLibraryDirs, "library", nil, "schema directories to resolve references from")
	validateCmd.Flags().StringVarP(&validateType, "type", "t", "", "type reference, e.g. ns://acme/crm/1.0.0#Person")
	validateCmd.Flags().IntVar(&validateMaxDepth, "max-depth", validation.DefaultMaxDepth, "bound on nested reference resolution")
	_ = validateCmd.MarkFlagRequired("type")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	ref, err := schema.ParseTypeRef(validateType)
	if err != nil {
		return err
	}

	reg := registry.New(registry.WithCompiler(validation.NewCompiler(validation.WithMaxDepth(validateMaxDepth))))

	var refs []schema.TypeRef
	for _, dir := range validateSchemaDirs {
		schemas, err := schema.ParseDir(dir)
		if err != nil {
			return err
		}
		for _, sch := range schemas {
			if err := reg.RegisterSchema(sch); err != nil {
				return err
			}
			refs = append(refs, deps.ExtractSchema(sch)...)
		}
	}
	refs = append(refs, ref)

	if len(validateLibraryDirs) > 0 {
		var library []*schema.ObjectSchema
		for _, dir := range validateLibraryDirs {
			schemas, err := schema.ParseDir(dir)
			if err != nil {
				return err
			}
			library = append(library, schemas...)
		}

		res, err := deps.Prewarm(cmd.Context(), reg, refs, deps.FromSchemas(library))
		if err != nil {
			return err
		}
		for _, key := range res.Registered {
			fmt.Fprintf(out, "  %s loaded %s from library\n", checkMark, key)
		}
		for _, missing := range res.Missing {
			fmt.Fprintf(out, "  %s unresolved %s\n", crossMark, missing)
		}
	}

	if t, err := reg.GetSchemaType(ref); err != nil {
		return err
	} else if t == nil {
		return fmt.Errorf("type %s is not registered", ref)
	}

	if len(args) == 0 {
		args = []string{"-"}
	}

	failed := 0
	for _, file := range args {
		value, err := readValue(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}
		if !reportValidation(out, file, reg.Validate(ref, value)) {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d values are invalid", failed, len(args))
	}
	return nil
}

func reportValidation(out io.Writer, name string, err error) bool {
	if err == nil {
		fmt.Fprintf(out, "  %s %s\n", checkMark, name)
		return true
	}

	fmt.Fprintf(out, "  %s %s\n", crossMark, name)
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		for _, v := range ve.Violations {
			fmt.Fprintf(out, "      %s (%s)\n", v.Error(), v.Constraint)
		}
		return false
	}
	fmt.Fprintf(out, "      Error: %v\n", err)
	return false
}

// readValue decodes a JSON or YAML value from file, or from stdin for "-".
func readValue(stdin io.Reader, file string) (any, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read value: %w", err)
	}

	var value any
	if file != "-" && !schema.IsJSONFile(file) {
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		return value, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return value, nil
}
