package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/artpar/objectschema/core/schema"
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint PATH...",
	Short: "Check schema documents",
	Long: `Check schema documents for shape errors and illegal constraints.

Each document is checked in two passes:
  - shape: the document against the object schema document format
  - build: kinds, constraint methods and arguments, typeArgs usage

Directories are searched recursively for .yaml, .yml and .json files.

Examples:
  objectschema lint schemas/
  objectschema lint person.yaml address.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	files, err := schemaFiles(args)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		if !lintFile(out, file) {
			failed++
		}
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents have errors", failed, len(files))
	}
	fmt.Fprintf(out, "%d documents are valid.\n", len(files))
	return nil
}

func lintFile(out io.Writer, file string) bool {
	res, err := schema.LintFile(file)
	if err != nil {
		fmt.Fprintf(out, "  %s %s\n      Error: %v\n", crossMark, file, err)
		return false
	}
	if !res.Valid {
		fmt.Fprintf(out, "  %s %s\n", crossMark, file)
		for _, issue := range res.Issues {
			fmt.Fprintf(out, "      %s\n", issue)
		}
		return false
	}

	sch, err := schema.ParseFile(file)
	if err != nil {
		fmt.Fprintf(out, "  %s %s\n      Error: %v\n", crossMark, file, err)
		return false
	}
	fmt.Fprintf(out, "  %s %s (%s, %d types)\n", checkMark, file, sch.Key(), len(sch.TypeNames()))
	return true
}

// schemaFiles expands directories into the schema documents they contain.
func schemaFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && schema.IsSchemaFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
