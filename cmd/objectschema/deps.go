package main

import (
	"fmt"

	"github.com/artpar/objectschema/core/deps"
	"github.com/artpar/objectschema/core/formatter"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps DIR...",
	Short: "Show cross-schema references",
	Long: `Show the types each schema type references through objectSchemaType,
and whether the documents given resolve them.

Examples:
  objectschema deps schemas/
  objectschema deps crm/ geo/ --unresolved
  objectschema deps schemas/ -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeps,
}

var (
	depsOnlyUnresolved bool
	depsOutput         string
)

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().BoolVar(&depsOnlyUnresolved, "unresolved", false, "only list references no document resolves, and fail if there are any")
	depsCmd.Flags().StringVarP(&depsOutput, "output", "o", "", "output format: table, json or yaml (default: tree)")
}

func runDeps(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	reg := registry.New()
	var loaded []*schema.ObjectSchema
	for _, dir := range args {
		schemas, err := schema.ParseDir(dir)
		if err != nil {
			return err
		}
		for _, sch := range schemas {
			if err := reg.RegisterSchema(sch); err != nil {
				return err
			}
		}
		loaded = append(loaded, schemas...)
	}

	table := formatter.Table{
		Kind:    "references",
		Columns: []string{"type", "reference", "resolved"},
	}
	unresolved := 0
	for _, sch := range loaded {
		for _, t := range sch.Types() {
			refs := deps.Extract(t)
			missing, err := deps.Unresolved(reg, refs)
			if err != nil {
				return err
			}
			unresolved += len(missing)

			isMissing := make(map[schema.TypeRef]bool, len(missing))
			for _, ref := range missing {
				isMissing[ref] = true
			}

			if depsOutput != "" {
				for _, ref := range refs {
					if depsOnlyUnresolved && !isMissing[ref] {
						continue
					}
					table.Rows = append(table.Rows, map[string]any{
						"type":      sch.Ref(t.Name()).String(),
						"reference": ref.String(),
						"resolved":  !isMissing[ref],
					})
				}
				continue
			}

			if depsOnlyUnresolved {
				for _, ref := range missing {
					fmt.Fprintf(out, "%s -> %s\n", sch.Ref(t.Name()), ref)
				}
				continue
			}

			if len(refs) == 0 {
				continue
			}
			fmt.Fprintf(out, "%s\n", sch.Ref(t.Name()))
			for _, ref := range refs {
				mark := checkMark
				if isMissing[ref] {
					mark = crossMark
				}
				fmt.Fprintf(out, "  %s %s\n", mark, ref)
			}
		}
	}

	if depsOutput != "" {
		if err := formatter.Write(out, depsOutput, table, formatter.Options{}); err != nil {
			return err
		}
	}

	if depsOnlyUnresolved && unresolved > 0 {
		return fmt.Errorf("%d unresolved references", unresolved)
	}
	return nil
}
