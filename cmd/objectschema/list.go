package main

import (
	"github.com/artpar/objectschema/core/formatter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [DIR...]",
	Short: "List registered schemas",
	Long: `List the schemas in the configured store, after registering the
documents under schemas.dirs (or the directories given).

With store.driver sqlite this shows every schema persisted so far.

Examples:
  objectschema list
  objectschema list schemas/
  objectschema list -o json
  objectschema list --config /etc/objectschema/config.yaml`,
	RunE: runList,
}

var (
	listOutput   string
	listNoHeader bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "output format: table, json or yaml")
	listCmd.Flags().BoolVar(&listNoHeader, "no-header", false, "omit the table header")
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := openApp(args)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	infos, err := app.Registry.List()
	if err != nil {
		return err
	}

	table := formatter.Table{
		Kind:    "schemas",
		Columns: []string{"namespace", "version", "types", "digest", "description"},
	}
	for _, info := range infos {
		digest := info.Digest
		if listOutput == "table" && len(digest) > 12 {
			digest = digest[:12]
		}
		table.Rows = append(table.Rows, map[string]any{
			"namespace":   info.Namespace,
			"version":     info.Version,
			"types":       info.Types,
			"digest":      digest,
			"description": info.Description,
		})
	}

	return formatter.Write(cmd.OutOrStdout(), listOutput, table, formatter.Options{NoHeader: listNoHeader})
}
