package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Veraticus/autoprep/internal/transform"
)

func transformersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transformers",
		Short: "List the transformer catalog",
		Long: `Transformers prints every transformer the pipeline can apply, the column
types it covers, and its parameter schema. Advisor recommendations naming
anything outside this catalog are dropped at validation.`,
		RunE: runTransformers,
	}

	cmd.Flags().StringP("output", "o", "table", "output format (table, json)")

	return cmd
}

func runTransformers(cmd *cobra.Command, _ []string) error {
	specs := transform.DefaultRegistry().Specs()

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(specs)
	case "table":
	default:
		return fmt.Errorf("invalid output format %q (want table or json)", output)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Types", "Params", "Description"})

	for _, spec := range specs {
		types := make([]string, len(spec.Types))
		for i, ct := range spec.Types {
			types[i] = string(ct)
		}
		params := make([]string, len(spec.Params))
		for i, p := range spec.Params {
			desc := fmt.Sprintf("%s (%s)", p.Name, p.Kind)
			if p.Required {
				desc += " required"
			} else if p.Default != nil {
				desc += fmt.Sprintf(" default=%v", p.Default)
			}
			params[i] = desc
		}
		t.AppendRow(table.Row{
			spec.Name,
			strings.Join(types, ", "),
			strings.Join(params, "\n"),
			spec.Description,
		})
	}
	t.Render()
	return nil
}
