package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/profile"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile <dataset>",
		Short: "Profile a dataset without running the pipeline",
		Long: `Profile reads the dataset and prints per-column statistics: inferred
type, null counts, missing rate, and numeric or text summaries. Nothing is
transformed and nothing is persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: runProfile,
	}

	cmd.Flags().StringP("output", "o", "table", "output format (table, json)")

	return cmd
}

func runProfile(cmd *cobra.Command, args []string) error {
	dataset, err := readDataset(args[0])
	if err != nil {
		return err
	}

	prof, err := profile.NewProfiler(slog.Default()).Profile(cmd.Context(), dataset)
	if err != nil {
		return fmt.Errorf("failed to profile dataset: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(prof)
	case "table":
		renderProfileTable(cmd, prof)
		return nil
	default:
		return fmt.Errorf("invalid output format %q (want table or json)", output)
	}
}

func renderProfileTable(cmd *cobra.Command, prof model.DatasetProfile) {
	out := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s: %d rows, %d columns, %.1f%% missing",
		prof.DatasetName, prof.RowCount, prof.ColumnCount, prof.OverallMissingRate*100))
	t.AppendHeader(table.Row{"Column", "Type", "Nulls", "Distinct", "Missing", "Summary"})

	for _, col := range prof.Columns {
		t.AppendRow(table.Row{
			col.Name,
			col.Type,
			col.NullCount,
			col.DistinctCount,
			fmt.Sprintf("%.1f%%", col.MissingRate*100),
			columnSummary(col),
		})
	}
	t.Render()
}

// columnSummary condenses the type-specific statistics into one cell.
func columnSummary(col model.ColumnProfile) string {
	switch {
	case col.Mean != nil:
		summary := fmt.Sprintf("mean=%.4g std=%.4g", *col.Mean, deref(col.Std))
		if col.Min != nil && col.Max != nil {
			summary += fmt.Sprintf(" range=[%.4g, %.4g]", *col.Min, *col.Max)
		}
		return summary
	case col.MinValue != "" || col.MaxValue != "":
		return fmt.Sprintf("range=[%s, %s]", col.MinValue, col.MaxValue)
	case len(col.TopValues) > 0:
		top := col.TopValues[0]
		return fmt.Sprintf("top=%q (%d)", top.Value, top.Count)
	default:
		return ""
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
