package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/report"
	"github.com/Veraticus/autoprep/internal/service"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored pipeline runs",
	}

	cmd.PersistentFlags().String("store", "~/.local/share/autoprep/autoprep.db", "run store (SQLite path or postgres:// DSN)")
	_ = viper.BindPFlag("storage.dsn", cmd.PersistentFlags().Lookup("store"))

	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsDeleteCmd())

	return cmd
}

func runsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE:  runRunsList,
	}

	cmd.Flags().String("dataset", "", "only runs for this dataset name")
	cmd.Flags().String("status", "", "only runs with this status (DONE, FAILED)")
	cmd.Flags().Int("limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().Int("offset", 0, "runs to skip from the newest")
	cmd.Flags().Duration("since", 0, "only runs created within this duration (e.g. 72h)")

	return cmd
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx, viper.GetString("storage.dsn"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filter := service.RunFilter{}
	filter.DatasetName, _ = cmd.Flags().GetString("dataset")
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")

	if status, _ := cmd.Flags().GetString("status"); status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return err
		}
		filter.Status = parsed
	}
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		cutoff := time.Now().Add(-since)
		filter.Since = &cutoff
	}

	runs, err := store.ListRuns(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Dataset", "Status", "Steps", "Dropped", "Created"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.DatasetName,
			run.Status,
			len(run.Steps),
			len(run.Dropped),
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
	return nil
}

func runsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full report for a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}

	cmd.Flags().StringP("output", "o", "table", "report format (table, json)")

	return cmd
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	output, _ := cmd.Flags().GetString("output")
	var renderer report.Renderer
	switch output {
	case "table":
		renderer = report.NewTableRenderer()
	case "json":
		renderer = report.NewJSONRenderer()
	default:
		return fmt.Errorf("invalid output format %q (want table or json)", output)
	}

	store, err := openStorage(ctx, viper.GetString("storage.dsn"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", args[0], err)
	}

	return renderer.Render(cmd.OutOrStdout(), run)
}

func runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx, viper.GetString("storage.dsn"))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRun(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete run %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

// parseStatus normalizes and validates a run status argument.
func parseStatus(s string) (model.RunStatus, error) {
	status := model.RunStatus(strings.ToUpper(s))
	switch status {
	case model.StatusInit, model.StatusProfiling, model.StatusAdvising,
		model.StatusReviewing, model.StatusApplying, model.StatusReporting,
		model.StatusDone, model.StatusFailed:
		return status, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}
