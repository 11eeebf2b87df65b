package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/autoprep/internal/cli"
	"github.com/Veraticus/autoprep/internal/engine"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/report"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <dataset>",
		Short: "Run the preparation pipeline over a dataset",
		Long: `Run profiles the dataset, collects transformation recommendations from
the configured advisor (or the rule-based fallback), applies the validated
ones, and prints a report. The finished run is persisted to the store.

Supports CSV and OFX/QFX input, chosen by file extension.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	cmd.Flags().String("store", "~/.local/share/autoprep/autoprep.db", "run store (SQLite path or postgres:// DSN)")
	cmd.Flags().String("policy", "continue", "failure policy (continue, fail-fast)")
	cmd.Flags().Bool("review", false, "interactively review each recommendation before applying")
	cmd.Flags().StringP("output", "o", "table", "report format (table, json)")
	cmd.Flags().String("export-json", "", "also write the JSON report to this path")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	_ = viper.BindPFlag("storage.dsn", cmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("run.policy", cmd.Flags().Lookup("policy"))

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	policy, err := parsePolicy(viper.GetString("run.policy"))
	if err != nil {
		return err
	}

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

	dataset, err := readDataset(args[0])
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, viper.GetString("storage.dsn"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	opts := engine.Options{Storage: store, Logger: logger}
	if review, _ := cmd.Flags().GetBool("review"); review {
		opts.Reviewer = cli.NewReviewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	orchestrator, err := buildOrchestrator(logger, opts)
	if err != nil {
		return err
	}

	cfg := engine.RunConfig{FailurePolicy: policy}
	var progress *cli.ProgressReporter
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress && output == "table" {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		cfg.OnStep = progress.OnStep
	}

	interruptHandler := cli.NewInterruptHandler(cmd.OutOrStdout())
	ctx = interruptHandler.HandleInterrupts(ctx, true)

	run, runErr := orchestrator.Run(ctx, dataset, cfg)
	if progress != nil {
		progress.Finish()
	}
	if run == nil {
		return runErr
	}
	if runErr != nil {
		logger.Error("Pipeline run failed", "run_id", run.ID, "error", runErr)
	}

	if err := renderer.Render(cmd.OutOrStdout(), run); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if path, _ := cmd.Flags().GetString("export-json"); path != "" {
		if err := writeJSONReport(path, run); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("JSON report written to %s", path)))
	}

	return runErr
}

// writeJSONReport writes the machine-readable report artifact to path.
func writeJSONReport(path string, run *model.PipelineRun) error {
	f, err := os.Create(path) // #nosec G304 -- user-supplied output path
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := report.NewJSONRenderer().Render(f, run); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
