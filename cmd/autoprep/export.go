package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/autoprep/internal/config"
	"github.com/Veraticus/autoprep/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored runs to external destinations",
	}

	cmd.PersistentFlags().String("store", "~/.local/share/autoprep/autoprep.db", "run store (SQLite path or postgres:// DSN)")
	_ = viper.BindPFlag("storage.dsn", cmd.PersistentFlags().Lookup("store"))

	cmd.AddCommand(exportSheetsCmd())
	cmd.AddCommand(exportJSONCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <run-id>",
		Short: "Export a run report to Google Sheets",
		Long: `Export sheets writes the run's summary, step log, and column profiles
to a Google Sheets spreadsheet. Credentials come from the sheets.* config
keys or the GOOGLE_SHEETS_* environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: runExportSheets,
	}
}

func runExportSheets(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("failed to load sheets config: %w", err)
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

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	if err := writer.Write(ctx, run); err != nil {
		return fmt.Errorf("failed to export run to sheets: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported run %s to %q\n", run.ID, sheetsConfig.SpreadsheetName)
	return nil
}

func exportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "json <run-id>",
		Short: "Export a run report as a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportJSON,
	}

	cmd.Flags().String("path", "", "output path (defaults to <run-id>.json)")

	return cmd
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx, viper.GetString("storage.dsn"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", args[0], err)
	}

	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		path = run.ID + ".json"
	}
	if err := writeJSONReport(path, run); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported run %s to %s\n", run.ID, path)
	return nil
}
