package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
)

// Tab names written by the exporter.
const (
	tabSummary = "Summary"
	tabSteps   = "Steps"
	tabProfile = "Profile"
)

// Writer exports finalized runs to a Google Sheets spreadsheet with Summary,
// Steps, and Profile tabs.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets run exporter.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// Write exports a finalized run. Existing tab contents are replaced.
func (w *Writer) Write(ctx context.Context, run *model.PipelineRun) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	w.logger.Info("starting run export",
		"run_id", run.ID,
		"dataset", run.DatasetName,
		"steps", len(run.Steps))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	tabs := map[string][][]any{
		tabSummary: summaryRows(run),
		tabSteps:   stepRows(run),
		tabProfile: profileRows(run),
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	for _, tab := range []string{tabSummary, tabSteps, tabProfile} {
		if clearErr := w.clearTab(ctx, spreadsheetID, tab); clearErr != nil {
			return fmt.Errorf("failed to clear tab %s: %w", tab, clearErr)
		}

		values := tabs[tab]
		err = common.WithRetry(ctx, func() error {
			return w.writeTab(ctx, spreadsheetID, tab, values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write tab %s: %w", tab, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID)
		}, retryOpts)
		if err != nil {
			// Data made it; formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("run export completed",
		"run_id", run.ID,
		"spreadsheet_id", spreadsheetID)

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet, creating it (with the
// three report tabs) when no ID is configured. Missing tabs on an existing
// spreadsheet are added.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		spreadsheet, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		if err := w.ensureTabs(ctx, spreadsheet); err != nil {
			return "", err
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: tabSummary}},
			{Properties: &sheets.SheetProperties{Title: tabSteps}},
			{Properties: &sheets.SheetProperties{Title: tabProfile}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// ensureTabs adds any missing report tabs to an existing spreadsheet.
func (w *Writer) ensureTabs(ctx context.Context, spreadsheet *sheets.Spreadsheet) error {
	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil {
			existing[sheet.Properties.Title] = true
		}
	}

	var requests []*sheets.Request
	for _, tab := range []string{tabSummary, tabSteps, tabProfile} {
		if !existing[tab] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: tab},
				},
			})
		}
	}
	if len(requests) == 0 {
		return nil
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheet.SpreadsheetId,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to add report tabs: %w", err)
	}
	return nil
}

// clearTab clears all data from a tab.
func (w *Writer) clearTab(ctx context.Context, spreadsheetID, tab string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tab+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// summaryRows builds the Summary tab: run metadata and outcome counts.
func summaryRows(run *model.PipelineRun) [][]any {
	rows := [][]any{
		{"Data Preparation Run", run.ID},
		{},
		{"Dataset", run.DatasetName},
		{"Status", string(run.Status)},
		{"Failure policy", string(run.FailurePolicy)},
		{"Started", run.CreatedAt.Format(time.RFC3339)},
	}
	if !run.CompletedAt.IsZero() {
		rows = append(rows,
			[]any{"Finished", run.CompletedAt.Format(time.RFC3339)},
			[]any{"Duration", run.CompletedAt.Sub(run.CreatedAt).Round(time.Millisecond).String()})
	}
	advisor := run.AdvisorModel
	if run.UsedFallback {
		advisor = "rule-based fallback"
	}
	if advisor != "" {
		rows = append(rows, []any{"Advisor", advisor})
	}
	rows = append(rows,
		[]any{},
		[]any{"Recommendations", len(run.Recommendations)},
		[]any{"Applied", len(run.AppliedSteps())},
		[]any{"Failed", len(run.FailedSteps())},
		[]any{"Dropped", len(run.Dropped)})
	if run.Error != "" {
		rows = append(rows, []any{}, []any{"Error", run.Error})
	}
	return rows
}

// stepRows builds the Steps tab: the full decision log plus dropped
// candidates.
func stepRows(run *model.PipelineRun) [][]any {
	rows := [][]any{
		{"#", "Column", "Transformer", "Source", "Confidence", "Applied", "Removed", "Error", "Rationale"},
	}
	for _, step := range run.Steps {
		rows = append(rows, []any{
			step.Index,
			step.Column,
			step.Transformer,
			string(step.Source),
			fmt.Sprintf("%.2f", step.Confidence),
			step.Applied,
			step.Removed,
			step.Error,
			step.Rationale,
		})
	}

	if len(run.Dropped) > 0 {
		rows = append(rows,
			[]any{},
			[]any{"Dropped recommendations"},
			[]any{"Column", "Transformer", "Stage", "Reason"})
		for _, drop := range run.Dropped {
			rows = append(rows, []any{
				drop.Recommendation.Column,
				drop.Recommendation.Transformer,
				drop.Stage,
				drop.Reason,
			})
		}
	}
	return rows
}

// profileRows builds the Profile tab: one row per column, before and after
// the pipeline.
func profileRows(run *model.PipelineRun) [][]any {
	rows := [][]any{
		{"Column", "Type", "Rows", "Nulls before", "Missing before", "Nulls after", "Missing after"},
	}
	if run.Profile == nil {
		return rows
	}
	for _, col := range run.Profile.Columns {
		nullsAfter := any("-")
		missingAfter := any("-")
		if run.FinalProfile != nil {
			if final, ok := run.FinalProfile.Column(col.Name); ok {
				nullsAfter = final.NullCount
				missingAfter = fmt.Sprintf("%.1f%%", final.MissingRate*100)
			} else {
				nullsAfter = "removed"
				missingAfter = "removed"
			}
		}
		rows = append(rows, []any{
			col.Name,
			string(col.Type),
			col.RowCount,
			col.NullCount,
			fmt.Sprintf("%.1f%%", col.MissingRate*100),
			nullsAfter,
			missingAfter,
		})
	}
	return rows
}

// writeTab writes rows to a tab in batches to stay under API limits.
func (w *Writer) writeTab(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		valueRange := &sheets.ValueRange{Values: values[i:end]}
		rangeStr := fmt.Sprintf("%s!A%d", tab, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", end-i)
	}
	return nil
}

// applyFormatting bolds header rows and auto-sizes columns on every tab.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string) error {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read spreadsheet for formatting: %w", err)
	}

	var requests []*sheets.Request
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		sheetID := sheet.Properties.SheetId
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       sheetID,
						StartRowIndex: 0,
						EndRowIndex:   1,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   9,
					},
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheetID,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			})
	}

	_, err = w.service.Spreadsheets.BatchUpdate(spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
