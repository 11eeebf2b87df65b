package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
)

// SaveRun persists a finalized run. Saving the same run ID again replaces the
// previous record in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	profileJSON, err := marshalNullable(run.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	finalProfileJSON, err := marshalNullable(run.FinalProfile)
	if err != nil {
		return fmt.Errorf("failed to encode final profile: %w", err)
	}
	recsJSON, err := json.Marshal(run.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}
	resultJSON, err := marshalNullable(run.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, query := range []string{
		`DELETE FROM run_steps WHERE run_id = ?`,
		`DELETE FROM run_drops WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, query, run.ID); err != nil {
			return fmt.Errorf("failed to clear previous run record: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, dataset_name, status, failure_policy, created_at,
			completed_at, error, profile, final_profile, recommendations, result,
			advisor_model, used_fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DatasetName, string(run.Status), string(run.FailurePolicy),
		run.CreatedAt, nullableTime(run.CompletedAt), run.Error,
		profileJSON, finalProfileJSON, string(recsJSON), resultJSON,
		run.AdvisorModel, run.UsedFallback)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, step := range run.Steps {
		paramsJSON, mErr := marshalNullable(step.Params)
		if mErr != nil {
			return fmt.Errorf("failed to encode step params: %w", mErr)
		}
		preJSON, mErr := marshalNullable(step.PreProfile)
		if mErr != nil {
			return fmt.Errorf("failed to encode pre-profile: %w", mErr)
		}
		postJSON, mErr := marshalNullable(step.PostProfile)
		if mErr != nil {
			return fmt.Errorf("failed to encode post-profile: %w", mErr)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_steps (run_id, idx, column_name, transformer, params,
				rationale, confidence, source, applied, removed, error,
				pre_profile, post_profile, applied_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, step.Index, step.Column, step.Transformer, paramsJSON,
			step.Rationale, step.Confidence, string(step.Source),
			step.Applied, step.Removed, step.Error,
			preJSON, postJSON, step.AppliedAt)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.Index, err)
		}
	}

	for i, drop := range run.Dropped {
		recJSON, mErr := json.Marshal(drop.Recommendation)
		if mErr != nil {
			return fmt.Errorf("failed to encode dropped recommendation: %w", mErr)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_drops (run_id, idx, recommendation, reason, stage)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, string(recJSON), drop.Reason, drop.Stage)
		if err != nil {
			return fmt.Errorf("failed to insert dropped recommendation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun loads a run with its full step and drop logs.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, dataset_name, status, failure_policy, created_at,
			completed_at, error, profile, final_profile, recommendations,
			result, advisor_model, used_fallback
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: run %q", common.ErrNotFound, id)
		}
		return nil, err
	}

	if run.Steps, err = s.loadSteps(ctx, id); err != nil {
		return nil, err
	}
	if run.Dropped, err = s.loadDrops(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns stored runs matching the filter, newest first. Step and
// drop logs are loaded in full; listings are small enough that the simplicity
// wins over a summary projection.
func (s *SQLiteStorage) ListRuns(ctx context.Context, filter service.RunFilter) ([]model.PipelineRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, dataset_name, status, failure_policy, created_at,
			completed_at, error, profile, final_profile, recommendations,
			result, advisor_model, used_fallback
		FROM runs`
	var conds []string
	var args []any
	if filter.DatasetName != "" {
		conds = append(conds, "dataset_name = ?")
		args = append(args, filter.DatasetName)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.PipelineRun
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if run.Steps, err = s.loadSteps(ctx, run.ID); err != nil {
			return nil, err
		}
		if run.Dropped, err = s.loadDrops(ctx, run.ID); err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its logs.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, query := range []string{
		`DELETE FROM run_steps WHERE run_id = ?`,
		`DELETE FROM run_drops WHERE run_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to delete run logs: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %q", common.ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.PipelineRun, error) {
	var run model.PipelineRun
	var status, policy string
	var completedAt sql.NullTime
	var errMsg, profileJSON, finalProfileJSON, recsJSON, resultJSON, advisorModel sql.NullString

	err := row.Scan(&run.ID, &run.DatasetName, &status, &policy, &run.CreatedAt,
		&completedAt, &errMsg, &profileJSON, &finalProfileJSON, &recsJSON,
		&resultJSON, &advisorModel, &run.UsedFallback)
	if err != nil {
		return nil, err
	}

	run.Status = model.RunStatus(status)
	run.FailurePolicy = model.FailurePolicy(policy)
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	run.Error = errMsg.String
	run.AdvisorModel = advisorModel.String

	if err := unmarshalNullable(profileJSON, &run.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if err := unmarshalNullable(finalProfileJSON, &run.FinalProfile); err != nil {
		return nil, fmt.Errorf("failed to decode final profile: %w", err)
	}
	if recsJSON.Valid && recsJSON.String != "" {
		if err := json.Unmarshal([]byte(recsJSON.String), &run.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to decode recommendations: %w", err)
		}
	}
	if err := unmarshalNullable(resultJSON, &run.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &run, nil
}

func (s *SQLiteStorage) loadSteps(ctx context.Context, runID string) ([]model.TransformationStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, column_name, transformer, params, rationale, confidence,
			source, applied, removed, error, pre_profile, post_profile, applied_at
		FROM run_steps WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []model.TransformationStep
	for rows.Next() {
		var step model.TransformationStep
		var source string
		var paramsJSON, errMsg, preJSON, postJSON sql.NullString
		var appliedAt sql.NullTime

		err := rows.Scan(&step.Index, &step.Column, &step.Transformer,
			&paramsJSON, &step.Rationale, &step.Confidence, &source,
			&step.Applied, &step.Removed, &errMsg, &preJSON, &postJSON, &appliedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		step.Source = model.RecommendationSource(source)
		step.Error = errMsg.String
		if appliedAt.Valid {
			step.AppliedAt = appliedAt.Time
		}
		if paramsJSON.Valid && paramsJSON.String != "" {
			if err := json.Unmarshal([]byte(paramsJSON.String), &step.Params); err != nil {
				return nil, fmt.Errorf("failed to decode step params: %w", err)
			}
		}
		if err := unmarshalNullable(preJSON, &step.PreProfile); err != nil {
			return nil, fmt.Errorf("failed to decode pre-profile: %w", err)
		}
		if err := unmarshalNullable(postJSON, &step.PostProfile); err != nil {
			return nil, fmt.Errorf("failed to decode post-profile: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *SQLiteStorage) loadDrops(ctx context.Context, runID string) ([]model.DroppedRecommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recommendation, reason, stage
		FROM run_drops WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dropped recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var drops []model.DroppedRecommendation
	for rows.Next() {
		var drop model.DroppedRecommendation
		var recJSON string
		if err := rows.Scan(&recJSON, &drop.Reason, &drop.Stage); err != nil {
			return nil, fmt.Errorf("failed to scan dropped recommendation: %w", err)
		}
		if err := json.Unmarshal([]byte(recJSON), &drop.Recommendation); err != nil {
			return nil, fmt.Errorf("failed to decode dropped recommendation: %w", err)
		}
		drops = append(drops, drop)
	}
	return drops, rows.Err()
}

// marshalNullable encodes v as JSON, mapping nil pointers and nil maps to SQL
// NULL.
func marshalNullable(v any) (any, error) {
	if isNil(v) {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalNullable[T any](col sql.NullString, dest **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return err
	}
	*dest = &v
	return nil
}

func isNil(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *model.DatasetProfile:
		return t == nil
	case *model.ColumnProfile:
		return t == nil
	case *model.Dataset:
		return t == nil
	case map[string]any:
		return t == nil
	}
	return false
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
