package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func reportRun() *model.PipelineRun {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.PipelineRun{
		ID:            "run-1",
		DatasetName:   "transactions.csv",
		Status:        model.StatusDone,
		FailurePolicy: model.PolicyContinue,
		CreatedAt:     created,
		CompletedAt:   created.Add(2 * time.Second),
		AdvisorModel:  "gpt-4o-mini",
		Profile: &model.DatasetProfile{
			DatasetName: "transactions.csv",
			RowCount:    10,
			ColumnCount: 2,
			Columns: []model.ColumnProfile{
				{Name: "amount", Type: model.TypeNumeric, RowCount: 10, NullCount: 3, MissingRate: 0.3},
				{Name: "note", Type: model.TypeText, RowCount: 10},
			},
		},
		FinalProfile: &model.DatasetProfile{
			DatasetName: "transactions.csv",
			RowCount:    10,
			ColumnCount: 1,
			Columns: []model.ColumnProfile{
				{Name: "amount", Type: model.TypeNumeric, RowCount: 10},
			},
		},
		Recommendations: []model.Recommendation{
			{Column: "amount", Transformer: "impute_median", Confidence: 0.9, Source: model.SourceAdvisor},
			{Column: "note", Transformer: "drop_column", Confidence: 0.8, Source: model.SourceAdvisor},
		},
		Dropped: []model.DroppedRecommendation{
			{
				Recommendation: model.Recommendation{Column: "ghost", Transformer: "impute_mean", Confidence: 0.4, Source: model.SourceAdvisor},
				Reason:         `column "ghost" does not exist`,
				Stage:          model.DropStageSanitize,
			},
		},
		Steps: []model.TransformationStep{
			{
				Index: 0, Column: "amount", Transformer: "impute_median",
				Source: model.SourceAdvisor, Applied: true,
				PreProfile:  &model.ColumnProfile{Name: "amount", NullCount: 3},
				PostProfile: &model.ColumnProfile{Name: "amount", NullCount: 0},
				AppliedAt:   created.Add(time.Second),
			},
			{
				Index: 1, Column: "note", Transformer: "drop_column",
				Source: model.SourceAdvisor, Applied: true, Removed: true,
				AppliedAt: created.Add(time.Second),
			},
		},
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONRenderer().Render(&buf, reportRun()))

	var decoded model.PipelineRun
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	assert.Equal(t, model.StatusDone, decoded.Status)
	assert.Len(t, decoded.Steps, 2)
	assert.Len(t, decoded.Dropped, 1)
}

func TestJSONRenderer_NilRun(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, NewJSONRenderer().Render(&buf, nil), ErrNilRun)
}

func TestTableRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer().Render(&buf, reportRun()))
	out := buf.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "transactions.csv")
	assert.Contains(t, out, "impute_median")
	assert.Contains(t, out, "drop_column")
	assert.Contains(t, out, "applied (column removed)")
	assert.Contains(t, out, "ghost")
	assert.Contains(t, out, "sanitize")
	// note was removed by drop_column and is absent from the final profile
	assert.Contains(t, out, "removed")
}

func TestTableRenderer_FailedRun(t *testing.T) {
	run := reportRun()
	run.Status = model.StatusFailed
	run.Error = "advisor unreachable"
	run.Steps = []model.TransformationStep{
		{
			Index: 0, Column: "amount", Transformer: "impute_median",
			Source: model.SourceAdvisor, Applied: false,
			Error:     "target column missing",
			AppliedAt: run.CreatedAt,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer().Render(&buf, run))
	out := buf.String()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "advisor unreachable")
	assert.Contains(t, out, "failed: target column missing")
}

func TestTableRenderer_NilRun(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, NewTableRenderer().Render(&buf, nil), ErrNilRun)
}
