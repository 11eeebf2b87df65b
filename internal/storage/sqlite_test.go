package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func floatPtr(v float64) *float64 { return &v }

func testRun(id string) *model.PipelineRun {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.PipelineRun{
		ID:            id,
		DatasetName:   "transactions.csv",
		Status:        model.StatusDone,
		FailurePolicy: model.PolicyContinue,
		CreatedAt:     created,
		CompletedAt:   created.Add(3 * time.Second),
		AdvisorModel:  "gpt-4o-mini",
		Profile: &model.DatasetProfile{
			DatasetName: "transactions.csv",
			RowCount:    100,
			ColumnCount: 1,
			TypeCounts:  map[model.ColumnType]int{model.TypeNumeric: 1},
			Columns: []model.ColumnProfile{
				{
					Name:        "amount",
					Type:        model.TypeNumeric,
					RowCount:    100,
					NullCount:   12,
					MissingRate: 0.12,
					Mean:        floatPtr(42.5),
					Median:      floatPtr(40.0),
				},
			},
		},
		Recommendations: []model.Recommendation{
			{
				Column:      "amount",
				Transformer: "impute_median",
				Rationale:   "12% of values are missing",
				Confidence:  0.9,
				Source:      model.SourceAdvisor,
			},
		},
		Dropped: []model.DroppedRecommendation{
			{
				Recommendation: model.Recommendation{
					Column:      "ghost",
					Transformer: "impute_mean",
					Confidence:  0.5,
					Source:      model.SourceAdvisor,
				},
				Reason: `column "ghost" does not exist`,
				Stage:  model.DropStageSanitize,
			},
		},
		Steps: []model.TransformationStep{
			{
				Index:       0,
				Column:      "amount",
				Transformer: "impute_median",
				Params:      map[string]any{"strategy": "median"},
				Confidence:  0.9,
				Source:      model.SourceAdvisor,
				Applied:     true,
				PreProfile:  &model.ColumnProfile{Name: "amount", Type: model.TypeNumeric, NullCount: 12},
				PostProfile: &model.ColumnProfile{Name: "amount", Type: model.TypeNumeric, NullCount: 0},
				AppliedAt:   created.Add(2 * time.Second),
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	saved := testRun("run-1")
	require.NoError(t, store.SaveRun(ctx, saved))

	loaded, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, saved.ID, loaded.ID)
	assert.Equal(t, saved.DatasetName, loaded.DatasetName)
	assert.Equal(t, model.StatusDone, loaded.Status)
	assert.Equal(t, model.PolicyContinue, loaded.FailurePolicy)
	assert.Equal(t, "gpt-4o-mini", loaded.AdvisorModel)
	assert.False(t, loaded.UsedFallback)
	assert.True(t, saved.CreatedAt.Equal(loaded.CreatedAt))
	assert.True(t, saved.CompletedAt.Equal(loaded.CompletedAt))

	require.NotNil(t, loaded.Profile)
	require.Len(t, loaded.Profile.Columns, 1)
	assert.Equal(t, "amount", loaded.Profile.Columns[0].Name)
	require.NotNil(t, loaded.Profile.Columns[0].Mean)
	assert.InDelta(t, 42.5, *loaded.Profile.Columns[0].Mean, 1e-9)
	assert.Nil(t, loaded.FinalProfile)

	require.Len(t, loaded.Recommendations, 1)
	assert.Equal(t, saved.Recommendations[0], loaded.Recommendations[0])

	require.Len(t, loaded.Steps, 1)
	step := loaded.Steps[0]
	assert.Equal(t, "impute_median", step.Transformer)
	assert.True(t, step.Applied)
	assert.Equal(t, map[string]any{"strategy": "median"}, step.Params)
	require.NotNil(t, step.PreProfile)
	assert.Equal(t, 12, step.PreProfile.NullCount)
	require.NotNil(t, step.PostProfile)
	assert.Equal(t, 0, step.PostProfile.NullCount)
	assert.True(t, saved.Steps[0].AppliedAt.Equal(step.AppliedAt))

	require.Len(t, loaded.Dropped, 1)
	assert.Equal(t, saved.Dropped[0], loaded.Dropped[0])
}

func TestSaveRunReplacesExisting(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-1")))

	updated := testRun("run-1")
	updated.Status = model.StatusFailed
	updated.Error = "transformer impute_median failed"
	updated.Steps = nil
	updated.Dropped = nil
	require.NoError(t, store.SaveRun(ctx, updated))

	loaded, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, loaded.Status)
	assert.Equal(t, "transformer impute_median failed", loaded.Error)
	assert.Empty(t, loaded.Steps)
	assert.Empty(t, loaded.Dropped)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveRunRejectsNonTerminal(t *testing.T) {
	store := newTestStorage(t)

	run := testRun("run-1")
	run.Status = model.StatusApplying

	err := store.SaveRun(context.Background(), run)
	assert.ErrorIs(t, err, ErrInvalidRun)
}

func TestSaveRunRejectsNil(t *testing.T) {
	store := newTestStorage(t)

	err := store.SaveRun(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilRun)
}

func TestListRuns(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, spec := range []struct {
		id      string
		dataset string
		status  model.RunStatus
	}{
		{"run-a", "transactions.csv", model.StatusDone},
		{"run-b", "transactions.csv", model.StatusFailed},
		{"run-c", "housing.csv", model.StatusDone},
	} {
		run := testRun(spec.id)
		run.DatasetName = spec.dataset
		run.Status = spec.status
		if spec.status == model.StatusFailed {
			run.Error = "advisor unreachable"
		}
		run.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.SaveRun(ctx, run))
	}

	t.Run("all newest first", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, service.RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "run-c", runs[0].ID)
		assert.Equal(t, "run-b", runs[1].ID)
		assert.Equal(t, "run-a", runs[2].ID)
	})

	t.Run("by dataset", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, service.RunFilter{DatasetName: "housing.csv"})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-c", runs[0].ID)
	})

	t.Run("by status", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, service.RunFilter{Status: model.StatusFailed})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-b", runs[0].ID)
	})

	t.Run("since", func(t *testing.T) {
		since := base.Add(30 * time.Minute)
		runs, err := store.ListRuns(ctx, service.RunFilter{Since: &since})
		require.NoError(t, err)
		require.Len(t, runs, 2)
	})

	t.Run("limit and offset", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, service.RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-b", runs[0].ID)
	})
}

func TestDeleteRun(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-1")))
	require.NoError(t, store.DeleteRun(ctx, "run-1"))

	_, err := store.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.DeleteRun(ctx, "run-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}
