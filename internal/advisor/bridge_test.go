package advisor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/profile"
	"github.com/Veraticus/autoprep/internal/transform"
)

// fakeClient scripts one result per call, repeating the last entry when the
// script runs out.
type fakeClient struct {
	responses []Response
	errs      []error
	calls     int
	lastReq   Request
}

func (f *fakeClient) Recommend(_ context.Context, req Request) (Response, error) {
	idx := f.calls
	f.calls++
	f.lastReq = req
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return f.responses[idx], err
}

func bridgeDataset() model.Dataset {
	return model.Dataset{
		Name: "people",
		Columns: []model.Column{
			{Name: "age", Type: model.TypeNumeric, Cells: []model.Cell{
				{Value: "30"}, {Null: true}, {Value: "45"}, {Value: "22"},
			}},
			{Name: "city", Type: model.TypeCategorical, Cells: []model.Cell{
				{Value: "Oslo"}, {Value: "Bergen"}, {Value: "Oslo"}, {Value: "Oslo"},
			}},
		},
	}
}

func bridgeProfile(t *testing.T, dataset model.Dataset) model.DatasetProfile {
	t.Helper()
	prof, err := profile.NewProfiler(nil).Profile(context.Background(), dataset)
	require.NoError(t, err)
	return prof
}

func newTestBridge(t *testing.T, client Client, cfg Config) *Bridge {
	t.Helper()
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	b := NewBridgeWithClient(cfg, client, transform.DefaultRegistry(), slog.Default())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBridge_AdviseSuccess(t *testing.T) {
	client := &fakeClient{
		responses: []Response{{Recommendations: []Candidate{
			{Column: "age", Transformer: "impute_median", Confidence: 0.9, Rationale: "nulls present"},
		}}},
	}
	b := newTestBridge(t, client, Config{Model: "gpt-4o-mini"})
	dataset := bridgeDataset()

	advice, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)

	assert.False(t, advice.UsedFallback)
	assert.Empty(t, advice.Dropped)
	require.Len(t, advice.Recommendations, 1)
	rec := advice.Recommendations[0]
	assert.Equal(t, "age", rec.Column)
	assert.Equal(t, "impute_median", rec.Transformer)
	assert.Equal(t, model.SourceAdvisor, rec.Source)
}

func TestBridge_RequestCarriesProfileAndCatalog(t *testing.T) {
	client := &fakeClient{responses: []Response{{}}}
	b := newTestBridge(t, client, Config{Model: "gpt-4o-mini", SampleSize: 2, MaxRecommendations: 5})
	dataset := bridgeDataset()

	_, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)

	req := client.lastReq
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 5, req.MaxRecommendations)
	assert.Len(t, req.DatasetProfile.Columns, 2)
	assert.Len(t, req.SampleRows, 2)
	assert.NotEmpty(t, req.Transformers, "prompt must enumerate the registry catalog")
}

func TestBridge_SanitizeDropsInvalidCandidates(t *testing.T) {
	client := &fakeClient{
		responses: []Response{{Recommendations: []Candidate{
			{Column: "foo", Transformer: "impute_median", Confidence: 0.9},
			{Column: "age", Transformer: "impute_harmonic", Confidence: 0.9},
			{Column: "age", Transformer: "lowercase", Confidence: 0.9},
			{Column: "age", Transformer: "clip_outliers", Params: map[string]any{"method": "percentile"}, Confidence: 0.9},
			{Column: "age", Transformer: "impute_median", Confidence: 1.7},
		}}},
	}
	b := newTestBridge(t, client, Config{Model: "m"})
	dataset := bridgeDataset()

	advice, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)

	require.Len(t, advice.Recommendations, 1)
	assert.Equal(t, "impute_median", advice.Recommendations[0].Transformer)
	assert.InDelta(t, 1.0, advice.Recommendations[0].Confidence, 0.0001, "confidence clamped to [0, 1]")

	require.Len(t, advice.Dropped, 4)
	for _, d := range advice.Dropped {
		assert.Equal(t, model.DropStageSanitize, d.Stage)
		assert.NotEmpty(t, d.Reason)
	}
	assert.ErrorContains(t, errors.New(advice.Dropped[0].Reason), "unknown column")
	assert.ErrorContains(t, errors.New(advice.Dropped[1].Reason), "unknown transformer")
	assert.ErrorContains(t, errors.New(advice.Dropped[2].Reason), "not applicable")
	assert.ErrorContains(t, errors.New(advice.Dropped[3].Reason), "invalid parameter")
}

func TestBridge_TransientErrorRetriesThenSucceeds(t *testing.T) {
	valid := Response{Recommendations: []Candidate{
		{Column: "age", Transformer: "impute_mean", Confidence: 0.8},
	}}
	client := &fakeClient{
		responses: []Response{{}, {}, valid},
		errs: []error{
			&common.RetryableError{Err: errors.New("status 503"), Retryable: true},
			&common.RetryableError{Err: errors.New("status 503"), Retryable: true},
			nil,
		},
	}
	b := newTestBridge(t, client, Config{Model: "m", MaxRetries: 3})
	dataset := bridgeDataset()

	advice, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)

	assert.Equal(t, 3, client.calls)
	assert.False(t, advice.UsedFallback)
	require.Len(t, advice.Recommendations, 1)
}

func TestBridge_InvalidResponseNotRetried(t *testing.T) {
	client := &fakeClient{
		responses: []Response{{}},
		errs:      []error{ErrResponseInvalid},
	}
	b := newTestBridge(t, client, Config{Model: "m", MaxRetries: 5})
	dataset := bridgeDataset()

	advice, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "malformed payloads must not be retried")
	assert.True(t, advice.UsedFallback)
}

func TestBridge_ExhaustedRetriesFallsBack(t *testing.T) {
	client := &fakeClient{
		responses: []Response{{}},
		errs:      []error{&common.RetryableError{Err: errors.New("timeout"), Retryable: true}},
	}
	b := newTestBridge(t, client, Config{Model: "m", MaxRetries: 2})
	dataset := bridgeDataset()

	advice, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
	assert.True(t, advice.UsedFallback)

	// The dataset's numeric column is 25% null, so the fallback must include
	// a median imputation for it.
	var imputed bool
	for _, rec := range advice.Recommendations {
		assert.Equal(t, model.SourceFallback, rec.Source)
		if rec.Column == "age" && rec.Transformer == "impute_median" {
			imputed = true
		}
	}
	assert.True(t, imputed, "fallback should impute the nullable numeric column")
}

func TestBridge_NilClientUsesFallback(t *testing.T) {
	b := newTestBridge(t, nil, Config{})
	dataset := bridgeDataset()

	advice, err := b.Advise(context.Background(), bridgeProfile(t, dataset), dataset)
	require.NoError(t, err)
	assert.True(t, advice.UsedFallback)
}

func TestBridge_CancellationPropagates(t *testing.T) {
	client := &fakeClient{
		responses: []Response{{}},
		errs:      []error{&common.RetryableError{Err: errors.New("timeout"), Retryable: true}},
	}
	b := newTestBridge(t, client, Config{Model: "m", MaxRetries: 10, RetryDelay: 50 * time.Millisecond})
	dataset := bridgeDataset()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Advise(ctx, bridgeProfile(t, dataset), dataset)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBridge_CacheSkipsSecondCall(t *testing.T) {
	client := &fakeClient{
		responses: []Response{{Recommendations: []Candidate{
			{Column: "age", Transformer: "impute_median", Confidence: 0.9},
		}}},
	}
	b := newTestBridge(t, client, Config{Model: "m"})
	dataset := bridgeDataset()
	prof := bridgeProfile(t, dataset)

	first, err := b.Advise(context.Background(), prof, dataset)
	require.NoError(t, err)
	second, err := b.Advise(context.Background(), prof, dataset)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "identical snapshot should hit the cache")
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestBridge_MissingRegistryIsFatal(t *testing.T) {
	b := NewBridgeWithClient(Config{}, nil, nil, slog.Default())
	t.Cleanup(func() { _ = b.Close() })
	dataset := bridgeDataset()

	_, err := b.Advise(context.Background(), model.DatasetProfile{}, dataset)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
