package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func testDataset() model.Dataset {
	return model.Dataset{
		Name: "people",
		Columns: []model.Column{
			{Name: "age", Type: model.TypeNumeric, Cells: []model.Cell{
				{Value: "30"}, {Null: true}, {Value: "45"}, {Value: "22"},
			}},
			{Name: "city", Type: model.TypeCategorical, Cells: []model.Cell{
				{Value: "Oslo"}, {Value: "Bergen"}, {Value: "Oslo"}, {Null: true},
			}},
			{Name: "note", Type: model.TypeText, Cells: []model.Cell{
				{Value: "First Note"}, {Value: "  padded  "}, {Null: true}, {Value: "x"},
			}},
		},
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	spec := Spec{Name: "noop", Types: []model.ColumnType{model.TypeText}}
	fn := func(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
		return &col, nil
	}

	require.NoError(t, r.Register(spec, fn))
	err := r.Register(spec, fn)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTransformer)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTransformer)
}

func TestRegistry_Validate(t *testing.T) {
	r := DefaultRegistry()
	dataset := testDataset()

	tests := []struct {
		name    string
		rec     model.Recommendation
		wantErr error
	}{
		{
			name: "valid numeric impute",
			rec:  model.Recommendation{Column: "age", Transformer: "impute_median"},
		},
		{
			name: "valid with params",
			rec: model.Recommendation{Column: "age", Transformer: "clip_outliers",
				Params: map[string]any{"method": "zscore", "threshold": 2.5}},
		},
		{
			name:    "unknown column",
			rec:     model.Recommendation{Column: "salary", Transformer: "impute_median"},
			wantErr: ErrUnknownColumn,
		},
		{
			name:    "unknown transformer",
			rec:     model.Recommendation{Column: "age", Transformer: "impute_harmonic"},
			wantErr: ErrUnknownTransformer,
		},
		{
			name:    "lowercase on numeric column",
			rec:     model.Recommendation{Column: "age", Transformer: "lowercase"},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "impute_mean on text column",
			rec:     model.Recommendation{Column: "note", Transformer: "impute_mean"},
			wantErr: ErrTypeMismatch,
		},
		{
			name: "unknown parameter",
			rec: model.Recommendation{Column: "age", Transformer: "impute_median",
				Params: map[string]any{"strategy": "fast"}},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "missing required parameter",
			rec:     model.Recommendation{Column: "city", Transformer: "impute_constant"},
			wantErr: ErrInvalidParameter,
		},
		{
			name: "enum violation",
			rec: model.Recommendation{Column: "age", Transformer: "clip_outliers",
				Params: map[string]any{"method": "winsor"}},
			wantErr: ErrInvalidParameter,
		},
		{
			name: "out of range",
			rec: model.Recommendation{Column: "age", Transformer: "impute_knn",
				Params: map[string]any{"neighbors": 0}},
			wantErr: ErrInvalidParameter,
		},
		{
			name: "fractional int",
			rec: model.Recommendation{Column: "age", Transformer: "impute_knn",
				Params: map[string]any{"neighbors": 2.5}},
			wantErr: ErrInvalidParameter,
		},
		{
			name: "integral float accepted for int",
			rec: model.Recommendation{Column: "age", Transformer: "impute_knn",
				Params: map[string]any{"neighbors": float64(3)}},
		},
		{
			name: "wrong kind",
			rec: model.Recommendation{Column: "city", Transformer: "impute_constant",
				Params: map[string]any{"value": 7}},
			wantErr: ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.rec, dataset)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_ValidateNeverExecutes(t *testing.T) {
	r := NewRegistry()
	executed := false
	require.NoError(t, r.Register(
		Spec{Name: "explode", Types: []model.ColumnType{model.TypeNumeric}},
		func(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
			executed = true
			return &col, nil
		},
	))

	err := r.Validate(model.Recommendation{Column: "age", Transformer: "explode"}, testDataset())
	require.NoError(t, err)
	assert.False(t, executed, "Validate must not run the transformer")
}

func TestRegistry_ApplyDoesNotMutateInput(t *testing.T) {
	r := DefaultRegistry()
	dataset := testDataset()
	before := dataset.Clone()

	out, err := r.Apply(context.Background(), model.Recommendation{
		Column: "age", Transformer: "impute_median",
	}, dataset)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, before, dataset, "Apply must not touch the input snapshot")
	assert.False(t, out.Cells[1].Null, "null cell should be imputed in the result")
}

func TestRegistry_ApplyDropColumn(t *testing.T) {
	r := DefaultRegistry()

	out, err := r.Apply(context.Background(), model.Recommendation{
		Column: "city", Transformer: "drop_column",
	}, testDataset())
	require.NoError(t, err)
	assert.Nil(t, out, "drop_column signals removal with a nil column")
}

func TestRegistry_ApplyValidatesFirst(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Apply(context.Background(), model.Recommendation{
		Column: "age", Transformer: "lowercase",
	}, testDataset())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRegistry_ApplyRecoversPanic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(
		Spec{Name: "panics", Types: []model.ColumnType{model.TypeNumeric}},
		func(_ context.Context, _ model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
			panic("boom")
		},
	))

	_, err := r.Apply(context.Background(), model.Recommendation{
		Column: "age", Transformer: "panics",
	}, testDataset())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransformFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestRegistry_ApplyWrapsRuntimeError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(
		Spec{Name: "fails", Types: []model.ColumnType{model.TypeNumeric}},
		func(_ context.Context, _ model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
			return nil, errors.New("cannot compute")
		},
	))

	_, err := r.Apply(context.Background(), model.Recommendation{
		Column: "age", Transformer: "fails",
	}, testDataset())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransformFailed)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := DefaultRegistry()
	dataset := testDataset()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.Names()
				_, _ = r.Get("impute_median")
				_ = r.Validate(model.Recommendation{Column: "age", Transformer: "impute_mean"}, dataset)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultRegistry_Catalog(t *testing.T) {
	r := DefaultRegistry()
	names := r.Names()

	for _, want := range []string{
		"impute_mean", "impute_median", "impute_mode", "impute_constant", "impute_knn",
		"scale_standard", "scale_minmax", "clip_outliers",
		"encode_frequency", "encode_label", "encode_target",
		"lowercase", "uppercase", "trim_space", "normalize_whitespace",
		"parse_datetime", "datetime_extract",
		"cast_numeric", "cast_text", "drop_column",
	} {
		assert.Contains(t, names, want)
	}

	specs := r.Specs()
	require.Equal(t, len(names), len(specs))
	for i, spec := range specs {
		assert.Equal(t, names[i], spec.Name, "Specs and Names share sorted order")
		assert.NotEmpty(t, spec.Types, "%s declares applicable types", spec.Name)
	}
}

func TestSpec_ResolveParamsDefaults(t *testing.T) {
	r := DefaultRegistry()
	spec, err := r.Get("clip_outliers")
	require.NoError(t, err)

	params, err := spec.ResolveParams(nil)
	require.NoError(t, err)
	assert.Equal(t, "iqr", params.Str("method"))
	assert.InDelta(t, 1.5, params.Float("factor"), 1e-9)
	assert.InDelta(t, 3.0, params.Float("threshold"), 1e-9)
}

func ExampleRegistry_Apply() {
	r := DefaultRegistry()
	dataset := model.Dataset{
		Name: "d",
		Columns: []model.Column{{
			Name: "score", Type: model.TypeNumeric,
			Cells: []model.Cell{{Value: "1"}, {Null: true}, {Value: "3"}},
		}},
	}

	out, _ := r.Apply(context.Background(), model.Recommendation{
		Column: "score", Transformer: "impute_mean",
	}, dataset)
	fmt.Println(out.Cells[1].Value)
	// Output: 2
}
