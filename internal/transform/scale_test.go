package transform

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func floatCell(t *testing.T, c model.Cell) float64 {
	t.Helper()
	require.False(t, c.Null)
	v, err := strconv.ParseFloat(c.Value, 64)
	require.NoError(t, err)
	return v
}

func TestScaleStandard(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric, Cells: numCells("2", "4", "6"),
	}}}

	out := applyOne(t, "scale_standard", "x", nil, dataset)

	assert.InDelta(t, -1.2247, floatCell(t, out.Cells[0]), 1e-4)
	assert.InDelta(t, 0, floatCell(t, out.Cells[1]), 1e-9)
	assert.InDelta(t, 1.2247, floatCell(t, out.Cells[2]), 1e-4)
}

func TestScaleStandard_ConstantColumn(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric, Cells: numCells("7", "7", "7"),
	}}}

	out := applyOne(t, "scale_standard", "x", nil, dataset)

	for _, c := range out.Cells {
		assert.Equal(t, "0", c.Value)
	}
}

func TestScaleStandard_PreservesNulls(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric, Cells: numCells("2", "", "6"),
	}}}

	out := applyOne(t, "scale_standard", "x", nil, dataset)

	assert.True(t, out.Cells[1].Null, "scaling does not invent values for nulls")
}

func TestScaleMinMax(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric, Cells: numCells("10", "20", "30"),
	}}}

	out := applyOne(t, "scale_minmax", "x", nil, dataset)

	assert.Equal(t, "0", out.Cells[0].Value)
	assert.Equal(t, "0.5", out.Cells[1].Value)
	assert.Equal(t, "1", out.Cells[2].Value)
}

func TestClipOutliers_IQR(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric,
		Cells: numCells("1", "2", "3", "4", "5", "6", "7", "8", "9", "100"),
	}}}

	out := applyOne(t, "clip_outliers", "x", nil, dataset)

	// q1=3.25, q3=7.75, whiskers at 1.5*IQR: high = 14.5.
	assert.InDelta(t, 14.5, floatCell(t, out.Cells[9]), 1e-9)
	assert.InDelta(t, 1.0, floatCell(t, out.Cells[0]), 1e-9, "inliers unchanged")
}

func TestClipOutliers_ZScore(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric,
		Cells: numCells("0", "0", "0", "0", "100"),
	}}}

	out := applyOne(t, "clip_outliers", "x", map[string]any{
		"method": "zscore", "threshold": 1.0,
	}, dataset)

	// mean 20, sample std ~44.72; cap at 64.72.
	assert.InDelta(t, 64.721, floatCell(t, out.Cells[4]), 1e-3)
	assert.InDelta(t, 0, floatCell(t, out.Cells[0]), 1e-9, "inliers unchanged")
}

func TestClipOutliers_InvalidMethod(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "x", Type: model.TypeNumeric, Cells: numCells("1", "2"),
	}}}

	err := DefaultRegistry().Validate(model.Recommendation{
		Column: "x", Transformer: "clip_outliers",
		Params: map[string]any{"method": "trim"},
	}, dataset)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
