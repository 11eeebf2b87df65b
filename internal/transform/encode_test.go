package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func TestEncodeFrequency(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "c", Type: model.TypeCategorical,
		Cells: numCells("a", "a", "b", ""),
	}}}

	out := applyOne(t, "encode_frequency", "c", nil, dataset)

	require.Equal(t, model.TypeNumeric, out.Type)
	assert.InDelta(t, 2.0/3.0, floatCell(t, out.Cells[0]), 1e-9)
	assert.InDelta(t, 1.0/3.0, floatCell(t, out.Cells[2]), 1e-9)
	assert.True(t, out.Cells[3].Null, "nulls stay null")
}

func TestEncodeLabel(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "c", Type: model.TypeCategorical,
		Cells: numCells("banana", "apple", "cherry", "apple"),
	}}}

	out := applyOne(t, "encode_label", "c", nil, dataset)

	// Labels follow sorted value order: apple=0, banana=1, cherry=2.
	assert.Equal(t, "1", out.Cells[0].Value)
	assert.Equal(t, "0", out.Cells[1].Value)
	assert.Equal(t, "2", out.Cells[2].Value)
	assert.Equal(t, "0", out.Cells[3].Value)
}

func TestEncodeTarget(t *testing.T) {
	// "a" appears 30 times with target 5; its weight is ~1 so the encoding
	// lands on the value mean. "b" appears once; its weight is ~0 so the
	// encoding stays near the global mean.
	aCells := make([]string, 0, 31)
	tCells := make([]string, 0, 31)
	for i := 0; i < 30; i++ {
		aCells = append(aCells, "a")
		tCells = append(tCells, "5")
	}
	aCells = append(aCells, "b")
	tCells = append(tCells, "100")

	dataset := model.Dataset{Name: "d", Columns: []model.Column{
		{Name: "c", Type: model.TypeCategorical, Cells: numCells(aCells...)},
		{Name: "y", Type: model.TypeNumeric, Cells: numCells(tCells...)},
	}}

	out := applyOne(t, "encode_target", "c", map[string]any{"target": "y"}, dataset)

	globalMean := 250.0 / 31.0
	assert.InDelta(t, 5.0, floatCell(t, out.Cells[0]), 1e-3)
	assert.InDelta(t, globalMean, floatCell(t, out.Cells[30]), 0.05)
}

func TestEncodeTarget_MissingTargetColumn(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{{
		Name: "c", Type: model.TypeCategorical, Cells: numCells("a", "b"),
	}}}

	_, err := DefaultRegistry().Apply(context.Background(), model.Recommendation{
		Column: "c", Transformer: "encode_target",
		Params: map[string]any{"target": "y"},
	}, dataset)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransformFailed)
	assert.Contains(t, err.Error(), `target column "y" not found`)
}

func TestEncodeTarget_NonNumericTarget(t *testing.T) {
	dataset := model.Dataset{Name: "d", Columns: []model.Column{
		{Name: "c", Type: model.TypeCategorical, Cells: numCells("a", "b")},
		{Name: "y", Type: model.TypeText, Cells: numCells("x", "z")},
	}}

	_, err := DefaultRegistry().Apply(context.Background(), model.Recommendation{
		Column: "c", Transformer: "encode_target",
		Params: map[string]any{"target": "y"},
	}, dataset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need numeric")
}
