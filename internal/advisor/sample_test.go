package advisor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func sampleDataset(rows int) model.Dataset {
	cells := make([]model.Cell, rows)
	for i := range cells {
		cells[i] = model.Cell{Value: fmt.Sprintf("%d", i)}
	}
	return model.Dataset{
		Name:    "numbers",
		Columns: []model.Column{{Name: "n", Type: model.TypeNumeric, Cells: cells}},
	}
}

func TestSampleRows_Deterministic(t *testing.T) {
	dataset := sampleDataset(100)

	first := sampleRows(dataset, 10)
	second := sampleRows(dataset, 10)

	require.Len(t, first, 10)
	assert.Equal(t, first, second, "same snapshot must produce the same sample")
}

func TestSampleRows_SmallDatasetTakesAllRows(t *testing.T) {
	dataset := sampleDataset(3)

	sample := sampleRows(dataset, 10)
	require.Len(t, sample, 3)
	assert.Equal(t, "0", sample[0]["n"])
	assert.Equal(t, "2", sample[2]["n"])
}

func TestSampleRows_NullsCarriedAsNil(t *testing.T) {
	dataset := model.Dataset{
		Name: "sparse",
		Columns: []model.Column{
			{Name: "v", Type: model.TypeNumeric, Cells: []model.Cell{{Value: "1"}, {Null: true}}},
		},
	}

	sample := sampleRows(dataset, 5)
	require.Len(t, sample, 2)
	assert.Equal(t, "1", sample[0]["v"])
	assert.Nil(t, sample[1]["v"])
}

func TestSampleRows_EmptyDataset(t *testing.T) {
	assert.Nil(t, sampleRows(model.Dataset{Name: "empty"}, 5))
	assert.Nil(t, sampleRows(sampleDataset(0), 5))
}
