package profile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func cellsOf(values ...string) []model.Cell {
	cells := make([]model.Cell, len(values))
	for i, v := range values {
		if v == "" {
			cells[i] = model.NullCell()
		} else {
			cells[i] = model.Cell{Value: v}
		}
	}
	return cells
}

func TestProfile_NumericStats(t *testing.T) {
	p := NewProfiler(nil)
	dataset := model.Dataset{
		Name: "scores",
		Columns: []model.Column{{
			Name:  "score",
			Type:  model.TypeNumeric,
			Cells: cellsOf("2", "4", "4", "4", "5", "5", "7", "9"),
		}},
	}

	prof, err := p.Profile(context.Background(), dataset)
	require.NoError(t, err)
	require.Len(t, prof.Columns, 1)

	col := prof.Columns[0]
	require.NotNil(t, col.Mean)
	require.NotNil(t, col.Std)
	require.NotNil(t, col.Median)
	assert.InDelta(t, 5.0, *col.Mean, 1e-9)
	assert.InDelta(t, 2.1381, *col.Std, 1e-4)
	assert.InDelta(t, 4.5, *col.Median, 1e-9)
	assert.InDelta(t, 4.0, *col.Q25, 1e-9)
	assert.InDelta(t, 5.5, *col.Q75, 1e-9)
	assert.InDelta(t, 2.0, *col.Min, 1e-9)
	assert.InDelta(t, 9.0, *col.Max, 1e-9)
	require.NotNil(t, col.Skew)
	assert.Positive(t, *col.Skew, "right-tailed data should skew positive")
}

func TestProfile_Deterministic(t *testing.T) {
	p := NewProfiler(nil)
	dataset := model.Dataset{
		Name: "mix",
		Columns: []model.Column{
			{Name: "n", Type: model.TypeNumeric, Cells: cellsOf("1", "2", "", "4")},
			{Name: "c", Type: model.TypeCategorical, Cells: cellsOf("a", "b", "a", "a")},
			{Name: "t", Type: model.TypeText, Cells: cellsOf("x", "longer value", "", "y")},
		},
	}

	first, err := p.Profile(context.Background(), dataset)
	require.NoError(t, err)
	second, err := p.Profile(context.Background(), dataset)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProfile_ZeroRows(t *testing.T) {
	p := NewProfiler(nil)
	dataset := model.Dataset{
		Name: "empty",
		Columns: []model.Column{
			{Name: "a", Type: model.TypeNumeric},
			{Name: "b", Type: model.TypeText},
		},
	}

	prof, err := p.Profile(context.Background(), dataset)
	require.NoError(t, err, "zero rows is a valid dataset, not an error")

	assert.Equal(t, 0, prof.RowCount)
	assert.Equal(t, 2, prof.ColumnCount)
	assert.Zero(t, prof.OverallMissingRate)
	for _, col := range prof.Columns {
		assert.Nil(t, col.Mean)
		assert.Nil(t, col.Std)
		assert.Zero(t, col.MissingRate)
		assert.Zero(t, col.DistinctCount)
	}
}

func TestProfile_AllNullColumn(t *testing.T) {
	p := NewProfiler(nil)
	dataset := model.Dataset{
		Name: "nulls",
		Columns: []model.Column{{
			Name:  "gone",
			Type:  model.TypeNumeric,
			Cells: cellsOf("", "", ""),
		}},
	}

	prof, err := p.Profile(context.Background(), dataset)
	require.NoError(t, err)

	col := prof.Columns[0]
	assert.Equal(t, 3, col.NullCount)
	assert.InDelta(t, 1.0, col.MissingRate, 1e-9)
	assert.Nil(t, col.Mean, "all-null column has no mean")
	assert.Nil(t, col.Min)
	assert.Nil(t, col.Max)
	assert.Zero(t, col.DistinctCount)
}

func TestProfile_InvalidDataset(t *testing.T) {
	p := NewProfiler(nil)
	dataset := model.Dataset{
		Name: "ragged",
		Columns: []model.Column{
			{Name: "a", Type: model.TypeNumeric, Cells: cellsOf("1", "2")},
			{Name: "b", Type: model.TypeNumeric, Cells: cellsOf("1")},
		},
	}

	_, err := p.Profile(context.Background(), dataset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dataset")
}

func TestProfile_OverallMissingRate(t *testing.T) {
	p := NewProfiler(nil)
	dataset := model.Dataset{
		Name: "partial",
		Columns: []model.Column{
			{Name: "a", Type: model.TypeNumeric, Cells: cellsOf("1", "", "3", "4")},
			{Name: "b", Type: model.TypeText, Cells: cellsOf("", "", "x", "y")},
		},
	}

	prof, err := p.Profile(context.Background(), dataset)
	require.NoError(t, err)

	// 3 nulls out of 8 cells.
	assert.InDelta(t, 0.375, prof.OverallMissingRate, 1e-9)
	assert.Equal(t, map[model.ColumnType]int{model.TypeNumeric: 1, model.TypeText: 1}, prof.TypeCounts)
}

func TestProfile_TopValues(t *testing.T) {
	values := []string{"b", "a", "b", "c", "a", "b"}
	dataset := model.Dataset{
		Name: "cats",
		Columns: []model.Column{{
			Name:  "kind",
			Type:  model.TypeCategorical,
			Cells: cellsOf(values...),
		}},
	}

	prof, err := NewProfiler(nil).Profile(context.Background(), dataset)
	require.NoError(t, err)

	top := prof.Columns[0].TopValues
	require.Len(t, top, 3)
	assert.Equal(t, model.ValueCount{Value: "b", Count: 3}, top[0])
	assert.Equal(t, model.ValueCount{Value: "a", Count: 2}, top[1])
	assert.Equal(t, model.ValueCount{Value: "c", Count: 1}, top[2])
}

func TestProfile_TopValuesTruncated(t *testing.T) {
	var values []string
	for i := 0; i < 25; i++ {
		values = append(values, fmt.Sprintf("v%02d", i))
	}
	dataset := model.Dataset{
		Name: "wide",
		Columns: []model.Column{{
			Name:  "kind",
			Type:  model.TypeCategorical,
			Cells: cellsOf(values...),
		}},
	}

	prof, err := NewProfiler(nil).Profile(context.Background(), dataset)
	require.NoError(t, err)

	top := prof.Columns[0].TopValues
	require.Len(t, top, topValueCount)
	// Equal counts fall back to value order.
	assert.Equal(t, "v00", top[0].Value)
	assert.Equal(t, "v09", top[9].Value)
}

func TestProfile_TextLengths(t *testing.T) {
	dataset := model.Dataset{
		Name: "notes",
		Columns: []model.Column{{
			Name:  "note",
			Type:  model.TypeText,
			Cells: cellsOf("ab", "abcd", "", "abcdef"),
		}},
	}

	prof, err := NewProfiler(nil).Profile(context.Background(), dataset)
	require.NoError(t, err)

	col := prof.Columns[0]
	require.NotNil(t, col.MinLen)
	require.NotNil(t, col.MaxLen)
	require.NotNil(t, col.AvgLen)
	assert.Equal(t, 2, *col.MinLen)
	assert.Equal(t, 6, *col.MaxLen)
	assert.InDelta(t, 4.0, *col.AvgLen, 1e-9)
}

func TestProfile_DatetimeRange(t *testing.T) {
	dataset := model.Dataset{
		Name: "events",
		Columns: []model.Column{{
			Name:  "when",
			Type:  model.TypeDatetime,
			Cells: cellsOf("2024-03-01", "2024-01-15", "2024-07-30"),
		}},
	}

	prof, err := NewProfiler(nil).Profile(context.Background(), dataset)
	require.NoError(t, err)

	col := prof.Columns[0]
	assert.Equal(t, "2024-01-15T00:00:00Z", col.MinValue)
	assert.Equal(t, "2024-07-30T00:00:00Z", col.MaxValue)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{name: "min", p: 0, want: 1},
		{name: "max", p: 1, want: 4},
		{name: "median interpolates", p: 0.5, want: 2.5},
		{name: "q25", p: 0.25, want: 1.75},
		{name: "q75", p: 0.75, want: 3.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quantile(sorted, tt.p), 1e-9)
		})
	}
}

func TestProfile_StdNeedsTwoValues(t *testing.T) {
	dataset := model.Dataset{
		Name: "single",
		Columns: []model.Column{{
			Name:  "x",
			Type:  model.TypeNumeric,
			Cells: cellsOf("5"),
		}},
	}

	prof, err := NewProfiler(nil).Profile(context.Background(), dataset)
	require.NoError(t, err)

	col := prof.Columns[0]
	require.NotNil(t, col.Mean)
	assert.Nil(t, col.Std)
	assert.Nil(t, col.Skew)
}
