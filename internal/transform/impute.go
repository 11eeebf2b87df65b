package transform

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Veraticus/autoprep/internal/model"
)

func imputeBuiltins() []builtin {
	return []builtin{
		{
			spec: Spec{
				Name:        "impute_mean",
				Description: "Fill missing numeric values with the column mean",
				Types:       []model.ColumnType{model.TypeNumeric},
			},
			fn: imputeMean,
		},
		{
			spec: Spec{
				Name:        "impute_median",
				Description: "Fill missing numeric values with the column median",
				Types:       []model.ColumnType{model.TypeNumeric},
			},
			fn: imputeMedian,
		},
		{
			spec: Spec{
				Name:        "impute_mode",
				Description: "Fill missing values with the most frequent value",
				Types: []model.ColumnType{
					model.TypeCategorical, model.TypeText, model.TypeBoolean, model.TypeDatetime,
				},
			},
			fn: imputeMode,
		},
		{
			spec: Spec{
				Name:        "impute_constant",
				Description: "Fill missing values with a fixed value",
				Types: []model.ColumnType{
					model.TypeNumeric, model.TypeCategorical, model.TypeText,
					model.TypeBoolean, model.TypeDatetime,
				},
				Params: []ParamSpec{
					{Name: "value", Kind: ParamString, Required: true},
				},
			},
			fn: imputeConstant,
		},
		{
			spec: Spec{
				Name:        "impute_knn",
				Description: "Fill missing numeric values from the nearest rows by other numeric columns",
				Types:       []model.ColumnType{model.TypeNumeric},
				Params: []ParamSpec{
					{Name: "neighbors", Kind: ParamInt, Default: 5, Min: floatPtr(1), Max: floatPtr(50)},
				},
			},
			fn: imputeKNN,
		},
	}
}

func imputeMean(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	values, _ := col.FloatValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to impute from", col.Name)
	}
	return fillNulls(col, formatFloat(mean(values))), nil
}

func imputeMedian(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	values, _ := col.FloatValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to impute from", col.Name)
	}
	return fillNulls(col, formatFloat(quantileOf(values, 0.5))), nil
}

func imputeMode(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	counts := make(map[string]int)
	for _, cell := range col.Cells {
		if !cell.Null {
			counts[cell.Value]++
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("column %q has no values to impute from", col.Name)
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	// Ties resolve to the smallest value so repeated runs agree.
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	return fillNulls(col, values[0]), nil
}

func imputeConstant(_ context.Context, col model.Column, params Params, _ model.Dataset) (*model.Column, error) {
	return fillNulls(col, params.Str("value")), nil
}

// imputeKNN fills each missing value with the average of the k nearest rows,
// measured over the dataset's other numeric columns. Distances use the
// dimensions both rows share, normalized by how many there are.
func imputeKNN(_ context.Context, col model.Column, params Params, dataset model.Dataset) (*model.Column, error) {
	values, _ := col.FloatValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to impute from", col.Name)
	}
	k := params.Int("neighbors")

	features := make([][]float64, 0)
	present := make([][]bool, 0)
	for _, other := range dataset.Columns {
		if other.Name == col.Name || other.Type != model.TypeNumeric {
			continue
		}
		f := make([]float64, len(other.Cells))
		ok := make([]bool, len(other.Cells))
		for i, cell := range other.Cells {
			f[i], ok[i] = cell.Float()
		}
		features = append(features, f)
		present = append(present, ok)
	}

	target := make([]float64, len(col.Cells))
	known := make([]bool, len(col.Cells))
	for i, cell := range col.Cells {
		target[i], known[i] = cell.Float()
	}

	median := quantileOf(values, 0.5)
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if known[i] || !cell.Null {
			cells[i] = cell
			continue
		}
		cells[i] = model.Cell{Value: formatFloat(knnEstimate(i, k, target, known, features, present, median))}
	}
	return &model.Column{Name: col.Name, Type: model.TypeNumeric, Cells: cells}, nil
}

func knnEstimate(row, k int, target []float64, known []bool, features [][]float64, present [][]bool, fallback float64) float64 {
	type neighbor struct {
		dist  float64
		index int
	}
	var candidates []neighbor
	for j := range target {
		if !known[j] {
			continue
		}
		dist, dims := 0.0, 0
		for f := range features {
			if present[f][row] && present[f][j] {
				d := features[f][row] - features[f][j]
				dist += d * d
				dims++
			}
		}
		if dims == 0 {
			continue
		}
		candidates = append(candidates, neighbor{dist: math.Sqrt(dist / float64(dims)), index: j})
	}
	if len(candidates) == 0 {
		return fallback
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].dist != candidates[b].dist {
			return candidates[a].dist < candidates[b].dist
		}
		return candidates[a].index < candidates[b].index
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	sum := 0.0
	for _, n := range candidates[:k] {
		sum += target[n.index]
	}
	return sum / float64(k)
}

func fillNulls(col model.Column, value string) *model.Column {
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = model.Cell{Value: value}
		} else {
			cells[i] = cell
		}
	}
	return &model.Column{Name: col.Name, Type: col.Type, Cells: cells}
}
