package transform

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Veraticus/autoprep/internal/model"
)

func encodeBuiltins() []builtin {
	return []builtin{
		{
			spec: Spec{
				Name:        "encode_frequency",
				Description: "Replace each value with its share of the column",
				Types: []model.ColumnType{
					model.TypeCategorical, model.TypeText, model.TypeBoolean,
				},
			},
			fn: encodeFrequency,
		},
		{
			spec: Spec{
				Name:        "encode_label",
				Description: "Replace each distinct value with a stable integer label",
				Types:       []model.ColumnType{model.TypeCategorical, model.TypeText, model.TypeBoolean},
			},
			fn: encodeLabel,
		},
		{
			spec: Spec{
				Name:        "encode_target",
				Description: "Replace each value with a smoothed mean of a numeric target column",
				Types:       []model.ColumnType{model.TypeCategorical, model.TypeText, model.TypeBoolean},
				Params: []ParamSpec{
					{Name: "target", Kind: ParamString, Required: true},
					{Name: "smoothing", Kind: ParamFloat, Default: 10.0, Min: floatPtr(0)},
				},
			},
			fn: encodeTarget,
		},
	}
}

func encodeFrequency(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	counts := make(map[string]int)
	total := 0
	for _, cell := range col.Cells {
		if !cell.Null {
			counts[cell.Value]++
			total++
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("column %q has no values to encode", col.Name)
	}

	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = cell
			continue
		}
		cells[i] = model.Cell{Value: formatFloat(float64(counts[cell.Value]) / float64(total))}
	}
	return &model.Column{Name: col.Name, Type: model.TypeNumeric, Cells: cells}, nil
}

func encodeLabel(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	distinct := make(map[string]struct{})
	for _, cell := range col.Cells {
		if !cell.Null {
			distinct[cell.Value] = struct{}{}
		}
	}
	if len(distinct) == 0 {
		return nil, fmt.Errorf("column %q has no values to encode", col.Name)
	}

	// Labels follow sorted value order so the encoding is reproducible.
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Strings(values)
	labels := make(map[string]int, len(values))
	for i, v := range values {
		labels[v] = i
	}

	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = cell
			continue
		}
		cells[i] = model.Cell{Value: formatFloat(float64(labels[cell.Value]))}
	}
	return &model.Column{Name: col.Name, Type: model.TypeNumeric, Cells: cells}, nil
}

// encodeTarget maps each value to a blend of the value's target mean and the
// global target mean, weighted by 1/(1+exp(-(count-smoothing))) so rare
// values lean on the global mean.
func encodeTarget(_ context.Context, col model.Column, params Params, dataset model.Dataset) (*model.Column, error) {
	targetName := params.Str("target")
	targetCol, ok := dataset.Column(targetName)
	if !ok {
		return nil, fmt.Errorf("target column %q not found", targetName)
	}
	if targetCol.Type != model.TypeNumeric {
		return nil, fmt.Errorf("target column %q is %s, need numeric", targetName, targetCol.Type)
	}
	if len(targetCol.Cells) != len(col.Cells) {
		return nil, fmt.Errorf("target column %q has %d rows, column %q has %d",
			targetName, len(targetCol.Cells), col.Name, len(col.Cells))
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	globalSum, globalCount := 0.0, 0
	for i, cell := range col.Cells {
		tv, tok := targetCol.Cells[i].Float()
		if cell.Null || !tok {
			continue
		}
		sums[cell.Value] += tv
		counts[cell.Value]++
		globalSum += tv
		globalCount++
	}
	if globalCount == 0 {
		return nil, fmt.Errorf("target column %q has no numeric values", targetName)
	}
	globalMean := globalSum / float64(globalCount)
	smoothing := params.Float("smoothing")

	encoded := make(map[string]float64, len(sums))
	for v, n := range counts {
		w := 1.0 / (1.0 + math.Exp(-(float64(n) - smoothing)))
		encoded[v] = globalMean*(1-w) + (sums[v]/float64(n))*w
	}

	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = cell
			continue
		}
		e, seen := encoded[cell.Value]
		if !seen {
			e = globalMean
		}
		cells[i] = model.Cell{Value: formatFloat(e)}
	}
	return &model.Column{Name: col.Name, Type: model.TypeNumeric, Cells: cells}, nil
}
