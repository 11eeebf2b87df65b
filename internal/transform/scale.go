package transform

import (
	"context"
	"fmt"

	"github.com/Veraticus/autoprep/internal/model"
)

func scaleBuiltins() []builtin {
	return []builtin{
		{
			spec: Spec{
				Name:        "scale_standard",
				Description: "Center on the mean and divide by the standard deviation",
				Types:       []model.ColumnType{model.TypeNumeric},
			},
			fn: scaleStandard,
		},
		{
			spec: Spec{
				Name:        "scale_minmax",
				Description: "Rescale values linearly into [0, 1]",
				Types:       []model.ColumnType{model.TypeNumeric},
			},
			fn: scaleMinMax,
		},
		{
			spec: Spec{
				Name:        "clip_outliers",
				Description: "Cap extreme values at IQR whiskers or a z-score bound",
				Types:       []model.ColumnType{model.TypeNumeric},
				Params: []ParamSpec{
					{Name: "method", Kind: ParamString, Default: "iqr", Enum: []string{"iqr", "zscore"}},
					{Name: "factor", Kind: ParamFloat, Default: 1.5, Min: floatPtr(0)},
					{Name: "threshold", Kind: ParamFloat, Default: 3.0, Min: floatPtr(0)},
				},
			},
			fn: clipOutliers,
		},
	}
}

func scaleStandard(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	values, _ := col.FloatValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to scale", col.Name)
	}
	m := mean(values)
	sd := popStd(values)
	out := mapNumeric(col, func(v float64) float64 {
		if sd == 0 {
			return 0
		}
		return (v - m) / sd
	})
	return &out, nil
}

func scaleMinMax(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	values, _ := col.FloatValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to scale", col.Name)
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	out := mapNumeric(col, func(v float64) float64 {
		if span == 0 {
			return 0
		}
		return (v - lo) / span
	})
	return &out, nil
}

func clipOutliers(_ context.Context, col model.Column, params Params, _ model.Dataset) (*model.Column, error) {
	values, _ := col.FloatValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to clip", col.Name)
	}

	var low, high float64
	switch params.Str("method") {
	case "zscore":
		m := mean(values)
		sd := sampleStd(values)
		if sd == 0 {
			sd = 1.0
		}
		t := params.Float("threshold")
		low, high = m-t*sd, m+t*sd
	default: // iqr
		q1 := quantileOf(values, 0.25)
		q3 := quantileOf(values, 0.75)
		iqr := q3 - q1
		f := params.Float("factor")
		low, high = q1-f*iqr, q3+f*iqr
	}

	out := mapNumeric(col, func(v float64) float64 {
		if v < low {
			return low
		}
		if v > high {
			return high
		}
		return v
	})
	return &out, nil
}
