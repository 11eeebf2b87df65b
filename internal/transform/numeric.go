package transform

import (
	"math"
	"sort"
	"strconv"

	"github.com/Veraticus/autoprep/internal/model"
)

// formatFloat renders a float the way cells carry numbers: shortest
// round-trippable form.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// popStd is the population standard deviation, the convention scalers use.
func popStd(values []float64) float64 {
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// sampleStd is the n-1 standard deviation, the convention profiles use.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// quantileOf computes the p-quantile with linear interpolation. Values are
// copied and sorted.
func quantileOf(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// mapNumeric applies fn to every parseable cell, leaving nulls and
// unparseable values untouched.
func mapNumeric(col model.Column, fn func(float64) float64) model.Column {
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if v, ok := cell.Float(); ok {
			cells[i] = model.Cell{Value: formatFloat(fn(v))}
		} else {
			cells[i] = cell
		}
	}
	return model.Column{Name: col.Name, Type: model.TypeNumeric, Cells: cells}
}

func floatPtr(v float64) *float64 { return &v }
