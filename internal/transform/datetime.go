package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/profile"
)

func datetimeBuiltins() []builtin {
	return []builtin{
		{
			spec: Spec{
				Name:        "parse_datetime",
				Description: "Parse string values into RFC 3339 timestamps",
				Types:       []model.ColumnType{model.TypeText, model.TypeCategorical},
				Params: []ParamSpec{
					{Name: "layout", Kind: ParamString},
				},
			},
			fn: parseDatetime,
		},
		{
			spec: Spec{
				Name:        "datetime_extract",
				Description: "Extract a numeric component from timestamps",
				Types:       []model.ColumnType{model.TypeDatetime},
				Params: []ParamSpec{
					{Name: "component", Kind: ParamString, Required: true,
						Enum: []string{"year", "month", "day", "weekday", "hour", "is_weekend"}},
				},
			},
			fn: datetimeExtract,
		},
	}
}

// parseDatetime normalizes parseable values to RFC 3339 and nulls the rest.
// With a layout parameter only that layout is accepted; otherwise the known
// layouts are probed per value.
func parseDatetime(_ context.Context, col model.Column, params Params, _ model.Dataset) (*model.Column, error) {
	layout := params.Str("layout")
	parsed := 0
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = cell
			continue
		}
		var ts time.Time
		var ok bool
		if layout != "" {
			t, err := time.Parse(layout, cell.Value)
			ts, ok = t, err == nil
		} else {
			ts, _, ok = profile.ParseDatetime(cell.Value)
		}
		if !ok {
			cells[i] = model.NullCell()
			continue
		}
		cells[i] = model.Cell{Value: ts.Format(time.RFC3339)}
		parsed++
	}
	if parsed == 0 {
		return nil, fmt.Errorf("no value in column %q parsed as a timestamp", col.Name)
	}
	return &model.Column{Name: col.Name, Type: model.TypeDatetime, Cells: cells}, nil
}

func datetimeExtract(_ context.Context, col model.Column, params Params, _ model.Dataset) (*model.Column, error) {
	component := params.Str("component")
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = cell
			continue
		}
		ts, _, ok := profile.ParseDatetime(cell.Value)
		if !ok {
			cells[i] = model.NullCell()
			continue
		}
		var v int
		switch component {
		case "year":
			v = ts.Year()
		case "month":
			v = int(ts.Month())
		case "day":
			v = ts.Day()
		case "weekday":
			v = int(ts.Weekday())
		case "hour":
			v = ts.Hour()
		case "is_weekend":
			if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
				v = 1
			}
		}
		cells[i] = model.Cell{Value: formatFloat(float64(v))}
	}
	name := col.Name + "_" + component
	return &model.Column{Name: name, Type: model.TypeNumeric, Cells: cells}, nil
}
