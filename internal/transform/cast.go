package transform

import (
	"context"
	"fmt"

	"github.com/Veraticus/autoprep/internal/model"
)

func castBuiltins() []builtin {
	return []builtin{
		{
			spec: Spec{
				Name:        "cast_numeric",
				Description: "Reinterpret the column as numeric",
				Types:       []model.ColumnType{model.TypeText, model.TypeCategorical, model.TypeBoolean},
				Params: []ParamSpec{
					{Name: "on_error", Kind: ParamString, Default: "null", Enum: []string{"null", "keep"}},
				},
			},
			fn: castNumeric,
		},
		{
			spec: Spec{
				Name:        "cast_text",
				Description: "Reinterpret the column as free text",
				Types: []model.ColumnType{
					model.TypeNumeric, model.TypeCategorical, model.TypeBoolean, model.TypeDatetime,
				},
			},
			fn: castText,
		},
		{
			spec: Spec{
				Name:        "drop_column",
				Description: "Remove the column from the dataset",
				Types: []model.ColumnType{
					model.TypeNumeric, model.TypeCategorical, model.TypeText,
					model.TypeBoolean, model.TypeDatetime,
				},
			},
			fn: dropColumn,
		},
	}
}

func castNumeric(_ context.Context, col model.Column, params Params, _ model.Dataset) (*model.Column, error) {
	keepUnparseable := params.Str("on_error") == "keep"
	parsed := 0
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		if cell.Null {
			cells[i] = cell
			continue
		}
		v, ok := cell.Float()
		switch {
		case ok:
			cells[i] = model.Cell{Value: formatFloat(v)}
			parsed++
		case keepUnparseable:
			cells[i] = cell
		default:
			cells[i] = model.NullCell()
		}
	}
	if parsed == 0 {
		return nil, fmt.Errorf("no value in column %q parsed as a number", col.Name)
	}
	return &model.Column{Name: col.Name, Type: model.TypeNumeric, Cells: cells}, nil
}

func castText(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	cells := make([]model.Cell, len(col.Cells))
	copy(cells, col.Cells)
	return &model.Column{Name: col.Name, Type: model.TypeText, Cells: cells}, nil
}

func dropColumn(_ context.Context, _ model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
	return nil, nil
}
