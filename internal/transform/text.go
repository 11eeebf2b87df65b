package transform

import (
	"context"
	"regexp"
	"strings"

	"github.com/Veraticus/autoprep/internal/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

func textBuiltins() []builtin {
	textual := []model.ColumnType{model.TypeText, model.TypeCategorical}
	return []builtin{
		{
			spec: Spec{
				Name:        "lowercase",
				Description: "Lowercase every value",
				Types:       textual,
			},
			fn: mapText(strings.ToLower),
		},
		{
			spec: Spec{
				Name:        "uppercase",
				Description: "Uppercase every value",
				Types:       textual,
			},
			fn: mapText(strings.ToUpper),
		},
		{
			spec: Spec{
				Name:        "trim_space",
				Description: "Strip leading and trailing whitespace",
				Types:       textual,
			},
			fn: mapText(strings.TrimSpace),
		},
		{
			spec: Spec{
				Name:        "normalize_whitespace",
				Description: "Collapse whitespace runs to single spaces and trim",
				Types:       []model.ColumnType{model.TypeText},
			},
			fn: mapText(func(s string) string {
				return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
			}),
		},
	}
}

// mapText lifts a string function to a transformer that leaves nulls alone
// and keeps the column type.
func mapText(fn func(string) string) Func {
	return func(_ context.Context, col model.Column, _ Params, _ model.Dataset) (*model.Column, error) {
		cells := make([]model.Cell, len(col.Cells))
		for i, cell := range col.Cells {
			if cell.Null {
				cells[i] = cell
				continue
			}
			cells[i] = model.Cell{Value: fn(cell.Value)}
		}
		return &model.Column{Name: col.Name, Type: col.Type, Cells: cells}, nil
	}
}
