// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// ColumnType classifies the values a column holds.
type ColumnType string

// Column type constants.
const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDatetime    ColumnType = "datetime"
	TypeText        ColumnType = "text"
	TypeBoolean     ColumnType = "boolean"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeNumeric, TypeCategorical, TypeDatetime, TypeText, TypeBoolean:
		return true
	}
	return false
}

// Cell is a single value in a column. Values are carried as strings until a
// transformer needs a typed view; Null marks missing data regardless of what
// the raw source contained.
type Cell struct {
	Value string `json:"value"`
	Null  bool   `json:"null,omitempty"`
}

// NullCell returns the canonical missing cell.
func NullCell() Cell {
	return Cell{Null: true}
}

// Float parses the cell as a float64. Returns false for null or unparseable
// values.
func (c Cell) Float() (float64, bool) {
	if c.Null {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Column is a named, typed slice of cells.
type Column struct {
	Name  string     `json:"name"`
	Type  ColumnType `json:"type"`
	Cells []Cell     `json:"cells"`
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return Column{Name: c.Name, Type: c.Type, Cells: cells}
}

// NullCount returns the number of null cells.
func (c Column) NullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Null {
			n++
		}
	}
	return n
}

// NonNullValues returns the raw values of all non-null cells, in order.
func (c Column) NonNullValues() []string {
	values := make([]string, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if !cell.Null {
			values = append(values, cell.Value)
		}
	}
	return values
}

// FloatValues returns the parseable numeric values of all non-null cells
// together with their row indexes.
func (c Column) FloatValues() ([]float64, []int) {
	values := make([]float64, 0, len(c.Cells))
	indexes := make([]int, 0, len(c.Cells))
	for i, cell := range c.Cells {
		if f, ok := cell.Float(); ok {
			values = append(values, f)
			indexes = append(indexes, i)
		}
	}
	return values, indexes
}

// Dataset is an ordered collection of equally sized columns. Datasets are
// treated as immutable snapshots: cells are never modified in place, and the
// With* helpers return new snapshots so earlier pipeline stages keep a stable
// view of the data they saw.
type Dataset struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Validate ensures the dataset is rectangular with unique, non-empty column
// names.
func (d Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Columns))
	rows := -1
	for i, col := range d.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = true
		if rows == -1 {
			rows = len(col.Cells)
		} else if len(col.Cells) != rows {
			return fmt.Errorf("column %q has %d cells, want %d", col.Name, len(col.Cells), rows)
		}
	}
	return nil
}

// RowCount returns the number of rows. Zero for datasets with no columns.
func (d Dataset) RowCount() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Cells)
}

// ColumnCount returns the number of columns.
func (d Dataset) ColumnCount() int {
	return len(d.Columns)
}

// Column returns the named column and whether it exists. The returned pointer
// is read-only by convention; replacement goes through WithColumn.
func (d Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in dataset order.
func (d Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	cols := make([]Column, len(d.Columns))
	for i, col := range d.Columns {
		cols[i] = col.Clone()
	}
	return Dataset{Name: d.Name, Columns: cols}
}

// WithColumn returns a new snapshot with the named column replaced, or
// appended when no column of that name exists. Untouched columns share cell
// storage with the receiver.
func (d Dataset) WithColumn(col Column) Dataset {
	cols := make([]Column, len(d.Columns))
	copy(cols, d.Columns)
	for i := range cols {
		if cols[i].Name == col.Name {
			cols[i] = col
			return Dataset{Name: d.Name, Columns: cols}
		}
	}
	return Dataset{Name: d.Name, Columns: append(cols, col)}
}

// WithoutColumn returns a new snapshot with the named column removed. The
// receiver is returned unchanged if the column does not exist.
func (d Dataset) WithoutColumn(name string) Dataset {
	cols := make([]Column, 0, len(d.Columns))
	for _, col := range d.Columns {
		if col.Name != name {
			cols = append(cols, col)
		}
	}
	return Dataset{Name: d.Name, Columns: cols}
}

// Row returns the cells of row i across all columns, in column order.
func (d Dataset) Row(i int) []Cell {
	row := make([]Cell, len(d.Columns))
	for j, col := range d.Columns {
		row[j] = col.Cells[i]
	}
	return row
}

// Fingerprint returns a stable hash of the snapshot contents. Two datasets
// with identical names, column order, types, and cells share a fingerprint.
func (d Dataset) Fingerprint() uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(d.Name)
	for _, col := range d.Columns {
		_, _ = h.WriteString("\x00" + col.Name + "\x00" + string(col.Type))
		for _, cell := range col.Cells {
			if cell.Null {
				_, _ = h.WriteString("\x01")
			} else {
				_, _ = h.WriteString("\x02" + cell.Value)
			}
		}
	}
	return h.Sum64()
}
