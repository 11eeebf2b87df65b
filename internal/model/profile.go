package model

import "fmt"

// ValueCount pairs a distinct value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile summarizes one column. Statistics that are undefined for the
// observed data, such as the mean of an all-null column, are nil rather than
// zero so consumers can tell "no signal" from "signal of zero".
type ColumnProfile struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	RowCount      int        `json:"row_count"`
	NullCount     int        `json:"null_count"`
	DistinctCount int        `json:"distinct_count"`
	MissingRate   float64    `json:"missing_rate"`
	IDLike        bool       `json:"id_like,omitempty"`

	// Numeric statistics. Min and Max also apply to datetime columns,
	// carried as RFC 3339 strings in MinValue/MaxValue.
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Q25    *float64 `json:"q25,omitempty"`
	Q75    *float64 `json:"q75,omitempty"`
	Skew   *float64 `json:"skew,omitempty"`

	MinValue string `json:"min_value,omitempty"`
	MaxValue string `json:"max_value,omitempty"`

	// Text statistics.
	MinLen *int     `json:"min_len,omitempty"`
	MaxLen *int     `json:"max_len,omitempty"`
	AvgLen *float64 `json:"avg_len,omitempty"`

	// Most frequent values for categorical, boolean, and text columns.
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// Constant reports whether the column carries at most one distinct non-null
// value.
func (p ColumnProfile) Constant() bool {
	return p.DistinctCount <= 1
}

// DatasetProfile summarizes a whole dataset. Columns preserve dataset order.
type DatasetProfile struct {
	DatasetName        string             `json:"dataset_name"`
	RowCount           int                `json:"row_count"`
	ColumnCount        int                `json:"column_count"`
	OverallMissingRate float64            `json:"overall_missing_rate"`
	TypeCounts         map[ColumnType]int `json:"type_counts"`
	Columns            []ColumnProfile    `json:"columns"`
}

// Column returns the profile for the named column and whether it exists.
func (p DatasetProfile) Column(name string) (*ColumnProfile, bool) {
	for i := range p.Columns {
		if p.Columns[i].Name == name {
			return &p.Columns[i], true
		}
	}
	return nil, false
}

// Validate ensures the profile is internally consistent.
func (p DatasetProfile) Validate() error {
	if p.ColumnCount != len(p.Columns) {
		return fmt.Errorf("column count %d does not match %d profiles", p.ColumnCount, len(p.Columns))
	}
	seen := make(map[string]bool, len(p.Columns))
	for _, col := range p.Columns {
		if col.Name == "" {
			return fmt.Errorf("column profile with empty name")
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column profile %q", col.Name)
		}
		seen[col.Name] = true
		if col.MissingRate < 0 || col.MissingRate > 1 {
			return fmt.Errorf("column %q missing rate %.3f out of range", col.Name, col.MissingRate)
		}
	}
	return nil
}
