// Package profile computes statistical profiles of dataset snapshots.
//
// Profiling is best-effort and read-only: a profile never modifies the
// dataset, and degenerate inputs (zero rows, all-null columns) produce
// sentinel profiles rather than errors.
package profile

import (
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/autoprep/internal/model"
)

const (
	// Share of non-null values that must parse as numbers.
	numericThreshold = 0.90
	// Share of sampled non-null values that must parse as timestamps.
	datetimeThreshold = 0.70
	// How many values the datetime probe looks at.
	datetimeSampleSize = 50
	// Distinct-to-row ratio above which a column looks like an identifier.
	idDistinctRatio = 0.90
	// Distinct-to-value ratio at or below which a string column is
	// treated as categorical rather than free text.
	categoricalDistinctRatio = 0.5
)

// idNamePattern matches column names that conventionally hold identifiers.
var idNamePattern = regexp.MustCompile(`(?i)^(id|.*_id|code|.*_code|.*_number|.*_num)$`)

// datetimeLayouts are tried in order when probing string values.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// booleanLexicon holds the lowercase values a boolean column may contain.
var booleanLexicon = map[string]bool{
	"true": true, "false": true,
	"t": true, "f": true,
	"yes": true, "no": true,
	"y": true, "n": true,
}

// ParseDatetime parses a value against the known layouts. The layout that
// matched is returned so callers can reuse it for the rest of a column.
func ParseDatetime(value string) (time.Time, string, bool) {
	v := strings.TrimSpace(value)
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, layout, true
		}
	}
	return time.Time{}, "", false
}

// InferColumnType guesses the type of a column from its cell values.
// Inference is ordered: boolean beats numeric, numeric beats datetime, and
// string columns split into categorical or text on distinct ratio. Columns
// with no non-null values fall back to text.
func InferColumnType(cells []model.Cell) model.ColumnType {
	values := make([]string, 0, len(cells))
	for _, c := range cells {
		if !c.Null {
			values = append(values, c.Value)
		}
	}
	if len(values) == 0 {
		return model.TypeText
	}

	if isBoolean(values) {
		return model.TypeBoolean
	}
	if isNumeric(values) {
		return model.TypeNumeric
	}
	if isDatetime(values) {
		return model.TypeDatetime
	}

	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	if float64(len(distinct))/float64(len(values)) <= categoricalDistinctRatio {
		return model.TypeCategorical
	}
	return model.TypeText
}

// DetectIDLike reports whether a column looks like an identifier: either its
// name follows an ID naming convention or nearly every row holds a distinct
// value.
func DetectIDLike(name string, distinctCount, rowCount int) bool {
	if idNamePattern.MatchString(name) {
		return true
	}
	if rowCount == 0 {
		return false
	}
	return float64(distinctCount)/float64(rowCount) > idDistinctRatio
}

func isBoolean(values []string) bool {
	for _, v := range values {
		if !booleanLexicon[strings.ToLower(strings.TrimSpace(v))] {
			return false
		}
	}
	return true
}

func isNumeric(values []string) bool {
	parseable := 0
	for _, v := range values {
		if _, ok := (model.Cell{Value: v}).Float(); ok {
			parseable++
		}
	}
	return float64(parseable)/float64(len(values)) >= numericThreshold
}

func isDatetime(values []string) bool {
	sample := values
	if len(sample) > datetimeSampleSize {
		sample = sample[:datetimeSampleSize]
	}
	parsed := 0
	for _, v := range sample {
		if _, _, ok := ParseDatetime(v); ok {
			parsed++
		}
	}
	return float64(parsed)/float64(len(sample)) >= datetimeThreshold
}
