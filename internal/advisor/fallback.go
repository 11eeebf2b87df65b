package advisor

import (
	"fmt"
	"math"

	"github.com/Veraticus/autoprep/internal/model"
)

// FallbackRules tunes the deterministic rule set used when the advisor is
// unreachable or returns an unusable payload.
type FallbackRules struct {
	// HighMissingThreshold drops any column whose missing rate exceeds it.
	HighMissingThreshold float64
	// ImputeMedianAbove switches numeric imputation from mean to median once
	// the missing rate passes it.
	ImputeMedianAbove float64
	// SkewLimit separates roughly-symmetric distributions (mean impute,
	// standard scaling) from skewed ones (median impute, minmax scaling).
	SkewLimit float64
	// Outliers adds an IQR clip step for numeric columns.
	Outliers bool
	// Scaling adds a scaling step for numeric columns.
	Scaling bool
}

// DefaultFallbackRules returns the rule thresholds the original heuristics
// use.
func DefaultFallbackRules() FallbackRules {
	return FallbackRules{
		HighMissingThreshold: 0.3,
		ImputeMedianAbove:    0.2,
		SkewLimit:            1.0,
		Outliers:             true,
		Scaling:              true,
	}
}

// Fallback produces a deterministic recommendation set from the profile
// alone. No network, no randomness: the same profile always yields the same
// recommendations, in profile column order.
func Fallback(profile model.DatasetProfile, rules FallbackRules) []model.Recommendation {
	if rules.HighMissingThreshold <= 0 {
		rules.HighMissingThreshold = 0.3
	}
	if rules.ImputeMedianAbove <= 0 {
		rules.ImputeMedianAbove = 0.2
	}
	if rules.SkewLimit <= 0 {
		rules.SkewLimit = 1.0
	}

	recs := make([]model.Recommendation, 0, len(profile.Columns))
	for _, col := range profile.Columns {
		if drop, reason := dropReason(col, rules); drop {
			recs = append(recs, fallbackRec(col.Name, "drop_column", nil, reason, 0.9))
			continue
		}

		switch col.Type {
		case model.TypeNumeric:
			recs = append(recs, numericFallback(col, rules)...)
		case model.TypeCategorical, model.TypeText, model.TypeBoolean:
			if col.NullCount > 0 {
				recs = append(recs, fallbackRec(col.Name, "impute_mode", nil,
					fmt.Sprintf("fill %.0f%% missing values with the most frequent value", col.MissingRate*100), 0.75))
			}
		case model.TypeDatetime:
			// Sparse datetime columns were already dropped above; the rest
			// are left as-is.
		}
	}
	return recs
}

// dropReason decides whether a column should be dropped outright.
func dropReason(col model.ColumnProfile, rules FallbackRules) (bool, string) {
	if col.IDLike {
		return true, "identifier-like column carries no signal for analysis"
	}
	if col.RowCount > 0 && col.Constant() {
		return true, "constant column carries no information"
	}
	if col.MissingRate > rules.HighMissingThreshold {
		return true, fmt.Sprintf("missing rate %.0f%% exceeds the %.0f%% threshold",
			col.MissingRate*100, rules.HighMissingThreshold*100)
	}
	return false, ""
}

// numericFallback emits the impute/clip/scale sequence for one numeric
// column. Steps are ordered so later ones see the imputed, clipped values.
func numericFallback(col model.ColumnProfile, rules FallbackRules) []model.Recommendation {
	skew := 0.0
	if col.Skew != nil {
		skew = *col.Skew
	}
	symmetric := math.Abs(skew) < rules.SkewLimit

	recs := make([]model.Recommendation, 0, 3)
	if col.NullCount > 0 {
		switch {
		case col.MissingRate > rules.ImputeMedianAbove:
			recs = append(recs, fallbackRec(col.Name, "impute_median", nil,
				fmt.Sprintf("median is robust for a column with %.0f%% missing values", col.MissingRate*100), 0.75))
		case symmetric:
			recs = append(recs, fallbackRec(col.Name, "impute_mean", nil,
				"mean imputation fits a roughly symmetric distribution", 0.75))
		default:
			recs = append(recs, fallbackRec(col.Name, "impute_median", nil,
				fmt.Sprintf("median imputation fits a skewed distribution (skew %.2f)", skew), 0.75))
		}
	}

	if rules.Outliers {
		recs = append(recs, fallbackRec(col.Name, "clip_outliers",
			map[string]any{"method": "iqr"},
			"cap values outside the IQR whiskers before scaling", 0.6))
	}

	if rules.Scaling {
		if symmetric {
			recs = append(recs, fallbackRec(col.Name, "scale_standard", nil,
				"standard scaling fits a roughly symmetric distribution", 0.6))
		} else {
			recs = append(recs, fallbackRec(col.Name, "scale_minmax", nil,
				fmt.Sprintf("minmax scaling avoids amplifying skew (skew %.2f)", skew), 0.6))
		}
	}
	return recs
}

func fallbackRec(column, transformer string, params map[string]any, rationale string, confidence float64) model.Recommendation {
	return model.Recommendation{
		Column:      column,
		Transformer: transformer,
		Params:      params,
		Rationale:   rationale,
		Confidence:  confidence,
		Source:      model.SourceFallback,
	}
}
