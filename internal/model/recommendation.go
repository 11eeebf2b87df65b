package model

import "fmt"

// RecommendationSource records where a recommendation came from.
type RecommendationSource string

// Recommendation source constants.
const (
	SourceAdvisor  RecommendationSource = "advisor"
	SourceFallback RecommendationSource = "fallback"
)

// Recommendation is a proposed transformation for one column. Advisor output
// is untrusted: a recommendation carries no guarantee that its column exists,
// its transformer is registered, or its params are well formed until it has
// passed registry validation.
type Recommendation struct {
	Column      string               `json:"column"`
	Transformer string               `json:"transformer"`
	Params      map[string]any       `json:"params,omitempty"`
	Rationale   string               `json:"rationale,omitempty"`
	Confidence  float64              `json:"confidence"`
	Source      RecommendationSource `json:"source"`
}

// Validate checks structural shape only. Registry validation decides whether
// the recommendation can actually run against a dataset.
func (r *Recommendation) Validate() error {
	if r.Column == "" {
		return fmt.Errorf("column name is required")
	}
	if r.Transformer == "" {
		return fmt.Errorf("transformer name is required")
	}
	if r.Confidence < 0.0 || r.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", r.Confidence)
	}
	return nil
}

// DroppedRecommendation records a candidate that was rejected before
// application, together with the reason. One entry per rejection; rejections
// are never merged or silently discarded.
type DroppedRecommendation struct {
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`
	Stage          string         `json:"stage"`
}

// Dropped-recommendation stage constants.
const (
	DropStageSanitize = "sanitize"
	DropStageReview   = "review"
	DropStageValidate = "validate"
)
