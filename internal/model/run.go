package model

import (
	"fmt"
	"time"
)

// RunStatus is the stage a pipeline run is in.
type RunStatus string

// Run status constants. A run moves strictly forward through the
// non-terminal statuses; FAILED is reachable from any non-terminal status.
const (
	StatusInit      RunStatus = "INIT"
	StatusProfiling RunStatus = "PROFILING"
	StatusAdvising  RunStatus = "ADVISING"
	StatusReviewing RunStatus = "REVIEWING"
	StatusApplying  RunStatus = "APPLYING"
	StatusReporting RunStatus = "REPORTING"
	StatusDone      RunStatus = "DONE"
	StatusFailed    RunStatus = "FAILED"
)

// runOrder fixes the forward sequence of non-terminal statuses.
var runOrder = map[RunStatus]int{
	StatusInit:      0,
	StatusProfiling: 1,
	StatusAdvising:  2,
	StatusReviewing: 3,
	StatusApplying:  4,
	StatusReporting: 5,
	StatusDone:      6,
}

// Terminal reports whether s is a terminal status.
func (s RunStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition: one step forward, or to FAILED from any non-terminal status.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	from, okFrom := runOrder[s]
	to, okTo := runOrder[next]
	return okFrom && okTo && to == from+1
}

// FailurePolicy controls how the run reacts to a transformer failing at
// apply time. Validation failures are dropped recommendations under either
// policy and never abort the run.
type FailurePolicy string

// Failure policy constants.
const (
	PolicyFailFast FailurePolicy = "fail-fast"
	PolicyContinue FailurePolicy = "continue"
)

// Valid reports whether p is a known failure policy.
func (p FailurePolicy) Valid() bool {
	return p == PolicyFailFast || p == PolicyContinue
}

// TransformationStep is one attempted application of a transformer to a
// column. The step log is append-only; a failed step stays in the log with
// Applied false and the error preserved.
type TransformationStep struct {
	Index       int                  `json:"index"`
	Column      string               `json:"column"`
	Transformer string               `json:"transformer"`
	Params      map[string]any       `json:"params,omitempty"`
	Rationale   string               `json:"rationale,omitempty"`
	Confidence  float64              `json:"confidence"`
	Source      RecommendationSource `json:"source"`
	Applied     bool                 `json:"applied"`
	Removed     bool                 `json:"removed,omitempty"`
	Error       string               `json:"error,omitempty"`
	PreProfile  *ColumnProfile       `json:"pre_profile,omitempty"`
	PostProfile *ColumnProfile       `json:"post_profile,omitempty"`
	AppliedAt   time.Time            `json:"applied_at"`
}

// PipelineRun is the full record of one pipeline execution. Once Status is
// terminal the run is frozen: consumers treat it as read-only history.
type PipelineRun struct {
	ID              string                  `json:"id"`
	DatasetName     string                  `json:"dataset_name"`
	Status          RunStatus               `json:"status"`
	FailurePolicy   FailurePolicy           `json:"failure_policy"`
	CreatedAt       time.Time               `json:"created_at"`
	CompletedAt     time.Time               `json:"completed_at,omitempty"`
	Profile         *DatasetProfile         `json:"profile,omitempty"`
	FinalProfile    *DatasetProfile         `json:"final_profile,omitempty"`
	Recommendations []Recommendation        `json:"recommendations"`
	Dropped         []DroppedRecommendation `json:"dropped,omitempty"`
	Steps           []TransformationStep    `json:"steps"`
	Error           string                  `json:"error,omitempty"`
	AdvisorModel    string                  `json:"advisor_model,omitempty"`
	UsedFallback    bool                    `json:"used_fallback,omitempty"`
	Result          *Dataset                `json:"result,omitempty"`
}

// AppliedSteps returns the steps that were applied successfully.
func (r *PipelineRun) AppliedSteps() []TransformationStep {
	steps := make([]TransformationStep, 0, len(r.Steps))
	for _, s := range r.Steps {
		if s.Applied {
			steps = append(steps, s)
		}
	}
	return steps
}

// FailedSteps returns the steps that were attempted and failed.
func (r *PipelineRun) FailedSteps() []TransformationStep {
	steps := make([]TransformationStep, 0, len(r.Steps))
	for _, s := range r.Steps {
		if !s.Applied {
			steps = append(steps, s)
		}
	}
	return steps
}

// Validate ensures the run record is internally consistent.
func (r *PipelineRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if r.DatasetName == "" {
		return fmt.Errorf("dataset name is required")
	}
	if !r.FailurePolicy.Valid() {
		return fmt.Errorf("unknown failure policy %q", r.FailurePolicy)
	}
	if r.Status == StatusFailed && r.Error == "" {
		return fmt.Errorf("failed run must carry an error")
	}
	for i, s := range r.Steps {
		if s.Index != i {
			return fmt.Errorf("step %d has index %d", i, s.Index)
		}
		if !s.Applied && s.Error == "" {
			return fmt.Errorf("step %d failed without an error", i)
		}
	}
	return nil
}
