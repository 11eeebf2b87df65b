package engine

import (
	"context"

	"github.com/Veraticus/autoprep/internal/advisor"
	"github.com/Veraticus/autoprep/internal/model"
)

// Profiler computes statistical profiles. Satisfied by profile.Profiler.
type Profiler interface {
	Profile(ctx context.Context, dataset model.Dataset) (model.DatasetProfile, error)
	ProfileColumn(col model.Column) model.ColumnProfile
}

// Advisor produces transformation recommendations for a profiled dataset.
// Satisfied by advisor.Bridge; tests inject fakes.
type Advisor interface {
	Advise(ctx context.Context, profile model.DatasetProfile, dataset model.Dataset) (advisor.Advice, error)
}

// Reviewer approves or skips recommendations before they are applied. The
// returned slice keeps received order; skipped entries come back separately so
// the run records them. A nil reviewer approves everything.
type Reviewer interface {
	Review(ctx context.Context, recs []model.Recommendation) (approved []model.Recommendation, skipped []model.DroppedRecommendation, err error)
}
