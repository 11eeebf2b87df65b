// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/autoprep/internal/model"
)

// RunFilter defines filtering options for run queries.
type RunFilter struct {
	DatasetName string
	Status      model.RunStatus
	Since       *time.Time
	Limit       int
	Offset      int
}

// Storage defines the contract for our persistence layer. Runs are written
// once, after they reach a terminal status; there is no partial update path.
type Storage interface {
	// Run operations
	SaveRun(ctx context.Context, run *model.PipelineRun) error
	GetRun(ctx context.Context, id string) (*model.PipelineRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.PipelineRun, error)
	DeleteRun(ctx context.Context, id string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RunSummary is the lightweight listing row for a stored run.
type RunSummary struct {
	ID           string
	DatasetName  string
	Status       model.RunStatus
	CreatedAt    time.Time
	CompletedAt  time.Time
	StepCount    int
	AppliedCount int
	DroppedCount int
}

// CompletionStats shows the results of a pipeline run.
type CompletionStats struct {
	TotalRecommendations int
	Applied              int
	Failed               int
	Dropped              int
	Duration             time.Duration
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
