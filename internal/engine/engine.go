// Package engine implements the pipeline orchestrator: the state machine
// that sequences profiling, advising, review, application, and reporting for
// one dataset snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
	"github.com/Veraticus/autoprep/internal/transform"
)

// Orchestration errors.
var (
	// ErrProfilingFailed marks a profiler failure. Always fatal.
	ErrProfilingFailed = errors.New("profiling failed")
	// ErrPipelineFatal marks an unrecoverable orchestration failure.
	ErrPipelineFatal = errors.New("pipeline failed")
)

// TransitionEvent is emitted once per completed state transition.
type TransitionEvent struct {
	RunID string
	From  model.RunStatus
	To    model.RunStatus
	At    time.Time
}

// StepEvent is emitted once per attempted transformation step.
type StepEvent struct {
	RunID string
	Step  model.TransformationStep
	Total int
}

// RunConfig holds the per-run knobs.
type RunConfig struct {
	// FailurePolicy decides whether a failing step aborts the run.
	// Defaults to continue: one bad recommendation should not void an
	// otherwise-useful run.
	FailurePolicy model.FailurePolicy
	// OnTransition, when set, receives one event per completed transition.
	OnTransition func(TransitionEvent)
	// OnStep, when set, receives one event per attempted step.
	OnStep func(StepEvent)
}

// Options carries the optional orchestrator collaborators.
type Options struct {
	// Storage persists finalized runs. Save failures degrade to log-only.
	Storage service.Storage
	// Reviewer filters recommendations before application. Nil approves all.
	Reviewer Reviewer
	Logger   *slog.Logger
}

// PipelineOrchestrator drives the run state machine. Safe for concurrent use:
// each Run builds its own state and the shared registry is read-mostly.
type PipelineOrchestrator struct {
	profiler Profiler
	advisor  Advisor
	registry *transform.Registry
	storage  service.Storage
	reviewer Reviewer
	logger   *slog.Logger
}

// New creates an orchestrator from its required collaborators.
func New(profiler Profiler, adv Advisor, registry *transform.Registry) *PipelineOrchestrator {
	return NewWithOptions(profiler, adv, registry, Options{})
}

// NewWithOptions creates an orchestrator with optional collaborators wired.
func NewWithOptions(profiler Profiler, adv Advisor, registry *transform.Registry, opts Options) *PipelineOrchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineOrchestrator{
		profiler: profiler,
		advisor:  adv,
		registry: registry,
		storage:  opts.Storage,
		reviewer: opts.Reviewer,
		logger:   logger,
	}
}

// Run executes the full pipeline over one dataset snapshot. The returned run
// is always non-nil once execution starts: on failure it carries the partial
// step log and a FAILED status alongside the error.
func (o *PipelineOrchestrator) Run(ctx context.Context, dataset model.Dataset, cfg RunConfig) (*model.PipelineRun, error) {
	if o.profiler == nil || o.advisor == nil || o.registry == nil {
		return nil, fmt.Errorf("%w: orchestrator requires a profiler, an advisor, and a registry", common.ErrInvalidConfig)
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = model.PolicyContinue
	}
	if !cfg.FailurePolicy.Valid() {
		return nil, fmt.Errorf("%w: unknown failure policy %q", common.ErrInvalidConfig, cfg.FailurePolicy)
	}
	if err := dataset.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	run := &model.PipelineRun{
		ID:            uuid.NewString(),
		DatasetName:   dataset.Name,
		Status:        model.StatusInit,
		FailurePolicy: cfg.FailurePolicy,
		CreatedAt:     time.Now(),
	}

	o.logger.Info("pipeline run starting",
		"run_id", run.ID,
		"dataset", dataset.Name,
		"rows", dataset.RowCount(),
		"columns", dataset.ColumnCount(),
		"policy", cfg.FailurePolicy)

	// PROFILING
	o.advance(run, model.StatusProfiling, cfg)
	prof, err := o.profiler.Profile(ctx, dataset)
	if err != nil {
		return o.fail(ctx, run, cfg, fmt.Errorf("%w: %v", ErrProfilingFailed, err))
	}
	run.Profile = &prof

	// ADVISING
	o.advance(run, model.StatusAdvising, cfg)
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, run, cfg, fmt.Errorf("%w: %v", ErrPipelineFatal, err))
	}
	advice, err := o.advisor.Advise(ctx, prof, dataset)
	if err != nil {
		// The bridge absorbs advisor failures with its fallback; an error
		// here is a contract violation or a cancellation. Fatal either way.
		return o.fail(ctx, run, cfg, fmt.Errorf("%w: %v", ErrPipelineFatal, err))
	}
	run.Recommendations = advice.Recommendations
	run.Dropped = advice.Dropped
	run.AdvisorModel = advice.Model
	run.UsedFallback = advice.UsedFallback

	// REVIEWING
	o.advance(run, model.StatusReviewing, cfg)
	approved := advice.Recommendations
	if o.reviewer != nil {
		var skipped []model.DroppedRecommendation
		approved, skipped, err = o.reviewer.Review(ctx, approved)
		if err != nil {
			return o.fail(ctx, run, cfg, fmt.Errorf("%w: review aborted: %v", ErrPipelineFatal, err))
		}
		run.Dropped = append(run.Dropped, skipped...)
	}

	// APPLYING
	o.advance(run, model.StatusApplying, cfg)
	current, stepErr := o.applySteps(ctx, run, cfg, dataset, approved)
	if stepErr != nil {
		run.Result = &current
		return o.fail(ctx, run, cfg, stepErr)
	}

	// REPORTING
	o.advance(run, model.StatusReporting, cfg)
	run.Result = &current
	if final, ferr := o.profiler.Profile(ctx, current); ferr == nil {
		run.FinalProfile = &final
	} else {
		o.logger.Warn("final profile unavailable", "run_id", run.ID, "error", ferr)
	}
	run.CompletedAt = time.Now()

	o.advance(run, model.StatusDone, cfg)
	o.persist(ctx, run)

	o.logger.Info("pipeline run complete",
		"run_id", run.ID,
		"applied", len(run.AppliedSteps()),
		"failed", len(run.FailedSteps()),
		"dropped", len(run.Dropped),
		"duration", run.CompletedAt.Sub(run.CreatedAt))
	return run, nil
}

// applySteps walks the approved recommendations in received order against the
// evolving snapshot. Validation failures become dropped entries under either
// policy; runtime failures become failed steps and, under fail-fast, abort
// the remainder.
func (o *PipelineOrchestrator) applySteps(ctx context.Context, run *model.PipelineRun, cfg RunConfig, dataset model.Dataset, approved []model.Recommendation) (model.Dataset, error) {
	current := dataset
	for _, rec := range approved {
		if err := ctx.Err(); err != nil {
			return current, fmt.Errorf("%w: %v", ErrPipelineFatal, err)
		}

		// Re-validate against the current snapshot: an earlier step may have
		// dropped or retyped the target column.
		if err := o.registry.Validate(rec, current); err != nil {
			o.logger.Warn("dropped recommendation",
				"run_id", run.ID,
				"column", rec.Column,
				"transformer", rec.Transformer,
				"reason", err)
			run.Dropped = append(run.Dropped, model.DroppedRecommendation{
				Recommendation: rec,
				Reason:         err.Error(),
				Stage:          model.DropStageValidate,
			})
			continue
		}

		col, _ := current.Column(rec.Column)
		pre := o.profiler.ProfileColumn(*col)

		step := model.TransformationStep{
			Index:       len(run.Steps),
			Column:      rec.Column,
			Transformer: rec.Transformer,
			Params:      rec.Params,
			Rationale:   rec.Rationale,
			Confidence:  rec.Confidence,
			Source:      rec.Source,
			PreProfile:  &pre,
			AppliedAt:   time.Now(),
		}

		newCol, err := o.registry.Apply(ctx, rec, current)
		if err != nil {
			step.Error = err.Error()
			run.Steps = append(run.Steps, step)
			o.emitStep(run, cfg, step, len(approved))
			o.logger.Error("transformation step failed",
				"run_id", run.ID,
				"step", step.Index,
				"column", rec.Column,
				"transformer", rec.Transformer,
				"error", err)

			if cfg.FailurePolicy == model.PolicyFailFast {
				return current, fmt.Errorf("%w: step %d (%s on %q): %v",
					ErrPipelineFatal, step.Index, rec.Transformer, rec.Column, err)
			}
			continue
		}

		if newCol == nil {
			current = current.WithoutColumn(rec.Column)
			step.Removed = true
		} else {
			current = current.WithColumn(*newCol)
			post := o.profiler.ProfileColumn(*newCol)
			step.PostProfile = &post
		}
		step.Applied = true
		run.Steps = append(run.Steps, step)
		o.emitStep(run, cfg, step, len(approved))
	}
	return current, nil
}

// advance moves the run one state forward and emits the transition event.
// Transitions are hard-coded in Run, so an illegal one is a programming error.
func (o *PipelineOrchestrator) advance(run *model.PipelineRun, next model.RunStatus, cfg RunConfig) {
	if !run.Status.CanTransitionTo(next) {
		panic(fmt.Sprintf("illegal run transition %s -> %s", run.Status, next))
	}
	ev := TransitionEvent{RunID: run.ID, From: run.Status, To: next, At: time.Now()}
	run.Status = next
	o.logger.Debug("run transition", "run_id", run.ID, "from", ev.From, "to", ev.To)
	if cfg.OnTransition != nil {
		cfg.OnTransition(ev)
	}
}

// fail moves the run to FAILED, preserving the partial step log, and persists
// what there is for diagnosis.
func (o *PipelineOrchestrator) fail(ctx context.Context, run *model.PipelineRun, cfg RunConfig, err error) (*model.PipelineRun, error) {
	failedAt := run.Status
	run.Error = err.Error()
	run.CompletedAt = time.Now()
	o.advance(run, model.StatusFailed, cfg)
	o.persist(ctx, run)
	o.logger.Error("pipeline run failed",
		"run_id", run.ID,
		"status_at_failure", failedAt,
		"steps_recorded", len(run.Steps),
		"error", err)
	return run, err
}

// persist saves a finalized run when a store is configured. Storage trouble
// must not turn a finished run into a failed one, so errors are logged only.
func (o *PipelineOrchestrator) persist(ctx context.Context, run *model.PipelineRun) {
	if o.storage == nil {
		return
	}
	// The run context may already be canceled; saving still should proceed.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.storage.SaveRun(saveCtx, run); err != nil {
		o.logger.Error("failed to persist run", "run_id", run.ID, "error", err)
	}
}

func (o *PipelineOrchestrator) emitStep(run *model.PipelineRun, cfg RunConfig, step model.TransformationStep, total int) {
	if cfg.OnStep != nil {
		cfg.OnStep(StepEvent{RunID: run.ID, Step: step, Total: total})
	}
}
