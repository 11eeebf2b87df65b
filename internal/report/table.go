package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Veraticus/autoprep/internal/model"
)

// TableRenderer writes a run as terminal tables: an overview, the decision
// log, the dropped candidates, and a before/after column summary.
type TableRenderer struct{}

// NewTableRenderer creates a table renderer.
func NewTableRenderer() *TableRenderer {
	return &TableRenderer{}
}

// Render writes the run report to w.
func (r *TableRenderer) Render(w io.Writer, run *model.PipelineRun) error {
	if run == nil {
		return ErrNilRun
	}

	r.renderOverview(w, run)
	if len(run.Steps) > 0 {
		_, _ = fmt.Fprintln(w)
		r.renderSteps(w, run)
	}
	if len(run.Dropped) > 0 {
		_, _ = fmt.Fprintln(w)
		r.renderDropped(w, run)
	}
	if run.Profile != nil {
		_, _ = fmt.Fprintln(w)
		r.renderColumns(w, run)
	}
	return nil
}

func (r *TableRenderer) renderOverview(w io.Writer, run *model.PipelineRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run %s", run.ID)

	t.AppendRow(table.Row{"Dataset", run.DatasetName})
	t.AppendRow(table.Row{"Status", string(run.Status)})
	t.AppendRow(table.Row{"Policy", string(run.FailurePolicy)})
	t.AppendRow(table.Row{"Started", run.CreatedAt.Format(time.RFC3339)})
	if !run.CompletedAt.IsZero() {
		t.AppendRow(table.Row{"Finished", run.CompletedAt.Format(time.RFC3339)})
		t.AppendRow(table.Row{"Duration", run.CompletedAt.Sub(run.CreatedAt).Round(time.Millisecond).String()})
	}
	if run.AdvisorModel != "" {
		t.AppendRow(table.Row{"Advisor", run.AdvisorModel})
	}
	if run.UsedFallback {
		t.AppendRow(table.Row{"Advisor", "rule-based fallback"})
	}
	t.AppendRow(table.Row{"Recommendations", len(run.Recommendations)})
	t.AppendRow(table.Row{"Applied", len(run.AppliedSteps())})
	t.AppendRow(table.Row{"Failed", len(run.FailedSteps())})
	t.AppendRow(table.Row{"Dropped", len(run.Dropped)})
	if run.Error != "" {
		t.AppendRow(table.Row{"Error", run.Error})
	}
	t.Render()
}

func (r *TableRenderer) renderSteps(w io.Writer, run *model.PipelineRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Transformation log")
	t.AppendHeader(table.Row{"#", "Column", "Transformer", "Source", "Outcome", "Effect"})

	for _, step := range run.Steps {
		t.AppendRow(table.Row{
			step.Index,
			step.Column,
			step.Transformer,
			string(step.Source),
			stepOutcome(step),
			stepEffect(step),
		})
	}
	t.Render()
}

func (r *TableRenderer) renderDropped(w io.Writer, run *model.PipelineRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Dropped recommendations")
	t.AppendHeader(table.Row{"Column", "Transformer", "Stage", "Reason"})

	for _, drop := range run.Dropped {
		t.AppendRow(table.Row{
			drop.Recommendation.Column,
			drop.Recommendation.Transformer,
			drop.Stage,
			drop.Reason,
		})
	}
	t.Render()
}

func (r *TableRenderer) renderColumns(w io.Writer, run *model.PipelineRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Columns")
	t.AppendHeader(table.Row{"Column", "Type", "Missing before", "Missing after"})

	for _, col := range run.Profile.Columns {
		after := "-"
		if run.FinalProfile != nil {
			if final, ok := run.FinalProfile.Column(col.Name); ok {
				after = fmt.Sprintf("%.1f%%", final.MissingRate*100)
			} else {
				after = "removed"
			}
		}
		t.AppendRow(table.Row{
			col.Name,
			string(col.Type),
			fmt.Sprintf("%.1f%%", col.MissingRate*100),
			after,
		})
	}
	t.Render()
}

func stepOutcome(step model.TransformationStep) string {
	switch {
	case step.Applied && step.Removed:
		return "applied (column removed)"
	case step.Applied:
		return "applied"
	default:
		return "failed: " + step.Error
	}
}

// stepEffect summarizes the profile change a step produced, when both sides
// are available.
func stepEffect(step model.TransformationStep) string {
	if step.PreProfile == nil || step.PostProfile == nil {
		return "-"
	}
	var parts []string
	if step.PreProfile.NullCount != step.PostProfile.NullCount {
		parts = append(parts, fmt.Sprintf("nulls %d→%d", step.PreProfile.NullCount, step.PostProfile.NullCount))
	}
	if step.PreProfile.DistinctCount != step.PostProfile.DistinctCount {
		parts = append(parts, fmt.Sprintf("distinct %d→%d", step.PreProfile.DistinctCount, step.PostProfile.DistinctCount))
	}
	if len(parts) == 0 {
		return "values changed"
	}
	return strings.Join(parts, ", ")
}
