package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/autoprep/internal/engine"
	"github.com/Veraticus/autoprep/internal/model"
)

// ReviewPrompter asks the operator to approve or skip each recommendation
// before the pipeline applies it. It implements engine.Reviewer.
type ReviewPrompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewReviewPrompter creates a prompter reading from in and writing to out.
// Nil arguments default to stdin/stdout.
func NewReviewPrompter(in io.Reader, out io.Writer) *ReviewPrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &ReviewPrompter{
		reader: NewNonBlockingReader(in),
		writer: out,
	}
}

// Review walks the recommendations one by one. Choices per recommendation:
// approve [a], approve this and all remaining [A], skip [s], quit [q]
// (skips everything remaining). EOF on input behaves like quit.
func (p *ReviewPrompter) Review(ctx context.Context, recs []model.Recommendation) ([]model.Recommendation, []model.DroppedRecommendation, error) {
	if len(recs) == 0 {
		return nil, nil, nil
	}

	fmt.Fprintln(p.writer, FormatTitle(fmt.Sprintf("Review %d recommendations", len(recs))))

	approved := make([]model.Recommendation, 0, len(recs))
	var skipped []model.DroppedRecommendation
	approveAll := false

	for i, rec := range recs {
		if approveAll {
			approved = append(approved, rec)
			continue
		}

		p.showRecommendation(i+1, len(recs), rec)

		choice, err := p.promptChoice(ctx)
		if err != nil {
			if err == ErrInputCancelled {
				return nil, nil, ctx.Err()
			}
			// Input closed: treat the rest as skipped rather than failing
			// the run.
			choice = "q"
		}

		switch choice {
		case "a":
			approved = append(approved, rec)
			fmt.Fprintln(p.writer, FormatSuccess("approved"))
		case "A":
			approveAll = true
			approved = append(approved, rec)
			fmt.Fprintln(p.writer, FormatSuccess("approved, and all remaining"))
		case "s":
			skipped = append(skipped, model.DroppedRecommendation{
				Recommendation: rec,
				Reason:         "skipped by reviewer",
				Stage:          model.DropStageReview,
			})
			fmt.Fprintln(p.writer, FormatWarning("skipped"))
		case "q":
			for _, rest := range recs[i:] {
				skipped = append(skipped, model.DroppedRecommendation{
					Recommendation: rest,
					Reason:         "review aborted by reviewer",
					Stage:          model.DropStageReview,
				})
			}
			fmt.Fprintln(p.writer, FormatWarning("review aborted, remaining recommendations skipped"))
			return approved, skipped, nil
		}
	}

	fmt.Fprintln(p.writer, FormatInfo(fmt.Sprintf("%d approved, %d skipped", len(approved), len(skipped))))
	return approved, skipped, nil
}

// showRecommendation prints one recommendation with its rationale.
func (p *ReviewPrompter) showRecommendation(n, total int, rec model.Recommendation) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s", BoldStyle.Render(rec.Transformer), BoldStyle.Render(rec.Column))
	if len(rec.Params) > 0 {
		if params, err := json.Marshal(rec.Params); err == nil {
			fmt.Fprintf(&b, "\nparams: %s", string(params))
		}
	}
	fmt.Fprintf(&b, "\nconfidence: %.2f  source: %s", rec.Confidence, rec.Source)
	if rec.Rationale != "" {
		fmt.Fprintf(&b, "\n%s", SubtleStyle.Render(rec.Rationale))
	}

	fmt.Fprintln(p.writer, RenderBox(fmt.Sprintf("Recommendation %d/%d", n, total), b.String()))
}

// promptChoice reads one of the review choices, re-prompting on anything
// else.
func (p *ReviewPrompter) promptChoice(ctx context.Context) (string, error) {
	for {
		fmt.Fprint(p.writer, FormatPrompt("[a]pprove  [A]pprove all  [s]kip  [q]uit"))
		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		switch line {
		case "a", "A", "s", "q":
			return line, nil
		case "":
			// Enter defaults to approve.
			return "a", nil
		default:
			fmt.Fprintln(p.writer, FormatWarning(fmt.Sprintf("unknown choice %q", line)))
		}
	}
}

// ProgressReporter renders a progress bar while steps are applied. Wire its
// OnStep method into engine.RunConfig.
type ProgressReporter struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
}

// NewProgressReporter creates a reporter writing to out (stderr when nil, so
// the bar does not pollute piped output).
func NewProgressReporter(out io.Writer) *ProgressReporter {
	if out == nil {
		out = os.Stderr
	}
	return &ProgressReporter{writer: out}
}

// OnStep advances the bar for each attempted step.
func (p *ProgressReporter) OnStep(event engine.StepEvent) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(event.Total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionSetDescription("Applying transformations"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Add(1)
}

// Finish clears the bar.
func (p *ProgressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
