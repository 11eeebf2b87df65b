package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autoprep/internal/model"
)

func reviewRecs() []model.Recommendation {
	return []model.Recommendation{
		{Column: "age", Transformer: "impute_median", Confidence: 0.9, Source: model.SourceAdvisor,
			Rationale: "20% of values are missing"},
		{Column: "name", Transformer: "trim_space", Confidence: 0.8, Source: model.SourceAdvisor},
		{Column: "id", Transformer: "drop_column", Confidence: 0.95, Source: model.SourceAdvisor},
	}
}

func TestReview_ApproveAndSkip(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("a\ns\na\n"), &out)

	approved, skipped, err := prompter.Review(context.Background(), reviewRecs())
	require.NoError(t, err)

	require.Len(t, approved, 2)
	assert.Equal(t, "impute_median", approved[0].Transformer)
	assert.Equal(t, "drop_column", approved[1].Transformer)

	require.Len(t, skipped, 1)
	assert.Equal(t, "trim_space", skipped[0].Recommendation.Transformer)
	assert.Equal(t, model.DropStageReview, skipped[0].Stage)
	assert.Equal(t, "skipped by reviewer", skipped[0].Reason)
}

func TestReview_ApproveAll(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("A\n"), &out)

	approved, skipped, err := prompter.Review(context.Background(), reviewRecs())
	require.NoError(t, err)
	assert.Len(t, approved, 3)
	assert.Empty(t, skipped)
}

func TestReview_Quit(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("a\nq\n"), &out)

	approved, skipped, err := prompter.Review(context.Background(), reviewRecs())
	require.NoError(t, err)

	require.Len(t, approved, 1)
	require.Len(t, skipped, 2)
	for _, drop := range skipped {
		assert.Equal(t, model.DropStageReview, drop.Stage)
		assert.Equal(t, "review aborted by reviewer", drop.Reason)
	}
}

func TestReview_EmptyInputDefaultsToApprove(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("\n\n\n"), &out)

	approved, skipped, err := prompter.Review(context.Background(), reviewRecs())
	require.NoError(t, err)
	assert.Len(t, approved, 3)
	assert.Empty(t, skipped)
}

func TestReview_UnknownChoiceReprompts(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("x\na\nA\n"), &out)

	approved, _, err := prompter.Review(context.Background(), reviewRecs())
	require.NoError(t, err)
	assert.Len(t, approved, 3)
	assert.Contains(t, out.String(), `unknown choice "x"`)
}

func TestReview_ClosedInputSkipsRemainder(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader("a\n"), &out)

	approved, skipped, err := prompter.Review(context.Background(), reviewRecs())
	require.NoError(t, err)
	assert.Len(t, approved, 1)
	assert.Len(t, skipped, 2)
}

func TestReview_NoRecommendations(t *testing.T) {
	var out bytes.Buffer
	prompter := NewReviewPrompter(strings.NewReader(""), &out)

	approved, skipped, err := prompter.Review(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, approved)
	assert.Empty(t, skipped)
	assert.Empty(t, out.String())
}

func TestReview_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	prompter := NewReviewPrompter(&blockingReader{}, &out)

	_, _, err := prompter.Review(ctx, reviewRecs())
	assert.ErrorIs(t, err, context.Canceled)
}

// blockingReader never returns data.
type blockingReader struct{}

func (b *blockingReader) Read(_ []byte) (int, error) {
	select {}
}
