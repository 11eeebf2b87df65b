package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
	"github.com/Veraticus/autoprep/internal/transform"
)

// Advice is the bridge's answer: sanitized recommendations ready for the
// orchestrator, plus every candidate that was rejected on the way.
type Advice struct {
	Recommendations []model.Recommendation
	Dropped         []model.DroppedRecommendation
	Model           string
	UsedFallback    bool
}

// Bridge turns a dataset profile into validated transformation
// recommendations. It owns the retry policy around the injected client, the
// sanitization of the untrusted response, and the deterministic fallback used
// when the advisor cannot help.
type Bridge struct {
	client      Client
	registry    *transform.Registry
	cache       *adviceCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	cfg         Config
}

// NewBridge creates a bridge with a client built from the configuration.
func NewBridge(cfg Config, registry *transform.Registry, logger *slog.Logger) (*Bridge, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create advisor client: %w", err)
	}
	return NewBridgeWithClient(cfg, client, registry, logger), nil
}

// NewBridgeWithClient creates a bridge around an existing client. A nil
// client means fallback-only operation. Tests inject fakes here.
func NewBridgeWithClient(cfg Config, client Client, registry *transform.Registry, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 20
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = 10
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Bridge{
		client:      client,
		registry:    registry,
		cache:       newAdviceCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
		retryOpts:   retryOpts,
		cfg:         cfg,
	}
}

// Advise produces recommendations for the profiled dataset. Advisor failures
// are absorbed: after the retry budget is spent, or when the payload does not
// follow the contract, the deterministic fallback takes over and the pipeline
// degrades instead of failing. The only errors returned are contract
// violations (no registry) and context cancellation.
func (b *Bridge) Advise(ctx context.Context, profile model.DatasetProfile, dataset model.Dataset) (Advice, error) {
	if b.registry == nil {
		return Advice{}, fmt.Errorf("%w: advisor bridge requires a transformer registry", common.ErrInvalidConfig)
	}

	if b.client == nil {
		b.logger.Debug("no advisor client configured, using fallback rules")
		return b.fallbackAdvice(dataset, profile), nil
	}

	cacheKey := fmt.Sprintf("%016x:%s", dataset.Fingerprint(), b.cfg.Model)
	if advice, found := b.cache.get(cacheKey); found {
		b.logger.Debug("advice cache hit", "dataset", dataset.Name, "model", b.cfg.Model)
		return advice, nil
	}

	if err := b.rateLimiter.wait(ctx); err != nil {
		return Advice{}, err
	}

	req := Request{
		Model:              b.cfg.Model,
		DatasetProfile:     profilePayload(profile),
		SampleRows:         sampleRows(dataset, b.cfg.SampleSize),
		MaxRecommendations: b.cfg.MaxRecommendations,
		Transformers:       b.registry.Specs(),
	}

	var resp Response
	err := common.WithRetry(ctx, func() error {
		attemptCtx := ctx
		if b.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
			defer cancel()
		}

		var attemptErr error
		resp, attemptErr = b.client.Recommend(attemptCtx, req)
		if attemptErr == nil {
			return nil
		}
		// A malformed payload will stay malformed; retrying only burns the
		// budget.
		if isResponseInvalid(attemptErr) {
			return &common.RetryableError{Err: attemptErr, Retryable: false}
		}
		return attemptErr
	}, b.retryOpts)

	if err != nil {
		if ctx.Err() != nil {
			return Advice{}, fmt.Errorf("advisor call canceled: %w", ctx.Err())
		}
		b.logger.Warn("advisor unavailable, using fallback rules",
			"dataset", dataset.Name,
			"error", err)
		advice := b.fallbackAdvice(dataset, profile)
		return advice, nil
	}

	recs, dropped := b.sanitize(resp.Recommendations, dataset)
	advice := Advice{
		Recommendations: recs,
		Dropped:         dropped,
		Model:           b.cfg.Model,
	}
	b.cache.set(cacheKey, advice)

	b.logger.Info("advisor recommendations received",
		"dataset", dataset.Name,
		"model", b.cfg.Model,
		"accepted", len(recs),
		"dropped", len(dropped))
	return advice, nil
}

// sanitize promotes untrusted candidates to recommendations. A candidate
// referencing an absent column, an unknown transformer, or parameters that
// fail the spec schema is dropped with its reason recorded; confidence is
// clamped to [0, 1]. Candidates beyond the request budget are dropped too.
func (b *Bridge) sanitize(candidates []Candidate, dataset model.Dataset) ([]model.Recommendation, []model.DroppedRecommendation) {
	recs := make([]model.Recommendation, 0, len(candidates))
	var dropped []model.DroppedRecommendation

	for _, cand := range candidates {
		rec := model.Recommendation{
			Column:      cand.Column,
			Transformer: cand.Transformer,
			Params:      cand.Params,
			Rationale:   cand.Rationale,
			Confidence:  clamp01(cand.Confidence),
			Source:      model.SourceAdvisor,
		}

		if err := b.registry.Validate(rec, dataset); err != nil {
			b.logger.Warn("dropped advisor candidate",
				"column", cand.Column,
				"transformer", cand.Transformer,
				"reason", err)
			dropped = append(dropped, model.DroppedRecommendation{
				Recommendation: rec,
				Reason:         err.Error(),
				Stage:          model.DropStageSanitize,
			})
			continue
		}

		if len(recs) >= b.cfg.MaxRecommendations {
			dropped = append(dropped, model.DroppedRecommendation{
				Recommendation: rec,
				Reason:         fmt.Sprintf("exceeds the %d-recommendation budget", b.cfg.MaxRecommendations),
				Stage:          model.DropStageSanitize,
			})
			continue
		}

		recs = append(recs, rec)
	}
	return recs, dropped
}

// fallbackAdvice runs the rule set and sanitizes its output the same way an
// advisor response is, so the invariant holds regardless of source.
func (b *Bridge) fallbackAdvice(dataset model.Dataset, profile model.DatasetProfile) Advice {
	rules := FallbackRules{
		HighMissingThreshold: b.cfg.HighMissingThreshold,
		ImputeMedianAbove:    0.2,
		SkewLimit:            1.0,
		Outliers:             b.cfg.Outliers,
		Scaling:              b.cfg.Scaling,
	}

	var recs []model.Recommendation
	var dropped []model.DroppedRecommendation
	for _, rec := range Fallback(profile, rules) {
		if err := b.registry.Validate(rec, dataset); err != nil {
			dropped = append(dropped, model.DroppedRecommendation{
				Recommendation: rec,
				Reason:         err.Error(),
				Stage:          model.DropStageSanitize,
			})
			continue
		}
		recs = append(recs, rec)
	}

	return Advice{
		Recommendations: recs,
		Dropped:         dropped,
		UsedFallback:    true,
	}
}

// Close stops background goroutines and cleans up resources.
func (b *Bridge) Close() error {
	if b.cache != nil {
		b.cache.Close()
	}
	if b.rateLimiter != nil {
		b.rateLimiter.Close()
	}
	return nil
}

func isResponseInvalid(err error) bool {
	return errors.Is(err, ErrResponseInvalid)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
