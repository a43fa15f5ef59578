package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/logger"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Retry policy defaults: waits of 2s, 4s, 8s, 16s between five attempts.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
	DefaultMultiplier  = 2.0
)

// RetryPolicy bounds the backoff applied to throttled requests.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns the 2^attempt seconds policy capped at five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// Validate rejects policies that would never call the backend or never wait.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry base_delay must be positive, got %s", p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1, got %v", p.Multiplier)
	}
	return nil
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
}

// backOff builds a deterministic exponential schedule: no jitter, no
// elapsed-time cap, MaxAttempts-1 waits.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.Delay(p.MaxAttempts)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// RetryingEmbedder retries domain.ErrThrottled with exponential backoff.
// Every other error returns at once. Waits run on a timer that stops when
// the request context ends, and hold no other resource.
type RetryingEmbedder struct {
	inner    domain.Embedder
	policy   RetryPolicy
	provider string
	logger   *zap.Logger
	newTimer func() backoff.Timer
}

// NewRetryingEmbedder wraps inner with the given policy.
func NewRetryingEmbedder(inner domain.Embedder, policy RetryPolicy, provider string, log *zap.Logger) *RetryingEmbedder {
	return &RetryingEmbedder{
		inner:    inner,
		policy:   policy,
		provider: provider,
		logger:   log,
		newTimer: func() backoff.Timer { return nil }, // nil selects the library's real timer
	}
}

// Embed calls the inner embedder until it succeeds, fails with a
// non-throttling error, or the attempts run out (domain.ErrRateLimited).
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContextOr(ctx, r.logger)

	var result domain.EmbeddingResult
	attempt := 0

	operation := func() error {
		attempt++
		res, err := r.inner.Embed(ctx, text)
		if err == nil {
			result = res
			return nil
		}
		if !errors.Is(err, domain.ErrThrottled) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.EmbeddingRetriesTotal.WithLabelValues(r.provider).Inc()
		log.Warn("Embedding provider throttled, backing off",
			zap.String("provider", r.provider),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, r.policy.backOff(ctx), notify, r.newTimer())
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, domain.ErrThrottled) && ctx.Err() == nil:
		log.Error("Embedding retries exhausted",
			zap.String("provider", r.provider),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("after %d attempts: %w: %w", attempt, domain.ErrRateLimited, err)
	case ctx.Err() != nil && !errors.Is(err, domain.ErrProviderUnavailable):
		return domain.EmbeddingResult{}, fmt.Errorf("embedding interrupted after %d attempts: %w: %w",
			attempt, domain.ErrProviderUnavailable, err)
	default:
		return domain.EmbeddingResult{}, err
	}
}
