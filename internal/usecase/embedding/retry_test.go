package embedding

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

func newTestRetrying(inner domain.Embedder, policy RetryPolicy) (*RetryingEmbedder, *recordingTimer) {
	timer := &recordingTimer{}
	r := NewRetryingEmbedder(inner, policy, "test", zap.NewNop())
	r.newTimer = func() backoff.Timer { return timer }
	return r, timer
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	if err := DefaultRetryPolicy().Validate(); err != nil {
		t.Fatalf("default policy must be valid: %v", err)
	}
	bad := []RetryPolicy{
		{MaxAttempts: 0, BaseDelay: time.Second, Multiplier: 2},
		{MaxAttempts: 3, BaseDelay: 0, Multiplier: 2},
		{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 0.5},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("expected error for %+v", p)
		}
	}
}

func TestRetryingEmbedder_SucceedsFirstTry(t *testing.T) {
	inner := &scriptedEmbedder{result: domain.EmbeddingResult{Embedding: vectorOf(4)}}
	r, timer := newTestRetrying(inner, DefaultRetryPolicy())

	res, err := r.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 4 {
		t.Errorf("expected 4 dimensions, got %d", len(res.Embedding))
	}
	if inner.callCount() != 1 || len(timer.recorded()) != 0 {
		t.Errorf("calls=%d waits=%v, want 1 call and no waits", inner.callCount(), timer.recorded())
	}
}

func TestRetryingEmbedder_ThrottledTwiceThenSucceeds(t *testing.T) {
	inner := &scriptedEmbedder{
		errs:   []error{domain.ErrThrottled, domain.ErrThrottled},
		result: domain.EmbeddingResult{Embedding: vectorOf(4)},
	}
	r, timer := newTestRetrying(inner, DefaultRetryPolicy())

	if _, err := r.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.callCount() != 3 {
		t.Errorf("expected 3 calls, got %d", inner.callCount())
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if got := timer.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("waits = %v, want %v", got, want)
	}
}

func TestRetryingEmbedder_ExhaustsAttempts(t *testing.T) {
	throttled := make([]error, 10)
	for i := range throttled {
		throttled[i] = domain.ErrThrottled
	}
	inner := &scriptedEmbedder{errs: throttled}
	r, timer := newTestRetrying(inner, DefaultRetryPolicy())

	_, err := r.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if inner.callCount() != DefaultMaxAttempts {
		t.Errorf("expected %d calls, got %d", DefaultMaxAttempts, inner.callCount())
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if got := timer.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("waits = %v, want %v", got, want)
	}
}

func TestRetryingEmbedder_NonThrottleErrorIsNotRetried(t *testing.T) {
	for _, cause := range []error{domain.ErrProviderUnavailable, domain.ErrInvalidResponse} {
		inner := &scriptedEmbedder{errs: []error{cause}}
		r, timer := newTestRetrying(inner, DefaultRetryPolicy())

		_, err := r.Embed(context.Background(), "hello")
		if !errors.Is(err, cause) {
			t.Fatalf("expected %v, got %v", cause, err)
		}
		if errors.Is(err, domain.ErrRateLimited) {
			t.Errorf("%v must not become ErrRateLimited", cause)
		}
		if inner.callCount() != 1 || len(timer.recorded()) != 0 {
			t.Errorf("%v: calls=%d waits=%v, want a single call", cause, inner.callCount(), timer.recorded())
		}
	}
}

func TestRetryingEmbedder_SingleAttemptPolicy(t *testing.T) {
	inner := &scriptedEmbedder{errs: []error{domain.ErrThrottled}}
	r, _ := newTestRetrying(inner, RetryPolicy{MaxAttempts: 1, BaseDelay: time.Second, Multiplier: 2})

	_, err := r.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if inner.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", inner.callCount())
	}
}

func TestRetryingEmbedder_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &scriptedEmbedder{
		errs: []error{domain.ErrThrottled, domain.ErrThrottled},
		hook: func(int) { cancel() },
	}
	r, _ := newTestRetrying(inner, DefaultRetryPolicy())

	_, err := r.Embed(ctx, "hello")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Error("cancellation must not be reported as rate limiting")
	}
	if inner.callCount() != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", inner.callCount())
	}
}

func TestRetryingEmbedder_RealTimerHonorsDeadline(t *testing.T) {
	inner := &scriptedEmbedder{errs: []error{domain.ErrThrottled, domain.ErrThrottled}}
	r := NewRetryingEmbedder(inner, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, Multiplier: 2}, "test", zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Embed(ctx, "hello")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("backoff wait ignored the deadline: %s", elapsed)
	}
}
