package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/usage"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// ParseBudgetAction validates an action name. Empty means warn.
func ParseBudgetAction(s string) (BudgetAction, error) {
	switch BudgetAction(s) {
	case "", BudgetActionWarn:
		return BudgetActionWarn, nil
	case BudgetActionReject:
		return BudgetActionReject, nil
	default:
		return "", fmt.Errorf("unknown budget action %q", s)
	}
}

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// counter tracks one period's consumption.
type counter struct {
	period usage.Period
	limit  int64
	used   int64
	start  time.Time
}

func (c *counter) roll(now time.Time) {
	if start := c.period.Start(now); start.After(c.start) {
		c.used = 0
		c.start = start
	}
}

func (c *counter) exceeded() bool { return c.limit > 0 && c.used >= c.limit }

func (c *counter) remaining() int64 {
	if c.limit == 0 {
		return -1
	}
	return max(c.limit-c.used, 0)
}

// BudgetTracker is an in-memory token budget with optional write-behind persistence.
// Check never leaves the process; Record updates memory first, then the store.
type BudgetTracker struct {
	mu       sync.Mutex
	daily    counter
	monthly  counter
	action   BudgetAction
	provider string
	store    BudgetStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewBudgetTracker creates a budget tracker. A zero limit means unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	return newBudgetTracker(provider, dailyLimit, monthlyLimit, action, logger, time.Now)
}

func newBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger, now func() time.Time,
) *BudgetTracker {
	t := now().UTC()
	return &BudgetTracker{
		daily:    counter{period: usage.PeriodDay, limit: dailyLimit, start: usage.PeriodDay.Start(t)},
		monthly:  counter{period: usage.PeriodMonth, limit: monthlyLimit, start: usage.PeriodMonth.Start(t)},
		action:   action,
		provider: provider,
		logger:   logger,
		now:      now,
	}
}

// WithStore attaches a persistence store and loads current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *BudgetTracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for _, c := range []*counter{&b.daily, &b.monthly} {
		key := usage.BudgetKey(b.provider, c.period, now)
		val, err := b.store.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load budget from store", zap.String("key", key), zap.Error(err))
			continue
		}
		c.used = val
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
}

// Check verifies the budget allows a new request. In-memory only (hot path).
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()
	if !b.daily.exceeded() && !b.monthly.exceeded() {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

// Record registers consumed tokens after a request.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.roll()
	b.daily.used += tokens
	b.monthly.used += tokens
	store := b.store
	now := b.now()
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind on a detached context: the caller's request may already be done.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, p := range []usage.Period{usage.PeriodDay, usage.PeriodMonth} {
		key := usage.BudgetKey(b.provider, p, now)
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.daily.remaining()
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.monthly.remaining()
}

// Report returns the usage for the current period.
func (b *BudgetTracker) Report(p usage.Period) usage.Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()

	c := &b.daily
	if p == usage.PeriodMonth {
		c = &b.monthly
	}
	now := b.now()
	return usage.Report{
		Period:      c.period,
		PeriodStart: c.period.Start(now).UnixMilli(),
		PeriodEnd:   c.period.End(now).UnixMilli(),
		Provider:    b.provider,
		Used:        c.used,
		Limit:       c.limit,
		Remaining:   c.remaining(),
	}
}

func (b *BudgetTracker) roll() {
	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
}
