// Package budget persists embedding token counters for the budget tracker.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain/usage"
)

// Default counter lifetimes. They outlive the period so a late reader still
// sees the final value.
const (
	DefaultDayTTL   = 48 * time.Hour
	DefaultMonthTTL = 62 * 24 * time.Hour
)

// kv is the consumer interface for counter operations (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements embedding.BudgetStore with INCRBY + EXPIRE NX.
type Store struct {
	kv  kv
	ttl map[usage.Period]time.Duration
}

// New creates a budget store. Non-positive TTLs fall back to the defaults.
func New(s kv, dayTTL, monthTTL time.Duration) *Store {
	if dayTTL <= 0 {
		dayTTL = DefaultDayTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthTTL
	}
	return &Store{
		kv: s,
		ttl: map[usage.Period]time.Duration{
			usage.PeriodDay:   dayTTL,
			usage.PeriodMonth: monthTTL,
		},
	}
}

// IncrBy adds val to the counter and arms its expiry on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.kv.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}

	// NX keeps the first expiry so repeated writes do not extend the window.
	if err := s.kv.Expire(ctx, key, s.ttlFor(key), true); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns the counter value, or 0 when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse %q: %w", key, data, err)
	}
	return val, nil
}

func (s *Store) ttlFor(key string) time.Duration {
	if p, ok := usage.PeriodOfKey(key); ok {
		return s.ttl[p]
	}
	return s.ttl[usage.PeriodMonth]
}
