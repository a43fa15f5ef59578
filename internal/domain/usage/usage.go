// Package usage describes embedding token consumption reports.
package usage

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Report is the embedding token usage for one period.
type Report struct {
	Period      Period
	PeriodStart int64 // unix millis
	PeriodEnd   int64 // unix millis
	Provider    string
	Used        int64
	Limit       int64 // 0 = unlimited
	Remaining   int64 // -1 = unlimited
}

// Exhausted reports whether a finite budget has been used up.
func (r Report) Exhausted() bool {
	return r.Limit > 0 && r.Remaining <= 0
}

// Start returns the UTC start of the period containing t.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodMonth {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// End returns the UTC start of the period after the one containing t.
func (p Period) End(t time.Time) time.Time {
	if p == PeriodMonth {
		return p.Start(t).AddDate(0, 1, 0)
	}
	return p.Start(t).AddDate(0, 0, 1)
}

func (p Period) layout() string {
	if p == PeriodMonth {
		return "2006-01"
	}
	return "2006-01-02"
}

// BudgetKey is the counter key for provider usage in the period containing t,
// e.g. resumatch:budget:openai:day:2026-10-15.
func BudgetKey(provider string, p Period, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, provider, p, t.UTC().Format(p.layout()))
}

// PeriodOfKey recovers the period from a BudgetKey.
func PeriodOfKey(key string) (Period, bool) {
	switch {
	case strings.Contains(key, ":"+string(PeriodDay)+":"):
		return PeriodDay, true
	case strings.Contains(key, ":"+string(PeriodMonth)+":"):
		return PeriodMonth, true
	default:
		return "", false
	}
}
