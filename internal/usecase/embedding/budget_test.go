package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/usage"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

var budgetEpoch = time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

func newTestTracker(daily, monthly int64, action BudgetAction) (*BudgetTracker, *fakeClock) {
	clock := &fakeClock{t: budgetEpoch}
	return newBudgetTracker("prov", daily, monthly, action, zap.NewNop(), clock.now), clock
}

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt, _ := newTestTracker(100, 0, BudgetActionReject)
	bt.Record(100)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt, _ := newTestTracker(100, 0, BudgetActionWarn)
	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt, _ := newTestTracker(0, 500, BudgetActionReject)
	bt.Record(500)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt, _ := newTestTracker(0, 0, BudgetActionReject)
	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 remaining for unlimited budgets")
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt, _ := newTestTracker(1000, 10000, BudgetActionWarn)
	bt.Record(300)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", got)
	}

	bt.Record(5000)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("remaining must not go negative, got %d", got)
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	bt, clock := newTestTracker(100, 1000, BudgetActionReject)
	bt.Record(100)

	clock.set(budgetEpoch.Add(24 * time.Hour))

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("daily budget should reset on a new day, got %v", err)
	}
	if got := bt.Report(usage.PeriodMonth).Used; got != 100 {
		t.Errorf("monthly usage must survive a day rollover, got %d", got)
	}
}

func TestBudgetTracker_MonthRollover(t *testing.T) {
	bt, clock := newTestTracker(0, 100, BudgetActionReject)
	bt.Record(100)

	clock.set(time.Date(2026, time.November, 1, 0, 0, 1, 0, time.UTC))

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("monthly budget should reset on a new month, got %v", err)
	}
}

func TestBudgetTracker_Report(t *testing.T) {
	bt, _ := newTestTracker(1000, 0, BudgetActionWarn)
	bt.Record(250)

	day := bt.Report(usage.PeriodDay)
	if day.Used != 250 || day.Limit != 1000 || day.Remaining != 750 || day.Provider != "prov" {
		t.Errorf("day report = %+v", day)
	}
	wantStart := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC).UnixMilli()
	wantEnd := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC).UnixMilli()
	if day.PeriodStart != wantStart || day.PeriodEnd != wantEnd {
		t.Errorf("day bounds = %d..%d, want %d..%d", day.PeriodStart, day.PeriodEnd, wantStart, wantEnd)
	}

	month := bt.Report(usage.PeriodMonth)
	if month.Period != usage.PeriodMonth || month.Remaining != -1 {
		t.Errorf("month report = %+v", month)
	}
}

func TestParseBudgetAction(t *testing.T) {
	for in, want := range map[string]BudgetAction{"": BudgetActionWarn, "warn": BudgetActionWarn, "reject": BudgetActionReject} {
		got, err := ParseBudgetAction(in)
		if err != nil || got != want {
			t.Errorf("ParseBudgetAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseBudgetAction("block"); err == nil {
		t.Error("expected error for unknown action")
	}
}

// --- Mock BudgetStore ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func (m *mockBudgetStore) value(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// --- Persistence tests ---

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockBudgetStore()
	store.data[usage.BudgetKey("prov", usage.PeriodDay, budgetEpoch)] = 300
	store.data[usage.BudgetKey("prov", usage.PeriodMonth, budgetEpoch)] = 5000

	bt, _ := newTestTracker(1000, 10000, BudgetActionReject)
	bt.WithStore(context.Background(), store)

	if got := bt.Report(usage.PeriodDay).Used; got != 300 {
		t.Errorf("expected daily used 300, got %d", got)
	}
	if got := bt.Report(usage.PeriodMonth).Used; got != 5000 {
		t.Errorf("expected monthly used 5000, got %d", got)
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockBudgetStore()
	bt, _ := newTestTracker(10000, 100000, BudgetActionWarn)
	bt.WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)

	if got := store.value("resumatch:budget:prov:day:2026-10-15"); got != 300 {
		t.Errorf("expected stored daily 300, got %d", got)
	}
	if got := store.value("resumatch:budget:prov:month:2026-10"); got != 300 {
		t.Errorf("expected stored monthly 300, got %d", got)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt, _ := newTestTracker(1000, 10000, BudgetActionReject)
	bt.WithStore(context.Background(), store)

	if got := bt.Report(usage.PeriodDay).Used; got != 0 {
		t.Errorf("expected 0 on load error, got %d", got)
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockBudgetStore()
	store.setErr = errors.New("write timeout")

	bt, _ := newTestTracker(1000, 10000, BudgetActionWarn)
	bt.WithStore(context.Background(), store)
	bt.Record(50)

	if got := bt.Report(usage.PeriodDay).Used; got != 50 {
		t.Errorf("in-memory usage must advance despite store errors, got %d", got)
	}
}

func TestBudgetTracker_ConcurrentRecord(t *testing.T) {
	bt, _ := newTestTracker(0, 0, BudgetActionWarn)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bt.Record(2)
		}()
	}
	wg.Wait()

	if got := bt.Report(usage.PeriodDay).Used; got != 100 {
		t.Errorf("expected 100 after concurrent records, got %d", got)
	}
}
