package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing; matching still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the corpus is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
	ComponentBudget    = "budget_store"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        Pinger
	embedding EmbeddingChecker
	budget    Pinger
	timeout   time.Duration
}

// New creates a Service. embedding and budget can be nil.
func New(db Pinger, embedding EmbeddingChecker, budget Pinger) *Service {
	return &Service{db: db, embedding: embedding, budget: budget, timeout: DefaultCheckTimeout}
}

// Check pings every configured component. A corpus failure is Unhealthy,
// any other failure is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	checks[ComponentDatabase] = s.checkOne(ctx, s.db.Ping)
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.checkOne(ctx, s.embedding.HealthCheck)
	}
	if s.budget != nil {
		checks[ComponentBudget] = s.checkOne(ctx, s.budget.Ping)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) checkOne(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
