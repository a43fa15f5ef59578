package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/resumatch/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader, provider string) *Service {
	return &Service{br: br, provider: provider, now: time.Now}
}

// GetReport builds a usage report for the given period. Without a budget
// tracker the report is unlimited with zero usage.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	if s.br != nil {
		return s.br.Report(period)
	}
	now := s.now()
	return domusage.Report{
		Period:      period,
		PeriodStart: period.Start(now).UnixMilli(),
		PeriodEnd:   period.End(now).UnixMilli(),
		Provider:    s.provider,
		Remaining:   -1,
	}
}
