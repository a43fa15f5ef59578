package usage

import domusage "github.com/kailas-cloud/resumatch/internal/domain/usage"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Report(p domusage.Period) domusage.Report
}
