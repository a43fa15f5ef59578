package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// ChainConfig describes the decorators wrapped around a backend.
type ChainConfig struct {
	Provider   string
	Model      string
	Dimensions int
	Retry      RetryPolicy
	// Budget is optional.
	Budget BudgetChecker
}

// NewChain composes the embedder used by the match and ingest paths:
//
//	DimensionGuard -> InstrumentedEmbedder -> RetryingEmbedder -> backend
//
// A request passes one budget check however many retries it takes. No vector
// leaves the chain without the dimension check.
func NewChain(backend domain.Embedder, cfg ChainConfig, log *zap.Logger) (domain.Embedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	var e domain.Embedder = NewRetryingEmbedder(backend, cfg.Retry, cfg.Provider, log)
	e = NewInstrumentedEmbedder(e, cfg.Provider, cfg.Model, cfg.Budget, log)
	e = NewDimensionGuard(e, cfg.Dimensions, cfg.Provider, cfg.Model, log)
	return e, nil
}
