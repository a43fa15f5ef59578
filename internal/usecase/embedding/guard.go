package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/logger"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// DimensionGuard rejects embeddings whose length differs from the corpus
// dimensionality. A mismatch means the backend and the corpus have drifted
// apart, so it is logged at ERROR and never retried.
type DimensionGuard struct {
	inner      domain.Embedder
	dimensions int
	provider   string
	model      string
	logger     *zap.Logger
}

// NewDimensionGuard wraps inner with an exact length check.
func NewDimensionGuard(inner domain.Embedder, dimensions int, provider, model string, log *zap.Logger) *DimensionGuard {
	return &DimensionGuard{
		inner:      inner,
		dimensions: dimensions,
		provider:   provider,
		model:      model,
		logger:     log,
	}
}

// Embed delegates and validates the vector length.
func (g *DimensionGuard) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := g.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if err := res.Embedding.CheckDimensions(g.dimensions); err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(g.provider, g.model, metrics.EmbeddingErrorType(err)).Inc()
		logger.FromContextOr(ctx, g.logger).Error("Embedding dimension mismatch: corpus and provider are out of sync",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Int("expected", g.dimensions),
			zap.Int("actual", len(res.Embedding)),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("%s/%s: %w", g.provider, g.model, err)
	}
	return res, nil
}
