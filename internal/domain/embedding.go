package domain

import (
	"context"
	"strconv"
	"strings"
)

// Vector is a request-scoped embedding. Treat it as immutable once produced.
type Vector []float32

// CheckDimensions returns a DimensionMismatchError unless len(v) == expected.
func (v Vector) CheckDimensions(expected int) error {
	if len(v) != expected {
		return NewDimensionMismatch(expected, len(v))
	}
	return nil
}

// PgLiteral renders the vector in pgvector text form: [0.1,0.2,0.3].
func (v Vector) PgLiteral() string {
	var sb strings.Builder
	sb.Grow(len(v)*10 + 2)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    Vector
	PromptTokens int
	TotalTokens  int
}
