package ingest

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
)

// Embedder vectorizes company text. Implementations validate dimensions.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Writer stores corpus records keyed by company name.
type Writer interface {
	Upsert(ctx context.Context, rec *company.Record) (bool, error)
}
