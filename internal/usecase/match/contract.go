package match

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
)

// Embedder vectorizes résumé text. Implementations validate dimensions.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher ranks the corpus against a vector.
type Searcher interface {
	Search(ctx context.Context, vector domain.Vector, filters filter.Compiled, limit int) ([]company.Match, error)
}
