package assist

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// Generator completes a prompt. Rewrites and cover letters may be served by
// differently tuned generators.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.Generation, error)
}
