// Package local is the embedding backend for self-hosted OpenAI-compatible
// servers (Ollama, LM Studio, vLLM) via langchaingo.
package local

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

const provider = "local"

// Config holds the backend settings.
type Config struct {
	BaseURL string
	Model   string
	// Token is optional; local servers usually ignore it.
	Token string
}

// Embedder wraps a langchaingo embedder.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
}

// NewEmbedder creates the backend. Local servers usually need no token,
// but the client insists on one, so "none" is sent when unset.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("local embedding base_url is required")
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create local client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create local embedder: %w", err)
	}
	return newEmbedder(emb, cfg.Model), nil
}

func newEmbedder(emb embeddings.Embedder, model string) *Embedder {
	return &Embedder{embedder: emb, model: model}
}

// Embed implements domain.Embedder. langchaingo does not expose token usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	vec, err := e.embedder.EmbedQuery(ctx, text)
	duration := time.Since(start)
	if err != nil {
		err = classifyError(err)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}
	if len(vec) == 0 {
		err := fmt.Errorf("local: response carries no embedding: %w", domain.ErrInvalidResponse)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}

	metrics.ObserveEmbedding(provider, e.model, duration, 0, 0)
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// classifyError recognises throttling from the status code in the client's
// error text; langchaingo does not expose a typed HTTP error.
// throttledStatus matches the status phrase langchaingo puts in errors for a
// 429 reply, not a bare "429" that may be part of an address or a count.
var throttledStatus = regexp.MustCompile(`(?i)status(?: code)?:? 429\b`)

func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("local: %w: %w", domain.ErrProviderUnavailable, err)
	}
	msg := err.Error()
	if throttledStatus.MatchString(msg) || strings.Contains(strings.ToLower(msg), "too many requests") {
		return fmt.Errorf("local: %v: %w", err, domain.ErrThrottled)
	}
	return fmt.Errorf("local: %w: %w", domain.ErrProviderUnavailable, err)
}
