// Package gemini is the Google Gemini embedding backend.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

const (
	provider     = "gemini"
	defaultModel = "text-embedding-004"
	// retrieval queries and corpus documents use different task types.
	taskRetrievalQuery = "RETRIEVAL_QUERY"
)

// embedAPI is the slice of genai.Models we call (ISP).
type embedAPI interface {
	EmbedContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Config holds the backend settings.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
}

// Embedder calls Models.EmbedContent on the Gemini API.
type Embedder struct {
	models     embedAPI
	model      string
	dimensions int
}

// NewEmbedder creates a Gemini API client.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newEmbedder(client.Models, cfg), nil
}

func newEmbedder(models embedAPI, cfg Config) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Embedder{models: models, model: model, dimensions: cfg.Dimensions}
}

// Embed implements domain.Embedder. Gemini does not report token usage for
// embeddings, so the result carries zero counts.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	cfg := &genai.EmbedContentConfig{TaskType: taskRetrievalQuery}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg.OutputDimensionality = &dims
	}

	start := time.Now()
	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	duration := time.Since(start)
	if err != nil {
		err = classifyError(err)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		err := fmt.Errorf("gemini: response carries no embedding: %w", domain.ErrInvalidResponse)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}

	metrics.ObserveEmbedding(provider, e.model, duration, 0, 0)
	return domain.EmbeddingResult{Embedding: resp.Embeddings[0].Values}, nil
}

// classifyError maps genai errors onto the embedding taxonomy. Quota
// exhaustion arrives as HTTP 429 / RESOURCE_EXHAUSTED.
func classifyError(err error) error {
	code, status, msg := 0, "", ""
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status, msg = apiErr.Code, apiErr.Status, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, status, msg = apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	default:
		return fmt.Errorf("gemini: %w: %w", domain.ErrProviderUnavailable, err)
	}

	if code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED" {
		return fmt.Errorf("gemini API error %d: %s: %w", code, msg, domain.ErrThrottled)
	}
	return fmt.Errorf("gemini API error %d: %s: %w", code, msg, domain.ErrProviderUnavailable)
}
