// Package openai is the OpenAI-compatible embedding backend.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Embedder is an embedding backend for OpenAI and compatible APIs (e.g. Nebius).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
}

// Config holds the backend settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions is sent as the requested output size for models that
	// support shortening. Zero leaves the model default.
	Dimensions int
	User       string
	Provider   string
}

// NewEmbedder creates an OpenAI-compatible embedding backend.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   provider,
	}
}

// Embed implements domain.Embedder. A 429 reply is reported as
// domain.ErrThrottled and left to the retry layer.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		err = classifyError(err)
		metrics.ObserveEmbeddingError(e.provider, string(e.model), err)
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		err := fmt.Errorf("openai: response carries no embedding: %w", domain.ErrInvalidResponse)
		metrics.ObserveEmbeddingError(e.provider, string(e.model), err)
		return domain.EmbeddingResult{}, err
	}

	metrics.ObserveEmbedding(e.provider, string(e.model), duration, resp.Usage.PromptTokens, resp.Usage.TotalTokens)

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyError maps client errors onto the embedding taxonomy:
// 429 is ErrThrottled, an undecodable body is ErrInvalidResponse and
// everything else is ErrProviderUnavailable.
func classifyError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return statusError(reqErr.HTTPStatusCode, extractCode(reqErr.Body), detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		if code == "" {
			code = apiErr.Type
		}
		return statusError(apiErr.HTTPStatusCode, code, apiErr.Message)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("openai: decode response: %v: %w", err, domain.ErrInvalidResponse)
	}

	return fmt.Errorf("openai: %w: %w", domain.ErrProviderUnavailable, err)
}

// codeInsufficientQuota arrives with a 429 but is a billing state, not
// throttling: retrying cannot succeed.
const codeInsufficientQuota = "insufficient_quota"

func statusError(status int, code, detail string) error {
	if status == http.StatusTooManyRequests && code != codeInsufficientQuota {
		return fmt.Errorf("openai API error %d: %s: %w", status, detail, domain.ErrThrottled)
	}
	return fmt.Errorf("openai API error %d: %s: %w", status, detail, domain.ErrProviderUnavailable)
}

// extractCode reads error.code, or error.type when code is absent, from an
// OpenAI-style error body.
func extractCode(body []byte) string {
	var parsed struct {
		Error struct {
			Code any    `json:"code"`
			Type string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if code, ok := parsed.Error.Code.(string); ok && code != "" {
		return code
	}
	return parsed.Error.Type
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
