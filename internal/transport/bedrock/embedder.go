// Package bedrock holds the AWS Bedrock (Titan) embedding and text generation backends.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

const (
	provider     = "bedrock"
	defaultModel = "amazon.titan-embed-text-v2:0"
)

// invoker is the slice of the Bedrock runtime client we call (ISP).
type invoker interface {
	InvokeModel(
		ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds the backend settings.
type Config struct {
	Region     string
	Model      string
	Dimensions int
}

// Embedder calls a Titan text embedding model through InvokeModel.
type Embedder struct {
	client     invoker
	model      string
	dimensions int
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewEmbedder loads AWS credentials from the default chain. The SDK retryer
// is limited to a single attempt so throttling reaches our own backoff.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newEmbedder(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newEmbedder(client invoker, cfg Config) *Embedder {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Embedder{client: client, model: model, dimensions: cfg.Dimensions}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := titanRequest{InputText: text}
	// Only Titan v2 accepts an output size.
	if e.dimensions > 0 && strings.Contains(e.model, "titan-embed-text-v2") {
		req.Dimensions = e.dimensions
		req.Normalize = true
	}
	body, err := json.Marshal(req)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("bedrock: marshal request: %w", err)
	}

	start := time.Now()
	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	duration := time.Since(start)
	if err != nil {
		err = classifyError(err)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		err = fmt.Errorf("bedrock: decode response: %v: %w", err, domain.ErrInvalidResponse)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}
	if len(resp.Embedding) == 0 {
		err := fmt.Errorf("bedrock: response carries no embedding: %w", domain.ErrInvalidResponse)
		metrics.ObserveEmbeddingError(provider, e.model, err)
		return domain.EmbeddingResult{}, err
	}

	metrics.ObserveEmbedding(provider, e.model, duration, resp.InputTextTokenCount, resp.InputTextTokenCount)

	return domain.EmbeddingResult{
		Embedding:    resp.Embedding,
		PromptTokens: resp.InputTextTokenCount,
		TotalTokens:  resp.InputTextTokenCount,
	}, nil
}

// classifyError maps Bedrock failures onto the embedding taxonomy.
func classifyError(err error) error {
	return classifyAs(err, domain.ErrThrottled, domain.ErrProviderUnavailable)
}

// classifyAs wraps err with throttled for rate refusals and with unavailable otherwise.
func classifyAs(err, throttled, unavailable error) error {
	var throttling *types.ThrottlingException
	if errors.As(err, &throttling) {
		return fmt.Errorf("bedrock: %s: %w", throttling.ErrorMessage(), throttled)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return fmt.Errorf("bedrock: %s: %w", apiErr.ErrorMessage(), throttled)
		}
		return fmt.Errorf("bedrock %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), unavailable)
	}

	return fmt.Errorf("bedrock: %w: %w", unavailable, err)
}
