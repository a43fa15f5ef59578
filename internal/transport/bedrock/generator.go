package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

const (
	defaultTextModel = "amazon.titan-text-premier-v1:0"
	defaultMaxTokens = 1024
	defaultTopP      = 0.9
)

// GeneratorConfig holds the text model settings.
type GeneratorConfig struct {
	Region      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Generator calls a Titan text model through InvokeModel.
type Generator struct {
	client invoker
	model  string
	params titanTextConfig
}

type titanTextRequest struct {
	InputText string          `json:"inputText"`
	Config    titanTextConfig `json:"textGenerationConfig"`
}

type titanTextConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type titanTextResponse struct {
	InputTextTokenCount int `json:"inputTextTokenCount"`
	Results             []struct {
		TokenCount       int    `json:"tokenCount"`
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results"`
}

// NewGenerator loads AWS credentials from the default chain. Unlike the
// embedder it keeps the SDK's standard retryer: generation has no backoff
// layer of its own.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (*Generator, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newGenerator(client invoker, cfg GeneratorConfig) *Generator {
	g := &Generator{
		client: client,
		model:  cfg.Model,
		params: titanTextConfig{
			MaxTokenCount: cfg.MaxTokens,
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
		},
	}
	if g.model == "" {
		g.model = defaultTextModel
	}
	if g.params.MaxTokenCount <= 0 {
		g.params.MaxTokenCount = defaultMaxTokens
	}
	if g.params.TopP <= 0 {
		g.params.TopP = defaultTopP
	}
	return g
}

// WithTemperature returns a copy of g sampling at t.
func (g *Generator) WithTemperature(t float64) *Generator {
	c := *g
	c.params.Temperature = t
	return &c
}

// Generate implements domain.TextGenerator.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	body, err := json.Marshal(titanTextRequest{InputText: prompt, Config: g.params})
	if err != nil {
		return domain.Generation{}, fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return domain.Generation{}, classifyAs(err, domain.ErrGenerationThrottled, domain.ErrGenerationUnavailable)
	}

	var resp titanTextResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return domain.Generation{}, fmt.Errorf("bedrock: decode response: %v: %w", err, domain.ErrGenerationUnavailable)
	}
	if len(resp.Results) == 0 {
		return domain.Generation{}, fmt.Errorf("bedrock: response carries no results: %w", domain.ErrGenerationUnavailable)
	}

	first := resp.Results[0]
	return domain.Generation{
		Text:         strings.TrimSpace(first.OutputText),
		InputTokens:  resp.InputTextTokenCount,
		OutputTokens: first.TokenCount,
	}, nil
}
