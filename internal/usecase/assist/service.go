// Package assist rewrites résumés and drafts cover letters with a text model.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/logger"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Style selects the tone of a rewrite.
type Style string

// Supported styles. Anything else falls back to StyleProfessional.
const (
	StyleProfessional Style = "professional"
	StyleConcise      Style = "concise"
	StyleTechnical    Style = "technical"
)

const (
	taskRewrite     = "rewrite"
	taskCoverLetter = "cover_letter"
)

// ParseStyle maps a client value onto a supported style.
func ParseStyle(s string) Style {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleConcise, StyleTechnical:
		return st
	default:
		return StyleProfessional
	}
}

// Rewrite is a rewritten résumé. Bullets is never nil.
type Rewrite struct {
	Text    string
	Bullets []string
	Style   Style
}

// Service runs the generation tasks.
type Service struct {
	rewriter Generator
	writer   Generator
	logger   *zap.Logger
}

// New creates a Service. rewriter serves résumé rewrites and writer serves
// cover letters; they may be the same generator.
func New(rewriter, writer Generator, log *zap.Logger) *Service {
	return &Service{rewriter: rewriter, writer: writer, logger: log}
}

// RewriteResume rewrites raw résumé text in the given style. A model reply
// that is not the requested JSON is returned verbatim with no bullets.
func (s *Service) RewriteResume(ctx context.Context, rawText, style string) (Rewrite, error) {
	if strings.TrimSpace(rawText) == "" {
		return Rewrite{}, &domain.MissingFieldError{Field: "rawText"}
	}
	st := ParseStyle(style)

	gen, err := s.generate(ctx, s.rewriter, taskRewrite, rewritePrompt(rawText, st))
	if err != nil {
		return Rewrite{}, err
	}

	out := parseRewrite(gen.Text)
	out.Style = st
	if out.Bullets == nil {
		logger.FromContextOr(ctx, s.logger).Debug("Rewrite reply was not structured",
			zap.Int("length", len(gen.Text)))
		out.Bullets = []string{}
	}
	return out, nil
}

// CoverLetter drafts a letter for the job from the résumé.
func (s *Service) CoverLetter(ctx context.Context, resumeText, jobDescription string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", &domain.MissingFieldError{Field: "resumeText"}
	}
	if strings.TrimSpace(jobDescription) == "" {
		return "", &domain.MissingFieldError{Field: "jobDescription"}
	}

	gen, err := s.generate(ctx, s.writer, taskCoverLetter, coverLetterPrompt(resumeText, jobDescription))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(gen.Text), nil
}

func (s *Service) generate(ctx context.Context, g Generator, task, prompt string) (domain.Generation, error) {
	gen, err := g.Generate(ctx, prompt)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrGenerationThrottled) {
			outcome = "throttled"
		}
		metrics.AssistRequestsTotal.WithLabelValues(task, outcome).Inc()
		return domain.Generation{}, fmt.Errorf("%s: %w", task, err)
	}
	metrics.AssistRequestsTotal.WithLabelValues(task, "ok").Inc()
	metrics.AssistTokensTotal.WithLabelValues(task, "input").Add(float64(gen.InputTokens))
	metrics.AssistTokensTotal.WithLabelValues(task, "output").Add(float64(gen.OutputTokens))

	logger.FromContextOr(ctx, s.logger).Debug("Generation completed",
		zap.String("task", task),
		zap.Int("input_tokens", gen.InputTokens),
		zap.Int("output_tokens", gen.OutputTokens),
	)
	return gen, nil
}

type rewriteReply struct {
	Rewritten string   `json:"rewritten"`
	Bullets   []string `json:"bullets"`
}

// parseRewrite reads the outermost JSON object in the reply. Bullets is nil
// when the reply carries no usable object.
func parseRewrite(reply string) Rewrite {
	reply = strings.TrimSpace(reply)
	start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		var r rewriteReply
		if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err == nil && strings.TrimSpace(r.Rewritten) != "" {
			bullets := make([]string, 0, len(r.Bullets))
			for _, b := range r.Bullets {
				if b = strings.TrimSpace(b); b != "" {
					bullets = append(bullets, b)
				}
			}
			return Rewrite{Text: strings.TrimSpace(r.Rewritten), Bullets: bullets}
		}
	}
	return Rewrite{Text: reply}
}
