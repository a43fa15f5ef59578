// Package match runs one résumé through embedding, filtering, tiering and search.
package match

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/access"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
	"github.com/kailas-cloud/resumatch/internal/logger"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Stage names a step of a match request. A request moves forward only.
type Stage string

// Request stages in execution order.
const (
	StageReceived        Stage = "received"
	StageEmbedding       Stage = "embedding"
	StageFilterCompiling Stage = "filter_compiling"
	StageLimitResolving  Stage = "limit_resolving"
	StageSearching       Stage = "searching"
	StageCompleted       Stage = "completed"
)

// Request is one match call. RawFilters is the untrusted JSON filter object
// and may be empty.
type Request struct {
	Text          string
	RawFilters    []byte
	Authenticated bool
	Subject       string
}

// Outcome is the terminal state of a successful request. Access is the
// caller's resolved tier; its ResultLimit bounds Matches.
type Outcome struct {
	Matches []company.Match
	Access  access.Context
}

// StageError records the stage a request failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("match %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Service orchestrates match requests.
type Service struct {
	embed  Embedder
	search Searcher
	policy access.Policy
	logger *zap.Logger
}

// New creates a match service.
func New(embed Embedder, search Searcher, policy access.Policy, log *zap.Logger) *Service {
	return &Service{embed: embed, search: search, policy: policy, logger: log}
}

// Match embeds the résumé text and returns the closest companies the caller
// may see. The filter payload is validated before any provider call.
func (s *Service) Match(ctx context.Context, req Request) (Outcome, error) {
	tier := metrics.Tier(req.Authenticated)

	out, err := s.run(ctx, req)
	if err != nil {
		metrics.MatchesTotal.WithLabelValues(tier, "error").Inc()
		return Outcome{}, err
	}
	metrics.MatchesTotal.WithLabelValues(tier, "ok").Inc()
	return out, nil
}

func (s *Service) run(ctx context.Context, req Request) (Outcome, error) {
	log := logger.FromContextOr(ctx, s.logger)

	// Filters are parsed before the provider call so a malformed payload
	// costs nothing, but the failure is still a filter compilation failure.
	spec, err := filter.Parse(req.RawFilters)
	if err != nil {
		return Outcome{}, fail(StageFilterCompiling, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return Outcome{}, fail(StageReceived, domain.ErrEmptyText)
	}

	emb, err := s.embed.Embed(ctx, req.Text)
	if err != nil {
		return Outcome{}, fail(StageEmbedding, err)
	}

	compiled := filter.Compile(spec)

	acc := s.policy.Resolve(req.Authenticated, req.Subject)
	limit := acc.ResultLimit

	matches, err := s.search.Search(ctx, emb.Embedding, compiled, limit)
	if err != nil {
		return Outcome{}, fail(StageSearching, err)
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	log.Debug("Match completed",
		zap.Bool("authenticated", acc.Authenticated),
		zap.String("subject", acc.Subject),
		zap.Int("limit", limit),
		zap.Int("filters", len(compiled.Predicates())),
		zap.Int("results", len(matches)),
	)

	return Outcome{Matches: matches, Access: acc}, nil
}

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
