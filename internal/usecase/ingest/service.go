// Package ingest loads a JSONL or CSV company file into the corpus.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Defaults for Options.
const (
	DefaultWorkers  = 4
	DefaultLogEvery = 100
	maxLineBytes    = 1 << 20
)

// Outcome labels for the ingest counter.
const (
	resultCreated = "created"
	resultUpdated = "updated"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// Options tunes a run. The zero Format is JSONL.
type Options struct {
	Workers  int
	LogEvery int
	Format   Format
}

// Summary reports what a run did.
type Summary struct {
	Processed int64 `json:"processed"`
	Created   int64 `json:"created"`
	Updated   int64 `json:"updated"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// Service embeds and upserts corpus records.
type Service struct {
	embed  Embedder
	writer Writer
	opts   Options
	logger *zap.Logger
}

// New creates an ingest service. Non-positive options take defaults.
func New(embed Embedder, writer Writer, opts Options, log *zap.Logger) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.LogEvery <= 0 {
		opts.LogEvery = DefaultLogEvery
	}
	if opts.Format == "" {
		opts.Format = FormatJSONL
	}
	return &Service{embed: embed, writer: writer, opts: opts, logger: log}
}

// Run reads entries from r in the configured format and processes them on
// a bounded pool. Per-record failures are counted, not returned. A dimension
// mismatch stops the run: no further records are embedded and Run returns
// it. Run also returns an error when the input cannot be read, the pool
// cannot start, or ctx ends.
func (s *Service) Run(ctx context.Context, r io.Reader) (Summary, error) {
	dec, err := newDecoder(s.opts.Format, r)
	if err != nil {
		return Summary{}, err
	}

	pool, err := ants.NewPool(s.opts.Workers)
	if err != nil {
		return Summary{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	runCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	var (
		wg      sync.WaitGroup
		counts  counters
		readErr error
	)

	for runCtx.Err() == nil {
		e, err := dec.next()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum := dec.line()
		var malformed *malformedError
		if errors.As(err, &malformed) {
			s.logger.Warn("Skipping malformed record", zap.Int("line", lineNum), zap.Error(err))
			counts.add(resultFailed)
			continue
		}
		if err != nil {
			readErr = err
			break
		}

		rec := e.Record()
		if rec.Name == "" || rec.EmbeddingText == "" {
			s.logger.Warn("Skipping incomplete record", zap.Int("line", lineNum), zap.String("company", rec.Name))
			counts.add(resultSkipped)
			continue
		}

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if runCtx.Err() != nil {
				return
			}
			result, fatal := s.process(runCtx, lineNum, &rec)
			counts.add(result)
			if fatal != nil {
				stop(fatal)
			}
			if done := counts.processed.Load(); done%int64(s.opts.LogEvery) == 0 {
				s.logger.Info("Ingest progress", zap.Int64("processed", done))
			}
		}); err != nil {
			wg.Done()
			counts.add(resultFailed)
			s.logger.Error("Submit failed", zap.Int("line", lineNum), zap.Error(err))
		}
	}
	wg.Wait()

	sum := counts.summary()
	if readErr != nil {
		return sum, readErr
	}
	if cause := context.Cause(runCtx); errors.Is(cause, domain.ErrDimensionMismatch) {
		s.logger.Error("Ingest stopped on dimension mismatch",
			zap.Int64("processed", sum.Processed), zap.Error(cause))
		return sum, fmt.Errorf("ingest stopped: %w", cause)
	}
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("ingest interrupted: %w", err)
	}

	s.logger.Info("Ingest finished",
		zap.Int64("processed", sum.Processed),
		zap.Int64("created", sum.Created),
		zap.Int64("updated", sum.Updated),
		zap.Int64("skipped", sum.Skipped),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}

// process embeds and stores one record. The error is non-nil only for
// failures that must stop the whole run.
func (s *Service) process(ctx context.Context, line int, rec *company.Record) (string, error) {
	emb, err := s.embed.Embed(ctx, rec.EmbeddingText)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			s.logger.Error("Embedding dimension mismatch",
				zap.Int("line", line), zap.String("company", rec.Name), zap.Error(err))
			return resultFailed, fmt.Errorf("%s (line %d): %w", rec.Name, line, err)
		}
		s.logger.Warn("Embedding failed", zap.Int("line", line), zap.String("company", rec.Name), zap.Error(err))
		return resultFailed, nil
	}
	rec.Embedding = emb.Embedding

	created, err := s.writer.Upsert(ctx, rec)
	if err != nil {
		s.logger.Warn("Upsert failed", zap.Int("line", line), zap.String("company", rec.Name), zap.Error(err))
		return resultFailed, nil
	}
	if created {
		return resultCreated, nil
	}
	return resultUpdated, nil
}

type counters struct {
	processed atomic.Int64
	created   atomic.Int64
	updated   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func (c *counters) add(result string) {
	metrics.IngestRecordsTotal.WithLabelValues(result).Inc()
	c.processed.Add(1)
	switch result {
	case resultCreated:
		c.created.Add(1)
	case resultUpdated:
		c.updated.Add(1)
	case resultSkipped:
		c.skipped.Add(1)
	default:
		c.failed.Add(1)
	}
}

func (c *counters) summary() Summary {
	return Summary{
		Processed: c.processed.Load(),
		Created:   c.created.Load(),
		Updated:   c.updated.Load(),
		Skipped:   c.skipped.Load(),
		Failed:    c.failed.Load(),
	}
}
