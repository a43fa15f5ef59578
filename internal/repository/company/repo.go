// Package company reads and writes the corpus through a db store.
package company

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// store is the consumer interface for corpus operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	UpsertCompany(ctx context.Context, r *company.Record) (bool, error)
}

// Repo implements usecase/match.Searcher and usecase/ingest.Writer.
type Repo struct {
	store  store
	metric domain.DistanceMetric
}

// New creates a company repository ranking by the given metric.
func New(s store, metric domain.DistanceMetric) *Repo {
	return &Repo{store: s, metric: metric}
}

// Search ranks the corpus against vector, restricted by filters, and returns
// at most limit matches in ascending distance.
func (r *Repo) Search(
	ctx context.Context, vector domain.Vector, filters filter.Compiled, limit int,
) ([]company.Match, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("search limit %d: %w", limit, domain.ErrInvalidLimit)
	}

	start := time.Now()
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		Vector:  vector,
		Filters: filters,
		Limit:   limit,
		Metric:  r.metric,
	})
	if err != nil {
		metrics.SearchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, mapStoreError(err)
	}
	metrics.SearchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(sr.Entries)))

	matches := make([]company.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		matches = append(matches, company.NewMatch(e.Record, e.Distance))
	}
	return matches, nil
}

// Upsert stores a record keyed by company name.
func (r *Repo) Upsert(ctx context.Context, rec *company.Record) (bool, error) {
	created, err := r.store.UpsertCompany(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", rec.Name, mapStoreError(err))
	}
	return created, nil
}

// mapStoreError lifts connectivity failures into ErrSearchUnavailable.
// Anything else (dimension drift, bad SQL) stays as is and surfaces as a
// server error.
func mapStoreError(err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return fmt.Errorf("store: %w", err)
}
