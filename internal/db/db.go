package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain/company"
)

// Store is the corpus database facade.
type Store interface {
	Pinger
	Searcher
	CompanyWriter
	Close() error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs nearest-neighbour queries over the corpus.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// CompanyWriter upserts corpus records (ingest path only).
type CompanyWriter interface {
	UpsertCompany(ctx context.Context, r *company.Record) (created bool, err error)
}

// KVStore provides the counter operations used for budget persistence.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
