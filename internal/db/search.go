package db

import (
	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	Vector  domain.Vector
	Filters filter.Compiled
	Limit   int
	Metric  domain.DistanceMetric
}

// SearchResult is the output of a search operation, ordered by ascending distance.
type SearchResult struct {
	Entries []SearchEntry
}

// SearchEntry is a single corpus hit. Record.Embedding is never populated.
type SearchEntry struct {
	Record   company.Record
	Distance float64
}
