// Package company holds the corpus entities matched against résumés.
package company

import "github.com/kailas-cloud/resumatch/internal/domain"

// Record is a persisted corpus entry. The match path only reads it.
type Record struct {
	Name          string
	FoundedYear   int
	Location      string
	Industry      string
	LatestFunding string
	Website       string
	LinkedIn      string
	Description   string
	EmbeddingText string
	Embedding     domain.Vector
}

// Match is a Record projection ranked against a query vector.
type Match struct {
	Name          string
	FoundedYear   int
	Location      string
	Industry      string
	LatestFunding string
	Website       string
	LinkedIn      string
	Description   string

	// Distance is the raw pgvector operator result for the configured metric.
	Distance float64
	// Similarity is 1 - Distance. Its scale depends on the store's distance metric
	// (cosine or negated inner product). It is not a provider confidence score.
	Similarity float64
}

// NewMatch builds a Match from store columns and a distance.
func NewMatch(r Record, distance float64) Match {
	return Match{
		Name:          r.Name,
		FoundedYear:   r.FoundedYear,
		Location:      r.Location,
		Industry:      r.Industry,
		LatestFunding: r.LatestFunding,
		Website:       r.Website,
		LinkedIn:      r.LinkedIn,
		Description:   r.Description,
		Distance:      distance,
		Similarity:    1 - distance,
	}
}
