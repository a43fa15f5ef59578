package company

import (
	"context"
	"testing"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	upsertFn    func(ctx context.Context, r *company.Record) (bool, error)
	calls       int
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.calls++
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) UpsertCompany(ctx context.Context, r *company.Record) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, r)
	}
	return true, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, domain.DistanceCosine), ms
}

// corpusStore simulates the store's ranking over fixed distances so tests can
// check ordering and truncation without a database.
func corpusStore(distances map[string]float64, order []string) func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
	return func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		ranked := append([]string(nil), order...)
		// Stable insertion sort keeps insertion order on ties.
		for i := 1; i < len(ranked); i++ {
			for j := i; j > 0 && distances[ranked[j]] < distances[ranked[j-1]]; j-- {
				ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
			}
		}
		if len(ranked) > q.Limit {
			ranked = ranked[:q.Limit]
		}
		res := &db.SearchResult{}
		for _, name := range ranked {
			res.Entries = append(res.Entries, db.SearchEntry{
				Record:   company.Record{Name: name},
				Distance: distances[name],
			})
		}
		return res, nil
	}
}
