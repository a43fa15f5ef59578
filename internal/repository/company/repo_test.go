package company

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/domain/company"
	"github.com/kailas-cloud/resumatch/internal/domain/match/filter"
)

func names(ms []company.Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestSearch_TwoClosestAscending(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = corpusStore(
		map[string]float64{"far": 0.9, "near": 0.1, "mid": 0.5},
		[]string{"far", "near", "mid"},
	)

	got, err := repo.Search(context.Background(), domain.Vector{1, 0}, filter.Compiled{}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names(got), []string{"near", "mid"}) {
		t.Fatalf("got %v, want [near mid]", names(got))
	}
	if got[0].Distance != 0.1 || math.Abs(got[0].Similarity-0.9) > 1e-12 {
		t.Errorf("first match distance/similarity = %v/%v", got[0].Distance, got[0].Similarity)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = corpusStore(
		map[string]float64{"a": 0.3, "b": 0.3, "c": 0.2},
		[]string{"a", "b", "c"},
	)

	first, err := repo.Search(context.Background(), domain.Vector{1}, filter.Compiled{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := repo.Search(context.Background(), domain.Vector{1}, filter.Compiled{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between calls: %v vs %v", names(first), names(second))
	}
	if !reflect.DeepEqual(names(first), []string{"c", "a", "b"}) {
		t.Errorf("ties must keep store order, got %v", names(first))
	}
}

func TestSearch_PassesQuery(t *testing.T) {
	spec, err := filter.NewSpec([]string{"ai"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	compiled := filter.Compile(spec)

	ms := &mockStore{}
	repo := New(ms, domain.DistanceInnerProduct)
	var got *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}

	if _, err := repo.Search(context.Background(), domain.Vector{1, 2}, compiled, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 100 || got.Metric != domain.DistanceInnerProduct || len(got.Filters.Predicates()) != 1 {
		t.Errorf("unexpected query: %+v", got)
	}
}

func TestSearch_InvalidLimit(t *testing.T) {
	repo, ms := newTestRepo(t)
	for _, limit := range []int{0, -3} {
		_, err := repo.Search(context.Background(), domain.Vector{1}, filter.Compiled{}, limit)
		if !errors.Is(err, domain.ErrInvalidLimit) {
			t.Errorf("limit %d: expected ErrInvalidLimit, got %v", limit, err)
		}
	}
	if ms.calls != 0 {
		t.Error("store must not be queried with an invalid limit")
	}
}

func TestSearch_UnavailableMapsToSearchUnavailable(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrUnavailable}
	}

	_, err := repo.Search(context.Background(), domain.Vector{1}, filter.Compiled{}, 3)
	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable, got %v", err)
	}
	if ms.calls != 1 {
		t.Errorf("search must not retry, store called %d times", ms.calls)
	}
}

func TestSearch_OtherErrorsStayUnclassified(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: domain.NewDimensionMismatch(1024, 3)}
	}

	_, err := repo.Search(context.Background(), domain.Vector{1, 2, 3}, filter.Compiled{}, 3)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if errors.Is(err, domain.ErrSearchUnavailable) {
		t.Error("dimension drift is not an availability problem")
	}
}

func TestUpsert(t *testing.T) {
	repo, ms := newTestRepo(t)
	var stored *company.Record
	ms.upsertFn = func(_ context.Context, r *company.Record) (bool, error) {
		stored = r
		return false, nil
	}

	rec := &company.Record{Name: "Alpha"}
	created, err := repo.Upsert(context.Background(), rec)
	if err != nil || created {
		t.Fatalf("Upsert = %v, %v", created, err)
	}
	if stored != rec {
		t.Error("record not forwarded")
	}

	ms.upsertFn = func(context.Context, *company.Record) (bool, error) {
		return false, db.ErrUnavailable
	}
	if _, err := repo.Upsert(context.Background(), rec); !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Errorf("expected ErrSearchUnavailable, got %v", err)
	}
}
