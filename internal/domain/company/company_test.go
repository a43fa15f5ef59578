package company

import (
	"math"
	"testing"
)

func TestNewMatch_SimilarityIsOneMinusDistance(t *testing.T) {
	r := Record{Name: "Acme", Industry: "fintech", FoundedYear: 2019}

	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.1, 0.9},
		{0.5, 0.5},
		{1.2, -0.2},
	}
	for _, tc := range tests {
		m := NewMatch(r, tc.distance)
		if math.Abs(m.Similarity-tc.want) > 1e-9 {
			t.Errorf("distance %v: similarity = %v, want %v", tc.distance, m.Similarity, tc.want)
		}
		if m.Distance != tc.distance {
			t.Errorf("distance = %v, want %v", m.Distance, tc.distance)
		}
	}
}

func TestNewMatch_CopiesRecordFields(t *testing.T) {
	r := Record{
		Name: "Acme", FoundedYear: 2019, Location: "Berlin", Industry: "fintech",
		LatestFunding: "Series A", Website: "https://acme.io", LinkedIn: "https://linkedin.com/company/acme",
		Description: "payments", EmbeddingText: "ignored",
	}
	m := NewMatch(r, 0.3)
	if m.Name != r.Name || m.Location != r.Location || m.LatestFunding != r.LatestFunding ||
		m.Website != r.Website || m.LinkedIn != r.LinkedIn || m.Description != r.Description ||
		m.FoundedYear != r.FoundedYear || m.Industry != r.Industry {
		t.Errorf("fields not copied: %+v", m)
	}
}
