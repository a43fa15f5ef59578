package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and match metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Corpus nearest-neighbour query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of rows returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		},
	)

	// tier is "anonymous" or "authenticated"; outcome is "ok" or the failing stage.
	MatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Match requests by access tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Corpus records processed by the ingest command",
		},
		[]string{"result"},
	)
)

// Tier returns the label value for an access tier.
func Tier(authenticated bool) string {
	if authenticated {
		return "authenticated"
	}
	return "anonymous"
}
