package metrics

import "github.com/prometheus/client_golang/prometheus"

// Text generation metrics for the résumé rewrite and cover letter routes.
var (
	// task is "rewrite" or "cover_letter"; outcome is "ok", "throttled" or "error".
	AssistRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assist_requests_total",
			Help:      "Text generation requests by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	AssistTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assist_tokens_total",
			Help:      "Text generation tokens by task and direction",
		},
		[]string{"task", "direction"},
	)
)
