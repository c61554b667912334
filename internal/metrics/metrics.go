// Package metrics exposes the latency-monitor counters. Collectors are
// registered once at process start (promauto); the match service and the
// HTTP middleware record into them as a side channel after the authoritative
// result is computed.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astropair_match_request_duration_seconds",
			Help:    "Match service operation latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	slowRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astropair_match_slow_requests_total",
			Help: "Operations that exceeded the configured latency target",
		},
		[]string{"operation"},
	)

	scoresComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "astropair_scores_computed_total",
			Help: "Compatibility scores computed successfully",
		},
	)

	scoreFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "astropair_score_fallbacks_total",
			Help: "Batch entries that settled on the neutral fallback score",
		},
	)

	listCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astropair_list_cache_requests_total",
			Help: "Candidate list cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

func ObserveRequest(operation string, elapsed time.Duration) {
	requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func CountSlowRequest(operation string) {
	slowRequests.WithLabelValues(operation).Inc()
}

func CountScores(succeeded, fallback int) {
	scoresComputed.Add(float64(succeeded))
	scoreFallbacks.Add(float64(fallback))
}

func CountListCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	listCacheHits.WithLabelValues(outcome).Inc()
}
