// Package metrics exposes the operational counters/gauges for the running
// server via github.com/prometheus/client_golang.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ShotsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navark_shots_resolved_total",
		Help: "Total shots resolved, partitioned by shot type and outcome.",
	}, []string{"shot_type", "hit"})

	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navark_active_matches",
		Help: "Number of matches currently in_progress.",
	})

	MatchesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navark_matches_abandoned_total",
		Help: "Total matches removed due to every participant abandoning.",
	})

	TurnTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navark_turn_timeouts_total",
		Help: "Total turns that expired without a shot being fired.",
	})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "navark_match_duration_seconds",
		Help:    "Wall-clock duration of finished matches, from creation to finish.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	})
)

// Handler exposes the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
