package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Search
// =============================================================================

var (
	// searchRuns counts finished searches.
	// Labels: engine, outcome (solved, failed, cancelled, errored)
	searchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftplan",
		Subsystem: "search",
		Name:      "runs_total",
		Help:      "Total searches by engine and outcome",
	}, []string{"engine", "outcome"})

	// searchNodes counts node events.
	// Labels: engine, event (expanded, evaluated, generated, reopened, dead_end)
	searchNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftplan",
		Subsystem: "search",
		Name:      "nodes_total",
		Help:      "Search node events by engine",
	}, []string{"engine", "event"})

	// searchActions counts ground actions produced by the successor
	// generator.
	searchActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liftplan",
		Subsystem: "search",
		Name:      "generated_actions_total",
		Help:      "Applicable actions generated during search",
	}, []string{"engine"})

	// searchDuration measures wall time per search.
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "liftplan",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Search wall time in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"engine"})
)

// recordSearch mirrors the statistics of one finished search.
func recordSearch(engine, outcome string, s Statistics, elapsed time.Duration) {
	searchRuns.WithLabelValues(engine, outcome).Inc()
	searchNodes.WithLabelValues(engine, "expanded").Add(float64(s.Expanded))
	searchNodes.WithLabelValues(engine, "evaluated").Add(float64(s.Evaluated))
	searchNodes.WithLabelValues(engine, "generated").Add(float64(s.Generated))
	searchNodes.WithLabelValues(engine, "reopened").Add(float64(s.Reopened))
	searchNodes.WithLabelValues(engine, "dead_end").Add(float64(s.DeadEnds))
	searchActions.WithLabelValues(engine).Add(float64(s.GeneratedActions))
	searchDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}
