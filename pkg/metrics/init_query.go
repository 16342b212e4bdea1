package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "queries_total",
			Help:      "Total number of queries by kind (read, write, explain, profile) and status",
		},
		[]string{"kind", "status"},
	)

	r.QueriesInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: r.namespace,
			Name:      "queries_in_flight",
			Help:      "Number of queries with an open result",
		},
	)

	r.CompileDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent parsing, rewriting and building a plan",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.ExecuteDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "execute_duration_seconds",
			Help:      "Time from the first pull to the end of the result",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"kind"},
	)

	r.RowsReturned = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "rows_returned",
			Help:      "Number of rows produced per query",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "slow_queries_total",
			Help:      "Total number of queries slower than the configured threshold",
		},
		[]string{"kind"},
	)

	r.RewritePassDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "rewrite_pass_duration_seconds",
			Help:      "Duration of each AST rewrite pass",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
		[]string{"pass"},
	)

	r.PlanBuildErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "plan_build_errors_total",
			Help:      "Total number of plan builds that failed, by error code",
		},
		[]string{"code"},
	)
}
