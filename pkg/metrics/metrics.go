package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RecordCompile records the time spent turning query text into a plan
func (r *Registry) RecordCompile(duration time.Duration) {
	r.CompileDuration.Observe(duration.Seconds())
}

// RecordQuery records a finished query
func (r *Registry) RecordQuery(kind, status string, duration time.Duration, rows int64) {
	r.QueriesTotal.WithLabelValues(kind, status).Inc()
	r.ExecuteDuration.WithLabelValues(kind).Observe(duration.Seconds())
	r.RowsReturned.Observe(float64(rows))
}

// RecordSlowQuery counts a query that crossed the slow threshold
func (r *Registry) RecordSlowQuery(kind string) {
	r.SlowQueries.WithLabelValues(kind).Inc()
}

// RecordRewritePass records one rewrite pass; its signature fits
// rewrite.Observer
func (r *Registry) RecordRewritePass(pass string, duration time.Duration) {
	r.RewritePassDuration.WithLabelValues(pass).Observe(duration.Seconds())
}

// RecordBuildError counts a failed plan build
func (r *Registry) RecordBuildError(code string) {
	r.PlanBuildErrors.WithLabelValues(code).Inc()
}

// UpdateSystemMetrics refreshes the process gauges
func (r *Registry) UpdateSystemMetrics(start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(start).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// WriteFile writes every metric to path in the text exposition format
func (r *Registry) WriteFile(path string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return prometheus.WriteToTextfile(path, r.registry)
}
