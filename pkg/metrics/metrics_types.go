package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes metric names when none is configured
const DefaultNamespace = "cypher"

// Registry holds all metrics of the query engine
type Registry struct {
	// Query Metrics
	QueriesTotal        *prometheus.CounterVec
	QueriesInFlight     prometheus.Gauge
	CompileDuration     prometheus.Histogram
	ExecuteDuration     *prometheus.HistogramVec
	RowsReturned        prometheus.Histogram
	SlowQueries         *prometheus.CounterVec
	RewritePassDuration *prometheus.HistogramVec
	PlanBuildErrors     *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	namespace string
	registry  *prometheus.Registry
	mu        sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry under DefaultNamespace
func NewRegistry() *Registry {
	return NewRegistryWithNamespace(DefaultNamespace)
}

// NewRegistryWithNamespace creates a new metrics registry with all
// metrics initialized and their names prefixed by namespace
func NewRegistryWithNamespace(namespace string) *Registry {
	r := &Registry{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	r.initQueryMetrics()
	r.initSystemMetrics()

	return r
}

// Namespace returns the metric name prefix
func (r *Registry) Namespace() string {
	return r.namespace
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
