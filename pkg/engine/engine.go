// Package engine is the query service: it owns the graph, the procedure
// catalog and the ambient stack, and opens one result per query.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/config"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/metrics"
	"github.com/dd0wney/cluso-cypher/pkg/plan"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
	"github.com/dd0wney/cluso-cypher/pkg/result"
	"github.com/dd0wney/cluso-cypher/pkg/rewrite"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// TracerName identifies the engine's spans
const TracerName = "github.com/dd0wney/cluso-cypher/pkg/engine"

// Engine runs queries against one graph. It is safe for concurrent use;
// each query gets its own arena, plan and transaction.
type Engine struct {
	graph   graph.Graph
	catalog procedure.Catalog
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
	started time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger; the default discards everything
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider records spans through tp
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(TracerName) }
}

// WithCatalog replaces the built-in procedure catalog
func WithCatalog(c procedure.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// New creates an engine over g. A nil cfg means config.Default().
func New(g graph.Graph, cfg *config.Config, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine: nil graph")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e := &Engine{
		graph:   g,
		catalog: procedure.NewBuiltinRegistry(),
		cfg:     cfg,
		logger:  logging.NewNopLogger(),
		tracer:  noop.NewTracerProvider().Tracer(TracerName),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewRegistryWithNamespace(cfg.MetricsNamespace)
	}
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() *config.Config { return e.cfg }

// Metrics returns the registry the engine records into
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// Catalog returns the procedure catalog
func (e *Engine) Catalog() procedure.Catalog { return e.catalog }

// Run compiles query and opens its rows. Compile failures are returned
// here; the caller must Close the rows otherwise.
func (e *Engine) Run(ctx context.Context, query string, params map[string]value.Value) (*Rows, error) {
	id := uuid.NewString()
	log := e.logger.With(logging.QueryID(id))

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	ctx, span := e.tracer.Start(ctx, "cypher.query", trace.WithAttributes(
		attribute.String("query.id", id),
		attribute.String("query.text", query),
	))

	e.metrics.QueriesInFlight.Inc()
	res, err := result.Open(ctx, e.source(ctx), query, e.resultOptions(log, params)...)
	if err != nil {
		e.metrics.QueriesInFlight.Dec()
		e.compileFailed(log, span, query, err)
		cancel()
		return nil, err
	}

	kind := queryKind(res)
	span.SetAttributes(attribute.String("query.kind", kind))
	e.metrics.RecordCompile(res.CompileDuration())
	log.Debug("query compiled",
		logging.Query(query),
		logging.Phase("compile"),
		logging.String("kind", kind),
		logging.Latency(res.CompileDuration()),
	)

	return &Rows{
		res:     res,
		engine:  e,
		log:     log,
		span:    span,
		cancel:  cancel,
		query:   query,
		kind:    kind,
		start:   time.Now(),
		maxRows: int64(e.cfg.MaxRows),
	}, nil
}

// Collect runs query to the end and returns its header and rows
func (e *Engine) Collect(ctx context.Context, query string, params map[string]value.Value) ([]string, [][]result.Value, error) {
	rows, err := e.Run(ctx, query, params)
	if err != nil {
		return nil, nil, err
	}
	var out [][]result.Value
	for ; rows.Valid(); rows.Next() {
		out = append(out, rows.Row())
	}
	err = rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return rows.Header(), out, err
}

func (e *Engine) source(ctx context.Context) result.Source {
	return result.Source{
		Begin: func(readOnly bool) (graph.Txn, error) {
			return e.graph.Begin(ctx, readOnly)
		},
		Schema:  e.graph.Schema(),
		Catalog: e.catalog,
	}
}

func (e *Engine) resultOptions(log logging.Logger, params map[string]value.Value) []result.Option {
	popts := []rewrite.Option{
		rewrite.WithLogger(log),
		rewrite.WithObserver(e.metrics.RecordRewritePass),
	}
	if !e.cfg.Pushdown {
		popts = append(popts, rewrite.WithoutPushdown())
	}
	opts := []result.Option{
		result.WithLogger(log),
		result.WithPipeline(rewrite.NewPipeline(popts...)),
		result.WithParams(params),
		result.WithTracer(e.tracer),
	}
	if !e.cfg.Profile {
		opts = append(opts, result.WithoutProfile())
	}
	return opts
}

func (e *Engine) compileFailed(log logging.Logger, span trace.Span, query string, err error) {
	var be *plan.BuildError
	if errors.As(err, &be) {
		e.metrics.RecordBuildError(be.Code.String())
	}
	e.metrics.RecordQuery(KindInvalid, metrics.StatusError, 0, 0)
	log.Error("query failed to compile", logging.Query(query), logging.Error(err))
	span.RecordError(err)
	span.End()
}

// Query kinds used as metric labels
const (
	KindRead    = "read"
	KindWrite   = "write"
	KindExplain = "explain"
	KindProfile = "profile"
	KindInvalid = "invalid"
)

func queryKind(r *result.Result) string {
	switch r.Mode() {
	case ast.ModeExplain:
		return KindExplain
	case ast.ModeProfile:
		return KindProfile
	}
	if r.ReadOnly() {
		return KindRead
	}
	return KindWrite
}
