// Package result drives one query from text to rows: parse, rewrite,
// build, then a forward-only iterator over materialized rows.
package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/parser"
	"github.com/dd0wney/cluso-cypher/pkg/plan"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
	"github.com/dd0wney/cluso-cypher/pkg/rewrite"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Source is what a query runs against. Txn is owned by the Result from
// Open on and released by Close. When Txn is nil, Begin opens it once the
// query is parsed, read-only unless the query writes.
type Source struct {
	Txn     graph.Txn
	Begin   func(readOnly bool) (graph.Txn, error)
	Schema  graph.Schema
	Catalog procedure.Catalog
}

type options struct {
	logger   logging.Logger
	pipeline *rewrite.Pipeline
	params   map[string]value.Value
	tracer   trace.Tracer

	noProfile bool
}

// ErrProfileDisabled rejects PROFILE when WithoutProfile is set
var ErrProfileDisabled = errors.New("result: PROFILE is disabled")

// Option configures Open
type Option func(*options)

// WithLogger sets the logger handed to the rewrite pipeline and the plan
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPipeline replaces the standard rewrite pipeline
func WithPipeline(p *rewrite.Pipeline) Option {
	return func(o *options) { o.pipeline = p }
}

// WithParams supplies the values of $name parameters
func WithParams(params map[string]value.Value) Option {
	return func(o *options) { o.params = params }
}

// WithTracer records a span for each compile phase
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithoutProfile makes Open reject PROFILE statements before they run
func WithoutProfile() Option {
	return func(o *options) { o.noProfile = true }
}

// Result is one query's row iterator. It is not safe for concurrent use.
//
//	r, err := result.Open(ctx, src, "MATCH (n) RETURN n")
//	if err != nil { ... }
//	defer r.Close()
//	for ; r.Valid(); r.Next() {
//		row := r.Row()
//	}
//	if err := r.Err(); err != nil { ... }
type Result struct {
	src    Source
	astA   *arena.Arena
	query  *ast.Query
	plan   *plan.ExecutionPlan
	rt     *exec.Runtime
	header []string
	row    []Value
	valid  bool
	rows   int64
	err    error
	closed bool

	compileTook time.Duration
}

// Open compiles query and positions the result on its first row. Parse,
// rewrite and build failures are returned here and release src.Txn;
// failures while iterating are reported by Err.
func Open(ctx context.Context, src Source, query string, opts ...Option) (*Result, error) {
	o := options{logger: logging.NewNopLogger(), tracer: noop.NewTracerProvider().Tracer("")}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pipeline == nil {
		o.pipeline = rewrite.NewPipeline(rewrite.WithLogger(o.logger))
	}

	r := &Result{src: src, astA: arena.New()}
	start := time.Now()
	err := r.compile(ctx, query, o)
	r.compileTook = time.Since(start)
	if err != nil {
		r.astA.Teardown()
		if r.plan != nil {
			r.plan.Close()
		}
		if r.src.Txn != nil {
			_ = r.src.Txn.Rollback()
		}
		return nil, err
	}

	r.rt = &exec.Runtime{
		Ctx:     ctx,
		Txn:     r.src.Txn,
		Schema:  src.Schema,
		Catalog: src.Catalog,
		Params:  o.params,
		Profile: r.query.Mode == ast.ModeProfile,
	}
	if r.rt.Params == nil {
		r.rt.Params = map[string]value.Value{}
	}

	switch r.query.Mode {
	case ast.ModeExplain:
		r.single(plan.PlanColumn, r.plan.DumpPlan())
	case ast.ModeProfile:
		r.profile()
	default:
		r.header = r.plan.ResultInfo().Header()
		res, err := r.plan.Execute(r.rt)
		r.advance(res, err)
	}
	return r, nil
}

func (r *Result) compile(ctx context.Context, query string, o options) error {
	_, span := o.tracer.Start(ctx, "parse")
	q, err := parser.Parse(r.astA, query)
	endSpan(span, err)
	if err != nil {
		return err
	}
	r.query = q
	if q.Mode == ast.ModeProfile && o.noProfile {
		return ErrProfileDisabled
	}

	if r.src.Txn == nil {
		if r.src.Begin == nil {
			return errors.New("result: source has neither a transaction nor a way to begin one")
		}
		txn, err := r.src.Begin(plan.DetermineReadOnly(q, r.src.Catalog))
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		r.src.Txn = txn
	}

	_, span = o.tracer.Start(ctx, "rewrite")
	rctx := &rewrite.Context{Arena: r.astA, Catalog: r.src.Catalog, Schema: r.src.Schema}
	err = o.pipeline.Run(rctx, q)
	endSpan(span, err)
	if err != nil {
		return err
	}

	_, span = o.tracer.Start(ctx, "build")
	r.plan = plan.New(r.src.Schema, r.src.Catalog, plan.WithLogger(o.logger))
	if code := r.plan.Build(q); code != plan.CodeOK {
		err = r.plan.Err()
	}
	endSpan(span, err)
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// single makes the result one row of one string column
func (r *Result) single(column, text string) {
	r.header = []string{column}
	r.row = []Value{Scalar(value.String(text))}
	r.valid = true
}

// profile runs the plan to completion, then reports the annotated plan
func (r *Result) profile() {
	res, err := r.plan.Execute(r.rt)
	for err == nil && res == exec.OpOK {
		r.rows++
		res, err = r.plan.Pull(r.rt)
	}
	if err != nil {
		r.err = err
		r.header = []string{plan.ProfileColumn}
		return
	}
	r.single(plan.ProfileColumn, r.plan.DumpProfile())
}

func (r *Result) advance(res exec.OpResult, err error) {
	if err == nil && res == exec.OpOK {
		row, merr := r.materialize()
		if merr == nil {
			r.row, r.valid = row, true
			r.rows++
			return
		}
		err = merr
	}
	r.row, r.valid = nil, false
	if err != nil && r.err == nil {
		r.err = err
	}
}

// Next moves to the following row and reports whether there is one. It
// does nothing once the result is exhausted.
func (r *Result) Next() bool {
	if !r.valid {
		return false
	}
	if r.query.Mode != ast.ModeNormal {
		r.row, r.valid = nil, false
		return false
	}
	res, err := r.plan.Pull(r.rt)
	r.advance(res, err)
	return r.valid
}

// Valid reports whether Row holds a row
func (r *Result) Valid() bool { return r.valid }

// Row returns the current row. It is empty once the result is exhausted.
func (r *Result) Row() []Value { return r.row }

// Header returns the column names in order
func (r *Result) Header() []string { return r.header }

// Err returns the error that ended iteration early, if any
func (r *Result) Err() error { return r.err }

// Mode is the statement's execution mode
func (r *Result) Mode() ast.Mode { return r.query.Mode }

// ReadOnly reports whether the query writes nothing
func (r *Result) ReadOnly() bool { return r.plan.ReadOnly() }

// RowsProduced counts the rows the plan has produced so far; for PROFILE
// it is the row count of the profiled run
func (r *Result) RowsProduced() int64 { return r.rows }

// Stats returns the write statistics gathered so far
func (r *Result) Stats() exec.Stats { return r.rt.Stats }

// CompileDuration is the time Open spent parsing, rewriting and building
func (r *Result) CompileDuration() time.Duration { return r.compileTook }

// Plan exposes the compiled plan
func (r *Result) Plan() *plan.ExecutionPlan { return r.plan }

// Close tears the plan down and ends the transaction: a write that ran
// without error is committed, anything else is rolled back.
func (r *Result) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.plan.Close()
	r.astA.Teardown()
	r.row, r.valid = nil, false

	if r.src.Txn == nil {
		return nil
	}
	if r.err == nil && !r.src.Txn.ReadOnly() && r.query.Mode != ast.ModeExplain {
		if err := r.src.Txn.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	}
	return r.src.Txn.Rollback()
}

// materialize copies the result columns of the current record into
// self-contained values
func (r *Result) materialize() ([]Value, error) {
	info := r.plan.ResultInfo()
	rec := r.plan.Record()
	row := make([]Value, len(info.Slots))
	for i, slot := range info.Slots {
		v, err := r.convert(rec.Values[slot])
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func (r *Result) convert(e exec.Entry) (Value, error) {
	switch e.Kind {
	case exec.EntryConstant:
		return Scalar(e.Constant), nil
	case exec.EntryNode:
		if !e.Bound {
			return Null(), nil
		}
		return r.node(e.Vertex)
	case exec.EntryRelationship:
		if !e.Bound {
			return Null(), nil
		}
		return r.relationship(e.Edge)
	case exec.EntryPath:
		if e.Path == nil || len(e.Path.Vertices) == 0 {
			return Null(), nil
		}
		out := make([]Value, 0, len(e.Path.Vertices)+len(e.Path.Edges))
		for i, id := range e.Path.Vertices {
			n, err := r.node(id)
			if err != nil {
				return Value{}, err
			}
			out = append(out, n)
			if i < len(e.Path.Edges) {
				rel, err := r.relationship(e.Path.Edges[i])
				if err != nil {
					return Value{}, err
				}
				out = append(out, rel)
			}
		}
		return Value{Kind: KindPath, Path: out}, nil
	default:
		panic(fmt.Sprintf("result: cannot materialize %s entry", e.Kind))
	}
}

// node copies a vertex; one deleted by this query reads as null
func (r *Result) node(id graph.VertexID) (Value, error) {
	v, err := r.src.Txn.GetVertex(id)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return Null(), nil
	}
	if err != nil {
		return Value{}, err
	}
	return newNode(v), nil
}

func (r *Result) relationship(id graph.EdgeID) (Value, error) {
	e, err := r.src.Txn.GetEdge(id)
	if errors.Is(err, graph.ErrEdgeNotFound) {
		return Null(), nil
	}
	if err != nil {
		return Value{}, err
	}
	return newRelationship(e), nil
}
