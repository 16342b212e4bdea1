// Package rewrite normalizes a parsed query in place before it is compiled.
//
// The pipeline runs four passes in a fixed order: yield synthesis for
// procedure calls, naming of anonymous pattern elements, disambiguation of
// node variables reused across the paths of one pattern, and pushdown of
// primary-key equalities from WHERE into the pattern. Every pass is a
// single synchronous traversal of the tree; the first failure aborts the
// pipeline.
package rewrite

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
)

// Synthetic variable prefixes. Names starting with '@' cannot be written
// in a query, so they never collide with user variables.
const (
	AnonNodePrefix = "@ANON_N"
	AnonEdgePrefix = "@ANON_R"
	AliasPrefix    = "@ALIAS_"
)

var ErrProcedureNotFound = errors.New("procedure not found")

// Code classifies a RewriteError
type Code int

const (
	CodeProcedureNotFound Code = iota + 1
	CodeUnknownYieldColumn
	CodeDuplicateYieldAlias
)

func (c Code) String() string {
	switch c {
	case CodeProcedureNotFound:
		return "ProcedureNotFound"
	case CodeUnknownYieldColumn:
		return "UnknownYieldColumn"
	case CodeDuplicateYieldAlias:
		return "DuplicateYieldAlias"
	default:
		return "Code(" + strconv.Itoa(int(c)) + ")"
	}
}

// RewriteError aborts a compile before any operator exists
type RewriteError struct {
	Pass  string
	Code  Code
	Msg   string
	Cause error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite %s: %s: %s", e.Pass, e.Code, e.Msg)
}

func (e *RewriteError) Unwrap() error { return e.Cause }

// Context carries what the passes share for one compile. Arena is the
// query's AST arena; Schema may be nil, in which case pushdown is skipped.
type Context struct {
	Arena   *arena.Arena
	Catalog procedure.Catalog
	Schema  graph.Schema

	seq int
}

// fresh returns prefix followed by the next value of the compile-wide
// counter
func (c *Context) fresh(prefix string) string {
	c.seq++
	return prefix + strconv.Itoa(c.seq)
}

// Pass is one tree rewrite
type Pass interface {
	Name() string
	Rewrite(ctx *Context, q *ast.Query) error
}

// Observer receives the duration of every completed pass
type Observer func(pass string, took time.Duration)

// Pipeline runs passes in order
type Pipeline struct {
	passes   []Pass
	logger   logging.Logger
	observer Observer
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger logs the AST after every pass at debug level
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver reports pass durations, e.g. to a metrics histogram
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithoutPushdown drops the schema-aware pushdown pass
func WithoutPushdown() Option {
	return func(p *Pipeline) {
		kept := p.passes[:0]
		for _, pass := range p.passes {
			if _, ok := pass.(Pushdown); !ok {
				kept = append(kept, pass)
			}
		}
		p.passes = kept
	}
}

// NewPipeline returns the standard four-pass pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		passes: []Pass{YieldSynthesis{}, AnonymousAliases{}, MultiPathDisambiguation{}, Pushdown{}},
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Passes returns the pass names in execution order
func (p *Pipeline) Passes() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return names
}

// Run rewrites q in place
func (p *Pipeline) Run(ctx *Context, q *ast.Query) error {
	for _, pass := range p.passes {
		timer := logging.StartTimer(p.logger, "rewrite pass done", logging.Pass(pass.Name()))
		if err := pass.Rewrite(ctx, q); err != nil {
			timer.EndWithLevel(logging.DebugLevel, "rewrite pass failed", logging.Error(err))
			return err
		}
		var fields []logging.Field
		if logging.Enabled(p.logger, logging.DebugLevel) {
			fields = append(fields, logging.String("ast", ast.Dump(q)))
		}
		took := timer.End(fields...)
		if p.observer != nil {
			p.observer(pass.Name(), took)
		}
	}
	return nil
}

// visitFunc adapts a per-node function into an ast.Visitor that keeps
// descending unless the function says otherwise
type visitFunc func(n ast.Node) (descend bool, err error)

func (f visitFunc) Visit(n ast.Node) (ast.Visitor, error) {
	if n == nil {
		return nil, nil
	}
	descend, err := f(n)
	if err != nil || !descend {
		return nil, err
	}
	return f, nil
}
