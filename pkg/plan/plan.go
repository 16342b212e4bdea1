// Package plan compiles a rewritten query into a tree of pull-based
// operators.
//
// Build never panics on user input and never returns a partial tree: it
// reports an ErrorCode, and the matching message is read with ErrorMsg.
// Every operator is allocated from the plan's own arena, so Close releases
// the whole tree in one step.
package plan

import (
	"fmt"
	"strconv"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
)

// ErrorCode classifies a failed Build
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeUnboundVariable
	CodeVariableAlreadyBound
	CodeUnknownFunction
	CodeArity
	CodeAggregateMisuse
	CodeUnknownLabel
	CodeUnknownRelationshipType
	CodeUnknownPropertyKey
	CodeUnknownProcedure
	CodeUnsupported
)

var codeNames = [...]string{
	CodeOK:                      "OK",
	CodeUnboundVariable:         "UnboundVariable",
	CodeVariableAlreadyBound:    "VariableAlreadyBound",
	CodeUnknownFunction:         "UnknownFunction",
	CodeArity:                   "Arity",
	CodeAggregateMisuse:         "AggregateMisuse",
	CodeUnknownLabel:            "UnknownLabel",
	CodeUnknownRelationshipType: "UnknownRelationshipType",
	CodeUnknownPropertyKey:      "UnknownPropertyKey",
	CodeUnknownProcedure:        "UnknownProcedure",
	CodeUnsupported:             "Unsupported",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "ErrorCode(" + strconv.Itoa(int(c)) + ")"
}

// BuildError carries a failed Build's code and message as an error
type BuildError struct {
	Code ErrorCode
	Msg  string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("plan %s: %s", e.Code, e.Msg)
}

func buildErr(code ErrorCode, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Column is one output column. Alias is empty when the projection did not
// name it.
type Column struct {
	Name  string
	Alias string
}

// Header returns the alias, falling back to the name
func (c Column) Header() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// ResultInfo describes the rows a plan produces
type ResultInfo struct {
	Columns []Column
	// Slots[i] is the record slot holding column i
	Slots []int
}

// Header returns the column headers in declaration order
func (r ResultInfo) Header() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Header()
	}
	return out
}

// ExecutionPlan is a compiled query
type ExecutionPlan struct {
	schema  graph.Schema
	catalog procedure.Catalog
	logger  logging.Logger

	arena    *arena.Arena
	record   *exec.Record
	root     exec.Operator
	patterns []*PatternGraph
	result   ResultInfo
	readOnly bool

	code ErrorCode
	msg  string
}

// Option configures an ExecutionPlan
type Option func(*ExecutionPlan)

// WithLogger logs the rendered plan at debug level after a successful build
func WithLogger(l logging.Logger) Option {
	return func(p *ExecutionPlan) { p.logger = l }
}

// New creates an empty plan. schema may be nil, in which case names are
// not checked against it.
func New(schema graph.Schema, catalog procedure.Catalog, opts ...Option) *ExecutionPlan {
	p := &ExecutionPlan{
		schema:  schema,
		catalog: catalog,
		logger:  logging.NewNopLogger(),
		arena:   arena.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build compiles q, replacing whatever the plan held before
func (p *ExecutionPlan) Build(q *ast.Query) ErrorCode {
	p.reset()
	b := newBuilder(p)
	root, err := b.build(q)
	if err != nil {
		p.arena.Reset()
		p.code, p.msg = err.Code, err.Msg
		return p.code
	}
	p.root = root
	p.record.Values = make([]exec.Entry, b.nslots)
	p.patterns = b.patterns
	p.result = b.result
	p.readOnly = b.readOnly
	if logging.Enabled(p.logger, logging.DebugLevel) {
		p.logger.Debug("plan built", logging.Phase("build"), logging.String("plan", p.DumpPlan()))
	}
	return CodeOK
}

func (p *ExecutionPlan) reset() {
	p.arena.Reset()
	p.record = &exec.Record{}
	p.root = nil
	p.patterns = nil
	p.result = ResultInfo{}
	p.readOnly = true
	p.code, p.msg = CodeOK, ""
}

// ErrorMsg describes the last Build failure
func (p *ExecutionPlan) ErrorMsg() string { return p.msg }

// Err returns the last Build failure as a *BuildError, or nil
func (p *ExecutionPlan) Err() error {
	if p.code == CodeOK {
		return nil
	}
	return &BuildError{Code: p.code, Msg: p.msg}
}

func (p *ExecutionPlan) Root() exec.Operator        { return p.root }
func (p *ExecutionPlan) Record() *exec.Record       { return p.record }
func (p *ExecutionPlan) ResultInfo() ResultInfo     { return p.result }
func (p *ExecutionPlan) Patterns() []*PatternGraph  { return p.patterns }
func (p *ExecutionPlan) ReadOnly() bool             { return p.readOnly }
func (p *ExecutionPlan) Arena() *arena.Arena        { return p.arena }
func (p *ExecutionPlan) Catalog() procedure.Catalog { return p.catalog }

// Execute initializes the operator tree and performs the first pull
func (p *ExecutionPlan) Execute(rt *exec.Runtime) (exec.OpResult, error) {
	if p.root == nil {
		return exec.OpDepleted, p.Err()
	}
	if err := p.root.Initialize(rt); err != nil {
		return exec.OpDepleted, err
	}
	return exec.Pull(rt, p.root)
}

// Pull produces the next row after Execute
func (p *ExecutionPlan) Pull(rt *exec.Runtime) (exec.OpResult, error) {
	if p.root == nil {
		return exec.OpDepleted, p.Err()
	}
	return exec.Pull(rt, p.root)
}

// Close tears down the operator tree, releasing storage cursors
func (p *ExecutionPlan) Close() {
	p.arena.Teardown()
	p.root = nil
}
