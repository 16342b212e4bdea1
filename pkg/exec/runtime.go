// Package exec implements the pull-based operators an execution plan is
// made of, together with the shared record they fill and the expression
// evaluator they use.
//
// Every operator obeys the same protocol: a call to Consume either leaves
// exactly one new row in the shared Record and returns OpOK, or returns
// OpDepleted when no further row exists. OpRefresh is reserved for an
// operator telling its parent that its current input binding is spent and
// it needs the child re-pulled. Runtime failures are returned as errors and
// travel untouched to whoever drives the root.
package exec

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

var (
	ErrCancelled     = errors.New("query cancelled")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrMissingParam  = errors.New("missing parameter")
	ErrDivideByZero  = errors.New("division by zero")
	ErrEntityDeleted = errors.New("entity was deleted")
)

// RuntimeError is a failure raised while pulling rows
type RuntimeError struct {
	Op    string
	Cause error
}

func (e *RuntimeError) Error() string {
	if e.Op == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

func runtimeErr(op string, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &RuntimeError{Op: op, Cause: err}
}

func typeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

// Stats counts the effects of write operators
type Stats struct {
	VerticesCreated int
	EdgesCreated    int
	PropertiesSet   int
	VerticesDeleted int
	EdgesDeleted    int
}

// Any reports whether anything was written
func (s *Stats) Any() bool {
	return s.VerticesCreated+s.EdgesCreated+s.PropertiesSet+s.VerticesDeleted+s.EdgesDeleted > 0
}

// Summary renders the write statistics as one line
func (s *Stats) Summary() string {
	out := fmt.Sprintf("created %d vertices, created %d edges.", s.VerticesCreated, s.EdgesCreated)
	if s.PropertiesSet > 0 {
		out += fmt.Sprintf(" set %d properties.", s.PropertiesSet)
	}
	if s.VerticesDeleted+s.EdgesDeleted > 0 {
		out += fmt.Sprintf(" deleted %d vertices, deleted %d edges.", s.VerticesDeleted, s.EdgesDeleted)
	}
	return out
}

// Runtime is what operators reach while they run. One Runtime serves one
// query on one goroutine.
type Runtime struct {
	Ctx     context.Context
	Txn     graph.Txn
	Schema  graph.Schema
	Catalog procedure.Catalog
	Params  map[string]value.Value
	Stats   Stats
	Profile bool
}

// CheckCancelled returns ErrCancelled once the query context is done
func (rt *Runtime) CheckCancelled() error {
	if rt.Ctx == nil {
		return nil
	}
	select {
	case <-rt.Ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, rt.Ctx.Err())
	default:
		return nil
	}
}

// vertex fetches a vertex by id through the transaction
func (rt *Runtime) vertex(id graph.VertexID) (*graph.Vertex, error) {
	v, err := rt.Txn.GetVertex(id)
	if err != nil {
		if errors.Is(err, graph.ErrVertexNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrEntityDeleted, err)
		}
		return nil, err
	}
	return v, nil
}

func (rt *Runtime) edge(id graph.EdgeID) (*graph.Edge, error) {
	e, err := rt.Txn.GetEdge(id)
	if err != nil {
		if errors.Is(err, graph.ErrEdgeNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrEntityDeleted, err)
		}
		return nil, err
	}
	return e, nil
}
