package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/graph/memgraph"
	"github.com/dd0wney/cluso-cypher/pkg/parser"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// fixture ids in load order
const (
	alice  graph.VertexID = 1
	bob    graph.VertexID = 2
	carol  graph.VertexID = 3
	berlin graph.VertexID = 4
)

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	g, err := memgraph.LoadFixtureFile("../graph/memgraph/testdata/social.yaml")
	require.NoError(t, err)
	txn, err := g.Begin(context.Background(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = txn.Rollback() })
	return &Runtime{Ctx: context.Background(), Txn: txn, Schema: g.Schema(), Params: map[string]value.Value{}}
}

// drain pulls op until it is depleted and returns a copy of every row
func drain(t *testing.T, rt *Runtime, rec *Record, op Operator) [][]Entry {
	t.Helper()
	rows, err := tryDrain(rt, rec, op)
	require.NoError(t, err)
	return rows
}

func tryDrain(rt *Runtime, rec *Record, op Operator) ([][]Entry, error) {
	if err := op.Initialize(rt); err != nil {
		return nil, err
	}
	var rows [][]Entry
	for {
		res, err := Pull(rt, op)
		if err != nil {
			return rows, err
		}
		if res != OpOK {
			return rows, nil
		}
		rows = append(rows, rec.Snapshot())
	}
}

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	q, err := parser.Parse(arena.New(), "RETURN "+src)
	require.NoError(t, err)
	return q.Clauses[0].(*ast.Return).Projection.Items[0].Expr
}

func compileExpr(t *testing.T, src string, scope MapScope) *Expression {
	t.Helper()
	e, err := CompileExpr(parseExpr(t, src), scope)
	require.NoError(t, err)
	return e
}

func vertexColumn(rows [][]Entry, slot int) []graph.VertexID {
	out := make([]graph.VertexID, len(rows))
	for i, r := range rows {
		if r[slot].IsNull() {
			out[i] = 0
			continue
		}
		out[i] = r[slot].Vertex
	}
	return out
}
