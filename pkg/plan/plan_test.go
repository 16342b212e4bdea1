package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/graph/memgraph"
	"github.com/dd0wney/cluso-cypher/pkg/parser"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
	"github.com/dd0wney/cluso-cypher/pkg/rewrite"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

func loadGraph(t *testing.T) *memgraph.Graph {
	t.Helper()
	g, err := memgraph.LoadFixtureFile("../graph/memgraph/testdata/social.yaml")
	require.NoError(t, err)
	return g
}

// parseRewrite parses src and runs the rewrite pipeline over it. The AST
// arena lives until the test ends.
func parseRewrite(t *testing.T, g *memgraph.Graph, catalog procedure.Catalog, src string) *ast.Query {
	t.Helper()
	a := arena.New()
	t.Cleanup(a.Teardown)
	q, err := parser.Parse(a, src)
	require.NoError(t, err, src)
	require.NoError(t, rewrite.NewPipeline().Run(&rewrite.Context{Arena: a, Catalog: catalog, Schema: g.Schema()}, q), src)
	return q
}

func buildPlan(t *testing.T, g *memgraph.Graph, src string) (*ExecutionPlan, ErrorCode) {
	t.Helper()
	catalog := procedure.NewBuiltinRegistry()
	q := parseRewrite(t, g, catalog, src)
	p := New(g.Schema(), catalog)
	t.Cleanup(p.Close)
	return p, p.Build(q)
}

func mustBuild(t *testing.T, g *memgraph.Graph, src string) *ExecutionPlan {
	t.Helper()
	p, code := buildPlan(t, g, src)
	require.Equal(t, CodeOK, code, "%s: %s", src, p.ErrorMsg())
	return p
}

// run executes p in a read-write transaction and rolls it back before
// returning the result columns of every row. Effects are never visible to
// a later run.
func run(t *testing.T, g *memgraph.Graph, p *ExecutionPlan) [][]exec.Entry {
	t.Helper()
	txn, err := g.Begin(context.Background(), false)
	require.NoError(t, err)
	defer func() { _ = txn.Rollback() }()
	rt := &exec.Runtime{
		Ctx:     context.Background(),
		Txn:     txn,
		Schema:  g.Schema(),
		Catalog: p.Catalog(),
		Params:  map[string]value.Value{},
	}

	var rows [][]exec.Entry
	res, err := p.Execute(rt)
	for ; err == nil && res == exec.OpOK; res, err = p.Pull(rt) {
		row := make([]exec.Entry, len(p.ResultInfo().Slots))
		for i, slot := range p.ResultInfo().Slots {
			row[i] = p.Record().Values[slot]
		}
		rows = append(rows, row)
	}
	require.NoError(t, err)
	return rows
}

// column renders column i of every row; node entries render as their id
func column(rows [][]exec.Entry, i int) []string {
	out := make([]string, len(rows))
	for r, row := range rows {
		e := row[i]
		switch e.Kind {
		case exec.EntryNode:
			out[r] = value.Int(int64(e.Vertex)).String()
		default:
			out[r] = e.Constant.String()
		}
	}
	return out
}

func TestBuild_Errors(t *testing.T) {
	g := loadGraph(t)
	tests := []struct {
		name  string
		query string
		code  ErrorCode
	}{
		{"unbound variable", "MATCH (n) RETURN m", CodeUnboundVariable},
		{"unknown label", "MATCH (n:Robot) RETURN n", CodeUnknownLabel},
		{"unknown relationship type", "MATCH (a)-[:LIKES]->(b) RETURN a", CodeUnknownRelationshipType},
		{"unknown property key", "MATCH (n) RETURN n.height", CodeUnknownPropertyKey},
		{"unknown key in pattern", "MATCH (n:Person {height: 2}) RETURN n", CodeUnknownPropertyKey},
		{"unknown function", "RETURN nosuch(1)", CodeUnknownFunction},
		{"function arity", "RETURN toUpper('a', 'b')", CodeArity},
		{"procedure arity", "CALL db.labels(1)", CodeArity},
		{"aggregate in WHERE", "MATCH (n) WHERE count(n) > 1 RETURN n", CodeAggregateMisuse},
		{"rebinding a node", "MATCH (n) UNWIND [1] AS n RETURN n", CodeVariableAlreadyBound},
		{"duplicate column", "MATCH (n) RETURN n.age AS x, n.name AS x", CodeVariableAlreadyBound},
		{"unaliased WITH expression", "MATCH (n) WITH n.age RETURN 1", CodeUnsupported},
		{"no RETURN", "MATCH (n)", CodeUnsupported},
		{"CREATE without type", "CREATE (a:Person {name: 'dan'})-[:KNOWS|LIVES_IN]->(b:Person {name: 'eve'})", CodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, code := buildPlan(t, g, tt.query)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, p.ErrorMsg())
			assert.Nil(t, p.Root())

			var be *BuildError
			require.True(t, errors.As(p.Err(), &be))
			assert.Equal(t, tt.code, be.Code)
		})
	}
}

func TestBuild_UnknownProcedure(t *testing.T) {
	g := loadGraph(t)
	a := arena.New()
	defer a.Teardown()
	q, err := parser.Parse(a, "CALL db.nothing()")
	require.NoError(t, err)

	p := New(g.Schema(), procedure.NewBuiltinRegistry())
	defer p.Close()
	assert.Equal(t, CodeUnknownProcedure, p.Build(q))
	assert.Contains(t, p.ErrorMsg(), "db.nothing")

	// without a catalog nothing resolves
	p = New(g.Schema(), nil)
	defer p.Close()
	assert.Equal(t, CodeUnknownProcedure, p.Build(q))
}

func TestBuild_ResetsAfterFailure(t *testing.T) {
	g := loadGraph(t)
	p, code := buildPlan(t, g, "MATCH (n) RETURN n")
	require.Equal(t, CodeOK, code)
	assert.NoError(t, p.Err())

	bad := parseRewrite(t, g, p.Catalog(), "MATCH (n) RETURN m")
	assert.Equal(t, CodeUnboundVariable, p.Build(bad))
	assert.Nil(t, p.Root())
	assert.Empty(t, p.Patterns())

	good := parseRewrite(t, g, p.Catalog(), "MATCH (c:City) RETURN c")
	assert.Equal(t, CodeOK, p.Build(good))
	assert.Empty(t, p.ErrorMsg())
	assert.Equal(t, []string{"4"}, column(run(t, g, p), 0))
}

func TestDumpPlan(t *testing.T) {
	g := loadGraph(t)
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "all nodes",
			query: "MATCH (n) RETURN n",
			want: `ReadOnly:true
Execution Plan:
Produce Results
    Project [n]
        All Node Scan [n]
            Argument`,
		},
		{
			name:  "primary key seek",
			query: "MATCH (p:Person {name: 'alice'}) RETURN p.age",
			want: `ReadOnly:true
Execution Plan:
Produce Results
    Project [p.age]
        Node Index Seek [p:Person {name: "alice"}]
            Argument`,
		},
		{
			name:  "where pushed into a seek",
			query: "MATCH (p:Person) WHERE p.name = 'bob' AND p.age > 20 RETURN p",
			want: `ReadOnly:true
Execution Plan:
Produce Results
    Project [p]
        Filter [p.age > 20]
            Node Index Seek [p:Person {name: "bob"}]
                Argument`,
		},
		{
			name:  "disconnected paths",
			query: "MATCH (a)-->(b), (a)-->(c) RETURN a",
			want: `ReadOnly:true
Execution Plan:
Produce Results
    Project [a]
        Filter [a = @ALIAS_a_3]
            Cartesian Product
                Expand(All) [a --> b]
                    All Node Scan [a]
                        Argument
                Expand(All) [@ALIAS_a_3 --> c]
                    All Node Scan [@ALIAS_a_3]
                        Argument [a,b]`,
		},
		{
			name:  "walk from the bound end",
			query: "MATCH (c:City) MATCH (p)-[:LIVES_IN]->(c) RETURN p",
			want: `ReadOnly:true
Execution Plan:
Produce Results
    Project [p]
        Expand(All) [c <-- p]
            Node By Label Scan [c:City]
                Argument`,
		},
		{
			name:  "create",
			query: "CREATE (x:Person {name: 'dan'})",
			want: `ReadOnly:false
Execution Plan:
Produce Results
    Summary
        Create [(x)]
            Argument`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustBuild(t, g, tt.query)
			assert.Equal(t, tt.want, p.DumpPlan())
		})
	}
}

func TestDumpPlan_Golden(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (a:Person)-[:KNOWS]->(b:Person) "+
		"OPTIONAL MATCH (b)-[r:LIVES_IN]->(c:City) "+
		"RETURN a.name AS name, count(c) AS cities ORDER BY cities DESC LIMIT 3")

	gold := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	gold.Assert(t, "optional_aggregate", []byte(p.DumpPlan()+"\n\n"+p.DumpGraph()))
}

func TestDumpPlan_Deterministic(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (a:Person)-[r:KNOWS]->(b) WHERE r.since > 2000 RETURN a.name, collect(b.name)")

	first := p.DumpPlan()
	assert.Equal(t, first, p.DumpPlan())

	run(t, g, p)
	assert.Equal(t, first, p.DumpPlan())
}

func TestDumpProfile(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (n:Person) RETURN n")
	rows := run(t, g, p)
	require.Len(t, rows, 3)

	out := p.DumpProfile()
	assert.Contains(t, out, "Produce Results | Records produced: 3, Execution time: ")
	assert.Contains(t, out, "        Node By Label Scan [n:Person] | Records produced: 3, Execution time: ")
	assert.Contains(t, out, "            Argument | Records produced: 1, Execution time: ")
}

func TestDumpGraph(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (a:Person)<-[k:KNOWS]-(b) MATCH (a)-[:LIVES_IN]-(c) RETURN a")
	assert.Equal(t, `Current Pattern Graph:
N[0] a:Person (M)
N[1] b (M)
R[1 --> 0] k:KNOWS (M)

Current Pattern Graph:
N[0] a (A)
N[1] c (M)
R[0 -- 1] @ANON_R1:LIVES_IN (M)
`, p.DumpGraph())

	require.Len(t, p.Patterns(), 2)
	assert.Equal(t, "MATCH", p.Patterns()[0].Clause)
	n, ok := p.Patterns()[1].Node("c")
	require.True(t, ok)
	assert.Equal(t, Matched, n.Derivation)
}

func TestDumpGraph_Create(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (c:City) CREATE (x:Person {name: 'dan'})-[:LIVES_IN]->(c)")
	assert.Equal(t, `Current Pattern Graph:
N[0] c:City (M)

Current Pattern Graph:
N[0] x:Person (C)
N[1] c (A)
R[0 --> 1] @ANON_R1:LIVES_IN (C)
`, p.DumpGraph())
}

func TestResultInfo(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (n:Person) RETURN n.name AS name, n.age")
	info := p.ResultInfo()
	assert.Equal(t, []string{"name", "n.age"}, info.Header())
	assert.Equal(t, "n.name", info.Columns[0].Name)
	assert.Len(t, info.Slots, 2)

	p = mustBuild(t, g, "CALL db.labels() YIELD label AS l")
	assert.Equal(t, []string{"l"}, p.ResultInfo().Header())

	p = mustBuild(t, g, "CREATE (:City {name: 'Paris'})")
	assert.Equal(t, []string{SummaryColumn}, p.ResultInfo().Header())
}

func TestExecute(t *testing.T) {
	g := loadGraph(t)
	tests := []struct {
		name  string
		query string
		col   int
		want  []string
	}{
		{"scan", "MATCH (n) RETURN n", 0, []string{"1", "2", "3", "4"}},
		{"filter and order", "MATCH (p:Person) WHERE p.age > 26 RETURN p.name ORDER BY p.name", 0, []string{"alice", "carol"}},
		{"order by a dropped variable", "MATCH (p:Person) RETURN p.name ORDER BY p.age DESC", 0, []string{"carol", "alice", "bob"}},
		{"count per start", "MATCH (a:Person {name: 'alice'})-[:KNOWS]->(b) RETURN count(b) AS n", 0, []string{"2"}},
		{"group", "MATCH (a:Person)-[:KNOWS]->(b) RETURN a.name AS name, count(*) AS n ORDER BY name", 1, []string{"2", "1"}},
		{"unwind skip", "UNWIND [3, 1, 2] AS x RETURN x ORDER BY x DESC SKIP 1", 0, []string{"2", "1"}},
		{"with where", "MATCH (p:Person) WITH p.age AS age WHERE age < 40 RETURN sum(age) AS total", 0, []string{"55"}},
		{"optional", "MATCH (p:Person) OPTIONAL MATCH (p)-[:LIVES_IN]->(c) RETURN p.name, c.name ORDER BY p.name", 1, []string{"Berlin", "null", "null"}},
		{"reverse walk", "MATCH (c:City) MATCH (p)-[:LIVES_IN]->(c) RETURN p.name", 0, []string{"alice"}},
		{"named path", "MATCH p = (a:Person {name: 'alice'})-[:KNOWS*1..2]->(b) RETURN length(p) ORDER BY length(p)", 0, []string{"1", "1", "2"}},
		{"distinct", "MATCH (a)-[:KNOWS]->(b) RETURN DISTINCT b.name ORDER BY b.name", 0, []string{"bob", "carol"}},
		{"procedure", "CALL db.labels()", 0, []string{"City", "Person"}},
		{"procedure in query", "CALL db.labels() YIELD label WHERE label = 'Person' MATCH (n:Person) RETURN count(n)", 0, []string{"3"}},
		{"star", "MATCH (c:City) WITH c.name AS city RETURN *", 0, []string{"Berlin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustBuild(t, g, tt.query)
			assert.Equal(t, tt.want, column(run(t, g, p), tt.col))
		})
	}
}

func TestExecute_DisconnectedPaths(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (a)-->(b), (a)-->(c) RETURN a")
	rows := run(t, g, p)

	// alice has three outgoing relationships, so six ordered pairs of
	// distinct ones; nobody else has two
	assert.Equal(t, []string{"1", "1", "1", "1", "1", "1"}, column(rows, 0))
}

func TestExecute_Write(t *testing.T) {
	g := loadGraph(t)
	p := mustBuild(t, g, "MATCH (c:City {name: 'Berlin'}) CREATE (x:Person {name: 'dan', age: 7})-[:LIVES_IN]->(c)")
	rows := run(t, g, p)
	require.Len(t, rows, 1)
	assert.Equal(t, "created 1 vertices, created 1 edges.", rows[0][0].Constant.String())
	assert.Equal(t, 4, g.VertexCount())

	// the writer slot is free again once run returns
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	txn, err := g.Begin(ctx, false)
	require.NoError(t, err)
	require.NoError(t, txn.Rollback())

	p = mustBuild(t, g, "MATCH (p:Person {name: 'bob'}) SET p.age = p.age + 1 RETURN p.age")
	assert.Equal(t, []string{"26"}, column(run(t, g, p), 0))
}

func TestDetermineReadOnly(t *testing.T) {
	g := loadGraph(t)
	catalog := procedure.NewBuiltinRegistry()
	catalog.MustRegister(&procedure.Signature{
		Name:    "test.write",
		Results: []procedure.Column{{Name: "ok", Type: value.KindBool}},
		Impl: func(context.Context, procedure.Env, []value.Value) ([][]value.Value, error) {
			return nil, nil
		},
	})

	tests := []struct {
		query string
		want  bool
	}{
		{"MATCH (n) RETURN n", true},
		{"EXPLAIN MATCH (n) RETURN n", true},
		{"CALL db.labels()", true},
		{"CALL test.write()", false},
		{"CREATE (:City {name: 'Paris'})", false},
		{"MATCH (n:Person) SET n.age = 1 RETURN n", false},
		{"MATCH (n) DETACH DELETE n", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := parseRewrite(t, g, catalog, tt.query)
			assert.Equal(t, tt.want, DetermineReadOnly(q, catalog))

			p := New(g.Schema(), catalog)
			defer p.Close()
			require.Equal(t, CodeOK, p.Build(q), p.ErrorMsg())
			assert.Equal(t, tt.want, p.ReadOnly())
		})
	}
}
