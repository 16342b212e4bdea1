package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

func TestArgument_OncePerReset(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(0)
	arg := NewArgument(a, rec, nil)
	require.NoError(t, arg.Initialize(rt))

	res, err := Pull(rt, arg)
	require.NoError(t, err)
	assert.Equal(t, OpOK, res)
	res, _ = Pull(rt, arg)
	assert.Equal(t, OpDepleted, res)

	require.NoError(t, arg.Reset(false))
	assert.Equal(t, StateResetted, arg.State())
	res, _ = Pull(rt, arg)
	assert.Equal(t, OpOK, res)
}

func TestNodeScan(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(1)

	all := NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "n")
	rows := drain(t, rt, rec, all)
	assert.Equal(t, []graph.VertexID{alice, bob, carol, berlin}, vertexColumn(rows, 0))
	assert.Equal(t, StateDepleted, all.State())
	assert.Equal(t, int64(4), all.Stats().Rows)

	rec2 := NewRecord(1)
	byLabel := NewNodeByLabelScan(a, rec2, NewArgument(a, rec2, nil), 0, "c", "City")
	assert.Equal(t, "Node By Label Scan", byLabel.Name())
	assert.Equal(t, "[c:City]", byLabel.Detail())
	rows = drain(t, rt, rec2, byLabel)
	assert.Equal(t, []graph.VertexID{berlin}, vertexColumn(rows, 0))
}

func TestNodeScan_Cancelled(t *testing.T) {
	rt := newRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt.Ctx = ctx
	a := arena.New()
	rec := NewRecord(1)
	_, err := tryDrain(rt, rec, NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "n"))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestNodeIndexSeek(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(1)
	seek := NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "p", "Person", "name", ConstExpr(value.String("carol")))
	assert.Equal(t, `[p:Person {name: "carol"}]`, seek.Detail())
	rows := drain(t, rt, rec, seek)
	assert.Equal(t, []graph.VertexID{carol}, vertexColumn(rows, 0))

	rec = NewRecord(1)
	miss := NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "p", "Person", "name", ConstExpr(value.String("zed")))
	assert.Empty(t, drain(t, rt, rec, miss))
}

func TestExpand(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(3)
	scan := NewNodeByLabelScan(a, rec, NewArgument(a, rec, nil), 0, "a", "Person")
	exp := NewExpand(a, rec, scan, ExpandSpec{
		Src: 0, Edge: 1, Dst: 2,
		SrcAlias: "a", EdgeAlias: "r", DstAlias: "b",
		Dir: graph.Outgoing, Types: []string{"KNOWS"}, Visited: EdgeSet{},
	})
	assert.Equal(t, "Expand(All)", exp.Name())
	assert.Equal(t, "[a --> b]", exp.Detail())

	rows := drain(t, rt, rec, exp)
	require.Len(t, rows, 3)
	assert.Equal(t, []graph.VertexID{alice, alice, bob}, vertexColumn(rows, 0))
	assert.Equal(t, []graph.VertexID{bob, carol, carol}, vertexColumn(rows, 2))
	assert.Equal(t, graph.EdgeID(3), rows[2][1].Edge)
}

func TestExpand_Into(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(3)
	rec.Values[2] = NodeEntry(carol)
	scan := NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "a")
	exp := NewExpand(a, rec, scan, ExpandSpec{
		Src: 0, Edge: 1, Dst: 2, SrcAlias: "a", DstAlias: "c",
		Dir: graph.Outgoing, Into: true, Visited: EdgeSet{},
	})
	assert.Equal(t, "Expand(Into)", exp.Name())
	rows := drain(t, rt, rec, exp)
	assert.Equal(t, []graph.VertexID{alice, bob}, vertexColumn(rows, 0))
}

func TestExpand_RelationshipUniqueness(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(5)
	visited := EdgeSet{}
	scan := NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "a", "Person", "name", ConstExpr(value.String("bob")))
	first := NewExpand(a, rec, scan, ExpandSpec{Src: 0, Edge: 1, Dst: 2, Dir: graph.Both, Visited: visited})
	second := NewExpand(a, rec, first, ExpandSpec{Src: 2, Edge: 3, Dst: 4, Dir: graph.Both, Visited: visited})

	rows := drain(t, rt, rec, second)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.NotEqual(t, r[1].Edge, r[3].Edge)
	}
	// via alice: alice-carol, alice-berlin; via carol: carol-alice
	assert.Len(t, rows, 3)
	assert.Empty(t, visited, "every binding is released once depleted")
}

func TestVarLenExpand(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(3)
	seek := NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "a", "Person", "name", ConstExpr(value.String("alice")))
	vl := NewVarLenExpand(a, rec, seek, ExpandSpec{
		Src: 0, Edge: 1, Dst: 2, SrcAlias: "a", DstAlias: "b",
		Dir: graph.Outgoing, Types: []string{"KNOWS"}, Visited: EdgeSet{},
	}, 1, 2)
	assert.Equal(t, "[a --> b] *1..2", vl.Detail())

	rows := drain(t, rt, rec, vl)
	require.Len(t, rows, 3)
	assert.Equal(t, []graph.VertexID{bob, carol, carol}, vertexColumn(rows, 2))
	assert.Equal(t, []graph.EdgeID{1}, rows[0][1].Path.Edges)
	assert.Equal(t, []graph.EdgeID{1, 3}, rows[1][1].Path.Edges)
	assert.Equal(t, []graph.VertexID{alice, bob, carol}, rows[1][1].Path.Vertices)
	assert.Equal(t, []graph.EdgeID{2}, rows[2][1].Path.Edges)

	rec = NewRecord(3)
	seek = NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "a", "Person", "name", ConstExpr(value.String("carol")))
	zero := NewVarLenExpand(a, rec, seek, ExpandSpec{Src: 0, Edge: 1, Dst: 2, Dir: graph.Outgoing, Visited: EdgeSet{}}, 0, -1)
	rows = drain(t, rt, rec, zero)
	require.Len(t, rows, 1, "carol has no outgoing edges, only the empty walk")
	assert.Equal(t, carol, rows[0][2].Vertex)
	assert.Equal(t, 0, rows[0][1].Path.Len())
}

func TestFilter(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(1)
	scan := NewNodeByLabelScan(a, rec, NewArgument(a, rec, nil), 0, "n", "Person")
	f := NewFilter(a, rec, scan, compileExpr(t, "n.age > 28", MapScope{"n": 0}))
	assert.Equal(t, "[n.age > 28]", f.Detail())
	rows := drain(t, rt, rec, f)
	assert.Equal(t, []graph.VertexID{alice, carol}, vertexColumn(rows, 0))
	assert.Equal(t, int64(2), f.Stats().Rows)
	assert.Equal(t, int64(3), scan.Stats().Rows)

	rec = NewRecord(1)
	scan = NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "n")
	f = NewFilter(a, rec, scan, All(HasLabels(0, "n", []string{"City"})))
	assert.Equal(t, "[n:City]", f.Detail())
	assert.Equal(t, []graph.VertexID{berlin}, vertexColumn(drain(t, rt, rec, f), 0))
}

func TestOptional(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(3)
	scan := NewNodeByLabelScan(a, rec, NewArgument(a, rec, nil), 0, "p", "Person")
	inner := NewExpand(a, rec, NewArgument(a, rec, []string{"p"}), ExpandSpec{
		Src: 0, Edge: 1, Dst: 2, Dir: graph.Outgoing, Types: []string{"LIVES_IN"}, Visited: EdgeSet{},
	})
	opt := NewOptional(a, rec, scan, inner, []int{1, 2})
	rows := drain(t, rt, rec, opt)
	require.Len(t, rows, 3)
	assert.Equal(t, []graph.VertexID{alice, bob, carol}, vertexColumn(rows, 0))
	assert.Equal(t, []graph.VertexID{berlin, 0, 0}, vertexColumn(rows, 2))
	assert.True(t, rows[1][1].IsNull())
}

func TestCartesianProduct(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(2)
	left := NewNodeByLabelScan(a, rec, NewArgument(a, rec, nil), 0, "p", "Person")
	right := NewNodeByLabelScan(a, rec, NewArgument(a, rec, []string{"p"}), 1, "c", "City")
	rows := drain(t, rt, rec, NewCartesianProduct(a, rec, left, right))
	assert.Equal(t, []graph.VertexID{alice, bob, carol}, vertexColumn(rows, 0))
	assert.Equal(t, []graph.VertexID{berlin, berlin, berlin}, vertexColumn(rows, 1))
}

func TestUnwindProjectSortSkipLimit(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(2)
	unwind := NewUnwind(a, rec, NewArgument(a, rec, nil), compileExpr(t, "[3, 1, null, 2, 1]", nil), 0, "x")
	proj := NewProject(a, rec, unwind, []ProjectItem{{Expr: compileExpr(t, "x * 10", MapScope{"x": 0}), Slot: 1, Alias: "y"}})
	sorted := NewSort(a, rec, proj, []SortKey{{Expr: SlotExpr(1, "y"), Desc: true}})
	skip := NewSkip(a, rec, sorted, ConstExpr(value.Int(1)))
	limit := NewLimit(a, rec, skip, ConstExpr(value.Int(3)))

	rows := drain(t, rt, rec, limit)
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r[1].Constant.Literal()
	}
	// nulls sort last ascending, so first when descending
	assert.Equal(t, []string{"30", "20", "10"}, got)
	assert.Equal(t, int64(5), unwind.Stats().Rows)

	rec = NewRecord(1)
	lim := NewLimit(a, rec, NewUnwind(a, rec, NewArgument(a, rec, nil), compileExpr(t, "[1, 2]", nil), 0, "x"), ConstExpr(value.Int(-1)))
	_, err := tryDrain(rt, rec, lim)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestLimit_StopsPulling(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(1)
	scan := NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "n")
	rows := drain(t, rt, rec, NewLimit(a, rec, scan, ConstExpr(value.Int(2))))
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(2), scan.Stats().Pulls)
}

func TestDistinct(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(1)
	unwind := NewUnwind(a, rec, NewArgument(a, rec, nil), compileExpr(t, "[1, 1.0, null, 'a', null, 2]", nil), 0, "x")
	rows := drain(t, rt, rec, NewDistinct(a, rec, unwind, []int{0}))
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r[0].Constant.Literal()
	}
	assert.Equal(t, []string{"1", "null", `"a"`, "2"}, got)
}

func TestAggregate(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(5)
	scope := MapScope{"a": 0, "b": 1}
	scan := NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "a")
	exp := NewExpand(a, rec, scan, ExpandSpec{Src: 0, Edge: 2, Dst: 1, Dir: graph.Outgoing, Visited: EdgeSet{}})
	agg := NewAggregate(a, rec, exp,
		[]ProjectItem{{Expr: compileExpr(t, "a.name", scope), Slot: 3, Alias: "name"}},
		[]AggregateSpec{{Func: "count", Star: true, Slot: 4}},
	)
	assert.Equal(t, "[name,count(*)]", agg.Detail())
	rows := drain(t, rt, rec, agg)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0][3].Constant.String())
	assert.Equal(t, "3", rows[0][4].Constant.String())
	assert.Equal(t, "bob", rows[1][3].Constant.String())
	assert.Equal(t, "1", rows[1][4].Constant.String())
}

func TestAggregate_EmptyInput(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(2)
	scan := NewNodeByLabelScan(a, rec, NewArgument(a, rec, nil), 0, "n", "Nobody")

	rows := drain(t, rt, rec, NewAggregate(a, rec, scan, nil, []AggregateSpec{{Func: "count", Star: true, Slot: 1}}))
	require.Len(t, rows, 1, "global aggregation yields a row for empty input")
	assert.Equal(t, "0", rows[0][1].Constant.String())

	rec = NewRecord(2)
	scan = NewNodeByLabelScan(a, rec, NewArgument(a, rec, nil), 0, "n", "Nobody")
	grouped := NewAggregate(a, rec, scan, []ProjectItem{{Expr: SlotExpr(0, "n"), Slot: 1, Alias: "n"}}, nil)
	assert.Empty(t, drain(t, rt, rec, grouped))
}

func TestProcedureCall(t *testing.T) {
	rt := newRuntime(t)
	reg := procedure.NewBuiltinRegistry()
	sig, ok := reg.Lookup("db.labels")
	require.True(t, ok)

	a := arena.New()
	rec := NewRecord(1)
	call := NewProcedureCall(a, rec, NewArgument(a, rec, nil), sig, nil, []YieldBinding{{Column: 0, Slot: 0, Alias: "label"}}, true)
	assert.Equal(t, "Standalone Call", call.Name())
	assert.Equal(t, "[db.labels] yield [label]", call.Detail())
	rows := drain(t, rt, rec, call)
	require.Len(t, rows, 2)
	assert.Equal(t, "City", rows[0][0].Constant.String())
	assert.Equal(t, "Person", rows[1][0].Constant.String())

	failing := &procedure.Signature{
		Name:    "test.fail",
		Results: []procedure.Column{{Name: "x", Type: value.KindInt}},
		Impl: func(context.Context, procedure.Env, []value.Value) ([][]value.Value, error) {
			return nil, errors.New("boom")
		},
	}
	rec = NewRecord(1)
	_, err := tryDrain(rt, rec, NewProcedureCall(a, rec, NewArgument(a, rec, nil), failing, nil, nil, false))
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "test.fail", re.Op)
}

func TestWriteOperators(t *testing.T) {
	rt := newRuntime(t)
	a := arena.New()
	rec := NewRecord(4)

	create := NewCreate(a, rec, NewArgument(a, rec, nil),
		[]CreateNode{{Slot: 0, Alias: "d", Labels: []string{"Person"}, Props: []PropExpr{
			{Key: "name", Expr: ConstExpr(value.String("dave"))},
			{Key: "age", Expr: ConstExpr(value.Null())},
		}}},
		nil,
	)
	seek := NewNodeIndexSeek(a, rec, create, 1, "c", "City", "name", ConstExpr(value.String("Berlin")))
	link := NewCreate(a, rec, seek, nil, []CreateEdge{{Slot: 2, Alias: "r", Src: 0, Dst: 1, Type: "LIVES_IN"}})
	set := NewSet(a, rec, link, []SetProp{{Target: SlotExpr(0, "d"), Key: "age", Value: ConstExpr(value.Int(50))}})
	sum := NewSummary(a, rec, set, 3)

	rows := drain(t, rt, rec, sum)
	require.Len(t, rows, 1)
	assert.Equal(t, "created 1 vertices, created 1 edges. set 1 properties.", rows[0][3].Constant.String())

	dave, err := rt.Txn.SeekVertex("Person", "name", value.String("dave"))
	require.NoError(t, err)
	assert.Equal(t, "50", dave.Properties["age"].String())

	rec = NewRecord(2)
	seekBob := NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "n", "Person", "name", ConstExpr(value.String("bob")))
	_, err = tryDrain(rt, rec, NewDelete(a, rec, seekBob, []*Expression{SlotExpr(0, "n")}, false))
	assert.ErrorIs(t, err, graph.ErrConstraintViolation, "bob still has relationships")

	rt.Stats = Stats{}
	rec = NewRecord(2)
	seekBob = NewNodeIndexSeek(a, rec, NewArgument(a, rec, nil), 0, "n", "Person", "name", ConstExpr(value.String("bob")))
	del := NewDelete(a, rec, seekBob, []*Expression{SlotExpr(0, "n"), SlotExpr(0, "n")}, true)
	assert.Equal(t, "Detach Delete", del.Name())
	drain(t, rt, rec, del)
	assert.Equal(t, 1, rt.Stats.VerticesDeleted, "second delete of the same vertex is a no-op")
	assert.Equal(t, 2, rt.Stats.EdgesDeleted)
	assert.Equal(t, "created 0 vertices, created 0 edges. deleted 1 vertices, deleted 2 edges.", rt.Stats.Summary())
}

func TestPull_Profile(t *testing.T) {
	rt := newRuntime(t)
	rt.Profile = true
	a := arena.New()
	rec := NewRecord(1)
	scan := NewAllNodeScan(a, rec, NewArgument(a, rec, nil), 0, "n")
	root := NewProduceResults(a, rec, NewFilter(a, rec, scan, compileExpr(t, "n.name = 'bob'", MapScope{"n": 0})))
	drain(t, rt, rec, root)

	var names []string
	Walk(root, func(op Operator, depth int) {
		names = append(names, op.Name())
	})
	assert.Equal(t, []string{"Produce Results", "Filter", "All Node Scan", "Argument"}, names)
	assert.Equal(t, int64(1), root.Stats().Rows)
	assert.Equal(t, int64(4), scan.Stats().Rows)
	assert.Positive(t, int64(root.Stats().Time))
}

func TestRuntimeError_Unwrap(t *testing.T) {
	err := runtimeErr("Filter", ErrDivideByZero)
	assert.ErrorIs(t, err, ErrDivideByZero)
	assert.Equal(t, "Filter: division by zero", err.Error())
	assert.Same(t, err, runtimeErr("Project", err), "an operator error is not wrapped twice")
}

func TestPathExpr(t *testing.T) {
	rt := newRuntime(t)
	rec := NewRecord(5)
	rec.Values[0] = NodeEntry(alice)
	rec.Values[1] = RelEntry(1)
	rec.Values[2] = NodeEntry(bob)
	rec.Values[3] = PathEntry(&Path{Vertices: []graph.VertexID{bob, carol}, Edges: []graph.EdgeID{3}})
	rec.Values[4] = NodeEntry(carol)

	ent, err := PathExpr([]int{0, 2, 4}, []int{1, 3}, "p").Eval(rt, rec)
	require.NoError(t, err)
	require.Equal(t, EntryPath, ent.Kind)
	assert.Equal(t, []graph.VertexID{alice, bob, carol}, ent.Path.Vertices)
	assert.Equal(t, []graph.EdgeID{1, 3}, ent.Path.Edges)

	rec.Values[2] = NullEntry()
	ent, err = PathExpr([]int{0, 2, 4}, []int{1, 3}, "p").Eval(rt, rec)
	require.NoError(t, err)
	assert.True(t, ent.IsNull())
}
