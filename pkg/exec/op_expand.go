package exec

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
)

// EdgeSet holds the relationships bound by one MATCH so that no
// relationship is traversed twice by the same match
type EdgeSet map[graph.EdgeID]struct{}

func (s EdgeSet) has(id graph.EdgeID) bool {
	_, ok := s[id]
	return ok
}

// ExpandSpec describes one hop of a pattern
type ExpandSpec struct {
	Src, Dst, Edge     int
	SrcAlias, DstAlias string
	EdgeAlias          string
	Dir                graph.Direction
	Types              []string
	// Into is set when Dst is already bound and the hop only checks
	// connectivity
	Into bool
	// Visited is shared by every hop of one MATCH
	Visited EdgeSet
}

func (s *ExpandSpec) detail() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(s.SrcAlias)
	switch s.Dir {
	case graph.Outgoing:
		b.WriteString(" --> ")
	case graph.Incoming:
		b.WriteString(" <-- ")
	default:
		b.WriteString(" -- ")
	}
	b.WriteString(s.DstAlias)
	b.WriteString("]")
	return b.String()
}

func (s *ExpandSpec) far(e *graph.Edge, from graph.VertexID) graph.VertexID {
	switch s.Dir {
	case graph.Outgoing:
		return e.Dst
	case graph.Incoming:
		return e.Src
	default:
		return e.Other(from)
	}
}

// edges opens the incident edge cursor of v; a vertex deleted earlier in
// the query has none
func (s *ExpandSpec) edges(rt *Runtime, v graph.VertexID) (graph.EdgeIterator, error) {
	it, err := rt.Txn.Edges(v, s.Dir, s.Types)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return nil, nil
	}
	return it, err
}

// Expand follows one relationship from the vertex bound in Src
type Expand struct {
	OpBase
	spec ExpandSpec
	src  graph.VertexID
	it   graph.EdgeIterator
	cur  graph.EdgeID
	has  bool
}

func NewExpand(a *arena.Arena, rec *Record, input Operator, spec ExpandSpec) *Expand {
	name := "Expand(All)"
	if spec.Into {
		name = "Expand(Into)"
	}
	return arena.Alloc(a, Expand{OpBase: newBase(name, rec, input), spec: spec})
}

func (o *Expand) Detail() string { return o.spec.detail() }

func (o *Expand) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	o.release()
	if o.it == nil {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		o.state = StateConsuming
		src := o.record.Values[o.spec.Src]
		if src.IsNull() {
			return OpRefresh, nil
		}
		if src.Kind != EntryNode {
			return OpDepleted, runtimeErr(o.name, typeErr("%s is a %s, expected a node", o.spec.SrcAlias, src.Kind))
		}
		if o.spec.Into && o.record.Values[o.spec.Dst].IsNull() {
			return OpRefresh, nil
		}
		o.src = src.Vertex
		if o.it, err = o.spec.edges(rt, o.src); err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		if o.it == nil {
			return OpRefresh, nil
		}
	}
	for o.it.Next() {
		e := o.it.Edge()
		if o.spec.Visited.has(e.ID) {
			continue
		}
		far := o.spec.far(e, o.src)
		if o.spec.Into {
			if o.record.Values[o.spec.Dst].Vertex != far {
				continue
			}
		} else {
			o.record.Values[o.spec.Dst] = NodeEntry(far)
		}
		o.record.Values[o.spec.Edge] = RelEntry(e.ID)
		o.spec.Visited[e.ID] = struct{}{}
		o.cur, o.has = e.ID, true
		return OpOK, nil
	}
	err := o.it.Err()
	o.close()
	if err != nil {
		return OpDepleted, runtimeErr(o.name, err)
	}
	return OpRefresh, nil
}

// release forgets the relationship bound by the previous row
func (o *Expand) release() {
	if o.has {
		delete(o.spec.Visited, o.cur)
		o.has = false
	}
}

func (o *Expand) close() {
	if o.it != nil {
		_ = o.it.Close()
		o.it = nil
	}
}

func (o *Expand) Reset(complete bool) error {
	o.release()
	o.close()
	return o.OpBase.Reset(complete)
}

func (o *Expand) Destroy() { o.close() }

type dfsFrame struct {
	v  graph.VertexID
	it graph.EdgeIterator
}

// VarLenExpand follows between Min and Max relationships (Max < 0 means
// unbounded) depth first and binds the relationship variable to the walk
type VarLenExpand struct {
	OpBase
	spec     ExpandSpec
	min, max int
	stack    []dfsFrame
	path     Path
	emitRoot bool
	active   bool
}

func NewVarLenExpand(a *arena.Arena, rec *Record, input Operator, spec ExpandSpec, min, max int) *VarLenExpand {
	name := "Variable Length Expand(All)"
	if spec.Into {
		name = "Variable Length Expand(Into)"
	}
	return arena.Alloc(a, VarLenExpand{OpBase: newBase(name, rec, input), spec: spec, min: min, max: max})
}

func (o *VarLenExpand) Detail() string {
	hi := "inf"
	if o.max >= 0 {
		hi = strconv.Itoa(o.max)
	}
	return o.spec.detail() + " *" + strconv.Itoa(o.min) + ".." + hi
}

func (o *VarLenExpand) accept(v graph.VertexID) bool {
	if len(o.path.Edges) < o.min {
		return false
	}
	if o.spec.Into {
		return o.record.Values[o.spec.Dst].Vertex == v
	}
	return true
}

func (o *VarLenExpand) emit(v graph.VertexID) {
	if !o.spec.Into {
		o.record.Values[o.spec.Dst] = NodeEntry(v)
	}
	o.record.Values[o.spec.Edge] = PathEntry(o.path.clone())
}

func (o *VarLenExpand) bind(rt *Runtime) (bool, error) {
	src := o.record.Values[o.spec.Src]
	if src.IsNull() || (o.spec.Into && o.record.Values[o.spec.Dst].IsNull()) {
		return false, nil
	}
	if src.Kind != EntryNode {
		return false, typeErr("%s is a %s, expected a node", o.spec.SrcAlias, src.Kind)
	}
	root := dfsFrame{v: src.Vertex}
	if o.max != 0 {
		it, err := o.spec.edges(rt, src.Vertex)
		if err != nil {
			return false, err
		}
		if it == nil {
			return false, nil
		}
		root.it = it
	}
	o.stack = append(o.stack[:0], root)
	o.path = Path{Vertices: []graph.VertexID{src.Vertex}}
	o.emitRoot = o.min == 0
	return true, nil
}

func (o *VarLenExpand) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.active {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		o.state = StateConsuming
		ok, err := o.bind(rt)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		if !ok {
			return OpRefresh, nil
		}
		o.active = true
	}
	if o.emitRoot {
		o.emitRoot = false
		if o.accept(o.path.Vertices[0]) {
			o.emit(o.path.Vertices[0])
			return OpOK, nil
		}
	}
	for len(o.stack) > 0 {
		if err := rt.CheckCancelled(); err != nil {
			return OpDepleted, err
		}
		top := &o.stack[len(o.stack)-1]
		if top.it == nil || !top.it.Next() {
			if err := o.pop(); err != nil {
				return OpDepleted, runtimeErr(o.name, err)
			}
			continue
		}
		e := top.it.Edge()
		if o.spec.Visited.has(e.ID) {
			continue
		}
		far := o.spec.far(e, top.v)
		o.spec.Visited[e.ID] = struct{}{}
		o.path.Edges = append(o.path.Edges, e.ID)
		o.path.Vertices = append(o.path.Vertices, far)

		next := dfsFrame{v: far}
		if o.max < 0 || len(o.path.Edges) < o.max {
			it, err := o.spec.edges(rt, far)
			if err != nil {
				return OpDepleted, runtimeErr(o.name, err)
			}
			next.it = it
		}
		o.stack = append(o.stack, next)
		if o.accept(far) {
			o.emit(far)
			return OpOK, nil
		}
	}
	o.active = false
	return OpRefresh, nil
}

// pop leaves the deepest vertex of the walk
func (o *VarLenExpand) pop() error {
	top := o.stack[len(o.stack)-1]
	var err error
	if top.it != nil {
		err = top.it.Err()
		_ = top.it.Close()
	}
	o.stack = o.stack[:len(o.stack)-1]
	if n := len(o.path.Edges); n > 0 {
		delete(o.spec.Visited, o.path.Edges[n-1])
		o.path.Edges = o.path.Edges[:n-1]
	}
	o.path.Vertices = o.path.Vertices[:len(o.path.Vertices)-1]
	return err
}

func (o *VarLenExpand) unwind() {
	for len(o.stack) > 0 {
		_ = o.pop()
	}
	o.active = false
	o.emitRoot = false
}

func (o *VarLenExpand) Reset(complete bool) error {
	o.unwind()
	return o.OpBase.Reset(complete)
}

func (o *VarLenExpand) Destroy() { o.unwind() }
