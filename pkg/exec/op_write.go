package exec

import (
	"errors"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// PropExpr is one {key: expr} of a created element
type PropExpr struct {
	Key  string
	Expr *Expression
}

// CreateNode describes a vertex created once per input row
type CreateNode struct {
	Slot   int
	Alias  string
	Labels []string
	Props  []PropExpr
}

// CreateEdge describes a relationship created once per input row between
// the vertices bound in Src and Dst
type CreateEdge struct {
	Slot     int
	Alias    string
	Src, Dst int
	Type     string
	Props    []PropExpr
}

func evalProps(rt *Runtime, rec *Record, props []PropExpr) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(props))
	for _, p := range props {
		v, err := p.Expr.Value(rt, rec)
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			out[p.Key] = v
		}
	}
	return out, nil
}

// Create writes new vertices and relationships for every input row
type Create struct {
	OpBase
	nodes []CreateNode
	edges []CreateEdge
}

func NewCreate(a *arena.Arena, rec *Record, input Operator, nodes []CreateNode, edges []CreateEdge) *Create {
	return arena.Alloc(a, Create{OpBase: newBase("Create", rec, input), nodes: nodes, edges: edges})
}

func (o *Create) Detail() string {
	parts := make([]string, 0, len(o.nodes)+len(o.edges))
	for _, n := range o.nodes {
		parts = append(parts, "("+n.Alias+")")
	}
	for _, e := range o.edges {
		parts = append(parts, "["+e.Alias+":"+e.Type+"]")
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (o *Create) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	for _, n := range o.nodes {
		props, err := evalProps(rt, o.record, n.Props)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		v, err := rt.Txn.CreateVertex(n.Labels, props)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		o.record.Values[n.Slot] = NodeEntry(v.ID)
		rt.Stats.VerticesCreated++
	}
	for _, e := range o.edges {
		src, dst := o.record.Values[e.Src], o.record.Values[e.Dst]
		if src.Kind != EntryNode || dst.Kind != EntryNode || src.IsNull() || dst.IsNull() {
			return OpDepleted, runtimeErr(o.name, typeErr("relationship %s needs two bound nodes", e.Alias))
		}
		props, err := evalProps(rt, o.record, e.Props)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		created, err := rt.Txn.CreateEdge(src.Vertex, dst.Vertex, e.Type, props)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		o.record.Values[e.Slot] = RelEntry(created.ID)
		rt.Stats.EdgesCreated++
	}
	return OpOK, nil
}

// SetProp is target.key = value
type SetProp struct {
	Target *Expression
	Key    string
	Value  *Expression
}

// Set updates properties for every input row. Setting null removes the
// property.
type Set struct {
	OpBase
	items []SetProp
}

func NewSet(a *arena.Arena, rec *Record, input Operator, items []SetProp) *Set {
	return arena.Alloc(a, Set{OpBase: newBase("Set", rec, input), items: items})
}

func (o *Set) Detail() string {
	parts := make([]string, len(o.items))
	for i, it := range o.items {
		parts[i] = it.Target.String() + "." + it.Key
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (o *Set) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	for _, it := range o.items {
		target, err := it.Target.Eval(rt, o.record)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		if target.IsNull() {
			continue
		}
		v, err := it.Value.Value(rt, o.record)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		switch target.Kind {
		case EntryNode:
			err = rt.Txn.SetVertexProperty(target.Vertex, it.Key, v)
		case EntryRelationship:
			err = rt.Txn.SetEdgeProperty(target.Edge, it.Key, v)
		default:
			err = typeErr("cannot set a property on a %s", target.Kind)
		}
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		rt.Stats.PropertiesSet++
	}
	return OpOK, nil
}

// Delete removes the entities its expressions evaluate to. Entities
// already deleted by an earlier row are skipped.
type Delete struct {
	OpBase
	exprs  []*Expression
	detach bool
}

func NewDelete(a *arena.Arena, rec *Record, input Operator, exprs []*Expression, detach bool) *Delete {
	name := "Delete"
	if detach {
		name = "Detach Delete"
	}
	return arena.Alloc(a, Delete{OpBase: newBase(name, rec, input), exprs: exprs, detach: detach})
}

func (o *Delete) Detail() string {
	parts := make([]string, len(o.exprs))
	for i, e := range o.exprs {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (o *Delete) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	for _, e := range o.exprs {
		target, err := e.Eval(rt, o.record)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		if err := o.delete(rt, target); err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
	}
	return OpOK, nil
}

func (o *Delete) delete(rt *Runtime, target Entry) error {
	if target.IsNull() {
		return nil
	}
	switch target.Kind {
	case EntryNode:
		return o.deleteVertex(rt, target.Vertex)
	case EntryRelationship:
		return o.deleteEdge(rt, target.Edge)
	case EntryPath:
		for _, id := range target.Path.Edges {
			if err := o.deleteEdge(rt, id); err != nil {
				return err
			}
		}
		for _, id := range target.Path.Vertices {
			if err := o.deleteVertex(rt, id); err != nil {
				return err
			}
		}
		return nil
	}
	return typeErr("cannot delete a value")
}

func (o *Delete) deleteEdge(rt *Runtime, id graph.EdgeID) error {
	err := rt.Txn.DeleteEdge(id)
	if errors.Is(err, graph.ErrEdgeNotFound) {
		return nil
	}
	if err == nil {
		rt.Stats.EdgesDeleted++
	}
	return err
}

func (o *Delete) deleteVertex(rt *Runtime, id graph.VertexID) error {
	edges := 0
	if o.detach {
		it, err := rt.Txn.Edges(id, graph.Both, nil)
		if errors.Is(err, graph.ErrVertexNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for it.Next() {
			edges++
		}
		_ = it.Close()
	}
	err := rt.Txn.DeleteVertex(id, o.detach)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	rt.Stats.VerticesDeleted++
	rt.Stats.EdgesDeleted += edges
	return nil
}

// Summary drains a write-only plan and yields one row holding the write
// statistics
type Summary struct {
	OpBase
	slot int
	done bool
}

func NewSummary(a *arena.Arena, rec *Record, input Operator, slot int) *Summary {
	return arena.Alloc(a, Summary{OpBase: newBase("Summary", rec, input), slot: slot})
}

func (o *Summary) Consume(rt *Runtime) (OpResult, error) {
	if o.done || o.state == StateDepleted {
		o.state = StateDepleted
		return OpDepleted, nil
	}
	o.state = StateConsuming
	for {
		res, err := o.input(rt)
		if err != nil {
			return OpDepleted, err
		}
		if res != OpOK {
			break
		}
	}
	o.done = true
	o.record.Values[o.slot] = Constant(value.String(rt.Stats.Summary()))
	return OpOK, nil
}

func (o *Summary) Reset(complete bool) error {
	o.done = false
	return o.OpBase.Reset(complete)
}

// ProduceResults is the root of every plan. It forwards rows unchanged;
// the result columns are read from the record by the caller.
type ProduceResults struct {
	OpBase
}

func NewProduceResults(a *arena.Arena, rec *Record, input Operator) *ProduceResults {
	return arena.Alloc(a, ProduceResults{OpBase: newBase("Produce Results", rec, input)})
}

func (o *ProduceResults) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	return OpOK, nil
}
