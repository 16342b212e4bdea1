package exec

import (
	"errors"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
)

// NodeScan binds slot to every vertex, or every vertex of one label, once
// per input row
type NodeScan struct {
	OpBase
	slot  int
	alias string
	label string
	it    graph.VertexIterator
}

func NewAllNodeScan(a *arena.Arena, rec *Record, input Operator, slot int, alias string) *NodeScan {
	return arena.Alloc(a, NodeScan{OpBase: newBase("All Node Scan", rec, input), slot: slot, alias: alias})
}

func NewNodeByLabelScan(a *arena.Arena, rec *Record, input Operator, slot int, alias, label string) *NodeScan {
	return arena.Alloc(a, NodeScan{
		OpBase: newBase("Node By Label Scan", rec, input),
		slot:   slot,
		alias:  alias,
		label:  label,
	})
}

func (o *NodeScan) Detail() string {
	if o.label == "" {
		return "[" + o.alias + "]"
	}
	return "[" + o.alias + ":" + o.label + "]"
}

func (o *NodeScan) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if o.it == nil {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		if o.it, err = rt.Txn.ScanVertices(o.label); err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		o.state = StateConsuming
	}
	if err := rt.CheckCancelled(); err != nil {
		return OpDepleted, err
	}
	if o.it.Next() {
		o.record.Values[o.slot] = NodeEntry(o.it.Vertex().ID)
		return OpOK, nil
	}
	err := o.it.Err()
	o.close()
	if err != nil {
		return OpDepleted, runtimeErr(o.name, err)
	}
	return OpRefresh, nil
}

func (o *NodeScan) close() {
	if o.it != nil {
		_ = o.it.Close()
		o.it = nil
	}
}

func (o *NodeScan) Reset(complete bool) error {
	o.close()
	return o.OpBase.Reset(complete)
}

func (o *NodeScan) Destroy() { o.close() }

// NodeIndexSeek binds slot to the vertex of label whose primary key equals
// the evaluated key expression
type NodeIndexSeek struct {
	OpBase
	slot  int
	alias string
	label string
	key   string
	value *Expression
	done  bool
}

func NewNodeIndexSeek(a *arena.Arena, rec *Record, input Operator, slot int, alias, label, key string, v *Expression) *NodeIndexSeek {
	return arena.Alloc(a, NodeIndexSeek{
		OpBase: newBase("Node Index Seek", rec, input),
		slot:   slot,
		alias:  alias,
		label:  label,
		key:    key,
		value:  v,
		done:   true,
	})
}

func (o *NodeIndexSeek) Detail() string {
	return "[" + o.alias + ":" + o.label + " {" + o.key + ": " + o.value.String() + "}]"
}

func (o *NodeIndexSeek) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if o.done {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		o.done = false
		o.state = StateConsuming
	}
	o.done = true
	v, err := o.value.Value(rt, o.record)
	if err != nil {
		return OpDepleted, runtimeErr(o.name, err)
	}
	if v.IsNull() {
		return OpRefresh, nil
	}
	vertex, err := rt.Txn.SeekVertex(o.label, o.key, v)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return OpRefresh, nil
	}
	if err != nil {
		return OpDepleted, runtimeErr(o.name, err)
	}
	o.record.Values[o.slot] = NodeEntry(vertex.ID)
	return OpOK, nil
}

func (o *NodeIndexSeek) Reset(complete bool) error {
	o.done = true
	return o.OpBase.Reset(complete)
}
