package memgraph

import (
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Txn is a transaction over a Graph. It is used by one goroutine.
type Txn struct {
	g        *Graph
	id       uint64
	readOnly bool
	active   bool

	// Pending operations
	createdVertices map[graph.VertexID]*graph.Vertex
	updatedVertices map[graph.VertexID]map[string]value.Value
	deletedVertices map[graph.VertexID]bool
	createdEdges    map[graph.EdgeID]*graph.Edge
	updatedEdges    map[graph.EdgeID]map[string]value.Value
	deletedEdges    map[graph.EdgeID]bool
}

var _ graph.Txn = (*Txn)(nil)

// ID returns the transaction sequence number
func (t *Txn) ID() uint64 { return t.id }

func (t *Txn) ReadOnly() bool { return t.readOnly }

// vertex returns a merged copy of the vertex as this txn sees it
func (t *Txn) vertex(id graph.VertexID) (*graph.Vertex, bool) {
	if t.deletedVertices[id] {
		return nil, false
	}
	if v, ok := t.createdVertices[id]; ok {
		return cloneVertex(v), true
	}
	t.g.mu.RLock()
	base, ok := t.g.vertices[id]
	t.g.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v := cloneVertex(base)
	if upd, ok := t.updatedVertices[id]; ok {
		applyProps(v.Properties, upd)
	}
	return v, true
}

func (t *Txn) edge(id graph.EdgeID) (*graph.Edge, bool) {
	if t.deletedEdges[id] {
		return nil, false
	}
	if e, ok := t.createdEdges[id]; ok {
		return cloneEdge(e), true
	}
	t.g.mu.RLock()
	base, ok := t.g.edges[id]
	t.g.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e := cloneEdge(base)
	if upd, ok := t.updatedEdges[id]; ok {
		applyProps(e.Properties, upd)
	}
	return e, true
}

// GetVertex gets a vertex by ID within the transaction context
func (t *Txn) GetVertex(id graph.VertexID) (*graph.Vertex, error) {
	if !t.active {
		return nil, graph.ErrTxnClosed
	}
	v, ok := t.vertex(id)
	if !ok {
		return nil, graph.VertexNotFoundError(id)
	}
	return v, nil
}

// GetEdge gets an edge by ID within the transaction context
func (t *Txn) GetEdge(id graph.EdgeID) (*graph.Edge, error) {
	if !t.active {
		return nil, graph.ErrTxnClosed
	}
	e, ok := t.edge(id)
	if !ok {
		return nil, graph.EdgeNotFoundError(id)
	}
	return e, nil
}

// ScanVertices snapshots the matching ids; vertices are resolved lazily
func (t *Txn) ScanVertices(label string) (graph.VertexIterator, error) {
	if !t.active {
		return nil, graph.ErrTxnClosed
	}

	var ids []graph.VertexID
	t.g.mu.RLock()
	if label == "" {
		ids = make([]graph.VertexID, 0, len(t.g.vertices))
		for id := range t.g.vertices {
			ids = append(ids, id)
		}
	} else {
		for id := range t.g.byLabel[label] {
			ids = append(ids, id)
		}
	}
	t.g.mu.RUnlock()

	for id, v := range t.createdVertices {
		if label == "" || v.HasLabel(label) {
			ids = append(ids, id)
		}
	}
	sortVertexIDs(ids)
	return &vertexIterator{txn: t, ids: ids, pos: -1}, nil
}

// SeekVertex looks up a vertex by label and property value, using the
// primary-key index when key is the label's primary key.
func (t *Txn) SeekVertex(label, key string, v value.Value) (*graph.Vertex, error) {
	if !t.active {
		return nil, graph.ErrTxnClosed
	}
	notFound := graph.NewError("seek").Label(label).Cause(graph.ErrVertexNotFound).Err()
	if v.IsNull() {
		return nil, notFound
	}

	// Entities touched by this txn are checked against their current state.
	overlay := make([]graph.VertexID, 0, len(t.createdVertices)+len(t.updatedVertices))
	for id := range t.createdVertices {
		overlay = append(overlay, id)
	}
	for id := range t.updatedVertices {
		overlay = append(overlay, id)
	}
	sortVertexIDs(overlay)
	for _, id := range overlay {
		if vx, ok := t.vertex(id); ok && vx.HasLabel(label) && vx.Properties[key].Equal(v) {
			return vx, nil
		}
	}

	var candidates []graph.VertexID
	t.g.mu.RLock()
	if pk, ok := t.g.schema.PrimaryKey(label); ok && pk == key {
		candidates = append(candidates, t.g.pkIndex[label][v.Hash()]...)
	} else {
		for id := range t.g.byLabel[label] {
			candidates = append(candidates, id)
		}
	}
	t.g.mu.RUnlock()
	sortVertexIDs(candidates)

	for _, id := range candidates {
		if _, touched := t.updatedVertices[id]; touched {
			continue
		}
		if vx, ok := t.vertex(id); ok && vx.Properties[key].Equal(v) {
			return vx, nil
		}
	}
	return nil, notFound
}

// incident collects the live edge ids touching id
func (t *Txn) incident(id graph.VertexID, dir graph.Direction) []graph.EdgeID {
	seen := make(map[graph.EdgeID]struct{})
	t.g.mu.RLock()
	if dir == graph.Outgoing || dir == graph.Both {
		for e := range t.g.out[id] {
			seen[e] = struct{}{}
		}
	}
	if dir == graph.Incoming || dir == graph.Both {
		for e := range t.g.in[id] {
			seen[e] = struct{}{}
		}
	}
	t.g.mu.RUnlock()

	for eid, e := range t.createdEdges {
		if ((dir == graph.Outgoing || dir == graph.Both) && e.Src == id) ||
			((dir == graph.Incoming || dir == graph.Both) && e.Dst == id) {
			seen[eid] = struct{}{}
		}
	}

	ids := make([]graph.EdgeID, 0, len(seen))
	for eid := range seen {
		if !t.deletedEdges[eid] {
			ids = append(ids, eid)
		}
	}
	sortEdgeIDs(ids)
	return ids
}

// Edges iterates the incident edges of a vertex in ascending id order
func (t *Txn) Edges(id graph.VertexID, dir graph.Direction, types []string) (graph.EdgeIterator, error) {
	if !t.active {
		return nil, graph.ErrTxnClosed
	}
	if _, ok := t.vertex(id); !ok {
		return nil, graph.VertexNotFoundError(id)
	}
	return &edgeIterator{txn: t, ids: t.incident(id, dir), types: types, pos: -1}, nil
}
