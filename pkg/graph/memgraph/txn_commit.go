package memgraph

import (
	"github.com/dd0wney/cluso-cypher/pkg/graph"
)

// Commit applies the buffered changes to the graph atomically
func (t *Txn) Commit() error {
	if !t.active {
		return graph.ErrTxnClosed
	}
	t.active = false
	if t.readOnly {
		return nil
	}
	defer t.release()

	g := t.g
	g.mu.Lock()
	defer g.mu.Unlock()

	t.applyDeletedEdges()
	t.applyDeletedVertices()
	t.applyCreatedVertices()
	t.applyVertexUpdates()
	t.applyCreatedEdges()
	t.applyEdgeUpdates()
	return nil
}

func (t *Txn) applyDeletedEdges() {
	g := t.g
	for id := range t.deletedEdges {
		e, ok := g.edges[id]
		if !ok {
			continue
		}
		delete(g.out[e.Src], id)
		delete(g.in[e.Dst], id)
		delete(g.edges, id)
	}
}

func (t *Txn) applyDeletedVertices() {
	g := t.g
	for id := range t.deletedVertices {
		v, ok := g.vertices[id]
		if !ok {
			continue
		}
		g.unindexVertex(v)
		delete(g.vertices, id)
		delete(g.out, id)
		delete(g.in, id)
	}
}

func (t *Txn) applyCreatedVertices() {
	g := t.g
	for id, v := range t.createdVertices {
		g.vertices[id] = v
		g.indexVertex(v)
	}
}

// applyVertexUpdates replaces updated vertices with new copies so that
// readers holding the previous version are unaffected
func (t *Txn) applyVertexUpdates() {
	g := t.g
	for id, upd := range t.updatedVertices {
		old, ok := g.vertices[id]
		if !ok {
			continue
		}
		v := cloneVertex(old)
		applyProps(v.Properties, upd)
		g.unindexVertex(old)
		g.vertices[id] = v
		g.indexVertex(v)
	}
}

func (t *Txn) applyCreatedEdges() {
	g := t.g
	for id, e := range t.createdEdges {
		g.edges[id] = e
		addAdj(g.out, e.Src, id)
		addAdj(g.in, e.Dst, id)
	}
}

func (t *Txn) applyEdgeUpdates() {
	g := t.g
	for id, upd := range t.updatedEdges {
		old, ok := g.edges[id]
		if !ok {
			continue
		}
		e := cloneEdge(old)
		applyProps(e.Properties, upd)
		g.edges[id] = e
	}
}

// Rollback discards the buffered changes. It is idempotent.
func (t *Txn) Rollback() error {
	if !t.active {
		return nil
	}
	t.active = false
	if !t.readOnly {
		t.release()
	}

	// Since changes are buffered, rollback just means discarding the buffers
	t.createdVertices = nil
	t.updatedVertices = nil
	t.deletedVertices = nil
	t.createdEdges = nil
	t.updatedEdges = nil
	t.deletedEdges = nil
	return nil
}

func (t *Txn) release() {
	<-t.g.writer
}
