// Package memgraph is an in-memory transactional property graph.
//
// Committed state lives in the Graph. A write transaction buffers its
// created, updated and deleted entities and applies them in one step on
// Commit; only one write transaction is open at a time. Read transactions
// observe committed state.
package memgraph

import (
	"context"
	"sort"
	"sync"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Graph is the committed store
type Graph struct {
	mu     sync.RWMutex
	writer chan struct{} // one-slot semaphore held by the open write txn
	schema *Schema

	vertices map[graph.VertexID]*graph.Vertex
	edges    map[graph.EdgeID]*graph.Edge
	out      map[graph.VertexID]map[graph.EdgeID]struct{}
	in       map[graph.VertexID]map[graph.EdgeID]struct{}
	byLabel  map[string]map[graph.VertexID]struct{}
	pkIndex  map[string]map[uint64][]graph.VertexID // label -> hash(pk value) -> ids

	nextVertex graph.VertexID
	nextEdge   graph.EdgeID
	txnSeq     uint64
}

var _ graph.Graph = (*Graph)(nil)

// New creates an empty graph governed by schema
func New(schema *Schema) *Graph {
	return &Graph{
		writer:     make(chan struct{}, 1),
		schema:     schema,
		vertices:   make(map[graph.VertexID]*graph.Vertex),
		edges:      make(map[graph.EdgeID]*graph.Edge),
		out:        make(map[graph.VertexID]map[graph.EdgeID]struct{}),
		in:         make(map[graph.VertexID]map[graph.EdgeID]struct{}),
		byLabel:    make(map[string]map[graph.VertexID]struct{}),
		pkIndex:    make(map[string]map[uint64][]graph.VertexID),
		nextVertex: 1,
		nextEdge:   1,
	}
}

// Schema returns the graph's schema catalog
func (g *Graph) Schema() graph.Schema { return g.schema }

// Begin opens a transaction. A write transaction waits for the previous
// writer to finish or for ctx to be done.
func (g *Graph) Begin(ctx context.Context, readOnly bool) (graph.Txn, error) {
	if !readOnly {
		select {
		case g.writer <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	g.txnSeq++
	id := g.txnSeq
	g.mu.Unlock()

	return &Txn{
		g:               g,
		id:              id,
		readOnly:        readOnly,
		active:          true,
		createdVertices: make(map[graph.VertexID]*graph.Vertex),
		updatedVertices: make(map[graph.VertexID]map[string]value.Value),
		deletedVertices: make(map[graph.VertexID]bool),
		createdEdges:    make(map[graph.EdgeID]*graph.Edge),
		updatedEdges:    make(map[graph.EdgeID]map[string]value.Value),
		deletedEdges:    make(map[graph.EdgeID]bool),
	}, nil
}

// VertexCount returns the number of committed vertices
func (g *Graph) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vertices)
}

// EdgeCount returns the number of committed edges
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// indexVertex adds v to the label and primary-key indexes. Caller holds mu.
func (g *Graph) indexVertex(v *graph.Vertex) {
	for _, l := range v.Labels {
		set := g.byLabel[l]
		if set == nil {
			set = make(map[graph.VertexID]struct{})
			g.byLabel[l] = set
		}
		set[v.ID] = struct{}{}

		if pk, ok := g.schema.PrimaryKey(l); ok {
			if pv, ok := v.Properties[pk]; ok && !pv.IsNull() {
				idx := g.pkIndex[l]
				if idx == nil {
					idx = make(map[uint64][]graph.VertexID)
					g.pkIndex[l] = idx
				}
				h := pv.Hash()
				idx[h] = append(idx[h], v.ID)
			}
		}
	}
}

// unindexVertex reverses indexVertex. Caller holds mu.
func (g *Graph) unindexVertex(v *graph.Vertex) {
	for _, l := range v.Labels {
		delete(g.byLabel[l], v.ID)
		if pk, ok := g.schema.PrimaryKey(l); ok {
			if pv, ok := v.Properties[pk]; ok && !pv.IsNull() {
				h := pv.Hash()
				ids := g.pkIndex[l][h]
				for i, id := range ids {
					if id == v.ID {
						ids = append(ids[:i], ids[i+1:]...)
						break
					}
				}
				if len(ids) == 0 {
					delete(g.pkIndex[l], h)
				} else {
					g.pkIndex[l][h] = ids
				}
			}
		}
	}
}

func addAdj(m map[graph.VertexID]map[graph.EdgeID]struct{}, v graph.VertexID, e graph.EdgeID) {
	set := m[v]
	if set == nil {
		set = make(map[graph.EdgeID]struct{})
		m[v] = set
	}
	set[e] = struct{}{}
}

func cloneVertex(v *graph.Vertex) *graph.Vertex {
	return &graph.Vertex{
		ID:         v.ID,
		Labels:     append([]string(nil), v.Labels...),
		Properties: value.CopyMap(v.Properties),
	}
}

func cloneEdge(e *graph.Edge) *graph.Edge {
	c := *e
	c.Properties = value.CopyMap(e.Properties)
	return &c
}

// applyProps merges an update overlay; null removes a property
func applyProps(dst map[string]value.Value, updates map[string]value.Value) {
	for k, v := range updates {
		if v.IsNull() {
			delete(dst, k)
		} else {
			dst[k] = v
		}
	}
}

func sortVertexIDs(ids []graph.VertexID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortEdgeIDs(ids []graph.EdgeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
