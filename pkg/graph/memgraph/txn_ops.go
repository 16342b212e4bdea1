package memgraph

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

func (t *Txn) checkWritable(op string) error {
	if !t.active {
		return graph.NewError(op).Cause(graph.ErrTxnClosed).Err()
	}
	if t.readOnly {
		return graph.NewError(op).Cause(graph.ErrReadOnlyTxn).Err()
	}
	return nil
}

// checkPrimaryKey enforces presence and uniqueness of pk values for the
// labels of v. self is excluded from the uniqueness probe.
func (t *Txn) checkPrimaryKey(op string, v *graph.Vertex) error {
	for _, l := range v.Labels {
		pk, ok := t.g.schema.PrimaryKey(l)
		if !ok {
			continue
		}
		pv, ok := v.Properties[pk]
		if !ok || pv.IsNull() {
			return graph.NewError(op).Label(l).Cause(fmt.Errorf("%w: primary key %s is required", graph.ErrConstraintViolation, pk)).Err()
		}
		existing, err := t.SeekVertex(l, pk, pv)
		if err == nil && existing.ID != v.ID {
			return graph.NewError(op).Label(l).Cause(fmt.Errorf("%w: duplicate %s %s", graph.ErrConstraintViolation, pk, pv.Literal())).Err()
		}
		if err != nil && !errors.Is(err, graph.ErrVertexNotFound) {
			return err
		}
	}
	return nil
}

// CreateVertex creates a vertex within the transaction
func (t *Txn) CreateVertex(labels []string, props map[string]value.Value) (*graph.Vertex, error) {
	if err := t.checkWritable("CreateVertex"); err != nil {
		return nil, err
	}
	for _, l := range labels {
		if !t.g.schema.HasLabel(l) {
			return nil, graph.NewError("CreateVertex").Label(l).Cause(graph.ErrUnknownLabel).Err()
		}
	}

	v := &graph.Vertex{
		ID:         t.g.nextVertex,
		Labels:     append([]string(nil), labels...),
		Properties: make(map[string]value.Value, len(props)),
	}
	applyProps(v.Properties, props)
	if err := t.checkPrimaryKey("CreateVertex", v); err != nil {
		return nil, err
	}

	// Buffer the vertex (don't add to storage until commit)
	t.g.nextVertex++
	t.createdVertices[v.ID] = v
	return cloneVertex(v), nil
}

// CreateEdge creates an edge within the transaction
func (t *Txn) CreateEdge(src, dst graph.VertexID, typ string, props map[string]value.Value) (*graph.Edge, error) {
	if err := t.checkWritable("CreateEdge"); err != nil {
		return nil, err
	}
	if !t.g.schema.HasRelationshipType(typ) {
		return nil, graph.NewError("CreateEdge").Label(typ).Cause(graph.ErrUnknownLabel).Err()
	}
	if _, ok := t.vertex(src); !ok {
		return nil, graph.VertexNotFoundError(src)
	}
	if _, ok := t.vertex(dst); !ok {
		return nil, graph.VertexNotFoundError(dst)
	}

	e := &graph.Edge{
		ID:         t.g.nextEdge,
		Src:        src,
		Dst:        dst,
		Type:       typ,
		Properties: make(map[string]value.Value, len(props)),
	}
	applyProps(e.Properties, props)
	t.g.nextEdge++
	t.createdEdges[e.ID] = e
	return cloneEdge(e), nil
}

// SetVertexProperty buffers a property update; null removes the property
func (t *Txn) SetVertexProperty(id graph.VertexID, key string, v value.Value) error {
	if err := t.checkWritable("SetVertexProperty"); err != nil {
		return err
	}
	cur, ok := t.vertex(id)
	if !ok {
		return graph.VertexNotFoundError(id)
	}
	applyProps(cur.Properties, map[string]value.Value{key: v})
	if err := t.checkPrimaryKey("SetVertexProperty", cur); err != nil {
		return err
	}

	if created, ok := t.createdVertices[id]; ok {
		applyProps(created.Properties, map[string]value.Value{key: v})
		return nil
	}
	if t.updatedVertices[id] == nil {
		t.updatedVertices[id] = make(map[string]value.Value)
	}
	t.updatedVertices[id][key] = v
	return nil
}

// SetEdgeProperty buffers a property update; null removes the property
func (t *Txn) SetEdgeProperty(id graph.EdgeID, key string, v value.Value) error {
	if err := t.checkWritable("SetEdgeProperty"); err != nil {
		return err
	}
	if _, ok := t.edge(id); !ok {
		return graph.EdgeNotFoundError(id)
	}
	if created, ok := t.createdEdges[id]; ok {
		applyProps(created.Properties, map[string]value.Value{key: v})
		return nil
	}
	if t.updatedEdges[id] == nil {
		t.updatedEdges[id] = make(map[string]value.Value)
	}
	t.updatedEdges[id][key] = v
	return nil
}

// DeleteVertex deletes a vertex, and with detach its incident edges
func (t *Txn) DeleteVertex(id graph.VertexID, detach bool) error {
	if err := t.checkWritable("DeleteVertex"); err != nil {
		return err
	}
	if _, ok := t.vertex(id); !ok {
		return graph.VertexNotFoundError(id)
	}

	edges := t.incident(id, graph.Both)
	if len(edges) > 0 && !detach {
		return graph.NewError("DeleteVertex").Vertex(id).
			Cause(fmt.Errorf("%w: vertex still has %d relationships", graph.ErrConstraintViolation, len(edges))).Err()
	}
	for _, eid := range edges {
		t.dropEdge(eid)
	}

	if _, ok := t.createdVertices[id]; ok {
		delete(t.createdVertices, id)
		return nil
	}
	delete(t.updatedVertices, id)
	t.deletedVertices[id] = true
	return nil
}

// DeleteEdge deletes an edge
func (t *Txn) DeleteEdge(id graph.EdgeID) error {
	if err := t.checkWritable("DeleteEdge"); err != nil {
		return err
	}
	if _, ok := t.edge(id); !ok {
		return graph.EdgeNotFoundError(id)
	}
	t.dropEdge(id)
	return nil
}

func (t *Txn) dropEdge(id graph.EdgeID) {
	if _, ok := t.createdEdges[id]; ok {
		delete(t.createdEdges, id)
		return
	}
	delete(t.updatedEdges, id)
	t.deletedEdges[id] = true
}
