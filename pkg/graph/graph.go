// Package graph declares the storage collaborators the query engine runs
// against: a transactional property graph and its schema catalog.
package graph

import (
	"context"

	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// VertexID and EdgeID are native storage identifiers
type (
	VertexID int64
	EdgeID   int64
)

// Vertex is a self-contained copy of a stored vertex
type Vertex struct {
	ID         VertexID
	Labels     []string
	Properties map[string]value.Value
}

// HasLabel reports whether the vertex carries label
func (v *Vertex) HasLabel(label string) bool {
	for _, l := range v.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Edge is a self-contained copy of a stored edge
type Edge struct {
	ID         EdgeID
	Src        VertexID
	Dst        VertexID
	Type       string
	Properties map[string]value.Value
}

// Other returns the endpoint of e that is not v
func (e *Edge) Other(v VertexID) VertexID {
	if e.Src == v {
		return e.Dst
	}
	return e.Src
}

// Direction selects edges relative to a vertex
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "OUT"
	case Incoming:
		return "IN"
	default:
		return "BOTH"
	}
}

// Graph is a transactional property graph
type Graph interface {
	// Begin opens a transaction. Write transactions are serialized.
	Begin(ctx context.Context, readOnly bool) (Txn, error)
	Schema() Schema
}

// Schema is the read-only catalog of labels, relationship types and keys
type Schema interface {
	Labels() []string
	RelationshipTypes() []string
	PropertyKeys() []string
	HasLabel(label string) bool
	HasRelationshipType(typ string) bool
	HasPropertyKey(key string) bool
	// PrimaryKey returns the property that uniquely identifies vertices of
	// label, if the label declares one.
	PrimaryKey(label string) (string, bool)
}

// VertexIterator walks vertices in ascending id order. Close releases the
// cursor and is safe to call more than once.
type VertexIterator interface {
	Next() bool
	Vertex() *Vertex
	Err() error
	Close() error
}

// EdgeIterator walks edges in ascending id order
type EdgeIterator interface {
	Next() bool
	Edge() *Edge
	Err() error
	Close() error
}

// Txn is one storage transaction. It is used by a single goroutine.
type Txn interface {
	ReadOnly() bool

	GetVertex(id VertexID) (*Vertex, error)
	GetEdge(id EdgeID) (*Edge, error)
	// ScanVertices iterates all vertices, or those carrying label when it
	// is non-empty.
	ScanVertices(label string) (VertexIterator, error)
	// SeekVertex finds the vertex of label whose key equals v. It returns
	// ErrVertexNotFound when there is none.
	SeekVertex(label, key string, v value.Value) (*Vertex, error)
	// Edges iterates the edges incident to id in direction dir whose type
	// is one of types (any type when types is empty).
	Edges(id VertexID, dir Direction, types []string) (EdgeIterator, error)

	CreateVertex(labels []string, props map[string]value.Value) (*Vertex, error)
	CreateEdge(src, dst VertexID, typ string, props map[string]value.Value) (*Edge, error)
	SetVertexProperty(id VertexID, key string, v value.Value) error
	SetEdgeProperty(id EdgeID, key string, v value.Value) error
	// DeleteVertex removes a vertex; with detach its incident edges go too,
	// otherwise a vertex with edges is a constraint violation.
	DeleteVertex(id VertexID, detach bool) error
	DeleteEdge(id EdgeID) error

	Commit() error
	Rollback() error
}
