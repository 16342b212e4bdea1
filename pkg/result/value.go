package result

import (
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Kind tags a result Value
type Kind uint8

const (
	KindValue Kind = iota
	KindNode
	KindRelationship
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "NODE"
	case KindRelationship:
		return "RELATIONSHIP"
	case KindPath:
		return "PATH"
	default:
		return "VALUE"
	}
}

// Node is a copy of a vertex taken when its row was materialized
type Node struct {
	ID         graph.VertexID
	Labels     []string
	Properties map[string]value.Value
}

// Relationship is a copy of an edge taken when its row was materialized
type Relationship struct {
	ID         graph.EdgeID
	Src        graph.VertexID
	Dst        graph.VertexID
	Type       string
	Properties map[string]value.Value
}

// Value is one cell of a result row. Exactly one of Scalar, Node,
// Relationship and Path is meaningful, selected by Kind. A path holds
// alternating node and relationship values.
type Value struct {
	Kind         Kind
	Scalar       value.Value
	Node         *Node
	Relationship *Relationship
	Path         []Value
}

// Null is the scalar null
func Null() Value { return Value{} }

func Scalar(v value.Value) Value { return Value{Kind: KindValue, Scalar: v} }

func newNode(v *graph.Vertex) Value {
	return Value{Kind: KindNode, Node: &Node{
		ID:         v.ID,
		Labels:     append([]string(nil), v.Labels...),
		Properties: value.CopyMap(v.Properties),
	}}
}

func newRelationship(e *graph.Edge) Value {
	return Value{Kind: KindRelationship, Relationship: &Relationship{
		ID:         e.ID,
		Src:        e.Src,
		Dst:        e.Dst,
		Type:       e.Type,
		Properties: value.CopyMap(e.Properties),
	}}
}

// IsNull reports whether v is the scalar null
func (v Value) IsNull() bool {
	return v.Kind == KindValue && v.Scalar.IsNull()
}

// String renders v for display: nodes as (id:Label {k: v}), relationships
// as [id:TYPE {k: v}] and paths as the alternation of both.
func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.Kind {
	case KindNode:
		b.WriteByte('(')
		b.WriteString(value.Int(int64(v.Node.ID)).String())
		for _, l := range v.Node.Labels {
			b.WriteByte(':')
			b.WriteString(l)
		}
		writeProps(b, v.Node.Properties)
		b.WriteByte(')')
	case KindRelationship:
		b.WriteByte('[')
		b.WriteString(value.Int(int64(v.Relationship.ID)).String())
		b.WriteByte(':')
		b.WriteString(v.Relationship.Type)
		writeProps(b, v.Relationship.Properties)
		b.WriteByte(']')
	case KindPath:
		for i, el := range v.Path {
			if i > 0 {
				b.WriteByte('-')
			}
			el.write(b)
		}
	default:
		b.WriteString(v.Scalar.String())
	}
}

func writeProps(b *strings.Builder, props map[string]value.Value) {
	if len(props) == 0 {
		return
	}
	b.WriteString(" {")
	for i, k := range value.SortedKeys(props) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(props[k].Literal())
	}
	b.WriteByte('}')
}

// Go converts v to plain Go values for encoding: nodes and relationships
// become maps, paths become slices.
func (v Value) Go() any {
	switch v.Kind {
	case KindNode:
		return map[string]any{
			"id":         int64(v.Node.ID),
			"labels":     v.Node.Labels,
			"properties": value.Map(v.Node.Properties).Go(),
		}
	case KindRelationship:
		return map[string]any{
			"id":         int64(v.Relationship.ID),
			"type":       v.Relationship.Type,
			"src":        int64(v.Relationship.Src),
			"dst":        int64(v.Relationship.Dst),
			"properties": value.Map(v.Relationship.Properties).Go(),
		}
	case KindPath:
		out := make([]any, len(v.Path))
		for i, el := range v.Path {
			out[i] = el.Go()
		}
		return out
	default:
		return v.Scalar.Go()
	}
}
