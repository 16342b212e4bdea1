package exec

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// EntryKind is the dynamic kind of one record slot
type EntryKind uint8

const (
	EntryUnset EntryKind = iota
	EntryConstant
	EntryNode
	EntryRelationship
	EntryPath
)

func (k EntryKind) String() string {
	switch k {
	case EntryConstant:
		return "CONSTANT"
	case EntryNode:
		return "NODE"
	case EntryRelationship:
		return "RELATIONSHIP"
	case EntryPath:
		return "PATH"
	default:
		return "UNSET"
	}
}

// Path is an alternating vertex/edge walk. Edges[i] connects Vertices[i]
// and Vertices[i+1]. A path with no vertices is empty.
type Path struct {
	Vertices []graph.VertexID
	Edges    []graph.EdgeID
}

// Len is the number of edges
func (p *Path) Len() int { return len(p.Edges) }

func (p *Path) clone() *Path {
	if p == nil {
		return nil
	}
	return &Path{
		Vertices: append([]graph.VertexID(nil), p.Vertices...),
		Edges:    append([]graph.EdgeID(nil), p.Edges...),
	}
}

// Entry is one typed slot. Node and relationship entries hold ids only;
// Bound is false for a node or relationship left unmatched by OPTIONAL
// MATCH.
type Entry struct {
	Kind     EntryKind
	Constant value.Value
	Vertex   graph.VertexID
	Edge     graph.EdgeID
	Bound    bool
	Path     *Path
}

func Constant(v value.Value) Entry { return Entry{Kind: EntryConstant, Constant: v} }

func NullEntry() Entry { return Entry{Kind: EntryConstant} }

func NodeEntry(id graph.VertexID) Entry { return Entry{Kind: EntryNode, Vertex: id, Bound: true} }

func RelEntry(id graph.EdgeID) Entry { return Entry{Kind: EntryRelationship, Edge: id, Bound: true} }

func PathEntry(p *Path) Entry { return Entry{Kind: EntryPath, Path: p} }

// IsNull reports whether the entry carries no value
func (e Entry) IsNull() bool {
	switch e.Kind {
	case EntryConstant:
		return e.Constant.IsNull()
	case EntryNode, EntryRelationship:
		return !e.Bound
	case EntryPath:
		return e.Path == nil || len(e.Path.Vertices) == 0
	default:
		return true
	}
}

// Same reports identity for grouping and DISTINCT: null equals null and
// graph entities compare by id
func Same(a, b Entry) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case EntryConstant:
		return value.Equivalent(a.Constant, b.Constant)
	case EntryNode:
		return a.Vertex == b.Vertex
	case EntryRelationship:
		return a.Edge == b.Edge
	case EntryPath:
		if len(a.Path.Vertices) != len(b.Path.Vertices) || len(a.Path.Edges) != len(b.Path.Edges) {
			return false
		}
		for i := range a.Path.Vertices {
			if a.Path.Vertices[i] != b.Path.Vertices[i] {
				return false
			}
		}
		for i := range a.Path.Edges {
			if a.Path.Edges[i] != b.Path.Edges[i] {
				return false
			}
		}
		return true
	}
	return false
}

// WriteHash writes a hash key consistent with Same
func (e Entry) WriteHash(d *xxhash.Digest) {
	var buf [9]byte
	if e.IsNull() {
		_, _ = d.Write([]byte{0})
		return
	}
	buf[0] = byte(e.Kind)
	switch e.Kind {
	case EntryConstant:
		_, _ = d.Write(buf[:1])
		e.Constant.WriteHash(d)
	case EntryNode:
		binary.LittleEndian.PutUint64(buf[1:], uint64(e.Vertex))
		_, _ = d.Write(buf[:])
	case EntryRelationship:
		binary.LittleEndian.PutUint64(buf[1:], uint64(e.Edge))
		_, _ = d.Write(buf[:])
	case EntryPath:
		_, _ = d.Write(buf[:1])
		for _, v := range e.Path.Vertices {
			binary.LittleEndian.PutUint64(buf[1:], uint64(v))
			_, _ = d.Write(buf[1:])
		}
		for _, ed := range e.Path.Edges {
			binary.LittleEndian.PutUint64(buf[1:], uint64(ed))
			_, _ = d.Write(buf[1:])
		}
	}
}

// Record is the row buffer shared by every operator of one plan. Slots
// are overwritten in place on every pull.
type Record struct {
	Values []Entry
}

// NewRecord creates a record with n unset slots
func NewRecord(n int) *Record {
	return &Record{Values: make([]Entry, n)}
}

// Snapshot copies the slots, deep-copying paths
func (r *Record) Snapshot() []Entry {
	out := make([]Entry, len(r.Values))
	copy(out, r.Values)
	for i := range out {
		if out[i].Kind == EntryPath {
			out[i].Path = out[i].Path.clone()
		}
	}
	return out
}

// Restore overwrites the slots from a snapshot
func (r *Record) Restore(snap []Entry) {
	copy(r.Values, snap)
}

// hashSlots hashes the given slots of entries
func hashSlots(entries []Entry, slots []int) uint64 {
	d := xxhash.New()
	for _, s := range slots {
		entries[s].WriteHash(d)
	}
	return d.Sum64()
}
