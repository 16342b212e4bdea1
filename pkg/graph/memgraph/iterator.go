package memgraph

import "github.com/dd0wney/cluso-cypher/pkg/graph"

type vertexIterator struct {
	txn    *Txn
	ids    []graph.VertexID
	pos    int
	cur    *graph.Vertex
	closed bool
}

func (it *vertexIterator) Next() bool {
	if it.closed {
		return false
	}
	for it.pos+1 < len(it.ids) {
		it.pos++
		// skip vertices deleted since the scan started
		if v, ok := it.txn.vertex(it.ids[it.pos]); ok {
			it.cur = v
			return true
		}
	}
	it.cur = nil
	return false
}

func (it *vertexIterator) Vertex() *graph.Vertex { return it.cur }

func (it *vertexIterator) Err() error {
	if it.closed || it.txn.active {
		return nil
	}
	return graph.ErrTxnClosed
}

func (it *vertexIterator) Close() error {
	it.closed = true
	it.ids = nil
	it.cur = nil
	return nil
}

type edgeIterator struct {
	txn    *Txn
	ids    []graph.EdgeID
	types  []string
	pos    int
	cur    *graph.Edge
	closed bool
}

func (it *edgeIterator) Next() bool {
	if it.closed {
		return false
	}
	for it.pos+1 < len(it.ids) {
		it.pos++
		e, ok := it.txn.edge(it.ids[it.pos])
		if !ok {
			continue
		}
		if len(it.types) > 0 && !contains(it.types, e.Type) {
			continue
		}
		it.cur = e
		return true
	}
	it.cur = nil
	return false
}

func (it *edgeIterator) Edge() *graph.Edge { return it.cur }

func (it *edgeIterator) Err() error {
	if it.closed || it.txn.active {
		return nil
	}
	return graph.ErrTxnClosed
}

func (it *edgeIterator) Close() error {
	it.closed = true
	it.ids = nil
	it.cur = nil
	return nil
}
