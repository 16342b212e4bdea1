package memgraph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

func loadSocial(t *testing.T) *Graph {
	t.Helper()
	g, err := LoadFixtureFile("testdata/social.yaml")
	require.NoError(t, err)
	return g
}

func collectVertices(t *testing.T, it graph.VertexIterator) []*graph.Vertex {
	t.Helper()
	defer it.Close()
	var out []*graph.Vertex
	for it.Next() {
		out = append(out, it.Vertex())
	}
	require.NoError(t, it.Err())
	return out
}

func names(vs []*graph.Vertex) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i], _ = v.Properties["name"].AsString()
	}
	return out
}

func TestLoadFixture(t *testing.T) {
	g := loadSocial(t)
	assert.Equal(t, 4, g.VertexCount())
	assert.Equal(t, 4, g.EdgeCount())

	s := g.Schema()
	assert.Equal(t, []string{"City", "Person"}, s.Labels())
	assert.Equal(t, []string{"KNOWS", "LIVES_IN"}, s.RelationshipTypes())
	assert.Equal(t, []string{"age", "name", "since"}, s.PropertyKeys())
	pk, ok := s.PrimaryKey("Person")
	assert.True(t, ok)
	assert.Equal(t, "name", pk)
	_, ok = s.PrimaryKey("Nope")
	assert.False(t, ok)
}

func TestLoadFixture_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "bogus: 1\n",
		"missing key":    "schema: {labels: [{name: A}]}\nvertices: [{labels: [A]}]\n",
		"unknown label":  "vertices: [{key: a, labels: [A]}]\n",
		"dangling edge":  "schema: {labels: [{name: A}], relationships: [{name: R}]}\nvertices: [{key: a, labels: [A]}]\nedges: [{from: a, to: b, type: R}]\n",
		"duplicate pk":   "schema: {labels: [{name: A, primary_key: id}]}\nvertices: [{key: a, labels: [A], properties: {id: 1}}, {key: b, labels: [A], properties: {id: 1}}]\n",
		"bad label name": "schema: {labels: [{name: bad-name}]}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFixture(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestScanVertices_Ordered(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), true)
	require.NoError(t, err)
	defer txn.Rollback()

	it, err := txn.ScanVertices("")
	require.NoError(t, err)
	all := collectVertices(t, it)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}

	it, err = txn.ScanVertices("Person")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, names(collectVertices(t, it)))
}

func TestSeekVertex(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), true)
	require.NoError(t, err)
	defer txn.Rollback()

	v, err := txn.SeekVertex("Person", "name", value.String("bob"))
	require.NoError(t, err)
	age, _ := v.Properties["age"].AsInt()
	assert.Equal(t, int64(25), age)

	// non-key lookups fall back to a label scan
	v, err = txn.SeekVertex("Person", "age", value.Int(41))
	require.NoError(t, err)
	assert.Equal(t, "carol", names([]*graph.Vertex{v})[0])

	_, err = txn.SeekVertex("Person", "name", value.String("dave"))
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
	_, err = txn.SeekVertex("Person", "name", value.Null())
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestEdges_Directions(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), true)
	require.NoError(t, err)
	defer txn.Rollback()

	alice, err := txn.SeekVertex("Person", "name", value.String("alice"))
	require.NoError(t, err)
	carol, err := txn.SeekVertex("Person", "name", value.String("carol"))
	require.NoError(t, err)

	count := func(id graph.VertexID, dir graph.Direction, types ...string) int {
		it, err := txn.Edges(id, dir, types)
		require.NoError(t, err)
		defer it.Close()
		n := 0
		for it.Next() {
			n++
		}
		return n
	}
	assert.Equal(t, 3, count(alice.ID, graph.Outgoing))
	assert.Equal(t, 2, count(alice.ID, graph.Outgoing, "KNOWS"))
	assert.Equal(t, 0, count(alice.ID, graph.Incoming))
	assert.Equal(t, 2, count(carol.ID, graph.Incoming))
	assert.Equal(t, 2, count(carol.ID, graph.Both))
}

func TestTxn_ReadYourWritesAndCommit(t *testing.T) {
	g := loadSocial(t)
	ctx := context.Background()

	txn, err := g.Begin(ctx, false)
	require.NoError(t, err)

	dave, err := txn.CreateVertex([]string{"Person"}, map[string]value.Value{"name": value.String("dave")})
	require.NoError(t, err)
	bob, err := txn.SeekVertex("Person", "name", value.String("bob"))
	require.NoError(t, err)
	_, err = txn.CreateEdge(dave.ID, bob.ID, "KNOWS", nil)
	require.NoError(t, err)
	require.NoError(t, txn.SetVertexProperty(bob.ID, "age", value.Int(26)))

	// visible inside the txn
	got, err := txn.SeekVertex("Person", "name", value.String("dave"))
	require.NoError(t, err)
	assert.Equal(t, dave.ID, got.ID)
	b, err := txn.GetVertex(bob.ID)
	require.NoError(t, err)
	assert.True(t, b.Properties["age"].Equal(value.Int(26)))

	// not visible to a concurrent reader
	reader, err := g.Begin(ctx, true)
	require.NoError(t, err)
	_, err = reader.SeekVertex("Person", "name", value.String("dave"))
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
	require.NoError(t, reader.Commit())

	require.NoError(t, txn.Commit())
	assert.Equal(t, 5, g.VertexCount())
	assert.Equal(t, 5, g.EdgeCount())

	after, err := g.Begin(ctx, true)
	require.NoError(t, err)
	defer after.Rollback()
	_, err = after.SeekVertex("Person", "name", value.String("dave"))
	assert.NoError(t, err)
	b, err = after.GetVertex(bob.ID)
	require.NoError(t, err)
	assert.True(t, b.Properties["age"].Equal(value.Int(26)))
}

func TestTxn_Rollback(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), false)
	require.NoError(t, err)
	_, err = txn.CreateVertex([]string{"City"}, map[string]value.Value{"name": value.String("Oslo")})
	require.NoError(t, err)
	require.NoError(t, txn.Rollback())
	require.NoError(t, txn.Rollback())

	assert.Equal(t, 4, g.VertexCount())
	_, err = txn.GetVertex(1)
	assert.ErrorIs(t, err, graph.ErrTxnClosed)
}

func TestTxn_DeleteVertex(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), false)
	require.NoError(t, err)

	alice, err := txn.SeekVertex("Person", "name", value.String("alice"))
	require.NoError(t, err)

	err = txn.DeleteVertex(alice.ID, false)
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)

	require.NoError(t, txn.DeleteVertex(alice.ID, true))
	_, err = txn.GetVertex(alice.ID)
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
	require.NoError(t, txn.Commit())

	assert.Equal(t, 3, g.VertexCount())
	assert.Equal(t, 1, g.EdgeCount())

	// the primary key is free again
	txn, err = g.Begin(context.Background(), false)
	require.NoError(t, err)
	_, err = txn.CreateVertex([]string{"Person"}, map[string]value.Value{"name": value.String("alice")})
	assert.NoError(t, err)
	require.NoError(t, txn.Commit())
}

func TestTxn_PrimaryKeyConstraints(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), false)
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = txn.CreateVertex([]string{"Person"}, map[string]value.Value{"age": value.Int(1)})
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)

	_, err = txn.CreateVertex([]string{"Person"}, map[string]value.Value{"name": value.String("bob")})
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)

	bob, err := txn.SeekVertex("Person", "name", value.String("bob"))
	require.NoError(t, err)
	err = txn.SetVertexProperty(bob.ID, "name", value.String("alice"))
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)
	err = txn.SetVertexProperty(bob.ID, "name", value.Null())
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)

	_, err = txn.CreateVertex([]string{"Robot"}, nil)
	assert.ErrorIs(t, err, graph.ErrUnknownLabel)
}

func TestTxn_ReadOnlyRejectsWrites(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), true)
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = txn.CreateVertex([]string{"City"}, map[string]value.Value{"name": value.String("Rome")})
	assert.True(t, errors.Is(err, graph.ErrReadOnlyTxn))
}

func TestBegin_SingleWriter(t *testing.T) {
	g := loadSocial(t)
	first, err := g.Begin(context.Background(), false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Begin(ctx, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Commit())
	second, err := g.Begin(context.Background(), false)
	require.NoError(t, err)
	require.NoError(t, second.Rollback())
}

func TestScan_SkipsVerticesDeletedDuringIteration(t *testing.T) {
	g := loadSocial(t)
	txn, err := g.Begin(context.Background(), false)
	require.NoError(t, err)
	defer txn.Rollback()

	it, err := txn.ScanVertices("Person")
	require.NoError(t, err)
	defer it.Close()

	seen := 0
	for it.Next() {
		seen++
		if seen == 1 {
			bob, err := txn.SeekVertex("Person", "name", value.String("bob"))
			require.NoError(t, err)
			require.NoError(t, txn.DeleteVertex(bob.ID, true))
		}
	}
	assert.Equal(t, 2, seen)
}
