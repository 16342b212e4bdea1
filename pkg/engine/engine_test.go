package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cypher/pkg/config"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/graph/memgraph"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/plan"
	"github.com/dd0wney/cluso-cypher/pkg/result"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

func loadGraph(t *testing.T) *memgraph.Graph {
	t.Helper()
	g, err := memgraph.LoadFixtureFile("../graph/memgraph/testdata/social.yaml")
	require.NoError(t, err)
	return g
}

func newEngine(t *testing.T, cfg *config.Config, opts ...Option) (*Engine, *memgraph.Graph) {
	t.Helper()
	g := loadGraph(t)
	e, err := New(g, cfg, opts...)
	require.NoError(t, err)
	return e, g
}

func counterValue(t *testing.T, e *Engine, kind, status string) float64 {
	t.Helper()
	c, err := e.Metrics().QueriesTotal.GetMetricWithLabelValues(kind, status)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

type logLine struct {
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields"`
}

func logLines(t *testing.T, buf *bytes.Buffer) []logLine {
	t.Helper()
	var out []logLine
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var l logLine
		require.NoError(t, json.Unmarshal([]byte(line), &l))
		out = append(out, l)
	}
	return out
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	bad := config.Default()
	bad.LogLevel = "chatty"
	_, err = New(loadGraph(t), bad)
	assert.Error(t, err)

	e, _ := newEngine(t, nil)
	assert.Equal(t, config.Default(), e.Config())
	assert.Equal(t, "cypher", e.Metrics().Namespace())
	_, ok := e.Catalog().Lookup("db.labels")
	assert.True(t, ok)
}

func TestCollect(t *testing.T) {
	e, _ := newEngine(t, nil)

	header, rows, err := e.Collect(context.Background(),
		"MATCH (p:Person) WHERE p.age > $min RETURN p.name AS name ORDER BY name",
		map[string]value.Value{"min": value.Int(26)})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0][0].Go())
	assert.Equal(t, "carol", rows[1][0].Go())
	assert.Equal(t, float64(1), counterValue(t, e, KindRead, "success"))
}

func TestRun_Kinds(t *testing.T) {
	e, _ := newEngine(t, nil)
	tests := []struct {
		query string
		kind  string
	}{
		{"MATCH (n) RETURN n", KindRead},
		{"EXPLAIN MATCH (n) RETURN n", KindExplain},
		{"PROFILE MATCH (n) RETURN n", KindProfile},
		{"CREATE (:City {name: 'Oslo'})", KindWrite},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rows, err := e.Run(context.Background(), tt.query, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, rows.Kind())
			require.NoError(t, rows.Close())
			assert.Equal(t, float64(1), counterValue(t, e, tt.kind, "success"))
		})
	}
}

func TestRun_WriteCommits(t *testing.T) {
	e, g := newEngine(t, nil)

	_, rows, err := e.Collect(context.Background(), "CREATE (:City {name: 'Oslo'})", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, g.VertexCount())

	_, rows, err = e.Collect(context.Background(), "MATCH (c:City {name: 'Oslo'}) RETURN c.name", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Oslo", rows[0][0].Go())
}

func TestRun_CompileErrors(t *testing.T) {
	e, _ := newEngine(t, nil)

	_, err := e.Run(context.Background(), "MATCH (n:Planet) RETURN n", nil)
	var be *plan.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, plan.CodeUnknownLabel, be.Code)

	c, err := e.Metrics().PlanBuildErrors.GetMetricWithLabelValues("UnknownLabel")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.Equal(t, float64(1), m.Counter.GetValue())

	_, err = e.Run(context.Background(), "MATCH (n RETURN n", nil)
	assert.Error(t, err)
	assert.Equal(t, float64(2), counterValue(t, e, KindInvalid, "error"))

	m.Reset()
	require.NoError(t, e.Metrics().QueriesInFlight.Write(&m))
	assert.Equal(t, float64(0), m.Gauge.GetValue())
}

func TestRun_MaxRows(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRows = 2
	e, _ := newEngine(t, cfg)

	_, rows, err := e.Collect(context.Background(), "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	r, err := e.Run(context.Background(), "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.True(t, r.Next())
	assert.False(t, r.Next())
	assert.True(t, r.Truncated())
	assert.False(t, r.Valid())
	assert.Nil(t, r.Row())
	require.NoError(t, r.Close())
}

func TestRun_TruncatedWriteRunsToTheEnd(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRows = 1
	e, g := newEngine(t, cfg)

	_, rows, err := e.Collect(context.Background(),
		"UNWIND ['Oslo', 'Rome', 'Lima'] AS name CREATE (c:City {name: name}) RETURN c.name", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 7, g.VertexCount())
}

func TestRun_ProfileDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Profile = false
	e, _ := newEngine(t, cfg)

	_, err := e.Run(context.Background(), "PROFILE MATCH (n) RETURN n", nil)
	assert.ErrorIs(t, err, result.ErrProfileDisabled)
}

func TestRun_PushdownDisabled(t *testing.T) {
	query := "EXPLAIN MATCH (p:Person) WHERE p.name = 'alice' RETURN p"

	e, _ := newEngine(t, nil)
	_, rows, err := e.Collect(context.Background(), query, nil)
	require.NoError(t, err)
	assert.Contains(t, rows[0][0].Go(), "Node Index Seek")

	cfg := config.Default()
	cfg.Pushdown = false
	e, _ = newEngine(t, cfg)
	_, rows, err = e.Collect(context.Background(), query, nil)
	require.NoError(t, err)
	assert.NotContains(t, rows[0][0].Go(), "Node Index Seek")
	assert.Contains(t, rows[0][0].Go(), "Node By Label Scan")
}

func TestRun_RecordsRewritePasses(t *testing.T) {
	e, _ := newEngine(t, nil)
	_, _, err := e.Collect(context.Background(), "MATCH (a)-->(b) RETURN a", nil)
	require.NoError(t, err)

	h, err := e.Metrics().RewritePassDuration.GetMetricWithLabelValues("anonymous-aliases")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, h.(prometheus.Histogram).Write(&m))
	assert.Equal(t, uint64(1), m.Histogram.GetSampleCount())
}

func TestRun_Cancelled(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, rows, err := e.Collect(ctx, "MATCH (n) RETURN n", nil)
	assert.Empty(t, rows)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, exec.ErrCancelled)
	assert.Equal(t, float64(1), counterValue(t, e, KindRead, "error"))
}

func TestRun_Logging(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.SlowQuery = time.Nanosecond
	e, _ := newEngine(t, cfg, WithLogger(logging.NewJSONLogger(&buf, logging.InfoLevel)))

	_, _, err := e.Collect(context.Background(), "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	_, _ = e.Run(context.Background(), "MATCH (n:Planet) RETURN n", nil)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "WARN", lines[0].Level)
	assert.Equal(t, "slow query", lines[0].Message)
	assert.Equal(t, "read", lines[0].Fields["kind"])
	assert.Equal(t, float64(4), lines[0].Fields["rows"])
	assert.NotEmpty(t, lines[0].Fields["query_id"])

	assert.Equal(t, "ERROR", lines[1].Level)
	assert.Equal(t, "query failed to compile", lines[1].Message)
	assert.NotEqual(t, lines[0].Fields["query_id"], lines[1].Fields["query_id"])

	c, err := e.Metrics().SlowQueries.GetMetricWithLabelValues(KindRead)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.Equal(t, float64(1), m.Counter.GetValue())
}

func TestRun_Concurrent(t *testing.T) {
	e, _ := newEngine(t, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := "MATCH (a:Person)-[:KNOWS]->(b) RETURN a.name, b.name"
			if i%4 == 0 {
				query = "CREATE (:City {name: 'City" + string(rune('A'+i)) + "'})"
			}
			_, _, err := e.Collect(context.Background(), query, nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, float64(15), counterValue(t, e, KindRead, "success"))
	assert.Equal(t, float64(5), counterValue(t, e, KindWrite, "success"))
}
