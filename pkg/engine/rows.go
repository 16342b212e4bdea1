package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/metrics"
	"github.com/dd0wney/cluso-cypher/pkg/result"
)

// Rows is one running query. It is not safe for concurrent use.
type Rows struct {
	res    *result.Result
	engine *Engine
	log    logging.Logger
	span   trace.Span
	cancel context.CancelFunc

	query     string
	kind      string
	start     time.Time
	maxRows   int64
	truncated bool
	closed    bool
	closeErr  error
}

// Valid reports whether Row holds a row
func (r *Rows) Valid() bool { return !r.truncated && r.res.Valid() }

// Row returns the current row
func (r *Rows) Row() []result.Value {
	if r.truncated {
		return nil
	}
	return r.res.Row()
}

// Header returns the column names
func (r *Rows) Header() []string { return r.res.Header() }

// Err returns the error that ended iteration early
func (r *Rows) Err() error { return r.res.Err() }

// Stats returns the write statistics gathered so far
func (r *Rows) Stats() exec.Stats { return r.res.Stats() }

// Kind is read, write, explain or profile
func (r *Rows) Kind() string { return r.kind }

// Truncated reports whether iteration stopped at the configured row limit
func (r *Rows) Truncated() bool { return r.truncated }

// Next advances to the following row. Once MaxRows rows have been
// delivered it stops and Truncated reports true.
func (r *Rows) Next() bool {
	if !r.Valid() {
		return false
	}
	if r.maxRows > 0 && r.res.RowsProduced() >= r.maxRows {
		r.truncated = true
		return false
	}
	return r.res.Next()
}

// Close finishes the query: a write statement that stopped early is run to
// the end first so its effects are whole, then the transaction is
// committed or rolled back and the query is logged and recorded.
func (r *Rows) Close() error {
	if r.closed {
		return r.closeErr
	}
	r.closed = true
	defer r.cancel()

	if r.kind == KindWrite {
		for r.res.Next() {
		}
	}
	rows := r.res.RowsProduced()
	err := r.res.Err()
	closeErr := r.res.Close()
	if err == nil {
		err = closeErr
	}
	r.closeErr = closeErr
	took := time.Since(r.start)

	e := r.engine
	e.metrics.QueriesInFlight.Dec()
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	e.metrics.RecordQuery(r.kind, status, took, rows)

	fields := []logging.Field{
		logging.Phase("execute"),
		logging.String("kind", r.kind),
		logging.Rows(rows),
		logging.Latency(took),
	}
	if r.kind == KindWrite {
		st := r.res.Stats()
		fields = append(fields, logging.String("summary", st.Summary()))
	}
	switch {
	case err != nil:
		r.log.Error("query failed", append(fields, logging.Query(r.query), logging.Error(err))...)
	case e.cfg.SlowQuery > 0 && took+r.res.CompileDuration() > e.cfg.SlowQuery:
		e.metrics.RecordSlowQuery(r.kind)
		r.log.Warn("slow query", append(fields, logging.Query(r.query))...)
	default:
		r.log.Debug("query finished", fields...)
	}

	r.span.SetAttributes(attribute.Int64("query.rows", rows), attribute.Bool("query.truncated", r.truncated))
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.End()
	return r.closeErr
}

// IsTimeout reports whether err came from the query timeout or a cancelled
// caller context
func IsTimeout(err error) bool {
	return errors.Is(err, exec.ErrCancelled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
