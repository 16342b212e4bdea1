package exec

import (
	"sort"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// SortKey is one ORDER BY key
type SortKey struct {
	Expr *Expression
	Desc bool
}

type sortedRow struct {
	keys []Entry
	row  []Entry
}

// Sort buffers its whole input and replays it in key order. Ties keep
// input order.
type Sort struct {
	OpBase
	keys   []SortKey
	rows   []sortedRow
	pos    int
	loaded bool
}

func NewSort(a *arena.Arena, rec *Record, input Operator, keys []SortKey) *Sort {
	return arena.Alloc(a, Sort{OpBase: newBase("Sort", rec, input), keys: keys})
}

func (o *Sort) Detail() string {
	parts := make([]string, len(o.keys))
	for i, k := range o.keys {
		parts[i] = k.Expr.String()
		if k.Desc {
			parts[i] += " DESC"
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (o *Sort) load(rt *Runtime) error {
	o.rows = o.rows[:0]
	for {
		res, err := o.input(rt)
		if err != nil {
			return err
		}
		if res != OpOK {
			break
		}
		keys := make([]Entry, len(o.keys))
		for i, k := range o.keys {
			if keys[i], err = k.Expr.Eval(rt, o.record); err != nil {
				return runtimeErr(o.name, err)
			}
		}
		o.rows = append(o.rows, sortedRow{keys: keys, row: o.record.Snapshot()})
	}
	sort.SliceStable(o.rows, func(i, j int) bool {
		for k, key := range o.keys {
			c := compareEntries(o.rows[i].keys[k], o.rows[j].keys[k])
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	o.pos = 0
	o.loaded = true
	return nil
}

func (o *Sort) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.loaded {
		if err := o.load(rt); err != nil {
			return OpDepleted, err
		}
		o.state = StateConsuming
	}
	if o.pos >= len(o.rows) {
		o.state = StateDepleted
		return OpDepleted, nil
	}
	o.record.Restore(o.rows[o.pos].row)
	o.pos++
	return OpOK, nil
}

func (o *Sort) Reset(complete bool) error {
	o.loaded = false
	o.rows = nil
	return o.OpBase.Reset(complete)
}

// compareEntries orders values before graph entities, entities by id, and
// nulls last
func compareEntries(a, b Entry) int {
	an, bn := a.IsNull(), b.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	if a.Kind != b.Kind {
		return cmpInt(int64(a.Kind), int64(b.Kind))
	}
	switch a.Kind {
	case EntryConstant:
		return value.Compare(a.Constant, b.Constant)
	case EntryNode:
		return cmpInt(int64(a.Vertex), int64(b.Vertex))
	case EntryRelationship:
		return cmpInt(int64(a.Edge), int64(b.Edge))
	default:
		return cmpInt(int64(a.Path.Len()), int64(b.Path.Len()))
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
