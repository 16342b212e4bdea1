package exec

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
)

// ProjectItem writes the value of Expr to Slot
type ProjectItem struct {
	Expr  *Expression
	Slot  int
	Alias string
}

func itemsDetail(items []ProjectItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Alias
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Project evaluates its items into their slots for every input row
type Project struct {
	OpBase
	items []ProjectItem
}

func NewProject(a *arena.Arena, rec *Record, input Operator, items []ProjectItem) *Project {
	return arena.Alloc(a, Project{OpBase: newBase("Project", rec, input), items: items})
}

func (o *Project) Detail() string { return itemsDetail(o.items) }

func (o *Project) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	// evaluate everything before writing so items may read each other's
	// input slots
	out := make([]Entry, len(o.items))
	for i, it := range o.items {
		if out[i], err = it.Expr.Eval(rt, o.record); err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
	}
	for i, it := range o.items {
		o.record.Values[it.Slot] = out[i]
	}
	return OpOK, nil
}

// Distinct drops rows whose slots repeat an earlier row's
type Distinct struct {
	OpBase
	slots []int
	seen  map[uint64][][]Entry
}

func NewDistinct(a *arena.Arena, rec *Record, input Operator, slots []int) *Distinct {
	return arena.Alloc(a, Distinct{OpBase: newBase("Distinct", rec, input), slots: slots})
}

func (o *Distinct) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if o.seen == nil {
		o.seen = make(map[uint64][][]Entry)
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	key := hashSlots(o.record.Values, o.slots)
	for _, prev := range o.seen[key] {
		if o.sameRow(prev) {
			return OpRefresh, nil
		}
	}
	row := make([]Entry, len(o.slots))
	for i, s := range o.slots {
		row[i] = o.record.Values[s]
		if row[i].Kind == EntryPath {
			row[i].Path = row[i].Path.clone()
		}
	}
	o.seen[key] = append(o.seen[key], row)
	return OpOK, nil
}

func (o *Distinct) sameRow(prev []Entry) bool {
	for i, s := range o.slots {
		if !Same(prev[i], o.record.Values[s]) {
			return false
		}
	}
	return true
}

func (o *Distinct) Reset(complete bool) error {
	o.seen = nil
	return o.OpBase.Reset(complete)
}

// hashEntries hashes a row of entries
func hashEntries(entries []Entry) uint64 {
	d := xxhash.New()
	for _, e := range entries {
		e.WriteHash(d)
	}
	return d.Sum64()
}

// Skip drops the first n input rows
type Skip struct {
	OpBase
	count   *Expression
	skipped bool
}

func NewSkip(a *arena.Arena, rec *Record, input Operator, count *Expression) *Skip {
	return arena.Alloc(a, Skip{OpBase: newBase("Skip", rec, input), count: count})
}

func (o *Skip) Detail() string { return "[" + o.count.String() + "]" }

func (o *Skip) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.skipped {
		n, err := rowCount(rt, o.record, o.count, "SKIP")
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		o.skipped = true
		for ; n > 0; n-- {
			res, err := o.input(rt)
			if err != nil || res != OpOK {
				o.state = StateDepleted
				return OpDepleted, err
			}
		}
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	return OpOK, nil
}

func (o *Skip) Reset(complete bool) error {
	o.skipped = false
	return o.OpBase.Reset(complete)
}

// Limit stops after n rows without pulling its input again
type Limit struct {
	OpBase
	count   *Expression
	n       int64
	emitted int64
	ready   bool
}

func NewLimit(a *arena.Arena, rec *Record, input Operator, count *Expression) *Limit {
	return arena.Alloc(a, Limit{OpBase: newBase("Limit", rec, input), count: count})
}

func (o *Limit) Detail() string { return "[" + o.count.String() + "]" }

func (o *Limit) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.ready {
		n, err := rowCount(rt, o.record, o.count, "LIMIT")
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		o.n, o.emitted, o.ready = n, 0, true
	}
	if o.emitted >= o.n {
		o.state = StateDepleted
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	o.emitted++
	return OpOK, nil
}

func (o *Limit) Reset(complete bool) error {
	o.ready = false
	return o.OpBase.Reset(complete)
}

func rowCount(rt *Runtime, rec *Record, e *Expression, clause string) (int64, error) {
	v, err := e.Value(rt, rec)
	if err != nil {
		return 0, err
	}
	n, err := v.AsInt()
	if err != nil || n < 0 {
		return 0, typeErr("%s expects a non-negative integer, got %s", clause, v.Literal())
	}
	return n, nil
}
