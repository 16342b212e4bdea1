package exec

import (
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
)

type group struct {
	keys []Entry
	accs []accumulator
}

// Aggregate groups its input by the key items and computes one set of
// aggregations per group. Without keys it always yields exactly one row,
// even for empty input.
type Aggregate struct {
	OpBase
	keys   []ProjectItem
	aggs   []AggregateSpec
	groups []*group
	pos    int
	loaded bool
}

func NewAggregate(a *arena.Arena, rec *Record, input Operator, keys []ProjectItem, aggs []AggregateSpec) *Aggregate {
	return arena.Alloc(a, Aggregate{OpBase: newBase("Aggregate", rec, input), keys: keys, aggs: aggs})
}

func (o *Aggregate) Detail() string {
	parts := make([]string, 0, len(o.keys)+len(o.aggs))
	for _, k := range o.keys {
		parts = append(parts, k.Alias)
	}
	for _, a := range o.aggs {
		parts = append(parts, a.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (o *Aggregate) newGroup(keys []Entry) *group {
	g := &group{keys: keys, accs: make([]accumulator, len(o.aggs))}
	for i, spec := range o.aggs {
		g.accs[i] = newAccumulator(spec)
	}
	return g
}

func (o *Aggregate) load(rt *Runtime) error {
	o.groups = o.groups[:0]
	index := make(map[uint64][]*group)
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
			if keys[i].Kind == EntryPath {
				keys[i].Path = keys[i].Path.clone()
			}
		}
		h := hashEntries(keys)
		var g *group
		for _, cand := range index[h] {
			if sameEntries(cand.keys, keys) {
				g = cand
				break
			}
		}
		if g == nil {
			g = o.newGroup(keys)
			index[h] = append(index[h], g)
			o.groups = append(o.groups, g)
		}
		for i, spec := range o.aggs {
			arg := NullEntry()
			if spec.Arg != nil {
				if arg, err = spec.Arg.Eval(rt, o.record); err != nil {
					return runtimeErr(o.name, err)
				}
			}
			if err := g.accs[i].add(arg); err != nil {
				return runtimeErr(o.name, err)
			}
		}
	}
	if len(o.groups) == 0 && len(o.keys) == 0 {
		o.groups = append(o.groups, o.newGroup(nil))
	}
	o.pos = 0
	o.loaded = true
	return nil
}

func sameEntries(a, b []Entry) bool {
	for i := range a {
		if !Same(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (o *Aggregate) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.loaded {
		if err := o.load(rt); err != nil {
			return OpDepleted, err
		}
		o.state = StateConsuming
	}
	if o.pos >= len(o.groups) {
		o.state = StateDepleted
		return OpDepleted, nil
	}
	g := o.groups[o.pos]
	o.pos++
	for i, k := range o.keys {
		o.record.Values[k.Slot] = g.keys[i]
	}
	for i, spec := range o.aggs {
		o.record.Values[spec.Slot] = g.accs[i].result()
	}
	return OpOK, nil
}

func (o *Aggregate) Reset(complete bool) error {
	o.loaded = false
	o.groups = nil
	return o.OpBase.Reset(complete)
}
