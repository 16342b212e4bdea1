package exec

import (
	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Filter forwards the input rows on which the predicate holds
type Filter struct {
	OpBase
	pred *Expression
}

func NewFilter(a *arena.Arena, rec *Record, input Operator, pred *Expression) *Filter {
	return arena.Alloc(a, Filter{OpBase: newBase("Filter", rec, input), pred: pred})
}

func (o *Filter) Detail() string { return "[" + o.pred.String() + "]" }

func (o *Filter) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	res, err := o.input(rt)
	if err != nil || res != OpOK {
		o.state = StateDepleted
		return OpDepleted, err
	}
	o.state = StateConsuming
	ok, err := o.pred.Holds(rt, o.record)
	if err != nil {
		return OpDepleted, runtimeErr(o.name, err)
	}
	if !ok {
		return OpRefresh, nil
	}
	return OpOK, nil
}

// Unwind binds slot to each element of a list, once per input row. A
// null list yields nothing and a non-list value yields itself.
type Unwind struct {
	OpBase
	expr  *Expression
	slot  int
	alias string
	items []value.Value
	pos   int
	bound bool
}

func NewUnwind(a *arena.Arena, rec *Record, input Operator, expr *Expression, slot int, alias string) *Unwind {
	return arena.Alloc(a, Unwind{OpBase: newBase("Unwind", rec, input), expr: expr, slot: slot, alias: alias})
}

func (o *Unwind) Detail() string { return "[" + o.expr.String() + " AS " + o.alias + "]" }

func (o *Unwind) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.bound {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		o.state = StateConsuming
		v, err := o.expr.Value(rt, o.record)
		if err != nil {
			return OpDepleted, runtimeErr(o.name, err)
		}
		switch {
		case v.IsNull():
			o.items = nil
		case v.Kind() == value.KindList:
			o.items, _ = v.AsList()
		default:
			o.items = []value.Value{v}
		}
		o.pos = 0
		o.bound = true
	}
	if o.pos < len(o.items) {
		o.record.Values[o.slot] = Constant(o.items[o.pos])
		o.pos++
		return OpOK, nil
	}
	o.bound = false
	return OpRefresh, nil
}

func (o *Unwind) Reset(complete bool) error {
	o.bound = false
	o.items = nil
	return o.OpBase.Reset(complete)
}
