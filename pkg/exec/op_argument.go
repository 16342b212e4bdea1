package exec

import (
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
)

// Argument is the leaf of every operator chain. It yields the current
// record exactly once per reset: at the top of a plan that is the single
// empty starting row, inside Optional or Cartesian Product it is the row
// the outer side has bound.
type Argument struct {
	OpBase
	vars []string
}

func NewArgument(a *arena.Arena, rec *Record, vars []string) *Argument {
	return arena.Alloc(a, Argument{OpBase: newBase("Argument", rec), vars: vars})
}

func (o *Argument) Detail() string {
	if len(o.vars) == 0 {
		return ""
	}
	return "[" + strings.Join(o.vars, ",") + "]"
}

func (o *Argument) Consume(*Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	o.state = StateDepleted
	return OpOK, nil
}

// CartesianProduct pairs every row of its left child with every row its
// right child produces against it. The right side is re-run from its
// Argument for each left row.
type CartesianProduct struct {
	OpBase
	bound bool
}

func NewCartesianProduct(a *arena.Arena, rec *Record, left, right Operator) *CartesianProduct {
	return arena.Alloc(a, CartesianProduct{OpBase: newBase("Cartesian Product", rec, left, right)})
}

func (o *CartesianProduct) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.bound {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		if err := o.child(1).Reset(false); err != nil {
			return OpDepleted, err
		}
		o.bound = true
		o.state = StateConsuming
	}
	res, err := Pull(rt, o.child(1))
	if err != nil {
		return OpDepleted, err
	}
	if res == OpOK {
		return OpOK, nil
	}
	o.bound = false
	return OpRefresh, nil
}

func (o *CartesianProduct) Reset(complete bool) error {
	o.bound = false
	return o.OpBase.Reset(complete)
}

// Optional runs its inner branch against every input row and, when the
// branch yields nothing for a row, emits that row once with the branch's
// variables set to null.
type Optional struct {
	OpBase
	nullSlots []int
	bound     bool
	matched   bool
}

func NewOptional(a *arena.Arena, rec *Record, input, inner Operator, nullSlots []int) *Optional {
	return arena.Alloc(a, Optional{OpBase: newBase("Optional", rec, input, inner), nullSlots: nullSlots})
}

func (o *Optional) Consume(rt *Runtime) (OpResult, error) {
	if o.state == StateDepleted {
		return OpDepleted, nil
	}
	if !o.bound {
		res, err := o.input(rt)
		if err != nil || res != OpOK {
			o.state = StateDepleted
			return OpDepleted, err
		}
		if err := o.child(1).Reset(false); err != nil {
			return OpDepleted, err
		}
		o.bound, o.matched = true, false
		o.state = StateConsuming
	}
	res, err := Pull(rt, o.child(1))
	if err != nil {
		return OpDepleted, err
	}
	if res == OpOK {
		o.matched = true
		return OpOK, nil
	}
	o.bound = false
	if o.matched {
		return OpRefresh, nil
	}
	for _, s := range o.nullSlots {
		o.record.Values[s] = NullEntry()
	}
	return OpOK, nil
}

func (o *Optional) Reset(complete bool) error {
	o.bound, o.matched = false, false
	return o.OpBase.Reset(complete)
}
