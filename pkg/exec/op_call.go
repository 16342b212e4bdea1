package exec

import (
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// YieldBinding routes result column Column of a procedure to Slot
type YieldBinding struct {
	Column int
	Slot   int
	Alias  string
}

// ProcedureCall invokes a procedure once per input row and yields one
// row per result row
type ProcedureCall struct {
	OpBase
	sig    *procedure.Signature
	args   []*Expression
	yields []YieldBinding
	rows   [][]value.Value
	pos    int
	bound  bool
}

// NewProcedureCall builds the call operator. standalone selects the
// render name only.
func NewProcedureCall(a *arena.Arena, rec *Record, input Operator, sig *procedure.Signature, args []*Expression, yields []YieldBinding, standalone bool) *ProcedureCall {
	name := "In Query Call"
	if standalone {
		name = "Standalone Call"
	}
	return arena.Alloc(a, ProcedureCall{
		OpBase: newBase(name, rec, input),
		sig:    sig,
		args:   args,
		yields: yields,
	})
}

func (o *ProcedureCall) Detail() string {
	parts := make([]string, len(o.yields))
	for i, y := range o.yields {
		parts[i] = y.Alias
	}
	return "[" + o.sig.Name + "] yield [" + strings.Join(parts, ",") + "]"
}

func (o *ProcedureCall) Consume(rt *Runtime) (OpResult, error) {
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
		args := make([]value.Value, len(o.args))
		for i, e := range o.args {
			if args[i], err = e.Value(rt, o.record); err != nil {
				return OpDepleted, runtimeErr(o.name, err)
			}
		}
		env := procedure.Env{Txn: rt.Txn, Schema: rt.Schema}
		if o.rows, err = o.sig.Impl(rt.Ctx, env, args); err != nil {
			return OpDepleted, runtimeErr(o.sig.Name, err)
		}
		o.pos = 0
		o.bound = true
	}
	if o.pos < len(o.rows) {
		row := o.rows[o.pos]
		o.pos++
		for _, y := range o.yields {
			v := value.Null()
			if y.Column < len(row) {
				v = row[y.Column]
			}
			o.record.Values[y.Slot] = Constant(v)
		}
		return OpOK, nil
	}
	o.bound = false
	o.rows = nil
	return OpRefresh, nil
}

func (o *ProcedureCall) Reset(complete bool) error {
	o.bound = false
	o.rows = nil
	return o.OpBase.Reset(complete)
}
