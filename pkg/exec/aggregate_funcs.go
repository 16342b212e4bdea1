package exec

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dd0wney/cluso-cypher/pkg/value"
)

var aggregateNames = map[string]bool{
	"count":   true,
	"sum":     true,
	"avg":     true,
	"min":     true,
	"max":     true,
	"collect": true,
}

// IsAggregate reports whether name is an aggregation function
func IsAggregate(name string) bool {
	return aggregateNames[strings.ToLower(name)]
}

// AggregateSpec is one aggregation call lifted out of a projection. Its
// result is written to Slot once per group.
type AggregateSpec struct {
	Func     string
	Distinct bool
	Star     bool
	Arg      *Expression
	Slot     int
}

func (s AggregateSpec) String() string {
	if s.Star {
		return s.Func + "(*)"
	}
	arg := ""
	if s.Arg != nil {
		arg = s.Arg.String()
	}
	if s.Distinct {
		return s.Func + "(DISTINCT " + arg + ")"
	}
	return s.Func + "(" + arg + ")"
}

type accumulator interface {
	add(v Entry) error
	result() Entry
}

func newAccumulator(spec AggregateSpec) accumulator {
	var acc accumulator
	switch spec.Func {
	case "count":
		acc = &countAcc{star: spec.Star}
	case "sum":
		acc = &sumAcc{}
	case "avg":
		acc = &avgAcc{}
	case "min":
		acc = &extremeAcc{sign: -1}
	case "max":
		acc = &extremeAcc{sign: 1}
	default:
		acc = &collectAcc{}
	}
	if spec.Distinct {
		acc = &distinctAcc{inner: acc, seen: make(map[uint64][]Entry)}
	}
	return acc
}

type countAcc struct {
	star bool
	n    int64
}

func (c *countAcc) add(v Entry) error {
	if c.star || !v.IsNull() {
		c.n++
	}
	return nil
}

func (c *countAcc) result() Entry { return Constant(value.Int(c.n)) }

func numeric(v Entry, fn string) (value.Value, bool, error) {
	if v.IsNull() {
		return value.Null(), false, nil
	}
	if v.Kind != EntryConstant || !v.Constant.IsNumber() {
		return value.Null(), false, typeErr("%s() requires numeric values", fn)
	}
	return v.Constant, true, nil
}

type sumAcc struct {
	isFloat bool
	i       int64
	f       float64
}

func (s *sumAcc) add(v Entry) error {
	n, ok, err := numeric(v, "sum")
	if !ok {
		return err
	}
	if n.Kind() == value.KindFloat && !s.isFloat {
		s.isFloat = true
		s.f = float64(s.i)
	}
	if s.isFloat {
		f, _ := n.AsFloat()
		s.f += f
	} else {
		i, _ := n.AsInt()
		s.i += i
	}
	return nil
}

func (s *sumAcc) result() Entry {
	if s.isFloat {
		return Constant(value.Float(s.f))
	}
	return Constant(value.Int(s.i))
}

type avgAcc struct {
	n   int64
	sum float64
}

func (a *avgAcc) add(v Entry) error {
	n, ok, err := numeric(v, "avg")
	if !ok {
		return err
	}
	f, _ := n.AsFloat()
	a.sum += f
	a.n++
	return nil
}

func (a *avgAcc) result() Entry {
	if a.n == 0 {
		return NullEntry()
	}
	return Constant(value.Float(a.sum / float64(a.n)))
}

// extremeAcc keeps the min (sign -1) or max (sign 1) value
type extremeAcc struct {
	sign int
	set  bool
	best value.Value
}

func (e *extremeAcc) add(v Entry) error {
	if v.IsNull() {
		return nil
	}
	if v.Kind != EntryConstant {
		return typeErr("min() and max() require values, got a %s", v.Kind)
	}
	if !e.set || value.Compare(v.Constant, e.best)*e.sign > 0 {
		e.best = v.Constant
		e.set = true
	}
	return nil
}

func (e *extremeAcc) result() Entry {
	if !e.set {
		return NullEntry()
	}
	return Constant(e.best)
}

type collectAcc struct {
	items []value.Value
}

func (c *collectAcc) add(v Entry) error {
	if v.IsNull() {
		return nil
	}
	if v.Kind != EntryConstant {
		return typeErr("collect() of a %s is not supported", v.Kind)
	}
	c.items = append(c.items, v.Constant)
	return nil
}

func (c *collectAcc) result() Entry { return Constant(value.List(c.items...)) }

// distinctAcc forwards each distinct non-null value once
type distinctAcc struct {
	inner accumulator
	seen  map[uint64][]Entry
}

func (d *distinctAcc) add(v Entry) error {
	if v.IsNull() {
		return nil
	}
	h := xxhash.New()
	v.WriteHash(h)
	key := h.Sum64()
	for _, s := range d.seen[key] {
		if Same(s, v) {
			return nil
		}
	}
	d.seen[key] = append(d.seen[key], v)
	return d.inner.add(v)
}

func (d *distinctAcc) result() Entry { return d.inner.result() }
