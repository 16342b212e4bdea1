package exec

import (
	"time"
)

// OpResult is the outcome of one pull
type OpResult int

const (
	// OpOK means a row is available in the record
	OpOK OpResult = iota
	// OpDepleted means no further row will be produced until a reset
	OpDepleted
	// OpRefresh means the operator's current input binding is spent and
	// its child must be pulled again before it can produce more rows
	OpRefresh
)

func (r OpResult) String() string {
	switch r {
	case OpOK:
		return "OK"
	case OpDepleted:
		return "DEPLETED"
	case OpRefresh:
		return "REFRESH"
	default:
		return "UNKNOWN"
	}
}

// OpState tracks where an operator is in its lifecycle.
//
//	Uninitialized -> Initialized            Initialize
//	Initialized   -> Consuming | Depleted    first Consume
//	Consuming     -> Consuming | Depleted    Consume
//	any           -> Resetted               Reset
//	Resetted      -> Consuming | Depleted    Consume (re-binds to the current input)
type OpState int

const (
	StateUninitialized OpState = iota
	StateInitialized
	StateConsuming
	StateResetted
	StateDepleted
)

func (s OpState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateConsuming:
		return "Consuming"
	case StateResetted:
		return "Resetted"
	case StateDepleted:
		return "Depleted"
	default:
		return "Unknown"
	}
}

// OpStats is collected for PROFILE
type OpStats struct {
	Pulls int64
	Rows  int64
	Time  time.Duration
}

// Operator is one node of a physical plan
type Operator interface {
	Name() string
	// Detail is the bracketed part of the plan render, e.g. the variables
	// an operator binds
	Detail() string
	Children() []Operator
	State() OpState
	Stats() *OpStats

	Initialize(rt *Runtime) error
	Consume(rt *Runtime) (OpResult, error)
	// Reset rewinds the operator so the next Consume starts over against
	// the current contents of the record. complete also drops anything
	// cached across resets (Sort buffers, Aggregate groups).
	Reset(complete bool) error
	// Destroy releases external resources such as storage cursors. It runs
	// once at plan teardown and never frees memory.
	Destroy()
}

// OpBase carries what every operator shares. Concrete operators embed it.
type OpBase struct {
	name     string
	children []Operator
	record   *Record
	state    OpState
	stats    OpStats
}

func newBase(name string, rec *Record, children ...Operator) OpBase {
	return OpBase{name: name, record: rec, children: children}
}

func (b *OpBase) Name() string         { return b.name }
func (b *OpBase) Detail() string       { return "" }
func (b *OpBase) Children() []Operator { return b.children }
func (b *OpBase) State() OpState       { return b.state }
func (b *OpBase) Stats() *OpStats      { return &b.stats }
func (b *OpBase) Record() *Record      { return b.record }
func (b *OpBase) Destroy()             {}
func (b *OpBase) child(i int) Operator { return b.children[i] }
func (b *OpBase) setState(s OpState)   { b.state = s }

// Initialize initializes the subtree
func (b *OpBase) Initialize(rt *Runtime) error {
	for _, c := range b.children {
		if err := c.Initialize(rt); err != nil {
			return err
		}
	}
	b.state = StateInitialized
	return nil
}

// input pulls the first child
func (b *OpBase) input(rt *Runtime) (OpResult, error) {
	return Pull(rt, b.children[0])
}

// Reset resets the subtree
func (b *OpBase) Reset(complete bool) error {
	for _, c := range b.children {
		if err := c.Reset(complete); err != nil {
			return err
		}
	}
	b.state = StateResetted
	return nil
}

// Pull consumes one row from op, recording profile statistics. Operators
// pull their children through it. An OpRefresh answer means op let go of
// its current input binding, so it is pulled again after a cancellation
// check; callers only ever see OpOK or OpDepleted.
func Pull(rt *Runtime, op Operator) (OpResult, error) {
	var start time.Time
	if rt.Profile {
		start = time.Now()
	}
	st := op.Stats()
	res, err := op.Consume(rt)
	st.Pulls++
	for err == nil && res == OpRefresh {
		if err = rt.CheckCancelled(); err != nil {
			break
		}
		res, err = op.Consume(rt)
		st.Pulls++
	}
	if err == nil && res == OpOK {
		st.Rows++
	}
	if rt.Profile {
		st.Time += time.Since(start)
	}
	if err != nil {
		return OpDepleted, err
	}
	return res, nil
}

// Walk visits op and its descendants depth first, with their depth
func Walk(op Operator, fn func(op Operator, depth int)) {
	var rec func(Operator, int)
	rec = func(o Operator, d int) {
		fn(o, d)
		for _, c := range o.Children() {
			rec(c, d+1)
		}
	}
	rec(op, 0)
}
