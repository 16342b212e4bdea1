// Package arena provides a bump allocator that owns a batch of heterogeneous
// objects for the lifetime of one query compile or one execution plan.
//
// Objects are never freed individually. Teardown runs one destructor thunk
// per allocation that asked for one, in unspecified order, then forgets every
// allocation in a single step.
package arena

import (
	"errors"
	"reflect"
)

// chunkSize is the number of values carved out of one slab at a time.
const chunkSize = 64

// ErrTornDown is the panic value raised when allocating from an arena after
// Teardown without an intervening Reset.
var ErrTornDown = errors.New("arena: allocation after teardown")

// Destroyer is implemented by arena-allocated values that hold an external
// resource (a storage cursor, an open file). Destroy must release that
// resource only; the memory itself belongs to the arena.
type Destroyer interface {
	Destroy()
}

// thunk is one node of the singly linked destructor list.
type thunk struct {
	fn   func()
	next *thunk
}

// slab hands out consecutive elements of a backing array.
type slab[T any] struct {
	buf []T
}

func (s *slab[T]) next() *T {
	if len(s.buf) == 0 {
		s.buf = make([]T, chunkSize)
	}
	p := &s.buf[0]
	s.buf = s.buf[1:]
	return p
}

// Arena owns every object allocated through New. It is not safe for
// concurrent use; each query gets its own.
type Arena struct {
	slabs    map[reflect.Type]any
	head     *thunk
	count    int
	thunks   int
	tornDown bool
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{slabs: make(map[reflect.Type]any)}
}

// Alloc copies v into arena-owned storage and returns a pointer to it. If *T
// implements Destroyer its Destroy method is recorded and runs exactly once
// at teardown.
func Alloc[T any](a *Arena, v T) *T {
	if a.tornDown {
		panic(ErrTornDown)
	}
	key := reflect.TypeFor[T]()
	s, ok := a.slabs[key].(*slab[T])
	if !ok {
		s = &slab[T]{}
		a.slabs[key] = s
	}
	p := s.next()
	*p = v
	a.count++
	if d, ok := any(p).(Destroyer); ok {
		a.Defer(d.Destroy)
	}
	return p
}

// Defer records fn to run at teardown.
func (a *Arena) Defer(fn func()) {
	a.head = &thunk{fn: fn, next: a.head}
	a.thunks++
}

// Len reports how many objects the arena currently owns.
func (a *Arena) Len() int { return a.count }

// Pending reports how many destructor thunks are waiting for teardown.
func (a *Arena) Pending() int { return a.thunks }

// Teardown runs every recorded destructor once and releases all
// allocations. Calling it twice is a no-op.
func (a *Arena) Teardown() {
	if a.tornDown {
		return
	}
	a.tornDown = true
	for t := a.head; t != nil; t = t.next {
		t.fn()
	}
	a.head = nil
	a.thunks = 0
	a.count = 0
	a.slabs = nil
}

// Reset tears the arena down and makes it usable again.
func (a *Arena) Reset() {
	a.Teardown()
	a.slabs = make(map[reflect.Type]any)
	a.tornDown = false
}
