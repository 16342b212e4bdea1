package arena

import (
	"testing"
)

type cursor struct {
	closed *int
}

func (c *cursor) Destroy() { *c.closed++ }

type plain struct {
	name string
}

func TestAlloc_CopiesValue(t *testing.T) {
	a := New()
	p := Alloc(a, plain{name: "n"})
	if p.name != "n" {
		t.Fatalf("got %q, want %q", p.name, "n")
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
	if a.Pending() != 0 {
		t.Errorf("plain values must not register destructors, got %d", a.Pending())
	}
}

func TestAlloc_DistinctPointersAcrossChunks(t *testing.T) {
	a := New()
	seen := make(map[*plain]bool)
	for i := 0; i < chunkSize*3; i++ {
		p := Alloc(a, plain{})
		if seen[p] {
			t.Fatalf("pointer reused at allocation %d", i)
		}
		seen[p] = true
	}
}

func TestTeardown_RunsEachDestructorOnce(t *testing.T) {
	a := New()
	closed := 0
	for i := 0; i < 10; i++ {
		Alloc(a, cursor{closed: &closed})
	}
	if a.Pending() != 10 {
		t.Fatalf("Pending() = %d, want 10", a.Pending())
	}

	a.Teardown()
	a.Teardown()

	if closed != 10 {
		t.Errorf("destructors ran %d times, want 10", closed)
	}
	if a.Len() != 0 {
		t.Errorf("Len() after teardown = %d, want 0", a.Len())
	}
}

func TestTeardown_AllocPanics(t *testing.T) {
	a := New()
	a.Teardown()

	defer func() {
		if r := recover(); r != ErrTornDown {
			t.Errorf("recover() = %v, want ErrTornDown", r)
		}
	}()
	Alloc(a, plain{})
}

func TestReset_ReusesArena(t *testing.T) {
	a := New()
	calls := 0
	a.Defer(func() { calls++ })
	a.Reset()

	if calls != 1 {
		t.Fatalf("deferred func ran %d times, want 1", calls)
	}
	p := Alloc(a, plain{name: "again"})
	if p.name != "again" || a.Len() != 1 {
		t.Errorf("arena not usable after Reset")
	}
}
