package plan

import "strings"

type varKind int

const (
	kindValue varKind = iota
	kindNode
	kindEdge
	kindPath
)

func (k varKind) String() string {
	switch k {
	case kindNode:
		return "node"
	case kindEdge:
		return "relationship"
	case kindPath:
		return "path"
	default:
		return "value"
	}
}

type symbol struct {
	slot int
	kind varKind
}

// symbols maps the variables visible to one query segment to their record
// slots. A WITH or RETURN starts a new table holding only what it
// projects.
type symbols struct {
	vars  map[string]symbol
	order []string
}

func newSymbols() *symbols {
	return &symbols{vars: make(map[string]symbol)}
}

func (s *symbols) Slot(name string) (int, bool) {
	sym, ok := s.vars[name]
	return sym.slot, ok
}

func (s *symbols) lookup(name string) (symbol, bool) {
	sym, ok := s.vars[name]
	return sym, ok
}

func (s *symbols) bind(name string, slot int, kind varKind) {
	if _, ok := s.vars[name]; !ok {
		s.order = append(s.order, name)
	}
	s.vars[name] = symbol{slot: slot, kind: kind}
}

func (s *symbols) clone() *symbols {
	out := &symbols{vars: make(map[string]symbol, len(s.vars)), order: append([]string(nil), s.order...)}
	for k, v := range s.vars {
		out.vars[k] = v
	}
	return out
}

// user returns the variables a query can name, in binding order.
// Synthetic names start with '@'.
func (s *symbols) user() []string {
	var out []string
	for _, name := range s.order {
		if !strings.HasPrefix(name, "@") {
			out = append(out, name)
		}
	}
	return out
}

// overlay resolves through top first, then base
type overlay struct {
	top, base *symbols
}

func (o overlay) Slot(name string) (int, bool) {
	if slot, ok := o.top.Slot(name); ok {
		return slot, true
	}
	return o.base.Slot(name)
}
