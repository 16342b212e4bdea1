package rewrite

import (
	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
)

// Pushdown moves `v.key = literal` conjuncts of a MATCH WHERE into v's
// filler when v has exactly one label and key is that label's primary
// key. Only top-level AND chains are searched; anything under OR or NOT
// stays put. It does nothing when no schema is bound.
type Pushdown struct{}

func (Pushdown) Name() string { return "pk-pushdown" }

func (p Pushdown) Rewrite(ctx *Context, q *ast.Query) error {
	if ctx.Schema == nil {
		return nil
	}
	for _, c := range q.Clauses {
		m, ok := c.(*ast.Match)
		if !ok || m.Pattern == nil || m.Pattern.Where == nil {
			continue
		}
		fillers := nodeFillers(m.Pattern)
		m.Pattern.Where = p.prune(ctx, fillers, m.Pattern.Where)
	}
	return nil
}

// nodeFillers maps each node variable that occurs exactly once in gp to
// its filler
func nodeFillers(gp *ast.GraphPattern) map[string]*ast.ElementFiller {
	out := make(map[string]*ast.ElementFiller)
	dup := make(map[string]bool)
	for _, path := range gp.Paths {
		for _, np := range path.Chain.Nodes() {
			name := np.Filler.Variable
			if _, ok := out[name]; ok {
				dup[name] = true
			}
			out[name] = np.Filler
		}
	}
	for name := range dup {
		delete(out, name)
	}
	return out
}

// prune returns what is left of e once pushable conjuncts are moved out,
// or nil when nothing is left
func (p Pushdown) prune(ctx *Context, fillers map[string]*ast.ElementFiller, e ast.Expr) ast.Expr {
	if and, ok := e.(*ast.Binary); ok && and.Op == ast.OpAnd {
		l := p.prune(ctx, fillers, and.Left)
		r := p.prune(ctx, fillers, and.Right)
		switch {
		case l == nil && r == nil:
			return nil
		case l == nil:
			return r
		case r == nil:
			return l
		}
		and.Left, and.Right = l, r
		return and
	}

	filler, key, lit, ok := p.match(ctx, fillers, e)
	if !ok {
		return e
	}
	filler.Predicates = append(filler.Predicates, arena.Alloc(ctx.Arena, ast.PropPredicate{Key: key, Value: lit}))
	return nil
}

// match recognizes `var.key = literal` where var's only label has key as
// its primary key
func (Pushdown) match(ctx *Context, fillers map[string]*ast.ElementFiller, e ast.Expr) (*ast.ElementFiller, string, *ast.Literal, bool) {
	eq, ok := e.(*ast.Binary)
	if !ok || eq.Op != ast.OpEq {
		return nil, "", nil, false
	}
	prop, ok := eq.Left.(*ast.GetField)
	if !ok {
		return nil, "", nil, false
	}
	ref, ok := prop.Target.(*ast.Ref)
	if !ok {
		return nil, "", nil, false
	}
	lit, ok := eq.Right.(*ast.Literal)
	if !ok {
		return nil, "", nil, false
	}
	filler, ok := fillers[ref.Name]
	if !ok || len(filler.Labels) != 1 {
		return nil, "", nil, false
	}
	pk, ok := ctx.Schema.PrimaryKey(filler.Labels[0])
	if !ok || pk != prop.Key {
		return nil, "", nil, false
	}
	return filler, prop.Key, lit, true
}
