package rewrite

import (
	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
)

// MultiPathDisambiguation gives every path of a MATCH pattern its own node
// variables. The first path to use a name keeps it; a later path's
// occurrence is renamed and an equality with the original is ANDed onto
// the pattern's WHERE, after the predicate that was already there.
//
// CREATE patterns are not touched: there a repeated name means "reuse the
// vertex", which renaming would turn into a second vertex.
type MultiPathDisambiguation struct{}

func (MultiPathDisambiguation) Name() string { return "multi-path-disambiguation" }

func (p MultiPathDisambiguation) Rewrite(ctx *Context, q *ast.Query) error {
	for _, c := range q.Clauses {
		if m, ok := c.(*ast.Match); ok {
			p.pattern(ctx, m.Pattern)
		}
	}
	return nil
}

func (MultiPathDisambiguation) pattern(ctx *Context, gp *ast.GraphPattern) {
	if gp == nil || len(gp.Paths) < 2 {
		return
	}

	owner := make(map[string]int) // variable -> index of the first path using it
	var eqs []ast.Expr
	for i, path := range gp.Paths {
		for _, np := range path.Chain.Nodes() {
			name := np.Filler.Variable
			first, seen := owner[name]
			if !seen {
				owner[name] = i
				continue
			}
			if first == i {
				continue
			}
			renamed := ctx.fresh(AliasPrefix + name + "_")
			np.Filler.Variable = renamed
			eqs = append(eqs, arena.Alloc(ctx.Arena, ast.Binary{
				Op:    ast.OpEq,
				Left:  arena.Alloc(ctx.Arena, ast.Ref{Name: name}),
				Right: arena.Alloc(ctx.Arena, ast.Ref{Name: renamed}),
			}))
		}
	}
	if len(eqs) == 0 {
		return
	}
	gp.Where = ast.And(ctx.Arena, append([]ast.Expr{gp.Where}, eqs...)...)
}
