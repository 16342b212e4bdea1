package rewrite

import "github.com/dd0wney/cluso-cypher/pkg/ast"

// AnonymousAliases names every unnamed node and edge filler. Named fillers
// are left alone.
type AnonymousAliases struct{}

func (AnonymousAliases) Name() string { return "anonymous-aliases" }

func (AnonymousAliases) Rewrite(ctx *Context, q *ast.Query) error {
	return ast.Walk(visitFunc(func(n ast.Node) (bool, error) {
		switch n := n.(type) {
		case *ast.NodePattern:
			if n.Filler.Variable == "" {
				n.Filler.Variable = ctx.fresh(AnonNodePrefix)
			}
			return false, nil
		case *ast.EdgePattern:
			if n.Filler.Variable == "" {
				n.Filler.Variable = ctx.fresh(AnonEdgePrefix)
			}
			return false, nil
		}
		return true, nil
	}), q)
}
