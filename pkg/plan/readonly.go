package plan

import (
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/procedure"
)

// DetermineReadOnly reports whether q can run in a read-only transaction.
// It needs no build, so the transaction can be opened before compiling.
// Unknown procedures count as read-only; Build rejects them anyway.
func DetermineReadOnly(q *ast.Query, catalog procedure.Catalog) bool {
	for _, c := range q.Clauses {
		switch c := c.(type) {
		case *ast.Create, *ast.Set, *ast.Delete:
			return false
		case *ast.Call:
			if catalog == nil {
				continue
			}
			if sig, ok := catalog.Lookup(c.Proc.Name); ok && !sig.ReadOnly {
				return false
			}
		}
	}
	return true
}
