package rewrite

import (
	"fmt"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
)

// YieldSynthesis fills in the YIELD list of every procedure call that has
// none, one item per declared result column in declared order. Explicit
// YIELD items are checked against the declared columns.
type YieldSynthesis struct{}

func (YieldSynthesis) Name() string { return "yield-synthesis" }

func (p YieldSynthesis) Rewrite(ctx *Context, q *ast.Query) error {
	return ast.Walk(visitFunc(func(n ast.Node) (bool, error) {
		call, ok := n.(*ast.ProcedureCall)
		if !ok {
			return true, nil
		}
		return false, p.call(ctx, call)
	}), q)
}

func (p YieldSynthesis) call(ctx *Context, call *ast.ProcedureCall) error {
	if ctx.Catalog == nil {
		return &RewriteError{Pass: p.Name(), Code: CodeProcedureNotFound, Msg: call.Name, Cause: ErrProcedureNotFound}
	}
	sig, ok := ctx.Catalog.Lookup(call.Name)
	if !ok {
		return &RewriteError{Pass: p.Name(), Code: CodeProcedureNotFound, Msg: call.Name, Cause: ErrProcedureNotFound}
	}

	if call.Yield == nil {
		items := make([]*ast.YieldItem, len(sig.Results))
		for i, col := range sig.Results {
			items[i] = arena.Alloc(ctx.Arena, ast.YieldItem{Name: col.Name, Alias: col.Name})
		}
		call.Yield = arena.Alloc(ctx.Arena, ast.Yield{Items: items})
		return nil
	}

	seen := make(map[string]bool, len(call.Yield.Items))
	for _, it := range call.Yield.Items {
		if sig.ResultIndex(it.Name) < 0 {
			return &RewriteError{Pass: p.Name(), Code: CodeUnknownYieldColumn,
				Msg: fmt.Sprintf("%s does not yield %q", sig.Name, it.Name)}
		}
		if it.Alias == "" {
			it.Alias = it.Name
		}
		if seen[it.Alias] {
			return &RewriteError{Pass: p.Name(), Code: CodeDuplicateYieldAlias,
				Msg: fmt.Sprintf("variable %q yielded twice", it.Alias)}
		}
		seen[it.Alias] = true
	}
	return nil
}
