package plan

import (
	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
)

func (b *builder) with(in exec.Operator, w *ast.With) (exec.Operator, *BuildError) {
	op, _, err := b.project(in, w.Projection, true)
	if err != nil {
		return nil, err
	}
	if w.Where != nil {
		pred, err := b.compile(w.Where, b.scope)
		if err != nil {
			return nil, err
		}
		op = exec.NewFilter(b.a, b.rec, op, pred)
	}
	return op, nil
}

func (b *builder) ret(in exec.Operator, r *ast.Return) (exec.Operator, *BuildError) {
	op, info, err := b.project(in, r.Projection, false)
	if err != nil {
		return nil, err
	}
	b.result = info
	return op, nil
}

// columnName is the unaliased name of an item
func columnName(it *ast.ProjectionItem) string {
	if it.Text != "" {
		return it.Text
	}
	return ast.Format(it.Expr)
}

// project compiles the body shared by WITH and RETURN: projection or
// aggregation, then DISTINCT, ORDER BY, SKIP and LIMIT. Afterwards only the
// projected names are in scope.
func (b *builder) project(in exec.Operator, proj *ast.Projection, isWith bool) (exec.Operator, ResultInfo, *BuildError) {
	items := proj.Items
	if proj.Star {
		names := b.scope.user()
		star := make([]*ast.ProjectionItem, 0, len(names)+len(items))
		for _, name := range names {
			star = append(star, arena.Alloc(b.a, ast.ProjectionItem{Expr: arena.Alloc(b.a, ast.Ref{Name: name}), Text: name}))
		}
		items = append(star, items...)
	}
	if len(items) == 0 {
		return nil, ResultInfo{}, buildErr(CodeUnsupported, "projection has no items")
	}

	old := b.scope
	next := newSymbols()
	info := ResultInfo{Columns: make([]Column, len(items)), Slots: make([]int, len(items))}
	aggregating := false
	for i, it := range items {
		name := it.Name()
		if isWith && it.Alias == "" {
			if _, ok := it.Expr.(*ast.Ref); !ok {
				return nil, ResultInfo{}, buildErr(CodeUnsupported, "expression %s in WITH must be aliased", name)
			}
		}
		if _, dup := next.lookup(name); dup {
			return nil, ResultInfo{}, buildErr(CodeVariableAlreadyBound, "column %s is projected twice", name)
		}
		kind := kindValue
		if ref, ok := it.Expr.(*ast.Ref); ok {
			if sym, ok := old.lookup(ref.Name); ok {
				kind = sym.kind
			}
		}
		slot := b.newSlot()
		next.bind(name, slot, kind)
		info.Columns[i] = Column{Name: columnName(it), Alias: it.Alias}
		info.Slots[i] = slot
		aggregating = aggregating || exec.ContainsAggregate(it.Expr)
	}

	var op exec.Operator
	var err *BuildError
	if aggregating {
		op, err = b.aggregate(in, items, info.Slots)
	} else {
		op, err = b.plainProject(in, items, info.Slots)
	}
	if err != nil {
		return nil, ResultInfo{}, err
	}

	if proj.Distinct {
		op = exec.NewDistinct(b.a, b.rec, op, info.Slots)
	}

	b.scope = next
	if len(proj.OrderBy) > 0 {
		// a plain projection may still be ordered by what it dropped
		var sc exec.Scope = next
		if !aggregating && !proj.Distinct {
			sc = overlay{top: next, base: old}
		}
		keys := make([]exec.SortKey, len(proj.OrderBy))
		for i, si := range proj.OrderBy {
			x, err := b.sortExpr(si.Expr, items, info.Slots, sc)
			if err != nil {
				return nil, ResultInfo{}, err
			}
			keys[i] = exec.SortKey{Expr: x, Desc: si.Desc}
		}
		op = exec.NewSort(b.a, b.rec, op, keys)
	}
	if proj.Skip != nil {
		x, err := b.compile(proj.Skip, newSymbols())
		if err != nil {
			return nil, ResultInfo{}, err
		}
		op = exec.NewSkip(b.a, b.rec, op, x)
	}
	if proj.Limit != nil {
		x, err := b.compile(proj.Limit, newSymbols())
		if err != nil {
			return nil, ResultInfo{}, err
		}
		op = exec.NewLimit(b.a, b.rec, op, x)
	}
	return op, info, nil
}

// sortExpr reads a projected column when the key spells one, and compiles
// the key otherwise
func (b *builder) sortExpr(e ast.Expr, items []*ast.ProjectionItem, slots []int, sc exec.Scope) (*exec.Expression, *BuildError) {
	text := ast.Format(e)
	for i, it := range items {
		if text == ast.Format(it.Expr) || text == it.Name() {
			return exec.SlotExpr(slots[i], text), nil
		}
	}
	return b.compile(e, sc)
}

func (b *builder) plainProject(in exec.Operator, items []*ast.ProjectionItem, slots []int) (exec.Operator, *BuildError) {
	out := make([]exec.ProjectItem, len(items))
	for i, it := range items {
		x, err := b.compile(it.Expr, b.scope)
		if err != nil {
			return nil, err
		}
		out[i] = exec.ProjectItem{Expr: x, Slot: slots[i], Alias: it.Name()}
	}
	return exec.NewProject(b.a, b.rec, in, out), nil
}

// aggregate groups by the items without aggregation calls. Items with
// them are evaluated after grouping, where they see the aggregation
// results and the grouping variables only.
func (b *builder) aggregate(in exec.Operator, items []*ast.ProjectionItem, slots []int) (exec.Operator, *BuildError) {
	var keys []exec.ProjectItem
	grouped := newSymbols()
	for i, it := range items {
		if exec.ContainsAggregate(it.Expr) {
			continue
		}
		x, err := b.compile(it.Expr, b.scope)
		if err != nil {
			return nil, err
		}
		keys = append(keys, exec.ProjectItem{Expr: x, Slot: slots[i], Alias: it.Name()})
		if ref, ok := it.Expr.(*ast.Ref); ok {
			sym, _ := b.scope.lookup(ref.Name)
			grouped.bind(ref.Name, slots[i], sym.kind)
		}
	}

	var aggs []exec.AggregateSpec
	comp := &exec.Compiler{
		Scope:    grouped,
		ArgScope: b.scope,
		OnAggregate: func(spec exec.AggregateSpec) int {
			spec.Slot = b.newSlot()
			aggs = append(aggs, spec)
			return spec.Slot
		},
	}
	var post []exec.ProjectItem
	for i, it := range items {
		if !exec.ContainsAggregate(it.Expr) {
			continue
		}
		if err := b.checkExprKeys(it.Expr); err != nil {
			return nil, err
		}
		x, err := comp.Compile(it.Expr)
		if err != nil {
			return nil, compileErr(err)
		}
		post = append(post, exec.ProjectItem{Expr: x, Slot: slots[i], Alias: it.Name()})
	}
	op := exec.Operator(exec.NewAggregate(b.a, b.rec, in, keys, aggs))
	return exec.NewProject(b.a, b.rec, op, post), nil
}
