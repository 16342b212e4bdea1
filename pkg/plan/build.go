package plan

import (
	"errors"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
)

// builder holds the state of one Build
type builder struct {
	p     *ExecutionPlan
	a     *arena.Arena
	rec   *exec.Record
	scope *symbols

	nslots   int
	patterns []*PatternGraph
	result   ResultInfo
	readOnly bool
	writes   bool
}

func newBuilder(p *ExecutionPlan) *builder {
	return &builder{p: p, a: p.arena, rec: p.record, scope: newSymbols(), readOnly: true}
}

func (b *builder) newSlot() int {
	b.nslots++
	return b.nslots - 1
}

func (b *builder) markWrite() {
	b.writes = true
	b.readOnly = false
}

func (b *builder) build(q *ast.Query) (exec.Operator, *BuildError) {
	if q == nil || len(q.Clauses) == 0 {
		return nil, buildErr(CodeUnsupported, "empty query")
	}
	var op exec.Operator = exec.NewArgument(b.a, b.rec, nil)
	for i, c := range q.Clauses {
		last := i == len(q.Clauses)-1
		var err *BuildError
		switch c := c.(type) {
		case *ast.Match:
			op, err = b.match(op, c)
		case *ast.Unwind:
			op, err = b.unwind(op, c)
		case *ast.Call:
			op, err = b.call(op, c, last)
		case *ast.With:
			if last {
				return nil, buildErr(CodeUnsupported, "a query cannot end with WITH")
			}
			op, err = b.with(op, c)
		case *ast.Return:
			if !last {
				return nil, buildErr(CodeUnsupported, "RETURN must be the last clause")
			}
			op, err = b.ret(op, c)
		case *ast.Create:
			op, err = b.create(op, c)
		case *ast.Set:
			op, err = b.set(op, c)
		case *ast.Delete:
			op, err = b.delete(op, c)
		default:
			err = buildErr(CodeUnsupported, "unsupported clause %s", c.Kind())
		}
		if err != nil {
			return nil, err
		}
	}

	switch q.Clauses[len(q.Clauses)-1].(type) {
	case *ast.Return, *ast.Call:
	default:
		if !b.writes {
			return nil, buildErr(CodeUnsupported, "query must end with RETURN, CALL or an updating clause")
		}
		slot := b.newSlot()
		op = exec.NewSummary(b.a, b.rec, op, slot)
		b.result = ResultInfo{Columns: []Column{{Name: SummaryColumn}}, Slots: []int{slot}}
	}
	return exec.NewProduceResults(b.a, b.rec, op), nil
}

// compile resolves e against sc after checking its property keys
func (b *builder) compile(e ast.Expr, sc exec.Scope) (*exec.Expression, *BuildError) {
	if err := b.checkExprKeys(e); err != nil {
		return nil, err
	}
	x, err := exec.CompileExpr(e, sc)
	if err != nil {
		return nil, compileErr(err)
	}
	return x, nil
}

func compileErr(err error) *BuildError {
	code := CodeUnsupported
	switch {
	case errors.Is(err, exec.ErrUnboundVariable):
		code = CodeUnboundVariable
	case errors.Is(err, exec.ErrUnknownFunction):
		code = CodeUnknownFunction
	case errors.Is(err, exec.ErrArity):
		code = CodeArity
	case errors.Is(err, exec.ErrAggregateMisuse):
		code = CodeAggregateMisuse
	}
	return &BuildError{Code: code, Msg: err.Error()}
}

func (b *builder) checkLabel(label string) *BuildError {
	if b.p.schema != nil && !b.p.schema.HasLabel(label) {
		return buildErr(CodeUnknownLabel, "label %s is not in the schema", label)
	}
	return nil
}

func (b *builder) checkType(typ string) *BuildError {
	if b.p.schema != nil && !b.p.schema.HasRelationshipType(typ) {
		return buildErr(CodeUnknownRelationshipType, "relationship type %s is not in the schema", typ)
	}
	return nil
}

func (b *builder) checkKey(key string) *BuildError {
	if b.p.schema != nil && !b.p.schema.HasPropertyKey(key) {
		return buildErr(CodeUnknownPropertyKey, "property key %s is not in the schema", key)
	}
	return nil
}

// checkExprKeys checks the keys of property accesses on variables bound to
// graph entities; maps and other values may carry any key
func (b *builder) checkExprKeys(e ast.Expr) *BuildError {
	if e == nil || b.p.schema == nil {
		return nil
	}
	var failed *BuildError
	_ = ast.Walk(keyChecker(func(n ast.Node) bool {
		gf, ok := n.(*ast.GetField)
		if !ok {
			return true
		}
		if ref, ok := gf.Target.(*ast.Ref); ok {
			if sym, ok := b.scope.lookup(ref.Name); ok && (sym.kind == kindNode || sym.kind == kindEdge) {
				if err := b.checkKey(gf.Key); err != nil && failed == nil {
					failed = err
				}
			}
		}
		return true
	}), e)
	return failed
}

type keyChecker func(n ast.Node) bool

func (k keyChecker) Visit(n ast.Node) (ast.Visitor, error) {
	if n == nil || !k(n) {
		return nil, nil
	}
	return k, nil
}

func (b *builder) bindNew(name string, kind varKind) (int, *BuildError) {
	if sym, ok := b.scope.lookup(name); ok {
		return 0, buildErr(CodeVariableAlreadyBound, "variable %s is already bound to a %s", name, sym.kind)
	}
	slot := b.newSlot()
	b.scope.bind(name, slot, kind)
	return slot, nil
}

func (b *builder) unwind(in exec.Operator, u *ast.Unwind) (exec.Operator, *BuildError) {
	x, err := b.compile(u.Expr, b.scope)
	if err != nil {
		return nil, err
	}
	slot, err := b.bindNew(u.Alias, kindValue)
	if err != nil {
		return nil, err
	}
	return exec.NewUnwind(b.a, b.rec, in, x, slot, u.Alias), nil
}

func (b *builder) call(in exec.Operator, c *ast.Call, last bool) (exec.Operator, *BuildError) {
	proc := c.Proc
	if b.p.catalog == nil {
		return nil, buildErr(CodeUnknownProcedure, "procedure %s is not registered", proc.Name)
	}
	sig, ok := b.p.catalog.Lookup(proc.Name)
	if !ok {
		return nil, buildErr(CodeUnknownProcedure, "procedure %s is not registered", proc.Name)
	}
	if len(proc.Args) != len(sig.Params) {
		return nil, buildErr(CodeArity, "procedure %s expects %d arguments, got %d", sig.Name, len(sig.Params), len(proc.Args))
	}
	args := make([]*exec.Expression, len(proc.Args))
	for i, arg := range proc.Args {
		x, err := b.compile(arg, b.scope)
		if err != nil {
			return nil, err
		}
		args[i] = x
	}
	if !sig.ReadOnly {
		b.markWrite()
	}

	var items []*ast.YieldItem
	if proc.Yield != nil {
		items = proc.Yield.Items
	}
	yields := make([]exec.YieldBinding, 0, len(items))
	info := ResultInfo{}
	for _, it := range items {
		col := sig.ResultIndex(it.Name)
		if col < 0 {
			return nil, buildErr(CodeUnsupported, "procedure %s does not yield %s", sig.Name, it.Name)
		}
		alias := it.Alias
		if alias == "" {
			alias = it.Name
		}
		slot, err := b.bindNew(alias, kindValue)
		if err != nil {
			return nil, err
		}
		yields = append(yields, exec.YieldBinding{Column: col, Slot: slot, Alias: alias})
		info.Columns = append(info.Columns, Column{Name: it.Name, Alias: alias})
		info.Slots = append(info.Slots, slot)
	}

	var op exec.Operator = exec.NewProcedureCall(b.a, b.rec, in, sig, args, yields, proc.Standalone)
	if proc.Yield != nil && proc.Yield.Where != nil {
		pred, err := b.compile(proc.Yield.Where, b.scope)
		if err != nil {
			return nil, err
		}
		op = exec.NewFilter(b.a, b.rec, op, pred)
	}
	if last {
		b.result = info
	}
	return op, nil
}
