package plan

import (
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
)

func (b *builder) props(f *ast.ElementFiller) ([]exec.PropExpr, *BuildError) {
	out := make([]exec.PropExpr, 0, len(f.Predicates))
	for _, pr := range f.Predicates {
		if err := b.checkKey(pr.Key); err != nil {
			return nil, err
		}
		x, err := b.compile(pr.Value, b.scope)
		if err != nil {
			return nil, err
		}
		out = append(out, exec.PropExpr{Key: pr.Key, Expr: x})
	}
	return out, nil
}

// create compiles a CREATE clause into one Create operator. A node
// variable that is already bound is reused, everything else is new.
func (b *builder) create(in exec.Operator, c *ast.Create) (exec.Operator, *BuildError) {
	pg := newPatternGraph("CREATE")
	b.patterns = append(b.patterns, pg)

	var nodes []exec.CreateNode
	var edges []exec.CreateEdge
	for _, pp := range c.Pattern.Paths {
		if pp.Alias != "" {
			return nil, buildErr(CodeUnsupported, "named path %s in CREATE", pp.Alias)
		}
		chain := pp.Chain.Nodes()
		for _, np := range chain {
			f := np.Filler
			if sym, ok := b.scope.lookup(f.Variable); ok {
				if sym.kind != kindNode && sym.kind != kindValue {
					return nil, buildErr(CodeVariableAlreadyBound, "variable %s is already bound to a %s", f.Variable, sym.kind)
				}
				if len(f.Labels) > 0 || len(f.Predicates) > 0 {
					return nil, buildErr(CodeVariableAlreadyBound, "variable %s is already bound and cannot be redeclared", f.Variable)
				}
				pg.node(f.Variable, nil, Argument)
				continue
			}
			for _, l := range f.Labels {
				if err := b.checkLabel(l); err != nil {
					return nil, err
				}
			}
			props, err := b.props(f)
			if err != nil {
				return nil, err
			}
			slot, err := b.bindNew(f.Variable, kindNode)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, exec.CreateNode{Slot: slot, Alias: f.Variable, Labels: f.Labels, Props: props})
			pg.node(f.Variable, f.Labels, Created)
		}

		for i, h := range pp.Chain.Hops {
			ef := h.Edge.Filler
			switch {
			case h.Edge.VarLength:
				return nil, buildErr(CodeUnsupported, "variable length relationship %s in CREATE", ef.Variable)
			case len(ef.Labels) != 1:
				return nil, buildErr(CodeUnsupported, "relationship %s in CREATE needs exactly one type", ef.Variable)
			case h.Edge.Direction == ast.DirBoth:
				return nil, buildErr(CodeUnsupported, "relationship %s in CREATE needs a direction", ef.Variable)
			}
			if err := b.checkType(ef.Labels[0]); err != nil {
				return nil, err
			}
			src, dst := chain[i].Filler.Variable, chain[i+1].Filler.Variable
			if h.Edge.Direction == ast.DirLeft {
				src, dst = dst, src
			}
			props, err := b.props(ef)
			if err != nil {
				return nil, err
			}
			slot, err := b.bindNew(ef.Variable, kindEdge)
			if err != nil {
				return nil, err
			}
			srcSlot, _ := b.scope.Slot(src)
			dstSlot, _ := b.scope.Slot(dst)
			edges = append(edges, exec.CreateEdge{
				Slot:  slot,
				Alias: ef.Variable,
				Src:   srcSlot,
				Dst:   dstSlot,
				Type:  ef.Labels[0],
				Props: props,
			})
			srcNode, _ := pg.Node(src)
			dstNode, _ := pg.Node(dst)
			pg.edge(srcNode, dstNode, ef.Variable, ef.Labels, graph.Outgoing, Created)
		}
	}
	b.markWrite()
	return exec.NewCreate(b.a, b.rec, in, nodes, edges), nil
}

func (b *builder) set(in exec.Operator, s *ast.Set) (exec.Operator, *BuildError) {
	items := make([]exec.SetProp, len(s.Items))
	for i, it := range s.Items {
		if err := b.checkExprKeys(it.Target); err != nil {
			return nil, err
		}
		target, err := b.compile(it.Target.Target, b.scope)
		if err != nil {
			return nil, err
		}
		v, err := b.compile(it.Value, b.scope)
		if err != nil {
			return nil, err
		}
		items[i] = exec.SetProp{Target: target, Key: it.Target.Key, Value: v}
	}
	b.markWrite()
	return exec.NewSet(b.a, b.rec, in, items), nil
}

func (b *builder) delete(in exec.Operator, d *ast.Delete) (exec.Operator, *BuildError) {
	exprs := make([]*exec.Expression, len(d.Exprs))
	for i, e := range d.Exprs {
		x, err := b.compile(e, b.scope)
		if err != nil {
			return nil, err
		}
		exprs[i] = x
	}
	b.markWrite()
	return exec.NewDelete(b.a, b.rec, in, exprs, d.Detach), nil
}
