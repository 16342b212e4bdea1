package plan

import (
	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/exec"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
)

func direction(d ast.Direction) graph.Direction {
	switch d {
	case ast.DirRight:
		return graph.Outgoing
	case ast.DirLeft:
		return graph.Incoming
	default:
		return graph.Both
	}
}

func flip(d graph.Direction) graph.Direction {
	switch d {
	case graph.Outgoing:
		return graph.Incoming
	case graph.Incoming:
		return graph.Outgoing
	default:
		return graph.Both
	}
}

// match compiles a MATCH or OPTIONAL MATCH. An optional match is built on
// its own Argument and joined to the input by Optional, so variables it
// introduces are nulled for input rows it cannot extend.
func (b *builder) match(in exec.Operator, m *ast.Match) (exec.Operator, *BuildError) {
	clause := "MATCH"
	if m.Optional {
		clause = "OPTIONAL MATCH"
	}
	pg := newPatternGraph(clause)
	b.patterns = append(b.patterns, pg)

	before := b.scope.clone()
	op := in
	if m.Optional {
		op = exec.NewArgument(b.a, b.rec, b.scope.user())
	}
	visited := exec.EdgeSet{}
	for _, pp := range m.Pattern.Paths {
		var err *BuildError
		if op, err = b.path(op, pp, pg, visited); err != nil {
			return nil, err
		}
	}
	if m.Pattern.Where != nil {
		pred, err := b.compile(m.Pattern.Where, b.scope)
		if err != nil {
			return nil, err
		}
		op = exec.NewFilter(b.a, b.rec, op, pred)
	}
	if !m.Optional {
		return op, nil
	}

	var nulls []int
	for _, name := range b.scope.order {
		if _, ok := before.lookup(name); !ok {
			nulls = append(nulls, b.scope.vars[name].slot)
		}
	}
	return exec.NewOptional(b.a, b.rec, in, op, nulls), nil
}

// connected reports whether pp shares a variable with the current scope
func (b *builder) connected(pp *ast.PathPattern) bool {
	for _, f := range pp.Chain.Fillers() {
		if _, ok := b.scope.lookup(f.Variable); ok {
			return true
		}
	}
	return false
}

// path compiles one path pattern on top of op. A path sharing no variable
// with what is already bound is built on a fresh Argument and joined by a
// Cartesian Product.
func (b *builder) path(op exec.Operator, pp *ast.PathPattern, pg *PatternGraph, visited exec.EdgeSet) (exec.Operator, *BuildError) {
	_, leaf := op.(*exec.Argument)
	cartesian := !leaf && !b.connected(pp)

	input := op
	if cartesian {
		input = exec.NewArgument(b.a, b.rec, b.scope.user())
	}
	out, err := b.chain(input, pp, pg, visited)
	if err != nil {
		return nil, err
	}
	if cartesian {
		out = exec.NewCartesianProduct(b.a, b.rec, op, out)
	}
	if pp.Alias == "" {
		return out, nil
	}

	nodes := pp.Chain.Nodes()
	nodeSlots := make([]int, len(nodes))
	for i, np := range nodes {
		nodeSlots[i], _ = b.scope.Slot(np.Filler.Variable)
	}
	edgeSlots := make([]int, len(pp.Chain.Hops))
	for i, h := range pp.Chain.Hops {
		edgeSlots[i], _ = b.scope.Slot(h.Edge.Filler.Variable)
	}
	slot, err := b.bindNew(pp.Alias, kindPath)
	if err != nil {
		return nil, err
	}
	return exec.NewProject(b.a, b.rec, out, []exec.ProjectItem{
		{Expr: exec.PathExpr(nodeSlots, edgeSlots, pp.Alias), Slot: slot, Alias: pp.Alias},
	}), nil
}

// chain emits a scan or seek for the first node and one expansion per hop.
// When only the far end is bound the chain is walked backwards from it.
func (b *builder) chain(op exec.Operator, pp *ast.PathPattern, pg *PatternGraph, visited exec.EdgeSet) (exec.Operator, *BuildError) {
	nodes := pp.Chain.Nodes()
	edges := make([]*ast.EdgePattern, len(pp.Chain.Hops))
	dirs := make([]graph.Direction, len(pp.Chain.Hops))
	varLength := false
	for i, h := range pp.Chain.Hops {
		edges[i], dirs[i] = h.Edge, direction(h.Edge.Direction)
		varLength = varLength || h.Edge.VarLength
	}

	_, headBound := b.scope.lookup(nodes[0].Filler.Variable)
	_, tailBound := b.scope.lookup(nodes[len(nodes)-1].Filler.Variable)
	if len(edges) > 0 && !headBound && tailBound && pp.Alias == "" && !varLength {
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
		for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
			edges[i], edges[j] = edges[j], edges[i]
			dirs[i], dirs[j] = dirs[j], dirs[i]
		}
		for i := range dirs {
			dirs[i] = flip(dirs[i])
		}
	}

	op, err := b.startNode(op, nodes[0].Filler, pg)
	if err != nil {
		return nil, err
	}
	for i, e := range edges {
		if op, err = b.expand(op, nodes[i].Filler, e, dirs[i], nodes[i+1].Filler, pg, visited); err != nil {
			return nil, err
		}
	}
	return op, nil
}

func (b *builder) nodeVar(f *ast.ElementFiller) (symbol, bool, *BuildError) {
	sym, ok := b.scope.lookup(f.Variable)
	if ok && sym.kind != kindNode && sym.kind != kindValue {
		return sym, ok, buildErr(CodeVariableAlreadyBound, "variable %s is already bound to a %s", f.Variable, sym.kind)
	}
	for _, l := range f.Labels {
		if err := b.checkLabel(l); err != nil {
			return sym, ok, err
		}
	}
	for _, pr := range f.Predicates {
		if err := b.checkKey(pr.Key); err != nil {
			return sym, ok, err
		}
	}
	return sym, ok, nil
}

// startNode binds the first node of a chain. A single label whose primary
// key is among the node's predicates is served by an index seek; other
// labels and predicates become a Filter.
func (b *builder) startNode(op exec.Operator, f *ast.ElementFiller, pg *PatternGraph) (exec.Operator, *BuildError) {
	sym, bound, err := b.nodeVar(f)
	if err != nil {
		return nil, err
	}
	if bound {
		pg.node(f.Variable, f.Labels, Argument)
		return b.elementFilter(op, f, sym.slot, 0, nil)
	}

	var seek *ast.PropPredicate
	if len(f.Labels) == 1 && b.p.schema != nil {
		if pk, ok := b.p.schema.PrimaryKey(f.Labels[0]); ok {
			for _, pr := range f.Predicates {
				if pr.Key == pk {
					seek = pr
					break
				}
			}
		}
	}

	slot := b.newSlot()
	switch {
	case seek != nil:
		v, err := b.compile(seek.Value, b.scope)
		if err != nil {
			return nil, err
		}
		op = exec.NewNodeIndexSeek(b.a, b.rec, op, slot, f.Variable, f.Labels[0], seek.Key, v)
	case len(f.Labels) > 0:
		op = exec.NewNodeByLabelScan(b.a, b.rec, op, slot, f.Variable, f.Labels[0])
	default:
		op = exec.NewAllNodeScan(b.a, b.rec, op, slot, f.Variable)
	}
	b.scope.bind(f.Variable, slot, kindNode)
	pg.node(f.Variable, f.Labels, Matched)

	covered := 0
	if len(f.Labels) > 0 {
		covered = 1
	}
	return b.elementFilter(op, f, slot, covered, seek)
}

// elementFilter checks the labels from index covered on and every
// predicate except skip
func (b *builder) elementFilter(op exec.Operator, f *ast.ElementFiller, slot, covered int, skip *ast.PropPredicate) (exec.Operator, *BuildError) {
	var preds []*exec.Expression
	if len(f.Labels) > covered {
		preds = append(preds, exec.HasLabels(slot, f.Variable, f.Labels[covered:]))
	}
	for _, pr := range f.Predicates {
		if pr == skip {
			continue
		}
		eq := arena.Alloc(b.a, ast.Binary{
			Op:    ast.OpEq,
			Left:  arena.Alloc(b.a, ast.GetField{Target: arena.Alloc(b.a, ast.Ref{Name: f.Variable}), Key: pr.Key}),
			Right: pr.Value,
		})
		x, err := b.compile(eq, b.scope)
		if err != nil {
			return nil, err
		}
		preds = append(preds, x)
	}
	if pred := exec.All(preds...); pred != nil {
		op = exec.NewFilter(b.a, b.rec, op, pred)
	}
	return op, nil
}

// expand follows hop e from the bound node from to node to
func (b *builder) expand(op exec.Operator, from *ast.ElementFiller, e *ast.EdgePattern, dir graph.Direction, to *ast.ElementFiller, pg *PatternGraph, visited exec.EdgeSet) (exec.Operator, *BuildError) {
	ef := e.Filler
	for _, t := range ef.Labels {
		if err := b.checkType(t); err != nil {
			return nil, err
		}
	}
	for _, pr := range ef.Predicates {
		if err := b.checkKey(pr.Key); err != nil {
			return nil, err
		}
	}
	if sym, ok := b.scope.lookup(ef.Variable); ok {
		return nil, buildErr(CodeVariableAlreadyBound, "variable %s is already bound to a %s", ef.Variable, sym.kind)
	}
	if e.VarLength && len(ef.Predicates) > 0 {
		return nil, buildErr(CodeUnsupported, "property predicates on variable length relationship %s", ef.Variable)
	}
	if e.VarLength && e.MaxHop >= 0 && e.MaxHop < e.MinHop {
		return nil, buildErr(CodeUnsupported, "invalid hop range %d..%d", e.MinHop, e.MaxHop)
	}

	toSym, into, err := b.nodeVar(to)
	if err != nil {
		return nil, err
	}
	src, _ := b.scope.Slot(from.Variable)
	dst := toSym.slot
	if !into {
		dst = b.newSlot()
	}
	spec := exec.ExpandSpec{
		Src:       src,
		Dst:       dst,
		Edge:      b.newSlot(),
		SrcAlias:  from.Variable,
		DstAlias:  to.Variable,
		EdgeAlias: ef.Variable,
		Dir:       dir,
		Types:     ef.Labels,
		Into:      into,
		Visited:   visited,
	}

	derivation := Matched
	if into {
		if _, seen := pg.Node(to.Variable); !seen {
			derivation = Argument
		}
	}
	pgFrom := pg.node(from.Variable, nil, Matched)
	pgTo := pg.node(to.Variable, to.Labels, derivation)
	pg.edge(pgFrom, pgTo, ef.Variable, ef.Labels, dir, Matched)

	if e.VarLength {
		op = exec.NewVarLenExpand(b.a, b.rec, op, spec, e.MinHop, e.MaxHop)
		b.scope.bind(ef.Variable, spec.Edge, kindPath)
	} else {
		op = exec.NewExpand(b.a, b.rec, op, spec)
		b.scope.bind(ef.Variable, spec.Edge, kindEdge)
		if op, err = b.elementFilter(op, ef, spec.Edge, len(ef.Labels), nil); err != nil {
			return nil, err
		}
	}
	if !into {
		b.scope.bind(to.Variable, dst, kindNode)
	}
	return b.elementFilter(op, to, dst, 0, nil)
}
