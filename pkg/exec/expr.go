package exec

import (
	"fmt"
	"math"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/graph"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// evaluator is one node of a compiled expression tree
type evaluator interface {
	eval(rt *Runtime, rec *Record) (Entry, error)
}

// Expression is a compiled, slot-resolved expression
type Expression struct {
	root evaluator
	text string
}

// Eval evaluates the expression against the current record
func (e *Expression) Eval(rt *Runtime, rec *Record) (Entry, error) {
	return e.root.eval(rt, rec)
}

// Value evaluates to a scalar; graph entities are a type error
func (e *Expression) Value(rt *Runtime, rec *Record) (value.Value, error) {
	ent, err := e.root.eval(rt, rec)
	if err != nil {
		return value.Null(), err
	}
	return scalar(ent, e.text)
}

// Holds evaluates a predicate. Null counts as false.
func (e *Expression) Holds(rt *Runtime, rec *Record) (bool, error) {
	v, err := e.Value(rt, rec)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, nil
	}
	b, err := v.AsBool()
	if err != nil {
		return false, typeErr("%s is not a predicate", e.text)
	}
	return b, nil
}

func (e *Expression) String() string { return e.text }

func scalar(ent Entry, what string) (value.Value, error) {
	if ent.IsNull() {
		return value.Null(), nil
	}
	if ent.Kind != EntryConstant {
		return value.Null(), typeErr("%s is a %s, expected a value", what, ent.Kind)
	}
	return ent.Constant, nil
}

type slotRef struct{ slot int }

func (s *slotRef) eval(_ *Runtime, rec *Record) (Entry, error) {
	ent := rec.Values[s.slot]
	if ent.Kind == EntryUnset {
		return NullEntry(), nil
	}
	return ent, nil
}

type literal struct{ v value.Value }

func (l *literal) eval(*Runtime, *Record) (Entry, error) { return Constant(l.v), nil }

type param struct{ name string }

func (p *param) eval(rt *Runtime, _ *Record) (Entry, error) {
	v, ok := rt.Params[p.name]
	if !ok {
		return NullEntry(), fmt.Errorf("%w: $%s", ErrMissingParam, p.name)
	}
	return Constant(v), nil
}

type propAccess struct {
	target evaluator
	key    string
}

func (p *propAccess) eval(rt *Runtime, rec *Record) (Entry, error) {
	t, err := p.target.eval(rt, rec)
	if err != nil || t.IsNull() {
		return NullEntry(), err
	}
	props, err := properties(rt, t)
	if err != nil {
		return NullEntry(), err
	}
	v, ok := props[p.key]
	if !ok {
		return NullEntry(), nil
	}
	return Constant(v), nil
}

// properties returns the property map of a node, relationship or map entry
func properties(rt *Runtime, t Entry) (map[string]value.Value, error) {
	switch t.Kind {
	case EntryNode:
		v, err := rt.vertex(t.Vertex)
		if err != nil {
			return nil, err
		}
		return v.Properties, nil
	case EntryRelationship:
		e, err := rt.edge(t.Edge)
		if err != nil {
			return nil, err
		}
		return e.Properties, nil
	case EntryConstant:
		m, err := t.Constant.AsMap()
		if err != nil {
			return nil, typeErr("cannot access a property of %s", t.Constant.Kind())
		}
		return m, nil
	}
	return nil, typeErr("cannot access a property of a %s", t.Kind)
}

type listExpr struct{ items []evaluator }

func (l *listExpr) eval(rt *Runtime, rec *Record) (Entry, error) {
	out := make([]value.Value, len(l.items))
	for i, it := range l.items {
		ent, err := it.eval(rt, rec)
		if err != nil {
			return NullEntry(), err
		}
		if out[i], err = scalar(ent, "list element"); err != nil {
			return NullEntry(), err
		}
	}
	return Constant(value.List(out...)), nil
}

type mapExpr struct {
	keys   []string
	values []evaluator
}

func (m *mapExpr) eval(rt *Runtime, rec *Record) (Entry, error) {
	out := make(map[string]value.Value, len(m.keys))
	for i, k := range m.keys {
		ent, err := m.values[i].eval(rt, rec)
		if err != nil {
			return NullEntry(), err
		}
		if out[k], err = scalar(ent, "map value"); err != nil {
			return NullEntry(), err
		}
	}
	return Constant(value.Map(out)), nil
}

// truth reads a three-valued boolean: -1 null, 0 false, 1 true
func truth(ent Entry, op string) (int, error) {
	if ent.IsNull() {
		return -1, nil
	}
	if ent.Kind == EntryConstant {
		if b, err := ent.Constant.AsBool(); err == nil {
			if b {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, typeErr("%s expects boolean operands", op)
}

func fromTruth(t int) Entry {
	if t < 0 {
		return NullEntry()
	}
	return Constant(value.Bool(t == 1))
}

type logical struct {
	op          ast.BinaryOp
	left, right evaluator
}

func (l *logical) eval(rt *Runtime, rec *Record) (Entry, error) {
	opName := l.op.String()
	le, err := l.left.eval(rt, rec)
	if err != nil {
		return NullEntry(), err
	}
	lt, err := truth(le, opName)
	if err != nil {
		return NullEntry(), err
	}
	switch {
	case l.op == ast.OpAnd && lt == 0:
		return fromTruth(0), nil
	case l.op == ast.OpOr && lt == 1:
		return fromTruth(1), nil
	}
	re, err := l.right.eval(rt, rec)
	if err != nil {
		return NullEntry(), err
	}
	rt2, err := truth(re, opName)
	if err != nil {
		return NullEntry(), err
	}
	switch l.op {
	case ast.OpAnd:
		if rt2 == 0 {
			return fromTruth(0), nil
		}
		if lt < 0 || rt2 < 0 {
			return fromTruth(-1), nil
		}
		return fromTruth(1), nil
	case ast.OpOr:
		if rt2 == 1 {
			return fromTruth(1), nil
		}
		if lt < 0 || rt2 < 0 {
			return fromTruth(-1), nil
		}
		return fromTruth(0), nil
	default: // XOR
		if lt < 0 || rt2 < 0 {
			return fromTruth(-1), nil
		}
		if lt != rt2 {
			return fromTruth(1), nil
		}
		return fromTruth(0), nil
	}
}

type not struct{ operand evaluator }

func (n *not) eval(rt *Runtime, rec *Record) (Entry, error) {
	ent, err := n.operand.eval(rt, rec)
	if err != nil {
		return NullEntry(), err
	}
	t, err := truth(ent, "NOT")
	if err != nil || t < 0 {
		return NullEntry(), err
	}
	return fromTruth(1 - t), nil
}

type isNull struct {
	operand evaluator
	negated bool
}

func (n *isNull) eval(rt *Runtime, rec *Record) (Entry, error) {
	ent, err := n.operand.eval(rt, rec)
	if err != nil {
		return NullEntry(), err
	}
	return Constant(value.Bool(ent.IsNull() != n.negated)), nil
}

type binaryExpr struct {
	op          ast.BinaryOp
	left, right evaluator
}

func (b *binaryExpr) eval(rt *Runtime, rec *Record) (Entry, error) {
	l, err := b.left.eval(rt, rec)
	if err != nil {
		return NullEntry(), err
	}
	r, err := b.right.eval(rt, rec)
	if err != nil {
		return NullEntry(), err
	}
	switch b.op {
	case ast.OpEq, ast.OpNe:
		eq := equals(l, r)
		if eq < 0 || b.op == ast.OpEq {
			return fromTruth(eq), nil
		}
		return fromTruth(1 - eq), nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return compare(b.op, l, r)
	case ast.OpIn:
		return in(l, r)
	case ast.OpStartsWith, ast.OpEndsWith, ast.OpContains:
		return stringPredicate(b.op, l, r)
	default:
		return arithmetic(b.op, l, r)
	}
}

// equals is three-valued equality. Graph entities compare by identity.
func equals(l, r Entry) int {
	if l.IsNull() || r.IsNull() {
		return -1
	}
	if l.Kind != r.Kind {
		return 0
	}
	if l.Kind != EntryConstant {
		if Same(l, r) {
			return 1
		}
		return 0
	}
	if containsNull(l.Constant) || containsNull(r.Constant) {
		if value.Equivalent(l.Constant, r.Constant) {
			return -1
		}
		return 0
	}
	if l.Constant.Equal(r.Constant) {
		return 1
	}
	return 0
}

func containsNull(v value.Value) bool {
	switch v.Kind() {
	case value.KindNull:
		return true
	case value.KindList:
		items, _ := v.AsList()
		for _, it := range items {
			if containsNull(it) {
				return true
			}
		}
	case value.KindMap:
		m, _ := v.AsMap()
		for _, it := range m {
			if containsNull(it) {
				return true
			}
		}
	}
	return false
}

func compare(op ast.BinaryOp, l, r Entry) (Entry, error) {
	if l.IsNull() || r.IsNull() || l.Kind != EntryConstant || r.Kind != EntryConstant {
		return NullEntry(), nil
	}
	if !value.Comparable(l.Constant, r.Constant) {
		return NullEntry(), nil
	}
	c := value.Compare(l.Constant, r.Constant)
	var ok bool
	switch op {
	case ast.OpLt:
		ok = c < 0
	case ast.OpLe:
		ok = c <= 0
	case ast.OpGt:
		ok = c > 0
	default:
		ok = c >= 0
	}
	return Constant(value.Bool(ok)), nil
}

func in(l, r Entry) (Entry, error) {
	if r.IsNull() {
		return NullEntry(), nil
	}
	if r.Kind != EntryConstant || r.Constant.Kind() != value.KindList {
		return NullEntry(), typeErr("IN expects a list on the right")
	}
	items, _ := r.Constant.AsList()
	if len(items) == 0 {
		return Constant(value.Bool(false)), nil
	}
	sawNull := false
	for _, it := range items {
		switch equals(l, Constant(it)) {
		case 1:
			return Constant(value.Bool(true)), nil
		case -1:
			sawNull = true
		}
	}
	if sawNull {
		return NullEntry(), nil
	}
	return Constant(value.Bool(false)), nil
}

func stringPredicate(op ast.BinaryOp, l, r Entry) (Entry, error) {
	if l.IsNull() || r.IsNull() || l.Kind != EntryConstant || r.Kind != EntryConstant {
		return NullEntry(), nil
	}
	ls, err1 := l.Constant.AsString()
	rs, err2 := r.Constant.AsString()
	if err1 != nil || err2 != nil {
		return NullEntry(), nil
	}
	switch op {
	case ast.OpStartsWith:
		return Constant(value.Bool(strings.HasPrefix(ls, rs))), nil
	case ast.OpEndsWith:
		return Constant(value.Bool(strings.HasSuffix(ls, rs))), nil
	default:
		return Constant(value.Bool(strings.Contains(ls, rs))), nil
	}
}

func arithmetic(op ast.BinaryOp, le, re Entry) (Entry, error) {
	if le.IsNull() || re.IsNull() {
		return NullEntry(), nil
	}
	if le.Kind != EntryConstant || re.Kind != EntryConstant {
		return NullEntry(), typeErr("cannot apply %s to %s and %s", op, le.Kind, re.Kind)
	}
	l, r := le.Constant, re.Constant

	if op == ast.OpAdd {
		switch {
		case l.Kind() == value.KindList && r.Kind() == value.KindList:
			a, _ := l.AsList()
			b, _ := r.AsList()
			return Constant(value.List(append(append([]value.Value{}, a...), b...)...)), nil
		case l.Kind() == value.KindList:
			a, _ := l.AsList()
			return Constant(value.List(append(append([]value.Value{}, a...), r)...)), nil
		case r.Kind() == value.KindList:
			b, _ := r.AsList()
			return Constant(value.List(append([]value.Value{l}, b...)...)), nil
		case l.Kind() == value.KindString || r.Kind() == value.KindString:
			if (l.Kind() == value.KindString || l.IsNumber()) && (r.Kind() == value.KindString || r.IsNumber()) {
				return Constant(value.String(l.String() + r.String())), nil
			}
		}
	}

	if !l.IsNumber() || !r.IsNumber() {
		return NullEntry(), typeErr("cannot apply %s to %s and %s", op, l.Kind(), r.Kind())
	}
	if l.Kind() == value.KindInt && r.Kind() == value.KindInt {
		a, _ := l.AsInt()
		b, _ := r.AsInt()
		switch op {
		case ast.OpAdd:
			return Constant(value.Int(a + b)), nil
		case ast.OpSub:
			return Constant(value.Int(a - b)), nil
		case ast.OpMul:
			return Constant(value.Int(a * b)), nil
		case ast.OpDiv:
			if b == 0 {
				return NullEntry(), ErrDivideByZero
			}
			return Constant(value.Int(a / b)), nil
		case ast.OpMod:
			if b == 0 {
				return NullEntry(), ErrDivideByZero
			}
			return Constant(value.Int(a % b)), nil
		}
	}
	a, _ := l.AsFloat()
	b, _ := r.AsFloat()
	switch op {
	case ast.OpAdd:
		return Constant(value.Float(a + b)), nil
	case ast.OpSub:
		return Constant(value.Float(a - b)), nil
	case ast.OpMul:
		return Constant(value.Float(a * b)), nil
	case ast.OpDiv:
		return Constant(value.Float(a / b)), nil
	case ast.OpMod:
		return Constant(value.Float(math.Mod(a, b))), nil
	}
	return NullEntry(), typeErr("unsupported operator %s", op)
}

type negate struct{ operand evaluator }

func (n *negate) eval(rt *Runtime, rec *Record) (Entry, error) {
	ent, err := n.operand.eval(rt, rec)
	if err != nil || ent.IsNull() {
		return NullEntry(), err
	}
	if ent.Kind == EntryConstant {
		switch ent.Constant.Kind() {
		case value.KindInt:
			i, _ := ent.Constant.AsInt()
			return Constant(value.Int(-i)), nil
		case value.KindFloat:
			f, _ := ent.Constant.AsFloat()
			return Constant(value.Float(-f)), nil
		}
	}
	return NullEntry(), typeErr("cannot negate a non-numeric value")
}

type funcCall struct {
	fn   *function
	args []evaluator
}

func (f *funcCall) eval(rt *Runtime, rec *Record) (Entry, error) {
	args := make([]Entry, len(f.args))
	for i, a := range f.args {
		ent, err := a.eval(rt, rec)
		if err != nil {
			return NullEntry(), err
		}
		args[i] = ent
	}
	return f.fn.impl(rt, args)
}

type caseExpr struct {
	subject evaluator
	conds   []evaluator
	results []evaluator
	els     evaluator
}

func (c *caseExpr) eval(rt *Runtime, rec *Record) (Entry, error) {
	var subject Entry
	if c.subject != nil {
		var err error
		if subject, err = c.subject.eval(rt, rec); err != nil {
			return NullEntry(), err
		}
	}
	for i, cond := range c.conds {
		ent, err := cond.eval(rt, rec)
		if err != nil {
			return NullEntry(), err
		}
		var hit bool
		if c.subject != nil {
			hit = equals(subject, ent) == 1
		} else {
			t, err := truth(ent, "WHEN")
			if err != nil {
				return NullEntry(), err
			}
			hit = t == 1
		}
		if hit {
			return c.results[i].eval(rt, rec)
		}
	}
	if c.els == nil {
		return NullEntry(), nil
	}
	return c.els.eval(rt, rec)
}

// hasLabels checks that the node in slot carries every label
type hasLabels struct {
	slot   int
	labels []string
}

func (h *hasLabels) eval(rt *Runtime, rec *Record) (Entry, error) {
	ent := rec.Values[h.slot]
	if ent.IsNull() {
		return NullEntry(), nil
	}
	if ent.Kind != EntryNode {
		return NullEntry(), typeErr("label check on a %s", ent.Kind)
	}
	v, err := rt.vertex(ent.Vertex)
	if err != nil {
		return NullEntry(), err
	}
	for _, l := range h.labels {
		if !v.HasLabel(l) {
			return Constant(value.Bool(false)), nil
		}
	}
	return Constant(value.Bool(true)), nil
}

// HasLabels builds a predicate that holds when the node bound to slot
// carries all of labels. It renders as alias:L1:L2.
func HasLabels(slot int, alias string, labels []string) *Expression {
	return &Expression{
		root: &hasLabels{slot: slot, labels: append([]string(nil), labels...)},
		text: alias + ":" + strings.Join(labels, ":"),
	}
}

// All is the conjunction of the given predicates
func All(preds ...*Expression) *Expression {
	var out *Expression
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = &Expression{
			root: &logical{op: ast.OpAnd, left: out.root, right: p.root},
			text: out.text + " AND " + p.text,
		}
	}
	return out
}

// SlotExpr reads a slot verbatim
func SlotExpr(slot int, name string) *Expression {
	return &Expression{root: &slotRef{slot: slot}, text: name}
}

// ConstExpr yields a constant
func ConstExpr(v value.Value) *Expression {
	return &Expression{root: &literal{v: v}, text: v.Literal()}
}

// buildPath assembles a named path from the slots of its pattern. A
// variable length hop contributes its whole walk.
type buildPath struct {
	nodes []int
	edges []int
}

func (b *buildPath) eval(_ *Runtime, rec *Record) (Entry, error) {
	head := rec.Values[b.nodes[0]]
	if head.IsNull() {
		return NullEntry(), nil
	}
	p := &Path{Vertices: []graph.VertexID{head.Vertex}}
	for i, es := range b.edges {
		e, n := rec.Values[es], rec.Values[b.nodes[i+1]]
		if e.IsNull() || n.IsNull() {
			return NullEntry(), nil
		}
		switch e.Kind {
		case EntryRelationship:
			p.Edges = append(p.Edges, e.Edge)
			p.Vertices = append(p.Vertices, n.Vertex)
		case EntryPath:
			p.Edges = append(p.Edges, e.Path.Edges...)
			p.Vertices = append(p.Vertices, e.Path.Vertices[1:]...)
		default:
			return NullEntry(), typeErr("path step is a %s", e.Kind)
		}
	}
	return PathEntry(p), nil
}

// PathExpr builds the path through the given node and relationship slots;
// len(nodes) must be len(edges)+1
func PathExpr(nodes, edges []int, text string) *Expression {
	return &Expression{root: &buildPath{nodes: nodes, edges: edges}, text: text}
}
