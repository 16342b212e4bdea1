package ast

import (
	"fmt"
	"strings"
)

// precedence of binary operators, higher binds tighter
func precedence(e Expr) int {
	switch e := e.(type) {
	case *Binary:
		switch e.Op {
		case OpOr:
			return 1
		case OpXor:
			return 2
		case OpAnd:
			return 3
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn, OpStartsWith, OpEndsWith, OpContains:
			return 5
		case OpAdd, OpSub:
			return 6
		default:
			return 7
		}
	case *Unary:
		if e.Op == OpNot {
			return 4
		}
		return 8
	case *IsNull:
		return 5
	default:
		return 9
	}
}

// Format renders an expression in query syntax. The output is stable and
// is used for generated column names and plan descriptions.
func Format(e Expr) string {
	var b strings.Builder
	formatExpr(&b, e)
	return b.String()
}

func formatOperand(b *strings.Builder, e Expr, parent int) {
	if precedence(e) < parent {
		b.WriteByte('(')
		formatExpr(b, e)
		b.WriteByte(')')
		return
	}
	formatExpr(b, e)
}

func formatExpr(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Ref:
		b.WriteString(e.Name)
	case *GetField:
		formatOperand(b, e.Target, 9)
		b.WriteByte('.')
		b.WriteString(e.Key)
	case *Literal:
		b.WriteString(e.Value.Literal())
	case *Param:
		b.WriteByte('$')
		b.WriteString(e.Name)
	case *ListExpr:
		b.WriteByte('[')
		for i, it := range e.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, it)
		}
		b.WriteByte(']')
	case *MapExpr:
		b.WriteByte('{')
		for i, k := range e.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			formatExpr(b, e.Values[i])
		}
		b.WriteByte('}')
	case *Binary:
		p := precedence(e)
		formatOperand(b, e.Left, p)
		b.WriteByte(' ')
		b.WriteString(e.Op.String())
		b.WriteByte(' ')
		// left-associative: an equal-precedence right operand needs parens
		formatOperand(b, e.Right, p+1)
	case *Unary:
		if e.Op == OpNot {
			b.WriteString("NOT ")
		} else {
			b.WriteByte('-')
		}
		formatOperand(b, e.Operand, precedence(e))
	case *IsNull:
		formatOperand(b, e.Operand, 6)
		if e.Negated {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *Func:
		b.WriteString(e.Name)
		b.WriteByte('(')
		if e.Star {
			b.WriteByte('*')
		}
		if e.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, a)
		}
		b.WriteByte(')')
	case *Case:
		b.WriteString("CASE")
		if e.Subject != nil {
			b.WriteByte(' ')
			formatExpr(b, e.Subject)
		}
		for _, w := range e.Whens {
			b.WriteString(" WHEN ")
			formatExpr(b, w.Cond)
			b.WriteString(" THEN ")
			formatExpr(b, w.Result)
		}
		if e.Else != nil {
			b.WriteString(" ELSE ")
			formatExpr(b, e.Else)
		}
		b.WriteString(" END")
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}

// FormatPath renders a path chain, e.g. (a:Person)-[r:KNOWS]->(b)
func FormatPath(c *PathChain) string {
	var b strings.Builder
	formatNodePattern(&b, c.Head)
	for _, h := range c.Hops {
		formatEdgePattern(&b, h.Edge)
		formatNodePattern(&b, h.Node)
	}
	return b.String()
}

func formatFiller(b *strings.Builder, f *ElementFiller, sep string) {
	b.WriteString(f.Variable)
	if len(f.Labels) > 0 {
		b.WriteByte(':')
		b.WriteString(strings.Join(f.Labels, sep))
	}
	if len(f.Predicates) > 0 {
		b.WriteString(" {")
		for i, p := range f.Predicates {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Key)
			b.WriteString(": ")
			formatExpr(b, p.Value)
		}
		b.WriteByte('}')
	}
}

func formatNodePattern(b *strings.Builder, n *NodePattern) {
	b.WriteByte('(')
	formatFiller(b, n.Filler, ":")
	b.WriteByte(')')
}

func formatEdgePattern(b *strings.Builder, e *EdgePattern) {
	if e.Direction == DirLeft {
		b.WriteString("<-[")
	} else {
		b.WriteString("-[")
	}
	formatFiller(b, e.Filler, "|")
	if e.VarLength {
		b.WriteByte('*')
		fmt.Fprintf(b, "%d..", e.MinHop)
		if e.MaxHop >= 0 {
			fmt.Fprintf(b, "%d", e.MaxHop)
		}
	}
	if e.Direction == DirRight {
		b.WriteString("]->")
	} else {
		b.WriteString("]-")
	}
}

type dumper struct {
	b     *strings.Builder
	depth int
}

func (d *dumper) Visit(n Node) (Visitor, error) {
	if n == nil {
		d.depth--
		return nil, nil
	}
	d.b.WriteString(strings.Repeat("  ", d.depth))
	d.b.WriteString(n.Kind().String())
	if detail := describe(n); detail != "" {
		d.b.WriteByte(' ')
		d.b.WriteString(detail)
	}
	d.b.WriteByte('\n')
	d.depth++
	return d, nil
}

func describe(n Node) string {
	switch n := n.(type) {
	case *Query:
		if n.Mode != ModeNormal {
			return n.Mode.String()
		}
	case *Match:
		if n.Optional {
			return "OPTIONAL"
		}
	case *Unwind:
		return "AS " + n.Alias
	case *Delete:
		if n.Detach {
			return "DETACH"
		}
	case *PathPattern:
		return n.Alias
	case *EdgePattern:
		return n.Direction.String()
	case *ElementFiller:
		s := n.Variable
		if len(n.Labels) > 0 {
			s += ":" + strings.Join(n.Labels, ":")
		}
		return s
	case *PropPredicate:
		return n.Key
	case *ProcedureCall:
		return n.Name
	case *Yield:
		items := make([]string, len(n.Items))
		for i, it := range n.Items {
			items[i] = it.Name + " AS " + it.Alias
		}
		return strings.Join(items, ", ")
	case *ProjectionItem:
		return n.Name()
	case *Ref:
		return n.Name
	case *GetField:
		return n.Key
	case *Literal:
		return n.Value.Literal()
	case *Param:
		return "$" + n.Name
	case *Binary:
		return n.Op.String()
	case *Func:
		return n.Name
	}
	return ""
}

// Dump renders the tree rooted at n, one node per line, indented by depth.
func Dump(n Node) string {
	var b strings.Builder
	_ = Walk(&dumper{b: &b}, n)
	return b.String()
}
