package ast

import "fmt"

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the returned visitor w is not nil, Walk visits each child of the node
// with w, followed by a call of w.Visit(nil). A non-nil error aborts the
// traversal and is returned from Walk unchanged.
type Visitor interface {
	Visit(n Node) (w Visitor, err error)
}

// Walk traverses the tree rooted at n in depth-first order. Children are
// visited in source order.
func Walk(v Visitor, n Node) error {
	w, err := v.Visit(n)
	if err != nil || w == nil {
		return err
	}

	switch n := n.(type) {
	case *Query:
		for _, c := range n.Clauses {
			if err := Walk(w, c); err != nil {
				return err
			}
		}

	case *Match:
		if err := walkNode(w, n.Pattern); err != nil {
			return err
		}
	case *Unwind:
		if err := walkExpr(w, n.Expr); err != nil {
			return err
		}
	case *Call:
		if err := walkNode(w, n.Proc); err != nil {
			return err
		}
	case *With:
		if err := walkNode(w, n.Projection); err != nil {
			return err
		}
		if err := walkExpr(w, n.Where); err != nil {
			return err
		}
	case *Return:
		if err := walkNode(w, n.Projection); err != nil {
			return err
		}
	case *Create:
		if err := walkNode(w, n.Pattern); err != nil {
			return err
		}
	case *Set:
		for _, it := range n.Items {
			if err := Walk(w, it); err != nil {
				return err
			}
		}
	case *Delete:
		if err := walkExprs(w, n.Exprs); err != nil {
			return err
		}

	case *GraphPattern:
		for _, p := range n.Paths {
			if err := Walk(w, p); err != nil {
				return err
			}
		}
		if err := walkExpr(w, n.Where); err != nil {
			return err
		}
	case *PathPattern:
		if err := walkNode(w, n.Chain); err != nil {
			return err
		}
	case *PathChain:
		if err := walkNode(w, n.Head); err != nil {
			return err
		}
		for _, h := range n.Hops {
			if err := walkNode(w, h.Edge); err != nil {
				return err
			}
			if err := walkNode(w, h.Node); err != nil {
				return err
			}
		}
	case *NodePattern:
		if err := walkNode(w, n.Filler); err != nil {
			return err
		}
	case *EdgePattern:
		if err := walkNode(w, n.Filler); err != nil {
			return err
		}
	case *ElementFiller:
		for _, p := range n.Predicates {
			if err := Walk(w, p); err != nil {
				return err
			}
		}
	case *PropPredicate:
		if err := walkExpr(w, n.Value); err != nil {
			return err
		}

	case *ProcedureCall:
		if err := walkExprs(w, n.Args); err != nil {
			return err
		}
		if err := walkNode(w, n.Yield); err != nil {
			return err
		}
	case *Yield:
		if err := walkExpr(w, n.Where); err != nil {
			return err
		}
	case *Projection:
		for _, it := range n.Items {
			if err := Walk(w, it); err != nil {
				return err
			}
		}
		for _, it := range n.OrderBy {
			if err := Walk(w, it); err != nil {
				return err
			}
		}
		if err := walkExpr(w, n.Skip); err != nil {
			return err
		}
		if err := walkExpr(w, n.Limit); err != nil {
			return err
		}
	case *ProjectionItem:
		if err := walkExpr(w, n.Expr); err != nil {
			return err
		}
	case *SortItem:
		if err := walkExpr(w, n.Expr); err != nil {
			return err
		}
	case *SetItem:
		if err := walkNode(w, n.Target); err != nil {
			return err
		}
		if err := walkExpr(w, n.Value); err != nil {
			return err
		}

	case *Ref, *Literal, *Param:
		// leaves

	case *GetField:
		if err := walkExpr(w, n.Target); err != nil {
			return err
		}
	case *ListExpr:
		if err := walkExprs(w, n.Items); err != nil {
			return err
		}
	case *MapExpr:
		if err := walkExprs(w, n.Values); err != nil {
			return err
		}
	case *Binary:
		if err := walkExpr(w, n.Left); err != nil {
			return err
		}
		if err := walkExpr(w, n.Right); err != nil {
			return err
		}
	case *Unary:
		if err := walkExpr(w, n.Operand); err != nil {
			return err
		}
	case *IsNull:
		if err := walkExpr(w, n.Operand); err != nil {
			return err
		}
	case *Func:
		if err := walkExprs(w, n.Args); err != nil {
			return err
		}
	case *Case:
		if err := walkExpr(w, n.Subject); err != nil {
			return err
		}
		for _, wh := range n.Whens {
			if err := walkExpr(w, wh.Cond); err != nil {
				return err
			}
			if err := walkExpr(w, wh.Result); err != nil {
				return err
			}
		}
		if err := walkExpr(w, n.Else); err != nil {
			return err
		}

	default:
		return fmt.Errorf("ast.Walk: unexpected node type %T", n)
	}

	_, err = w.Visit(nil)
	return err
}

// walkNode skips typed nil pointers held in optional fields.
func walkNode[T interface {
	*E
	Node
}, E any](v Visitor, n T) error {
	if n == nil {
		return nil
	}
	return Walk(v, n)
}

func walkExpr(v Visitor, e Expr) error {
	if e == nil {
		return nil
	}
	return Walk(v, e)
}

func walkExprs(v Visitor, list []Expr) error {
	for _, e := range list {
		if err := walkExpr(v, e); err != nil {
			return err
		}
	}
	return nil
}

type inspector func(Node) (bool, error)

func (f inspector) Visit(n Node) (Visitor, error) {
	if n == nil {
		return nil, nil
	}
	descend, err := f(n)
	if err != nil || !descend {
		return nil, err
	}
	return f, nil
}

// Inspect traverses the tree rooted at n, calling f for each node. If f
// returns false the children of that node are skipped; an error stops the
// traversal.
func Inspect(n Node, f func(Node) (bool, error)) error {
	return Walk(inspector(f), n)
}
