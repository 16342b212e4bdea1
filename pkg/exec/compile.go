package exec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/ast"
)

var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrUnknownFunction = errors.New("unknown function")
	ErrArity           = errors.New("wrong number of arguments")
	ErrAggregateMisuse = errors.New("aggregation not allowed here")
)

// Scope resolves variable names to record slots
type Scope interface {
	Slot(name string) (int, bool)
}

// Compiler turns AST expressions into slot-resolved Expressions
type Compiler struct {
	Scope Scope
	// ArgScope resolves variables inside aggregation arguments, which see
	// the rows before grouping. Scope is used when it is nil.
	ArgScope Scope
	// OnAggregate is called for every aggregation call met while compiling
	// and returns the slot its result will be read from. When nil,
	// aggregation calls are rejected.
	OnAggregate func(spec AggregateSpec) int
}

// CompileExpr compiles e against scope, rejecting aggregation calls
func CompileExpr(e ast.Expr, scope Scope) (*Expression, error) {
	c := &Compiler{Scope: scope}
	return c.Compile(e)
}

// Compile compiles e
func (c *Compiler) Compile(e ast.Expr) (*Expression, error) {
	root, err := c.compile(e)
	if err != nil {
		return nil, err
	}
	return &Expression{root: root, text: ast.Format(e)}, nil
}

func (c *Compiler) compile(e ast.Expr) (evaluator, error) {
	switch e := e.(type) {
	case *ast.Ref:
		slot, ok := c.Scope.Slot(e.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, e.Name)
		}
		return &slotRef{slot: slot}, nil

	case *ast.GetField:
		t, err := c.compile(e.Target)
		if err != nil {
			return nil, err
		}
		return &propAccess{target: t, key: e.Key}, nil

	case *ast.Literal:
		return &literal{v: e.Value}, nil

	case *ast.Param:
		return &param{name: e.Name}, nil

	case *ast.ListExpr:
		items, err := c.compileAll(e.Items)
		if err != nil {
			return nil, err
		}
		return &listExpr{items: items}, nil

	case *ast.MapExpr:
		vals, err := c.compileAll(e.Values)
		if err != nil {
			return nil, err
		}
		return &mapExpr{keys: e.Keys, values: vals}, nil

	case *ast.Binary:
		l, err := c.compile(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := c.compile(e.Right)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case ast.OpAnd, ast.OpOr, ast.OpXor:
			return &logical{op: e.Op, left: l, right: r}, nil
		}
		return &binaryExpr{op: e.Op, left: l, right: r}, nil

	case *ast.Unary:
		operand, err := c.compile(e.Operand)
		if err != nil {
			return nil, err
		}
		if e.Op == ast.OpNot {
			return &not{operand: operand}, nil
		}
		return &negate{operand: operand}, nil

	case *ast.IsNull:
		operand, err := c.compile(e.Operand)
		if err != nil {
			return nil, err
		}
		return &isNull{operand: operand, negated: e.Negated}, nil

	case *ast.Func:
		return c.compileFunc(e)

	case *ast.Case:
		out := &caseExpr{}
		var err error
		if e.Subject != nil {
			if out.subject, err = c.compile(e.Subject); err != nil {
				return nil, err
			}
		}
		for _, w := range e.Whens {
			cond, err := c.compile(w.Cond)
			if err != nil {
				return nil, err
			}
			res, err := c.compile(w.Result)
			if err != nil {
				return nil, err
			}
			out.conds = append(out.conds, cond)
			out.results = append(out.results, res)
		}
		if e.Else != nil {
			if out.els, err = c.compile(e.Else); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (c *Compiler) compileAll(exprs []ast.Expr) ([]evaluator, error) {
	out := make([]evaluator, len(exprs))
	for i, x := range exprs {
		ev, err := c.compile(x)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

func (c *Compiler) compileFunc(e *ast.Func) (evaluator, error) {
	name := strings.ToLower(e.Name)
	if IsAggregate(name) {
		if c.OnAggregate == nil {
			return nil, fmt.Errorf("%w: %s()", ErrAggregateMisuse, e.Name)
		}
		if e.Star && name != "count" {
			return nil, fmt.Errorf("%w: %s(*)", ErrArity, e.Name)
		}
		spec := AggregateSpec{Func: name, Distinct: e.Distinct, Star: e.Star}
		if !e.Star {
			if len(e.Args) != 1 {
				return nil, fmt.Errorf("%w: %s() takes 1 argument, got %d", ErrArity, e.Name, len(e.Args))
			}
			// nested aggregation is rejected
			inner := &Compiler{Scope: c.ArgScope}
			if inner.Scope == nil {
				inner.Scope = c.Scope
			}
			arg, err := inner.Compile(e.Args[0])
			if err != nil {
				return nil, err
			}
			spec.Arg = arg
		}
		return &slotRef{slot: c.OnAggregate(spec)}, nil
	}

	fn, ok := lookupFunction(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, e.Name)
	}
	if e.Star || e.Distinct {
		return nil, fmt.Errorf("%w: %s() is not an aggregation", ErrArity, e.Name)
	}
	if err := fn.checkArity(len(e.Args)); err != nil {
		return nil, err
	}
	args, err := c.compileAll(e.Args)
	if err != nil {
		return nil, err
	}
	return &funcCall{fn: fn, args: args}, nil
}

// ContainsAggregate reports whether e calls an aggregation function
func ContainsAggregate(e ast.Expr) bool {
	if e == nil {
		return false
	}
	found := false
	_ = ast.Walk(aggFinder{&found}, e)
	return found
}

type aggFinder struct{ found *bool }

func (f aggFinder) Visit(n ast.Node) (ast.Visitor, error) {
	if fn, ok := n.(*ast.Func); ok && IsAggregate(fn.Name) {
		*f.found = true
		return nil, nil
	}
	return f, nil
}

// MapScope is a Scope backed by a map
type MapScope map[string]int

func (m MapScope) Slot(name string) (int, bool) {
	s, ok := m[name]
	return s, ok
}
