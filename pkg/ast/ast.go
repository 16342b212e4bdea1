// Package ast defines the typed syntax tree of a query.
//
// Nodes are allocated from the per-query arena by the parser and mutated in
// place by the rewrite passes. The set of node kinds is closed: every node
// reports its Kind, and Walk knows the children of each kind.
package ast

import (
	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Kind tags a node's concrete type
type Kind int

const (
	KindQuery Kind = iota
	KindMatch
	KindUnwind
	KindCall
	KindWith
	KindReturn
	KindCreate
	KindSet
	KindDelete

	KindGraphPattern
	KindPathPattern
	KindPathChain
	KindNodePattern
	KindEdgePattern
	KindElementFiller
	KindPropPredicate

	KindProcedureCall
	KindYield
	KindProjection
	KindProjectionItem
	KindSortItem
	KindSetItem

	KindRef
	KindGetField
	KindLiteral
	KindParam
	KindList
	KindMap
	KindBinary
	KindUnary
	KindIsNull
	KindFunc
	KindCase
)

var kindNames = [...]string{
	KindQuery:          "Query",
	KindMatch:          "Match",
	KindUnwind:         "Unwind",
	KindCall:           "Call",
	KindWith:           "With",
	KindReturn:         "Return",
	KindCreate:         "Create",
	KindSet:            "Set",
	KindDelete:         "Delete",
	KindGraphPattern:   "GraphPattern",
	KindPathPattern:    "PathPattern",
	KindPathChain:      "PathChain",
	KindNodePattern:    "NodePattern",
	KindEdgePattern:    "EdgePattern",
	KindElementFiller:  "ElementFiller",
	KindPropPredicate:  "PropPredicate",
	KindProcedureCall:  "ProcedureCall",
	KindYield:          "Yield",
	KindProjection:     "Projection",
	KindProjectionItem: "ProjectionItem",
	KindSortItem:       "SortItem",
	KindSetItem:        "SetItem",
	KindRef:            "Ref",
	KindGetField:       "GetField",
	KindLiteral:        "Literal",
	KindParam:          "Param",
	KindList:           "List",
	KindMap:            "Map",
	KindBinary:         "Binary",
	KindUnary:          "Unary",
	KindIsNull:         "IsNull",
	KindFunc:           "Func",
	KindCase:           "Case",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Node is implemented by every syntax tree node
type Node interface {
	Kind() Kind
}

// Expr is a node that evaluates to a value
type Expr interface {
	Node
	exprNode()
}

// Clause is one top-level clause of a query
type Clause interface {
	Node
	clauseNode()
}

// Mode distinguishes ordinary statements from meta-commands
type Mode int

const (
	ModeNormal Mode = iota
	ModeExplain
	ModeProfile
)

func (m Mode) String() string {
	switch m {
	case ModeExplain:
		return "EXPLAIN"
	case ModeProfile:
		return "PROFILE"
	default:
		return "NORMAL"
	}
}

// Query is the root of a parsed statement
type Query struct {
	Mode    Mode
	Clauses []Clause
}

// Clauses

// Match represents MATCH / OPTIONAL MATCH
type Match struct {
	Optional bool
	Pattern  *GraphPattern
}

// Unwind represents UNWIND expr AS alias
type Unwind struct {
	Expr  Expr
	Alias string
}

// Call wraps a procedure invocation used as a clause
type Call struct {
	Proc *ProcedureCall
}

// With represents a WITH projection between query segments
type With struct {
	Projection *Projection
	Where      Expr
}

// Return represents the final projection
type Return struct {
	Projection *Projection
}

// Create represents CREATE pattern-list
type Create struct {
	Pattern *GraphPattern
}

// Set represents SET v.k = expr, ...
type Set struct {
	Items []*SetItem
}

// Delete represents [DETACH] DELETE expr, ...
type Delete struct {
	Detach bool
	Exprs  []Expr
}

// Patterns

// GraphPattern aggregates all path patterns of one clause plus its WHERE
// predicate. Variable reuse is resolved within one GraphPattern.
type GraphPattern struct {
	Paths []*PathPattern
	Where Expr
}

// PathPattern is one comma-separated path, optionally bound to a path
// variable (p = (a)-->(b)).
type PathPattern struct {
	Alias string
	Chain *PathChain
}

// PathChain is a head node followed by zero or more hops
type PathChain struct {
	Head *NodePattern
	Hops []*Hop
}

// Hop is one edge and the node it leads to. It is not a Node itself;
// Walk visits the edge and then the node.
type Hop struct {
	Edge *EdgePattern
	Node *NodePattern
}

// Direction of an edge pattern relative to reading order
type Direction int

const (
	DirRight Direction = iota // -->
	DirLeft                   // <--
	DirBoth                   // --
)

func (d Direction) String() string {
	switch d {
	case DirRight:
		return "-->"
	case DirLeft:
		return "<--"
	default:
		return "--"
	}
}

// NodePattern is one node occurrence in a path
type NodePattern struct {
	Filler *ElementFiller
}

// EdgePattern is one edge occurrence in a path. Labels on its filler are
// relationship types, any of which may match.
type EdgePattern struct {
	Filler    *ElementFiller
	Direction Direction
	VarLength bool
	MinHop    int
	MaxHop    int // -1 means unbounded
}

// ElementFiller carries the variable, labels and point predicates of one
// node or edge occurrence.
type ElementFiller struct {
	Variable   string
	Labels     []string
	Predicates []*PropPredicate
}

// PropPredicate is a {key: value} equality attached to an element
type PropPredicate struct {
	Key   string
	Value Expr
}

// Procedure calls and projections

// ProcedureCall is CALL name(args) [YIELD ...]. Yield is nil when the
// query did not spell out a YIELD list.
type ProcedureCall struct {
	Name       string
	Args       []Expr
	Yield      *Yield
	Standalone bool
}

// Yield lists the bound result columns of a procedure call
type Yield struct {
	Items []*YieldItem
	Where Expr
}

// YieldItem binds the result column Name to Alias
type YieldItem struct {
	Name  string
	Alias string
}

// Projection is the body shared by WITH and RETURN
type Projection struct {
	Distinct bool
	Star     bool
	Items    []*ProjectionItem
	OrderBy  []*SortItem
	Skip     Expr
	Limit    Expr
}

// ProjectionItem is expr [AS alias]. Text holds the source spelling used
// as the column name when there is no alias.
type ProjectionItem struct {
	Expr  Expr
	Alias string
	Text  string
}

// Name returns the column name of the item
func (p *ProjectionItem) Name() string {
	if p.Alias != "" {
		return p.Alias
	}
	if p.Text != "" {
		return p.Text
	}
	return Format(p.Expr)
}

// SortItem is one ORDER BY key
type SortItem struct {
	Expr Expr
	Desc bool
}

// SetItem is target.key = value
type SetItem struct {
	Target *GetField
	Value  Expr
}

// Expressions

// Ref references a bound variable
type Ref struct {
	Name string
}

// GetField is property access: target.key
type GetField struct {
	Target Expr
	Key    string
}

// Literal is a constant
type Literal struct {
	Value value.Value
}

// Param is a $name query parameter
type Param struct {
	Name string
}

// ListExpr is [a, b, ...]
type ListExpr struct {
	Items []Expr
}

// MapExpr is {k: v, ...}
type MapExpr struct {
	Keys   []string
	Values []Expr
}

// BinaryOp enumerates binary operators
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpXor
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpStartsWith
	OpEndsWith
	OpContains
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binaryOpNames = [...]string{
	OpOr:         "OR",
	OpXor:        "XOR",
	OpAnd:        "AND",
	OpEq:         "=",
	OpNe:         "<>",
	OpLt:         "<",
	OpLe:         "<=",
	OpGt:         ">",
	OpGe:         ">=",
	OpIn:         "IN",
	OpStartsWith: "STARTS WITH",
	OpEndsWith:   "ENDS WITH",
	OpContains:   "CONTAINS",
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpMod:        "%",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// Binary is left op right
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp enumerates prefix operators
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// Unary is op operand
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// IsNull is operand IS [NOT] NULL
type IsNull struct {
	Operand Expr
	Negated bool
}

// Func is a function call. Star is set for count(*).
type Func struct {
	Name     string
	Distinct bool
	Star     bool
	Args     []Expr
}

// Case is CASE [subject] WHEN .. THEN .. [ELSE ..] END. Subject is nil for
// the generic form.
type Case struct {
	Subject Expr
	Whens   []*When
	Else    Expr
}

// When is one WHEN/THEN arm
type When struct {
	Cond   Expr
	Result Expr
}

func (*Query) Kind() Kind          { return KindQuery }
func (*Match) Kind() Kind          { return KindMatch }
func (*Unwind) Kind() Kind         { return KindUnwind }
func (*Call) Kind() Kind           { return KindCall }
func (*With) Kind() Kind           { return KindWith }
func (*Return) Kind() Kind         { return KindReturn }
func (*Create) Kind() Kind         { return KindCreate }
func (*Set) Kind() Kind            { return KindSet }
func (*Delete) Kind() Kind         { return KindDelete }
func (*GraphPattern) Kind() Kind   { return KindGraphPattern }
func (*PathPattern) Kind() Kind    { return KindPathPattern }
func (*PathChain) Kind() Kind      { return KindPathChain }
func (*NodePattern) Kind() Kind    { return KindNodePattern }
func (*EdgePattern) Kind() Kind    { return KindEdgePattern }
func (*ElementFiller) Kind() Kind  { return KindElementFiller }
func (*PropPredicate) Kind() Kind  { return KindPropPredicate }
func (*ProcedureCall) Kind() Kind  { return KindProcedureCall }
func (*Yield) Kind() Kind          { return KindYield }
func (*Projection) Kind() Kind     { return KindProjection }
func (*ProjectionItem) Kind() Kind { return KindProjectionItem }
func (*SortItem) Kind() Kind       { return KindSortItem }
func (*SetItem) Kind() Kind        { return KindSetItem }
func (*Ref) Kind() Kind            { return KindRef }
func (*GetField) Kind() Kind       { return KindGetField }
func (*Literal) Kind() Kind        { return KindLiteral }
func (*Param) Kind() Kind          { return KindParam }
func (*ListExpr) Kind() Kind       { return KindList }
func (*MapExpr) Kind() Kind        { return KindMap }
func (*Binary) Kind() Kind         { return KindBinary }
func (*Unary) Kind() Kind          { return KindUnary }
func (*IsNull) Kind() Kind         { return KindIsNull }
func (*Func) Kind() Kind           { return KindFunc }
func (*Case) Kind() Kind           { return KindCase }

func (*Match) clauseNode()  {}
func (*Unwind) clauseNode() {}
func (*Call) clauseNode()   {}
func (*With) clauseNode()   {}
func (*Return) clauseNode() {}
func (*Create) clauseNode() {}
func (*Set) clauseNode()    {}
func (*Delete) clauseNode() {}

func (*Ref) exprNode()      {}
func (*GetField) exprNode() {}
func (*Literal) exprNode()  {}
func (*Param) exprNode()    {}
func (*ListExpr) exprNode() {}
func (*MapExpr) exprNode()  {}
func (*Binary) exprNode()   {}
func (*Unary) exprNode()    {}
func (*IsNull) exprNode()   {}
func (*Func) exprNode()     {}
func (*Case) exprNode()     {}

// Fillers returns every element filler of the chain, head first, with
// edges and nodes interleaved in path order.
func (c *PathChain) Fillers() []*ElementFiller {
	out := make([]*ElementFiller, 0, 1+2*len(c.Hops))
	out = append(out, c.Head.Filler)
	for _, h := range c.Hops {
		out = append(out, h.Edge.Filler, h.Node.Filler)
	}
	return out
}

// Nodes returns the node patterns of the chain in path order
func (c *PathChain) Nodes() []*NodePattern {
	out := make([]*NodePattern, 0, 1+len(c.Hops))
	out = append(out, c.Head)
	for _, h := range c.Hops {
		out = append(out, h.Node)
	}
	return out
}

// And folds conjuncts left to right into a chain of AND nodes allocated
// from a. Nil operands are skipped; the result is nil when all are nil.
func And(a *arena.Arena, exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = arena.Alloc(a, Binary{Op: OpAnd, Left: out, Right: e})
	}
	return out
}
