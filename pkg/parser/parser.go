// Package parser turns query text into the typed syntax tree of package ast.
//
// All nodes are allocated from the caller's arena so that parse, rewrite and
// plan compilation share one lifetime.
package parser

import (
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/arena"
	"github.com/dd0wney/cluso-cypher/pkg/ast"
)

// Parser builds an AST from tokens
type Parser struct {
	arena  *arena.Arena
	input  string
	tokens []Token
	pos    int
}

// NewParser creates a new parser over tokens produced from input
func NewParser(a *arena.Arena, input string, tokens []Token) *Parser {
	return &Parser{
		arena:  a,
		input:  input,
		tokens: tokens,
	}
}

// Parse tokenizes and parses one statement
func Parse(a *arena.Arena, input string) (*ast.Query, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(a, input, tokens).Parse()
}

func alloc[T any](p *Parser, v T) *T {
	return arena.Alloc(p.arena, v)
}

// Parse parses the tokens into a Query AST
func (p *Parser) Parse() (*ast.Query, error) {
	query := alloc(p, ast.Query{})

	switch p.peek().Type {
	case TokenExplain:
		p.advance()
		query.Mode = ast.ModeExplain
	case TokenProfile:
		p.advance()
		query.Mode = ast.ModeProfile
	}

	for !p.isAtEnd() {
		if p.peek().Type == TokenSemicolon {
			p.advance()
			if !p.isAtEnd() {
				return nil, errorAt(p.peek(), "only one statement is allowed")
			}
			break
		}
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		query.Clauses = append(query.Clauses, clause)
	}

	if len(query.Clauses) == 0 {
		return nil, errorAt(p.peek(), "empty query")
	}
	if len(query.Clauses) == 1 {
		if call, ok := query.Clauses[0].(*ast.Call); ok {
			call.Proc.Standalone = true
		}
	}
	return query, nil
}

func (p *Parser) parseClause() (ast.Clause, error) {
	token := p.peek()

	switch token.Type {
	case TokenMatch, TokenOptional:
		return p.parseMatch()
	case TokenUnwind:
		return p.parseUnwind()
	case TokenCall:
		return p.parseCall()
	case TokenWith:
		return p.parseWith()
	case TokenReturn:
		return p.parseReturn()
	case TokenCreate:
		return p.parseCreate()
	case TokenSet:
		return p.parseSet()
	case TokenDetach, TokenDelete:
		return p.parseDelete()
	default:
		return nil, errorAt(token, "unexpected %s, expected a clause", token.Type)
	}
}

// parseMatch parses [OPTIONAL] MATCH pattern-list [WHERE expr]
func (p *Parser) parseMatch() (*ast.Match, error) {
	match := alloc(p, ast.Match{})
	if p.peek().Type == TokenOptional {
		p.advance()
		match.Optional = true
	}
	if _, err := p.expect(TokenMatch); err != nil {
		return nil, err
	}

	pattern, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == TokenWhere {
		p.advance()
		if pattern.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	match.Pattern = pattern
	return match, nil
}

// parseUnwind parses UNWIND expr AS alias
func (p *Parser) parseUnwind() (*ast.Unwind, error) {
	p.advance()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAs); err != nil {
		return nil, err
	}
	alias, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	return alloc(p, ast.Unwind{Expr: expr, Alias: alias.Value}), nil
}

// parseCall parses CALL ns.name[(args)] [YIELD name [AS alias], ... [WHERE expr]]
func (p *Parser) parseCall() (*ast.Call, error) {
	p.advance()

	first, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	parts := []string{first.Value}
	for p.peek().Type == TokenDot {
		p.advance()
		part, err := p.expectName()
		if err != nil {
			return nil, err
		}
		parts = append(parts, part.Value)
	}
	proc := alloc(p, ast.ProcedureCall{Name: strings.Join(parts, ".")})

	if p.peek().Type == TokenLeftParen {
		p.advance()
		if p.peek().Type != TokenRightParen {
			if proc.Args, err = p.parseExpressionList(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
	}

	if p.peek().Type == TokenYield {
		p.advance()
		yield := alloc(p, ast.Yield{})
		for {
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			item := alloc(p, ast.YieldItem{Name: name.Value, Alias: name.Value})
			if p.peek().Type == TokenAs {
				p.advance()
				alias, err := p.expect(TokenIdentifier)
				if err != nil {
					return nil, err
				}
				item.Alias = alias.Value
			}
			yield.Items = append(yield.Items, item)

			if p.peek().Type != TokenComma {
				break
			}
			p.advance()
		}
		if p.peek().Type == TokenWhere {
			p.advance()
			if yield.Where, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		proc.Yield = yield
	}

	return alloc(p, ast.Call{Proc: proc}), nil
}

// parseWith parses WITH projection [WHERE expr]
func (p *Parser) parseWith() (*ast.With, error) {
	p.advance()
	proj, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	with := alloc(p, ast.With{Projection: proj})
	if p.peek().Type == TokenWhere {
		p.advance()
		if with.Where, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return with, nil
}

// parseReturn parses RETURN projection
func (p *Parser) parseReturn() (*ast.Return, error) {
	p.advance()
	proj, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	return alloc(p, ast.Return{Projection: proj}), nil
}

// parseProjection parses [DISTINCT] *|items [ORDER BY ...] [SKIP n] [LIMIT n]
func (p *Parser) parseProjection() (*ast.Projection, error) {
	proj := alloc(p, ast.Projection{})

	// DISTINCT (optional)
	if p.peek().Type == TokenDistinct {
		p.advance()
		proj.Distinct = true
	}

	needItems := true
	if p.peek().Type == TokenStar {
		p.advance()
		proj.Star = true
		needItems = false
		if p.peek().Type == TokenComma {
			p.advance()
			needItems = true
		}
	}

	for needItems {
		item, err := p.parseProjectionItem()
		if err != nil {
			return nil, err
		}
		proj.Items = append(proj.Items, item)

		if p.peek().Type != TokenComma {
			break
		}
		p.advance()
	}

	if p.peek().Type == TokenOrder {
		p.advance()
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			item := alloc(p, ast.SortItem{Expr: expr})
			switch p.peek().Type {
			case TokenAsc:
				p.advance()
			case TokenDesc:
				p.advance()
				item.Desc = true
			}
			proj.OrderBy = append(proj.OrderBy, item)

			if p.peek().Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	var err error
	if p.peek().Type == TokenSkip {
		p.advance()
		if proj.Skip, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if p.peek().Type == TokenLimit {
		p.advance()
		if proj.Limit, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}

	return proj, nil
}

// parseProjectionItem parses expr [AS alias]
func (p *Parser) parseProjectionItem() (*ast.ProjectionItem, error) {
	start := p.peek()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	item := alloc(p, ast.ProjectionItem{
		Expr: expr,
		Text: strings.TrimSpace(p.input[start.Pos:p.prevEnd()]),
	})

	// AS alias (optional)
	if p.peek().Type == TokenAs {
		p.advance()
		alias, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		item.Alias = alias.Value
	}
	return item, nil
}

// parseCreate parses CREATE pattern-list
func (p *Parser) parseCreate() (*ast.Create, error) {
	p.advance()
	pattern, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	return alloc(p, ast.Create{Pattern: pattern}), nil
}

// parseSet parses SET v.k = expr, ...
func (p *Parser) parseSet() (*ast.Set, error) {
	p.advance()
	set := alloc(p, ast.Set{})

	for {
		target, err := p.parsePostfixExpression()
		if err != nil {
			return nil, err
		}
		field, ok := target.(*ast.GetField)
		if !ok {
			return nil, errorAt(p.peek(), "SET expects a property, got %s", ast.Format(target))
		}
		if _, err := p.expect(TokenEquals); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		set.Items = append(set.Items, alloc(p, ast.SetItem{Target: field, Value: val}))

		if p.peek().Type != TokenComma {
			break
		}
		p.advance()
	}

	return set, nil
}

// parseDelete parses [DETACH] DELETE expr, ...
func (p *Parser) parseDelete() (*ast.Delete, error) {
	del := alloc(p, ast.Delete{})

	// DETACH DELETE (optional)
	if p.peek().Type == TokenDetach {
		p.advance()
		del.Detach = true
	}
	if _, err := p.expect(TokenDelete); err != nil {
		return nil, err
	}

	exprs, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	del.Exprs = exprs
	return del, nil
}

// Helper functions

func (p *Parser) peek() Token {
	return p.peekAhead(0)
}

func (p *Parser) peekAhead(n int) Token {
	pos := p.pos + n
	if pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[pos]
}

func (p *Parser) advance() Token {
	token := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return token
}

// prevEnd is the input offset just past the last consumed token
func (p *Parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].End
}

func (p *Parser) expect(tokenType TokenType) (Token, error) {
	token := p.peek()
	if token.Type != tokenType {
		return Token{}, errorAt(token, "expected %s, got %s", tokenType, describeToken(token))
	}
	return p.advance(), nil
}

// expectName accepts an identifier or a keyword used as a name
func (p *Parser) expectName() (Token, error) {
	token := p.peek()
	if token.Type != TokenIdentifier && !token.Type.IsKeyword() {
		return Token{}, errorAt(token, "expected a name, got %s", describeToken(token))
	}
	return p.advance(), nil
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == TokenEOF
}

func describeToken(t Token) string {
	if t.Type == TokenEOF {
		return "end of input"
	}
	return t.Type.String() + " '" + t.Value + "'"
}
