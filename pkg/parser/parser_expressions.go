package parser

import (
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-cypher/pkg/ast"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// parseExpression parses a full expression
func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseOrExpression()
}

func (p *Parser) parseExpressionList() ([]ast.Expr, error) {
	var out []ast.Expr
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if p.peek().Type != TokenComma {
			return out, nil
		}
		p.advance()
	}
}

// binaryLevel parses one left-associative precedence level
func (p *Parser) binaryLevel(next func() (ast.Expr, error), ops map[TokenType]ast.BinaryOp) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = alloc(p, ast.Binary{Op: op, Left: left, Right: right})
	}
}

var (
	orOps     = map[TokenType]ast.BinaryOp{TokenOr: ast.OpOr}
	xorOps    = map[TokenType]ast.BinaryOp{TokenXor: ast.OpXor}
	andOps    = map[TokenType]ast.BinaryOp{TokenAnd: ast.OpAnd}
	addSubOps = map[TokenType]ast.BinaryOp{TokenPlus: ast.OpAdd, TokenMinus: ast.OpSub}
	mulDivOps = map[TokenType]ast.BinaryOp{TokenStar: ast.OpMul, TokenSlash: ast.OpDiv, TokenPercent: ast.OpMod}

	comparisonOps = map[TokenType]ast.BinaryOp{
		TokenEquals:        ast.OpEq,
		TokenNotEquals:     ast.OpNe,
		TokenLessThan:      ast.OpLt,
		TokenLessEquals:    ast.OpLe,
		TokenGreaterThan:   ast.OpGt,
		TokenGreaterEquals: ast.OpGe,
		TokenIn:            ast.OpIn,
		TokenContains:      ast.OpContains,
	}
)

// parseOrExpression parses OR expressions
func (p *Parser) parseOrExpression() (ast.Expr, error) {
	return p.binaryLevel(p.parseXorExpression, orOps)
}

// parseXorExpression parses XOR expressions
func (p *Parser) parseXorExpression() (ast.Expr, error) {
	return p.binaryLevel(p.parseAndExpression, xorOps)
}

// parseAndExpression parses AND expressions
func (p *Parser) parseAndExpression() (ast.Expr, error) {
	return p.binaryLevel(p.parseNotExpression, andOps)
}

// parseNotExpression parses NOT prefix (binds tighter than AND, looser than comparisons)
func (p *Parser) parseNotExpression() (ast.Expr, error) {
	if p.peek().Type == TokenNot {
		p.advance()
		operand, err := p.parseNotExpression() // right-recursive for NOT NOT x
		if err != nil {
			return nil, err
		}
		return alloc(p, ast.Unary{Op: ast.OpNot, Operand: operand}), nil
	}
	return p.parseComparisonExpression()
}

// parseComparisonExpression parses comparisons, string predicates, IN
// and IS [NOT] NULL
func (p *Parser) parseComparisonExpression() (ast.Expr, error) {
	left, err := p.parseAddSubExpression()
	if err != nil {
		return nil, err
	}

	token := p.peek()
	var op ast.BinaryOp

	switch token.Type {
	case TokenIs:
		p.advance() // consume IS
		isNull := alloc(p, ast.IsNull{Operand: left})
		if p.peek().Type == TokenNot {
			p.advance()
			isNull.Negated = true
		}
		if _, err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		return isNull, nil
	case TokenStarts, TokenEnds:
		p.advance()
		if _, err := p.expect(TokenWith); err != nil {
			return nil, err
		}
		op = ast.OpStartsWith
		if token.Type == TokenEnds {
			op = ast.OpEndsWith
		}
	default:
		var ok bool
		if op, ok = comparisonOps[token.Type]; !ok {
			return left, nil // No comparison operator
		}
		p.advance()
	}

	right, err := p.parseAddSubExpression()
	if err != nil {
		return nil, err
	}
	return alloc(p, ast.Binary{Op: op, Left: left, Right: right}), nil
}

// parseAddSubExpression parses + and - (left-associative, lower precedence than * / %)
func (p *Parser) parseAddSubExpression() (ast.Expr, error) {
	return p.binaryLevel(p.parseMulDivExpression, addSubOps)
}

// parseMulDivExpression parses *, /, % (left-associative, higher precedence than + -)
func (p *Parser) parseMulDivExpression() (ast.Expr, error) {
	return p.binaryLevel(p.parseUnaryExpression, mulDivOps)
}

// parseUnaryExpression parses unary minus (tightest binding before postfix)
func (p *Parser) parseUnaryExpression() (ast.Expr, error) {
	switch p.peek().Type {
	case TokenMinus:
		p.advance()
		operand, err := p.parseUnaryExpression() // right-recursive for --x
		if err != nil {
			return nil, err
		}
		// fold negative numeric literals
		if lit, ok := operand.(*ast.Literal); ok {
			switch lit.Value.Kind() {
			case value.KindInt:
				i, _ := lit.Value.AsInt()
				return alloc(p, ast.Literal{Value: value.Int(-i)}), nil
			case value.KindFloat:
				f, _ := lit.Value.AsFloat()
				return alloc(p, ast.Literal{Value: value.Float(-f)}), nil
			}
		}
		return alloc(p, ast.Unary{Op: ast.OpNeg, Operand: operand}), nil
	case TokenPlus:
		p.advance()
		return p.parseUnaryExpression()
	}
	return p.parsePostfixExpression()
}

// parsePostfixExpression parses property access chains: expr.key.key
func (p *Parser) parsePostfixExpression() (ast.Expr, error) {
	expr, err := p.parsePrimaryExpression()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokenDot {
		p.advance()
		key, err := p.expectName()
		if err != nil {
			return nil, err
		}
		expr = alloc(p, ast.GetField{Target: expr, Key: key.Value})
	}
	return expr, nil
}

// parsePrimaryExpression parses primary expressions
func (p *Parser) parsePrimaryExpression() (ast.Expr, error) {
	token := p.peek()

	switch token.Type {
	case TokenIdentifier:
		if name, ok := p.functionName(); ok {
			return p.parseFunctionCall(name)
		}
		p.advance()
		return alloc(p, ast.Ref{Name: token.Value}), nil

	case TokenInteger:
		p.advance()
		i, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return nil, errorAt(token, "integer literal out of range: %s", token.Value)
		}
		return alloc(p, ast.Literal{Value: value.Int(i)}), nil

	case TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, errorAt(token, "invalid float literal: %s", token.Value)
		}
		return alloc(p, ast.Literal{Value: value.Float(f)}), nil

	case TokenString:
		p.advance()
		return alloc(p, ast.Literal{Value: value.String(token.Value)}), nil

	case TokenTrue, TokenFalse:
		p.advance()
		return alloc(p, ast.Literal{Value: value.Bool(token.Type == TokenTrue)}), nil

	case TokenNull:
		p.advance()
		return alloc(p, ast.Literal{Value: value.Null()}), nil

	case TokenParameter:
		p.advance()
		return alloc(p, ast.Param{Name: token.Value}), nil

	case TokenCase:
		return p.parseCaseExpression()

	case TokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenLeftBracket:
		return p.parseListLiteral()

	case TokenLeftBrace:
		return p.parseMapLiteral()

	default:
		return nil, errorAt(token, "unexpected %s in expression", describeToken(token))
	}
}

// functionName looks ahead for ident(.ident)* '(' and consumes the name
// when it is a call.
func (p *Parser) functionName() (string, bool) {
	n := 1
	for p.peekAhead(n).Type == TokenDot && p.peekAhead(n+1).Type == TokenIdentifier {
		n += 2
	}
	if p.peekAhead(n).Type != TokenLeftParen {
		return "", false
	}
	parts := make([]string, 0, (n+1)/2)
	for i := 0; i < n; i += 2 {
		parts = append(parts, p.peekAhead(i).Value)
	}
	p.pos += n
	return strings.Join(parts, "."), true
}

// parseFunctionCall parses (args), ([DISTINCT] args) or (*)
func (p *Parser) parseFunctionCall(name string) (ast.Expr, error) {
	p.advance() // consume (
	fn := alloc(p, ast.Func{Name: name})

	switch p.peek().Type {
	case TokenStar:
		p.advance()
		fn.Star = true
	case TokenRightParen:
	default:
		if p.peek().Type == TokenDistinct {
			p.advance()
			fn.Distinct = true
		}
		args, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		fn.Args = args
	}

	if _, err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return fn, nil
}

// parseCaseExpression parses CASE [operand] WHEN ... THEN ... [ELSE ...] END
func (p *Parser) parseCaseExpression() (ast.Expr, error) {
	start := p.advance() // consume CASE

	caseExpr := alloc(p, ast.Case{})

	// Simple form if next token is not WHEN
	if p.peek().Type != TokenWhen {
		subject, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		caseExpr.Subject = subject
	}

	// Parse WHEN clauses
	for p.peek().Type == TokenWhen {
		p.advance() // consume WHEN
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenThen); err != nil {
			return nil, err
		}
		result, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		caseExpr.Whens = append(caseExpr.Whens, alloc(p, ast.When{Cond: cond, Result: result}))
	}

	if len(caseExpr.Whens) == 0 {
		return nil, errorAt(start, "CASE requires at least one WHEN clause")
	}

	// Optional ELSE
	if p.peek().Type == TokenElse {
		p.advance() // consume ELSE
		elseResult, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		caseExpr.Else = elseResult
	}

	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return caseExpr, nil
}

// parseListLiteral parses [expr, ...]
func (p *Parser) parseListLiteral() (ast.Expr, error) {
	p.advance() // consume [
	list := alloc(p, ast.ListExpr{})

	// Handle empty list
	if p.peek().Type == TokenRightBracket {
		p.advance()
		return list, nil
	}

	items, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	list.Items = items

	if _, err := p.expect(TokenRightBracket); err != nil {
		return nil, err
	}
	return list, nil
}

// parseMapLiteral parses {key: expr, ...}
func (p *Parser) parseMapLiteral() (ast.Expr, error) {
	p.advance() // consume {
	m := alloc(p, ast.MapExpr{})

	if p.peek().Type == TokenRightBrace {
		p.advance()
		return m, nil
	}

	for {
		var key Token
		var err error
		if p.peek().Type == TokenString {
			key = p.advance()
		} else if key, err = p.expectName(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key.Value)
		m.Values = append(m.Values, val)

		if p.peek().Type != TokenComma {
			break
		}
		p.advance()
	}

	if _, err := p.expect(TokenRightBrace); err != nil {
		return nil, err
	}
	return m, nil
}
