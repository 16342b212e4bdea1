package parser

import (
	"strconv"

	"github.com/dd0wney/cluso-cypher/pkg/ast"
)

// parseGraphPattern parses comma-separated path patterns
func (p *Parser) parseGraphPattern() (*ast.GraphPattern, error) {
	gp := alloc(p, ast.GraphPattern{})
	for {
		path, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		gp.Paths = append(gp.Paths, path)

		if p.peek().Type != TokenComma {
			break
		}
		p.advance() // consume comma
	}
	return gp, nil
}

// parsePathPattern parses [alias =] (node)(-[edge]-(node))*
func (p *Parser) parsePathPattern() (*ast.PathPattern, error) {
	path := alloc(p, ast.PathPattern{})
	if p.peek().Type == TokenIdentifier && p.peekAhead(1).Type == TokenEquals {
		path.Alias = p.advance().Value
		p.advance()
	}

	head, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	chain := alloc(p, ast.PathChain{Head: head})

	for {
		tokenType := p.peek().Type
		if tokenType != TokenMinus && tokenType != TokenArrowLeft {
			break
		}
		edge, err := p.parseEdge()
		if err != nil {
			return nil, err
		}
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		chain.Hops = append(chain.Hops, alloc(p, ast.Hop{Edge: edge, Node: node}))
	}

	path.Chain = chain
	return path, nil
}

// parseNode parses a node pattern: (variable:Label {prop: value})
func (p *Parser) parseNode() (*ast.NodePattern, error) {
	if _, err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}

	filler, err := p.parseFiller(false)
	if err != nil {
		return nil, err
	}
	if p.peek().Type == TokenLeftBrace {
		if err := p.parseProperties(filler); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return alloc(p, ast.NodePattern{Filler: filler}), nil
}

// parseFiller parses the inside of a node or edge: [var] [:L...] [*range] [{props}]
func (p *Parser) parseFiller(edge bool) (*ast.ElementFiller, error) {
	filler := alloc(p, ast.ElementFiller{})

	// Variable (optional)
	if p.peek().Type == TokenIdentifier {
		filler.Variable = p.advance().Value
	}

	// Labels (optional). Node labels are conjunctive (:A:B), edge types
	// are alternatives (:A|B or :A|:B).
	if p.peek().Type == TokenColon {
		p.advance()
		for {
			label, err := p.expectName()
			if err != nil {
				return nil, err
			}
			filler.Labels = append(filler.Labels, label.Value)

			next := p.peek().Type
			if edge && next == TokenPipe {
				p.advance()
				if p.peek().Type == TokenColon {
					p.advance()
				}
				continue
			}
			if !edge && next == TokenColon {
				p.advance()
				continue
			}
			break
		}
	}
	return filler, nil
}

func (p *Parser) parseProperties(filler *ast.ElementFiller) error {
	p.advance() // consume {
	if p.peek().Type == TokenRightBrace {
		p.advance()
		return nil
	}
	for {
		key, err := p.expectName()
		if err != nil {
			return err
		}
		if _, err := p.expect(TokenColon); err != nil {
			return err
		}
		val, err := p.parseExpression()
		if err != nil {
			return err
		}
		filler.Predicates = append(filler.Predicates, alloc(p, ast.PropPredicate{Key: key.Value, Value: val}))

		if p.peek().Type != TokenComma {
			break
		}
		p.advance()
	}
	_, err := p.expect(TokenRightBrace)
	return err
}

// parseEdge parses -[...]->, <-[...]-, -[...]-, and the bracketless
// forms -->, <--, --.
func (p *Parser) parseEdge() (*ast.EdgePattern, error) {
	leading := p.advance()
	edge := alloc(p, ast.EdgePattern{MinHop: 1, MaxHop: 1})

	if p.peek().Type == TokenLeftBracket {
		p.advance() // consume [
		filler, err := p.parseFiller(true)
		if err != nil {
			return nil, err
		}
		edge.Filler = filler

		// Variable-length path (optional): *, *n, *min..max, *..max, *min..
		if p.peek().Type == TokenStar {
			p.advance()
			if err := p.parseHopRange(edge); err != nil {
				return nil, err
			}
		}

		if p.peek().Type == TokenLeftBrace {
			if err := p.parseProperties(filler); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokenRightBracket); err != nil {
			return nil, err
		}
	} else {
		edge.Filler = alloc(p, ast.ElementFiller{})
	}

	trailing := p.peek()
	switch {
	case leading.Type == TokenMinus && trailing.Type == TokenArrowRight:
		edge.Direction = ast.DirRight
	case leading.Type == TokenMinus && trailing.Type == TokenMinus:
		edge.Direction = ast.DirBoth
	case leading.Type == TokenArrowLeft && trailing.Type == TokenMinus:
		edge.Direction = ast.DirLeft
	default:
		return nil, errorAt(trailing, "malformed relationship pattern near %s", describeToken(trailing))
	}
	p.advance()
	return edge, nil
}

func (p *Parser) parseHopRange(edge *ast.EdgePattern) error {
	edge.VarLength = true
	edge.MinHop, edge.MaxHop = 1, -1

	if p.peek().Type == TokenInteger {
		n, err := p.parseHopCount()
		if err != nil {
			return err
		}
		edge.MinHop = n
		if p.peek().Type != TokenDoubleDot {
			edge.MaxHop = n
			return nil
		}
	}
	if p.peek().Type == TokenDoubleDot {
		p.advance()
		if p.peek().Type == TokenInteger {
			n, err := p.parseHopCount()
			if err != nil {
				return err
			}
			edge.MaxHop = n
		}
	}
	if edge.MaxHop >= 0 && edge.MaxHop < edge.MinHop {
		return errorAt(p.peek(), "invalid hop range %d..%d", edge.MinHop, edge.MaxHop)
	}
	return nil
}

func (p *Parser) parseHopCount() (int, error) {
	tok := p.advance()
	n, err := strconv.Atoi(tok.Value)
	if err != nil || n < 0 {
		return 0, errorAt(tok, "invalid hop count %q", tok.Value)
	}
	return n, nil
}
