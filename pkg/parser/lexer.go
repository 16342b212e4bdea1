package parser

import (
	"strings"
	"unicode"
)

// Lexer tokenizes a query string
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
	tokens []Token
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
		tokens: make([]Token, 0),
	}
}

// Tokenize converts the input string into tokens, terminated by TokenEOF
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) {
		// Skip whitespace
		if unicode.IsSpace(rune(l.input[l.pos])) {
			l.skipWhitespace()
			continue
		}

		// Skip comments
		if l.peek() == '/' && l.peekAhead(1) == '/' {
			l.skipLineComment()
			continue
		}

		token, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, token)
	}

	l.tokens = append(l.tokens, Token{
		Type:   TokenEOF,
		Pos:    l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, nil
}

// nextToken reads the next token
func (l *Lexer) nextToken() (Token, error) {
	start, line, col := l.pos, l.line, l.column
	tok := func(t TokenType) (Token, error) {
		return Token{Type: t, Value: l.input[start:l.pos], Pos: start, End: l.pos, Line: line, Column: col}, nil
	}

	ch := l.advance()
	switch ch {
	case '(':
		return tok(TokenLeftParen)
	case ')':
		return tok(TokenRightParen)
	case '[':
		return tok(TokenLeftBracket)
	case ']':
		return tok(TokenRightBracket)
	case '{':
		return tok(TokenLeftBrace)
	case '}':
		return tok(TokenRightBrace)
	case ',':
		return tok(TokenComma)
	case ';':
		return tok(TokenSemicolon)
	case ':':
		return tok(TokenColon)
	case '|':
		return tok(TokenPipe)
	case '+':
		return tok(TokenPlus)
	case '*':
		return tok(TokenStar)
	case '/':
		return tok(TokenSlash)
	case '%':
		return tok(TokenPercent)
	case '=':
		return tok(TokenEquals)
	case '.':
		if l.peek() == '.' {
			l.advance()
			return tok(TokenDoubleDot)
		}
		return tok(TokenDot)
	case '!':
		if l.peek() == '=' {
			l.advance()
			return tok(TokenNotEquals)
		}
	case '<':
		switch l.peek() {
		case '=':
			l.advance()
			return tok(TokenLessEquals)
		case '>':
			l.advance()
			return tok(TokenNotEquals)
		case '-':
			l.advance()
			return tok(TokenArrowLeft)
		}
		return tok(TokenLessThan)
	case '>':
		if l.peek() == '=' {
			l.advance()
			return tok(TokenGreaterEquals)
		}
		return tok(TokenGreaterThan)
	case '-':
		if l.peek() == '>' {
			l.advance()
			return tok(TokenArrowRight)
		}
		return tok(TokenMinus)
	case '\'', '"':
		return l.readString(ch, start, line, col)
	case '`':
		return l.readQuotedIdentifier(start, line, col)
	case '$':
		if !isIdentStart(l.peek()) {
			return Token{}, &ParseError{Line: line, Column: col, Msg: "expected parameter name after '$'"}
		}
		l.readIdentChars()
		t, _ := tok(TokenParameter)
		t.Value = l.input[start+1 : l.pos]
		return t, nil
	}

	if isDigit(ch) {
		return l.readNumber(start, line, col)
	}
	if isIdentStart(ch) {
		l.readIdentChars()
		value := l.input[start:l.pos]
		if t, ok := keywords[strings.ToUpper(value)]; ok {
			return tok(t)
		}
		return tok(TokenIdentifier)
	}

	return Token{}, &ParseError{Line: line, Column: col, Msg: "unexpected character '" + string(ch) + "'"}
}

// readNumber reads an integer or float literal. A '.' is only part of the
// number when a digit follows, so 1..3 lexes as 1, '..', 3.
func (l *Lexer) readNumber(start, line, col int) (Token, error) {
	typ := TokenInteger
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAhead(1)) {
		typ = TokenFloat
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		next := l.peekAhead(1)
		if isDigit(next) || ((next == '-' || next == '+') && isDigit(l.peekAhead(2))) {
			typ = TokenFloat
			l.advance()
			l.advance()
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return Token{Type: typ, Value: l.input[start:l.pos], Pos: start, End: l.pos, Line: line, Column: col}, nil
}

// readString reads a string literal
func (l *Lexer) readString(quote byte, start, line, col int) (Token, error) {
	var b strings.Builder
	for l.pos < len(l.input) && l.peek() != quote {
		if l.peek() == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				break
			}
			// Handle escape sequences
			switch c := l.advance(); c {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(c)
			}
			continue
		}
		b.WriteByte(l.advance())
	}

	if l.pos >= len(l.input) {
		return Token{}, &ParseError{Line: line, Column: col, Msg: "unterminated string"}
	}
	l.advance() // Closing quote

	return Token{Type: TokenString, Value: b.String(), Pos: start, End: l.pos, Line: line, Column: col}, nil
}

// readQuotedIdentifier reads `escaped name`
func (l *Lexer) readQuotedIdentifier(start, line, col int) (Token, error) {
	for l.pos < len(l.input) && l.peek() != '`' {
		l.advance()
	}
	if l.pos >= len(l.input) {
		return Token{}, &ParseError{Line: line, Column: col, Msg: "unterminated quoted identifier"}
	}
	value := l.input[start+1 : l.pos]
	l.advance()
	return Token{Type: TokenIdentifier, Value: value, Pos: start, End: l.pos, Line: line, Column: col}, nil
}

// Helper functions

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func (l *Lexer) readIdentChars() {
	for l.pos < len(l.input) && (isIdentStart(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.advance()
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekAhead(n int) byte {
	pos := l.pos + n
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	l.column++
	if ch == '\n' {
		l.line++
		l.column = 1
	}
	return ch
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.advance()
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.advance()
	}
}
