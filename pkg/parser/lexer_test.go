package parser

import (
	"errors"
	"testing"
)

func tokenTypes(t *testing.T, input string) []TokenType {
	t.Helper()
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", input, err)
	}
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexer_Arrows(t *testing.T) {
	tests := []struct {
		input string
		want  []TokenType
	}{
		{"-->", []TokenType{TokenMinus, TokenArrowRight, TokenEOF}},
		{"<--", []TokenType{TokenArrowLeft, TokenMinus, TokenEOF}},
		{"--", []TokenType{TokenMinus, TokenMinus, TokenEOF}},
		{"-[r]->", []TokenType{TokenMinus, TokenLeftBracket, TokenIdentifier, TokenRightBracket, TokenArrowRight, TokenEOF}},
		{"<>", []TokenType{TokenNotEquals, TokenEOF}},
		{"!=", []TokenType{TokenNotEquals, TokenEOF}},
	}
	for _, tt := range tests {
		got := tokenTypes(t, tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q token %d: got %s, want %s", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLexer_Numbers(t *testing.T) {
	tokens, err := NewLexer("1..3 2.5 1e3 7").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []struct {
		typ TokenType
		val string
	}{
		{TokenInteger, "1"}, {TokenDoubleDot, ".."}, {TokenInteger, "3"},
		{TokenFloat, "2.5"}, {TokenFloat, "1e3"}, {TokenInteger, "7"}, {TokenEOF, ""},
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Value != w.val {
			t.Errorf("token %d: got %s %q, want %s %q", i, tokens[i].Type, tokens[i].Value, w.typ, w.val)
		}
	}
}

func TestLexer_KeywordsCaseInsensitive(t *testing.T) {
	got := tokenTypes(t, "match Return oPtIoNaL")
	want := []TokenType{TokenMatch, TokenReturn, TokenOptional, TokenEOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexer_StringsAndParams(t *testing.T) {
	tokens, err := NewLexer(`'it\'s' "a\tb" $name ` + "`weird name`").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[0].Value != "it's" {
		t.Errorf("escaped quote: got %q", tokens[0].Value)
	}
	if tokens[1].Value != "a\tb" {
		t.Errorf("tab escape: got %q", tokens[1].Value)
	}
	if tokens[2].Type != TokenParameter || tokens[2].Value != "name" {
		t.Errorf("parameter: got %s %q", tokens[2].Type, tokens[2].Value)
	}
	if tokens[3].Type != TokenIdentifier || tokens[3].Value != "weird name" {
		t.Errorf("quoted identifier: got %s %q", tokens[3].Type, tokens[3].Value)
	}
}

func TestLexer_Positions(t *testing.T) {
	tokens, err := NewLexer("MATCH\n  (n)").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	paren := tokens[1]
	if paren.Line != 2 || paren.Column != 3 {
		t.Errorf("'(' at line %d column %d, want 2:3", paren.Line, paren.Column)
	}
}

func TestLexer_Errors(t *testing.T) {
	for _, input := range []string{"'open", "a ! b", "$", "`open"} {
		_, err := NewLexer(input).Tokenize()
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("%q: expected ParseError, got %v", input, err)
		}
	}
}
