package parser

import "fmt"

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Pos    int
	End    int
	Line   int
	Column int
}

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Keywords
	keywordsBegin
	TokenMatch
	TokenOptional
	TokenWhere
	TokenReturn
	TokenCreate
	TokenDelete
	TokenDetach
	TokenSet
	TokenWith
	TokenUnwind
	TokenCall
	TokenYield
	TokenLimit
	TokenSkip
	TokenOrder
	TokenBy
	TokenAsc
	TokenDesc
	TokenDistinct
	TokenAs
	TokenAnd
	TokenOr
	TokenXor
	TokenNot
	TokenIn
	TokenIs
	TokenStarts
	TokenEnds
	TokenContains
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenExplain
	TokenProfile
	TokenTrue
	TokenFalse
	TokenNull
	keywordsEnd

	// Identifiers and literals
	TokenIdentifier
	TokenString
	TokenInteger
	TokenFloat
	TokenParameter // $name

	// Operators
	TokenEquals        // =
	TokenNotEquals     // !=, <>
	TokenLessThan      // <
	TokenGreaterThan   // >
	TokenLessEquals    // <=
	TokenGreaterEquals // >=
	TokenPlus          // +
	TokenMinus         // -
	TokenStar          // *
	TokenSlash         // /
	TokenPercent       // %
	TokenDot           // .
	TokenDoubleDot     // ..
	TokenColon         // :
	TokenComma         // ,
	TokenSemicolon     // ;
	TokenPipe          // |

	// Delimiters
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenLeftBrace    // {
	TokenRightBrace   // }

	// Relationship arrows
	TokenArrowLeft  // <-
	TokenArrowRight // ->
)

var keywords = map[string]TokenType{
	"MATCH":      TokenMatch,
	"OPTIONAL":   TokenOptional,
	"WHERE":      TokenWhere,
	"RETURN":     TokenReturn,
	"CREATE":     TokenCreate,
	"DELETE":     TokenDelete,
	"DETACH":     TokenDetach,
	"SET":        TokenSet,
	"WITH":       TokenWith,
	"UNWIND":     TokenUnwind,
	"CALL":       TokenCall,
	"YIELD":      TokenYield,
	"LIMIT":      TokenLimit,
	"SKIP":       TokenSkip,
	"ORDER":      TokenOrder,
	"BY":         TokenBy,
	"ASC":        TokenAsc,
	"ASCENDING":  TokenAsc,
	"DESC":       TokenDesc,
	"DESCENDING": TokenDesc,
	"DISTINCT":   TokenDistinct,
	"AS":         TokenAs,
	"AND":        TokenAnd,
	"OR":         TokenOr,
	"XOR":        TokenXor,
	"NOT":        TokenNot,
	"IN":         TokenIn,
	"IS":         TokenIs,
	"STARTS":     TokenStarts,
	"ENDS":       TokenEnds,
	"CONTAINS":   TokenContains,
	"CASE":       TokenCase,
	"WHEN":       TokenWhen,
	"THEN":       TokenThen,
	"ELSE":       TokenElse,
	"END":        TokenEnd,
	"EXPLAIN":    TokenExplain,
	"PROFILE":    TokenProfile,
	"TRUE":       TokenTrue,
	"FALSE":      TokenFalse,
	"NULL":       TokenNull,
}

// IsKeyword reports whether t is a reserved word. Keywords are still
// accepted as property keys, labels and map keys.
func (t TokenType) IsKeyword() bool {
	return t > keywordsBegin && t < keywordsEnd
}

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenIdentifier:    "IDENTIFIER",
	TokenString:        "STRING",
	TokenInteger:       "INTEGER",
	TokenFloat:         "FLOAT",
	TokenParameter:     "PARAMETER",
	TokenEquals:        "'='",
	TokenNotEquals:     "'<>'",
	TokenLessThan:      "'<'",
	TokenGreaterThan:   "'>'",
	TokenLessEquals:    "'<='",
	TokenGreaterEquals: "'>='",
	TokenPlus:          "'+'",
	TokenMinus:         "'-'",
	TokenStar:          "'*'",
	TokenSlash:         "'/'",
	TokenPercent:       "'%'",
	TokenDot:           "'.'",
	TokenDoubleDot:     "'..'",
	TokenColon:         "':'",
	TokenComma:         "','",
	TokenSemicolon:     "';'",
	TokenPipe:          "'|'",
	TokenLeftParen:     "'('",
	TokenRightParen:    "')'",
	TokenLeftBracket:   "'['",
	TokenRightBracket:  "']'",
	TokenLeftBrace:     "'{'",
	TokenRightBrace:    "'}'",
	TokenArrowLeft:     "'<-'",
	TokenArrowRight:    "'->'",
}

func init() {
	for word, t := range keywords {
		if _, ok := tokenNames[t]; !ok {
			tokenNames[t] = word
		}
	}
	// aliases registered above may have claimed the name first
	tokenNames[TokenAsc] = "ASC"
	tokenNames[TokenDesc] = "DESC"
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// ParseError reports malformed query text
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func errorAt(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)}
}
