package parser

import "fmt"

type TokenKind uint8

const (
	TokEOF TokenKind = iota
	TokLower
	TokUpper
	TokInt
	TokFloat
	TokString
	TokChar
	TokOperator
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokComma
	TokDot
	TokDotDot
	TokArrow
	TokEquals
	TokPipe
	TokColon
	TokBackslash
	TokUnderscore

	TokModule
	TokImport
	TokExposing
	TokAs
	TokType
	TokAlias
	TokLet
	TokIn
	TokIf
	TokThen
	TokElse
	TokCase
	TokOf
)

var tokenNames = map[TokenKind]string{
	TokEOF:        "end of file",
	TokLower:      "identifier",
	TokUpper:      "capitalized identifier",
	TokInt:        "integer literal",
	TokFloat:      "float literal",
	TokString:     "string literal",
	TokChar:       "char literal",
	TokOperator:   "operator",
	TokLParen:     "'('",
	TokRParen:     "')'",
	TokLBracket:   "'['",
	TokRBracket:   "']'",
	TokLBrace:     "'{'",
	TokRBrace:     "'}'",
	TokComma:      "','",
	TokDot:        "'.'",
	TokDotDot:     "'..'",
	TokArrow:      "'->'",
	TokEquals:     "'='",
	TokPipe:       "'|'",
	TokColon:      "':'",
	TokBackslash:  "'\\'",
	TokUnderscore: "'_'",
	TokModule:     "'module'",
	TokImport:     "'import'",
	TokExposing:   "'exposing'",
	TokAs:         "'as'",
	TokType:       "'type'",
	TokAlias:      "'alias'",
	TokLet:        "'let'",
	TokIn:         "'in'",
	TokIf:         "'if'",
	TokThen:       "'then'",
	TokElse:       "'else'",
	TokCase:       "'case'",
	TokOf:         "'of'",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", k)
}

var keywords = map[string]TokenKind{
	"module":   TokModule,
	"import":   TokImport,
	"exposing": TokExposing,
	"as":       TokAs,
	"type":     TokType,
	"alias":    TokAlias,
	"let":      TokLet,
	"in":       TokIn,
	"if":       TokIf,
	"then":     TokThen,
	"else":     TokElse,
	"case":     TokCase,
	"of":       TokOf,
}

// Token is one lexeme with its 1-based source position.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
	Col    int
}

func (t Token) describe() string {
	switch t.Kind {
	case TokEOF:
		return "end of file"
	case TokLower, TokUpper, TokOperator, TokInt, TokFloat:
		return fmt.Sprintf("%q", t.Lexeme)
	default:
		return t.Kind.String()
	}
}

// endCol is the column one past the last rune of the token, used to decide
// whether two tokens touch (qualified names must be written without spaces).
func (t Token) endCol() int {
	return t.Col + len([]rune(t.Lexeme))
}
