package parser

import (
	"fmt"
	"strings"
	"unicode"
)

const operatorChars = "+-*/=<>|&^:%!?~"

type scanner struct {
	path  string
	src   []rune
	pos   int
	line  int
	col   int
	diags Diagnostics
}

// scan turns the source into a flat token stream, terminated by one EOF
// token. Lexical problems are collected as diagnostics; scanning continues
// after each one so a file reports everything wrong with it at once.
func scan(path, src string) ([]Token, Diagnostics) {
	s := &scanner{path: path, src: []rune(src), line: 1, col: 1}
	var toks []Token
	for {
		t, ok := s.next()
		if !ok {
			continue
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			return toks, s.diags
		}
	}
}

func (s *scanner) next() (Token, bool) {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return Token{Kind: TokEOF, Line: s.line, Col: 0}, true
	}
	line, col := s.line, s.col
	r := s.src[s.pos]
	switch {
	case r == '(':
		s.advance()
		return Token{Kind: TokLParen, Lexeme: "(", Line: line, Col: col}, true
	case r == ')':
		s.advance()
		return Token{Kind: TokRParen, Lexeme: ")", Line: line, Col: col}, true
	case r == '[':
		s.advance()
		return Token{Kind: TokLBracket, Lexeme: "[", Line: line, Col: col}, true
	case r == ']':
		s.advance()
		return Token{Kind: TokRBracket, Lexeme: "]", Line: line, Col: col}, true
	case r == '{':
		s.advance()
		return Token{Kind: TokLBrace, Lexeme: "{", Line: line, Col: col}, true
	case r == '}':
		s.advance()
		return Token{Kind: TokRBrace, Lexeme: "}", Line: line, Col: col}, true
	case r == ',':
		s.advance()
		return Token{Kind: TokComma, Lexeme: ",", Line: line, Col: col}, true
	case r == '\\':
		s.advance()
		return Token{Kind: TokBackslash, Lexeme: "\\", Line: line, Col: col}, true
	case r == '.':
		if s.peekAt(1) == '.' {
			s.advance()
			s.advance()
			return Token{Kind: TokDotDot, Lexeme: "..", Line: line, Col: col}, true
		}
		s.advance()
		return Token{Kind: TokDot, Lexeme: ".", Line: line, Col: col}, true
	case r == '"':
		return s.scanString(line, col)
	case r == '\'':
		return s.scanChar(line, col)
	case unicode.IsDigit(r):
		return s.scanNumber(line, col)
	case r == '_' && !isIdentRune(s.peekAt(1)):
		s.advance()
		return Token{Kind: TokUnderscore, Lexeme: "_", Line: line, Col: col}, true
	case unicode.IsLetter(r) || r == '_':
		return s.scanIdent(line, col)
	case strings.ContainsRune(operatorChars, r):
		return s.scanOperator(line, col)
	}
	s.errorf(line, col, "unexpected character %q", r)
	s.advance()
	return Token{}, false
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		r := s.src[s.pos]
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			s.advance()
		case r == '-' && s.peekAt(1) == '-':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.advance()
			}
		case r == '{' && s.peekAt(1) == '-':
			s.skipBlockComment()
		default:
			return
		}
	}
}

func (s *scanner) skipBlockComment() {
	line, col := s.line, s.col
	s.advance()
	s.advance()
	depth := 1
	for s.pos < len(s.src) && depth > 0 {
		if s.src[s.pos] == '{' && s.peekAt(1) == '-' {
			depth++
			s.advance()
			s.advance()
			continue
		}
		if s.src[s.pos] == '-' && s.peekAt(1) == '}' {
			depth--
			s.advance()
			s.advance()
			continue
		}
		s.advance()
	}
	if depth > 0 {
		s.errorf(line, col, "unterminated block comment")
	}
}

func (s *scanner) scanIdent(line, col int) (Token, bool) {
	start := s.pos
	for s.pos < len(s.src) && isIdentRune(s.src[s.pos]) {
		s.advance()
	}
	word := string(s.src[start:s.pos])
	if kw, ok := keywords[word]; ok {
		return Token{Kind: kw, Lexeme: word, Line: line, Col: col}, true
	}
	kind := TokLower
	if unicode.IsUpper([]rune(word)[0]) {
		kind = TokUpper
	}
	return Token{Kind: kind, Lexeme: word, Line: line, Col: col}, true
}

func (s *scanner) scanNumber(line, col int) (Token, bool) {
	start := s.pos
	for s.pos < len(s.src) && unicode.IsDigit(s.src[s.pos]) {
		s.advance()
	}
	kind := TokInt
	if s.pos < len(s.src) && s.src[s.pos] == '.' && unicode.IsDigit(s.peekAt(1)) {
		kind = TokFloat
		s.advance()
		for s.pos < len(s.src) && unicode.IsDigit(s.src[s.pos]) {
			s.advance()
		}
	}
	return Token{Kind: kind, Lexeme: string(s.src[start:s.pos]), Line: line, Col: col}, true
}

func (s *scanner) scanOperator(line, col int) (Token, bool) {
	start := s.pos
	for s.pos < len(s.src) && strings.ContainsRune(operatorChars, s.src[s.pos]) {
		s.advance()
	}
	op := string(s.src[start:s.pos])
	switch op {
	case "->":
		return Token{Kind: TokArrow, Lexeme: op, Line: line, Col: col}, true
	case "=":
		return Token{Kind: TokEquals, Lexeme: op, Line: line, Col: col}, true
	case "|":
		return Token{Kind: TokPipe, Lexeme: op, Line: line, Col: col}, true
	case ":":
		return Token{Kind: TokColon, Lexeme: op, Line: line, Col: col}, true
	}
	return Token{Kind: TokOperator, Lexeme: op, Line: line, Col: col}, true
}

func (s *scanner) scanString(line, col int) (Token, bool) {
	s.advance() // opening quote
	var b strings.Builder
	for {
		if s.pos >= len(s.src) || s.src[s.pos] == '\n' {
			s.errorf(line, col, "unterminated string literal")
			return Token{}, false
		}
		r := s.src[s.pos]
		if r == '"' {
			s.advance()
			return Token{Kind: TokString, Lexeme: b.String(), Line: line, Col: col}, true
		}
		if r == '\\' {
			dec, ok := s.scanEscape(line)
			if !ok {
				return Token{}, false
			}
			b.WriteRune(dec)
			continue
		}
		b.WriteRune(r)
		s.advance()
	}
}

func (s *scanner) scanChar(line, col int) (Token, bool) {
	s.advance() // opening quote
	if s.pos >= len(s.src) || s.src[s.pos] == '\n' {
		s.errorf(line, col, "unterminated char literal")
		return Token{}, false
	}
	var r rune
	if s.src[s.pos] == '\\' {
		dec, ok := s.scanEscape(line)
		if !ok {
			return Token{}, false
		}
		r = dec
	} else {
		r = s.src[s.pos]
		s.advance()
	}
	if s.pos >= len(s.src) || s.src[s.pos] != '\'' {
		s.errorf(line, col, "unterminated char literal")
		return Token{}, false
	}
	s.advance()
	return Token{Kind: TokChar, Lexeme: string(r), Line: line, Col: col}, true
}

func (s *scanner) scanEscape(line int) (rune, bool) {
	col := s.col
	s.advance() // backslash
	if s.pos >= len(s.src) {
		s.errorf(line, col, "unterminated escape sequence")
		return 0, false
	}
	r := s.src[s.pos]
	s.advance()
	switch r {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	case '\\':
		return '\\', true
	}
	s.errorf(line, col, "unknown escape sequence \\%c", r)
	return r, true
}

func (s *scanner) peekAt(off int) rune {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) advance() {
	if s.pos >= len(s.src) {
		return
	}
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

func (s *scanner) errorf(line, col int, format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{
		Path:    s.path,
		Line:    line,
		Col:     col,
		Message: fmt.Sprintf(format, args...),
	})
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
