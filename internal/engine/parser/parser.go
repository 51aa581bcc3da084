// Package parser turns Loom source text into an unresolved parse tree.
//
// Layout follows the offside rule: declarations start in column one and a
// construct owns every following token indented past the column handed to
// its parse function. Case branches and let bindings align on the column of
// their first entry.
package parser

import (
	"errors"
	"fmt"
	"strings"
)

// errSyntax signals "a diagnostic has been recorded"; the details live in
// parser.diags.
var errSyntax = errors.New("syntax error")

// Parse parses one source file. On failure the returned error is the
// Diagnostics batch with every problem found; the module is nil then.
func Parse(path, src string) (*Module, error) {
	toks, diags := scan(path, src)
	if len(diags) > 0 {
		return nil, diags
	}
	p := &parser{path: path, toks: toks}
	m := p.parseModule()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return m, nil
}

type parser struct {
	path  string
	toks  []Token
	pos   int
	diags Diagnostics
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAhead(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) prev() Token {
	if p.pos == 0 {
		return Token{}
	}
	return p.toks[p.pos-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(k TokenKind) bool { return p.peek().Kind == k }

// inside reports whether the next token still belongs to the construct
// whose tokens must be indented past minCol.
func (p *parser) inside(minCol int) bool {
	t := p.peek()
	return t.Kind != TokEOF && t.Col > minCol
}

func (p *parser) expect(k TokenKind) (Token, error) {
	t := p.peek()
	if t.Kind != k {
		return t, p.errf(t, "expected %s, found %s", k, t.describe())
	}
	return p.next(), nil
}

func (p *parser) errf(t Token, format string, args ...any) error {
	p.diags = append(p.diags, Diagnostic{
		Path:    p.path,
		Line:    t.Line,
		Col:     t.Col,
		Message: fmt.Sprintf(format, args...),
	})
	return errSyntax
}

// recover skips ahead to the next column-one token so one broken
// declaration does not hide problems in the rest of the file.
func (p *parser) recover(start int) {
	if p.pos == start {
		p.next()
	}
	for p.peek().Kind != TokEOF && p.peek().Col != 1 {
		p.next()
	}
}

func adjacent(a, b Token) bool {
	return a.Line == b.Line && b.Col == a.endCol()
}

func (p *parser) parseModule() *Module {
	m := &Module{Path: p.path}
	start := p.pos
	if err := p.parseHeader(m); err != nil {
		p.recover(start)
	}
	for p.peek().Kind == TokImport && p.peek().Col == 1 {
		start = p.pos
		imp, err := p.parseImport()
		if err != nil {
			p.recover(start)
			continue
		}
		m.Imports = append(m.Imports, imp)
	}
	for p.peek().Kind != TokEOF {
		start = p.pos
		t := p.peek()
		if t.Col != 1 {
			p.errf(t, "unexpected indentation before %s", t.describe())
			p.recover(start)
			continue
		}
		var (
			d   Decl
			err error
		)
		switch t.Kind {
		case TokImport:
			err = p.errf(t, "imports must appear before the first declaration")
		case TokType:
			d, err = p.parseTypeDecl()
		case TokLower:
			d, err = p.parseValueDecl()
		default:
			err = p.errf(t, "expected a declaration, found %s", t.describe())
		}
		if err != nil {
			p.recover(start)
			continue
		}
		m.Decls = append(m.Decls, d)
	}
	return m
}

func (p *parser) parseHeader(m *Module) error {
	t := p.peek()
	if t.Kind != TokModule {
		return p.errf(t, "file must start with a module header, found %s", t.describe())
	}
	p.next()
	nameTok := p.peek()
	segs, err := p.parseModulePath()
	if err != nil {
		return err
	}
	m.Name = segs
	m.NamePos = posOf(nameTok)
	if _, err := p.expect(TokExposing); err != nil {
		return err
	}
	exp, err := p.parseExposing()
	if err != nil {
		return err
	}
	m.Exposing = exp
	return nil
}

func (p *parser) parseModulePath() ([]string, error) {
	seg, err := p.expect(TokUpper)
	if err != nil {
		return nil, err
	}
	segs := []string{seg.Lexeme}
	for p.at(TokDot) {
		p.next()
		seg, err := p.expect(TokUpper)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg.Lexeme)
	}
	return segs, nil
}

func (p *parser) parseExposing() (Exposing, error) {
	if _, err := p.expect(TokLParen); err != nil {
		return Exposing{}, err
	}
	if p.at(TokDotDot) {
		p.next()
		if _, err := p.expect(TokRParen); err != nil {
			return Exposing{}, err
		}
		return Exposing{All: true}, nil
	}
	var items []ExposeItem
	for {
		item, err := p.parseExposeItem()
		if err != nil {
			return Exposing{}, err
		}
		items = append(items, item)
		if !p.at(TokComma) {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokRParen); err != nil {
		return Exposing{}, err
	}
	return Exposing{Items: items}, nil
}

func (p *parser) parseExposeItem() (ExposeItem, error) {
	t := p.peek()
	switch t.Kind {
	case TokLower:
		p.next()
		return ExposeItem{Name: t.Lexeme, Pos: posOf(t)}, nil
	case TokUpper:
		p.next()
		item := ExposeItem{Name: t.Lexeme, Pos: posOf(t)}
		if p.at(TokLParen) {
			p.next()
			if _, err := p.expect(TokDotDot); err != nil {
				return ExposeItem{}, err
			}
			if _, err := p.expect(TokRParen); err != nil {
				return ExposeItem{}, err
			}
			item.OpenCtors = true
		}
		return item, nil
	case TokLParen:
		p.next()
		op, err := p.expect(TokOperator)
		if err != nil {
			return ExposeItem{}, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return ExposeItem{}, err
		}
		return ExposeItem{Name: op.Lexeme, Pos: posOf(op)}, nil
	}
	return ExposeItem{}, p.errf(t, "expected an exposed name, found %s", t.describe())
}

func (p *parser) parseImport() (Import, error) {
	impTok, _ := p.expect(TokImport)
	segs, err := p.parseModulePath()
	if err != nil {
		return Import{}, err
	}
	imp := Import{Module: segs, Pos: posOf(impTok)}
	if p.inside(1) && p.at(TokAs) {
		p.next()
		alias, err := p.expect(TokUpper)
		if err != nil {
			return Import{}, err
		}
		imp.Alias = alias.Lexeme
	}
	if p.inside(1) && p.at(TokExposing) {
		p.next()
		exp, err := p.parseExposing()
		if err != nil {
			return Import{}, err
		}
		imp.Exposing = &exp
	}
	return imp, nil
}

func (p *parser) parseTypeDecl() (Decl, error) {
	typeTok, _ := p.expect(TokType)
	if p.at(TokAlias) {
		p.next()
		nameTok, err := p.expect(TokUpper)
		if err != nil {
			return nil, err
		}
		params, err := p.parseTypeParams()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokEquals); err != nil {
			return nil, err
		}
		target, err := p.parseTypeExpr(1)
		if err != nil {
			return nil, err
		}
		return AliasDecl{Name: nameTok.Lexeme, Params: params, Target: target, Pos: posOf(typeTok)}, nil
	}
	nameTok, err := p.expect(TokUpper)
	if err != nil {
		return nil, err
	}
	params, err := p.parseTypeParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEquals); err != nil {
		return nil, err
	}
	var ctors []CtorDecl
	for {
		ctor, err := p.parseCtorDecl()
		if err != nil {
			return nil, err
		}
		ctors = append(ctors, ctor)
		if p.inside(1) && p.at(TokPipe) {
			p.next()
			continue
		}
		break
	}
	return UnionDecl{Name: nameTok.Lexeme, Params: params, Ctors: ctors, Pos: posOf(typeTok)}, nil
}

func (p *parser) parseTypeParams() ([]string, error) {
	var params []string
	for p.inside(1) && p.at(TokLower) {
		params = append(params, p.next().Lexeme)
	}
	return params, nil
}

func (p *parser) parseCtorDecl() (CtorDecl, error) {
	nameTok, err := p.expect(TokUpper)
	if err != nil {
		return CtorDecl{}, err
	}
	ctor := CtorDecl{Name: nameTok.Lexeme, Pos: posOf(nameTok)}
	for p.inside(1) && p.atTypeAtomStart() {
		arg, err := p.parseTypeAtom(1)
		if err != nil {
			return CtorDecl{}, err
		}
		ctor.Args = append(ctor.Args, arg)
	}
	return ctor, nil
}

func (p *parser) parseValueDecl() (Decl, error) {
	nameTok, _ := p.expect(TokLower)
	decl := ValueDecl{Name: nameTok.Lexeme, Pos: posOf(nameTok)}
	if p.inside(1) && p.at(TokColon) {
		p.next()
		ann, err := p.parseTypeExpr(1)
		if err != nil {
			return nil, err
		}
		decl.Annotation = ann
		defTok := p.peek()
		if defTok.Kind != TokLower || defTok.Col != 1 || defTok.Lexeme != decl.Name {
			return nil, p.errf(defTok, "expected the definition of %q to follow its annotation", decl.Name)
		}
		p.next()
	}
	for p.inside(1) && (p.at(TokLower) || p.at(TokUnderscore)) {
		decl.Params = append(decl.Params, p.next().Lexeme)
	}
	if _, err := p.expect(TokEquals); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(1)
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

// Types

func (p *parser) atTypeAtomStart() bool {
	switch p.peek().Kind {
	case TokUpper, TokLower, TokLParen, TokLBrace:
		return true
	}
	return false
}

func (p *parser) parseTypeExpr(minCol int) (TypeExpr, error) {
	t, err := p.parseTypeApp(minCol)
	if err != nil {
		return nil, err
	}
	if p.inside(minCol) && p.at(TokArrow) {
		p.next()
		r, err := p.parseTypeExpr(minCol)
		if err != nil {
			return nil, err
		}
		return TFunc{Param: t, Result: r}, nil
	}
	return t, nil
}

func (p *parser) parseTypeApp(minCol int) (TypeExpr, error) {
	if !p.at(TokUpper) {
		return p.parseTypeAtom(minCol)
	}
	name, err := p.parseQualifiedUpper()
	if err != nil {
		return nil, err
	}
	for p.inside(minCol) && p.atTypeAtomStart() {
		arg, err := p.parseTypeAtom(minCol)
		if err != nil {
			return nil, err
		}
		name.Args = append(name.Args, arg)
	}
	return name, nil
}

func (p *parser) parseTypeAtom(minCol int) (TypeExpr, error) {
	t := p.peek()
	switch t.Kind {
	case TokLower:
		p.next()
		return TVar{Name: t.Lexeme, Pos: posOf(t)}, nil
	case TokUpper:
		return p.parseQualifiedUpper()
	case TokLParen:
		p.next()
		if p.at(TokRParen) {
			p.next()
			return TUnit{Pos: posOf(t)}, nil
		}
		first, err := p.parseTypeExpr(minCol)
		if err != nil {
			return nil, err
		}
		if p.at(TokComma) {
			elems := []TypeExpr{first}
			for p.at(TokComma) {
				p.next()
				e, err := p.parseTypeExpr(minCol)
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if _, err := p.expect(TokRParen); err != nil {
				return nil, err
			}
			return TTuple{Elems: elems, Pos: posOf(t)}, nil
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return first, nil
	case TokLBrace:
		return p.parseRecordType(minCol)
	}
	return nil, p.errf(t, "expected a type, found %s", t.describe())
}

func (p *parser) parseRecordType(minCol int) (TypeExpr, error) {
	brace, _ := p.expect(TokLBrace)
	rec := TRecord{Pos: posOf(brace)}
	if p.at(TokRBrace) {
		p.next()
		return rec, nil
	}
	for {
		nameTok, err := p.expect(TokLower)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		ft, err := p.parseTypeExpr(minCol)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, TField{Name: nameTok.Lexeme, Type: ft, Pos: posOf(nameTok)})
		if !p.at(TokComma) {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return rec, nil
}

// parseQualifiedUpper reads an adjacent dotted chain of capitalized
// segments: the last one is the referenced name, the rest its qualifier.
func (p *parser) parseQualifiedUpper() (TName, error) {
	first, err := p.expect(TokUpper)
	if err != nil {
		return TName{}, err
	}
	segs := []Token{first}
	for p.at(TokDot) && adjacent(segs[len(segs)-1], p.peek()) {
		nt := p.peekAhead(1)
		if nt.Kind != TokUpper || !adjacent(p.peek(), nt) {
			break
		}
		p.next()
		segs = append(segs, p.next())
	}
	name := segs[len(segs)-1]
	return TName{
		Qual: joinSegments(segs[:len(segs)-1]),
		Name: name.Lexeme,
		Pos:  posOf(first),
	}, nil
}

func joinSegments(segs []Token) string {
	if len(segs) == 0 {
		return ""
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Lexeme
	}
	return strings.Join(parts, ".")
}

// Expressions

var binaryOps = map[string]struct {
	prec  int
	right bool
}{
	"|>": {prec: 1},
	"<|": {prec: 1, right: true},
	"||": {prec: 2, right: true},
	"&&": {prec: 3, right: true},
	"==": {prec: 4},
	"/=": {prec: 4},
	"<":  {prec: 4},
	">":  {prec: 4},
	"<=": {prec: 4},
	">=": {prec: 4},
	"++": {prec: 5, right: true},
	"::": {prec: 5, right: true},
	"+":  {prec: 6},
	"-":  {prec: 6},
	"*":  {prec: 7},
	"/":  {prec: 7},
	"//": {prec: 7},
	"^":  {prec: 8, right: true},
}

func (p *parser) parseExpr(minCol int) (Expr, error) {
	return p.parseOpExpr(1, minCol)
}

func (p *parser) parseOpExpr(minPrec, minCol int) (Expr, error) {
	left, err := p.parseApp(minCol)
	if err != nil {
		return nil, err
	}
	for p.inside(minCol) && p.at(TokOperator) {
		op := p.peek()
		info, known := binaryOps[op.Lexeme]
		if !known {
			return nil, p.errf(op, "unknown operator %q", op.Lexeme)
		}
		if info.prec < minPrec {
			break
		}
		p.next()
		nextMin := info.prec + 1
		if info.right {
			nextMin = info.prec
		}
		right, err := p.parseOpExpr(nextMin, minCol)
		if err != nil {
			return nil, err
		}
		left = BinExpr{Op: op.Lexeme, OpPos: posOf(op), L: left, R: right}
	}
	return left, nil
}

func (p *parser) atAtomStart() bool {
	switch p.peek().Kind {
	case TokLower, TokUpper, TokInt, TokFloat, TokString, TokChar,
		TokLParen, TokLBracket, TokLBrace:
		return true
	}
	return false
}

func (p *parser) parseApp(minCol int) (Expr, error) {
	fn, err := p.parseAtomExpr(minCol)
	if err != nil {
		return nil, err
	}
	var args []Expr
	for p.inside(minCol) && p.atAtomStart() {
		arg, err := p.parseAtomExpr(minCol)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		return fn, nil
	}
	return AppExpr{Fn: fn, Args: args}, nil
}

func (p *parser) parseAtomExpr(minCol int) (Expr, error) {
	t := p.peek()
	switch t.Kind {
	case TokInt:
		p.next()
		return LitExpr{Kind: LitInt, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokFloat:
		p.next()
		return LitExpr{Kind: LitFloat, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokString:
		p.next()
		return LitExpr{Kind: LitString, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokChar:
		p.next()
		return LitExpr{Kind: LitChar, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokLower:
		p.next()
		return p.parseAccessors(NameExpr{Name: t.Lexeme, Pos: posOf(t)}), nil
	case TokUpper:
		name, err := p.parseQualifiedValue()
		if err != nil {
			return nil, err
		}
		return p.parseAccessors(name), nil
	case TokLParen:
		return p.parseParenExpr(minCol)
	case TokLBracket:
		return p.parseListExpr(minCol)
	case TokLBrace:
		return p.parseRecordExpr(minCol)
	case TokBackslash:
		return p.parseLambda(minCol)
	case TokLet:
		return p.parseLet(minCol)
	case TokIf:
		return p.parseIf(minCol)
	case TokCase:
		return p.parseCase(minCol)
	}
	return nil, p.errf(t, "expected an expression, found %s", t.describe())
}

// parseQualifiedValue reads Upper(.Upper)* optionally ending in .lower:
// "List.map", "Basics.True", plain "Leaf".
func (p *parser) parseQualifiedValue() (Expr, error) {
	first, err := p.expect(TokUpper)
	if err != nil {
		return nil, err
	}
	segs := []Token{first}
	for p.at(TokDot) && adjacent(segs[len(segs)-1], p.peek()) {
		nt := p.peekAhead(1)
		if !adjacent(p.peek(), nt) {
			break
		}
		switch nt.Kind {
		case TokUpper:
			p.next()
			segs = append(segs, p.next())
			continue
		case TokLower:
			p.next()
			lower := p.next()
			return NameExpr{
				Qual: joinSegments(segs),
				Name: lower.Lexeme,
				Pos:  posOf(first),
			}, nil
		}
		break
	}
	name := segs[len(segs)-1]
	return NameExpr{
		Qual: joinSegments(segs[:len(segs)-1]),
		Name: name.Lexeme,
		Pos:  posOf(first),
	}, nil
}

// parseAccessors attaches ".field" projections written without spaces.
func (p *parser) parseAccessors(e Expr) Expr {
	for p.at(TokDot) && adjacent(p.prev(), p.peek()) {
		nt := p.peekAhead(1)
		if nt.Kind != TokLower || !adjacent(p.peek(), nt) {
			return e
		}
		p.next()
		f := p.next()
		e = AccessExpr{X: e, Field: f.Lexeme, Pos: posOf(f)}
	}
	return e
}

func (p *parser) parseParenExpr(minCol int) (Expr, error) {
	paren, _ := p.expect(TokLParen)
	if p.at(TokRParen) {
		p.next()
		return UnitExpr{Pos: posOf(paren)}, nil
	}
	first, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	if p.at(TokComma) {
		elems := []Expr{first}
		for p.at(TokComma) {
			p.next()
			e, err := p.parseExpr(minCol)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return TupleExpr{Elems: elems, Pos: posOf(paren)}, nil
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return p.parseAccessors(first), nil
}

func (p *parser) parseListExpr(minCol int) (Expr, error) {
	bracket, _ := p.expect(TokLBracket)
	list := ListExpr{Pos: posOf(bracket)}
	if p.at(TokRBracket) {
		p.next()
		return list, nil
	}
	for {
		e, err := p.parseExpr(minCol)
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, e)
		if !p.at(TokComma) {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseRecordExpr(minCol int) (Expr, error) {
	brace, _ := p.expect(TokLBrace)
	rec := RecordExpr{Pos: posOf(brace)}
	if p.at(TokRBrace) {
		p.next()
		return rec, nil
	}
	for {
		nameTok, err := p.expect(TokLower)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokEquals); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(minCol)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, FieldInit{Name: nameTok.Lexeme, Value: v, Pos: posOf(nameTok)})
		if !p.at(TokComma) {
			break
		}
		p.next()
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *parser) parseLambda(minCol int) (Expr, error) {
	slash, _ := p.expect(TokBackslash)
	var params []string
	for p.at(TokLower) || p.at(TokUnderscore) {
		params = append(params, p.next().Lexeme)
	}
	if len(params) == 0 {
		return nil, p.errf(p.peek(), "expected a lambda parameter, found %s", p.peek().describe())
	}
	if _, err := p.expect(TokArrow); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	return LambdaExpr{Params: params, Body: body, Pos: posOf(slash)}, nil
}

func (p *parser) parseLet(minCol int) (Expr, error) {
	letTok, _ := p.expect(TokLet)
	if !p.inside(minCol) || !p.at(TokLower) {
		return nil, p.errf(p.peek(), "expected a let binding, found %s", p.peek().describe())
	}
	bindCol := p.peek().Col
	var binds []LetBind
	for {
		nameTok, err := p.expect(TokLower)
		if err != nil {
			return nil, err
		}
		bind := LetBind{Name: nameTok.Lexeme, Pos: posOf(nameTok)}
		for p.inside(bindCol) && (p.at(TokLower) || p.at(TokUnderscore)) {
			bind.Params = append(bind.Params, p.next().Lexeme)
		}
		if _, err := p.expect(TokEquals); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(bindCol)
		if err != nil {
			return nil, err
		}
		bind.Body = body
		binds = append(binds, bind)
		if p.peek().Kind == TokLower && p.peek().Col == bindCol {
			continue
		}
		break
	}
	if _, err := p.expect(TokIn); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	return LetExpr{Binds: binds, Body: body, Pos: posOf(letTok)}, nil
}

func (p *parser) parseIf(minCol int) (Expr, error) {
	ifTok, _ := p.expect(TokIf)
	cond, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokThen); err != nil {
		return nil, err
	}
	thenE, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokElse); err != nil {
		return nil, err
	}
	elseE, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	return IfExpr{Cond: cond, Then: thenE, Else: elseE, Pos: posOf(ifTok)}, nil
}

func (p *parser) parseCase(minCol int) (Expr, error) {
	caseTok, _ := p.expect(TokCase)
	subject, err := p.parseExpr(minCol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokOf); err != nil {
		return nil, err
	}
	if !p.inside(minCol) {
		return nil, p.errf(p.peek(), "expected case branches, found %s", p.peek().describe())
	}
	branchCol := p.peek().Col
	ce := CaseExpr{Subject: subject, Pos: posOf(caseTok)}
	for {
		pat, err := p.parsePattern(branchCol)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokArrow); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(branchCol)
		if err != nil {
			return nil, err
		}
		ce.Branches = append(ce.Branches, Branch{Pat: pat, Body: body})
		if p.peek().Kind != TokEOF && p.peek().Col == branchCol && branchCol > minCol {
			continue
		}
		break
	}
	return ce, nil
}

// Patterns

func (p *parser) parsePattern(minCol int) (Pattern, error) {
	l, err := p.parsePatApp(minCol)
	if err != nil {
		return nil, err
	}
	if p.inside(minCol) && p.at(TokOperator) && p.peek().Lexeme == "::" {
		p.next()
		r, err := p.parsePattern(minCol)
		if err != nil {
			return nil, err
		}
		return ConsPat{Head: l, Tail: r}, nil
	}
	return l, nil
}

func (p *parser) atPatAtomStart() bool {
	switch p.peek().Kind {
	case TokUnderscore, TokLower, TokUpper, TokInt, TokFloat, TokString, TokChar,
		TokLParen, TokLBracket:
		return true
	}
	return false
}

func (p *parser) parsePatApp(minCol int) (Pattern, error) {
	if !p.at(TokUpper) {
		return p.parsePatAtom(minCol)
	}
	ctor, err := p.parseQualifiedCtorPat()
	if err != nil {
		return nil, err
	}
	for p.inside(minCol) && p.atPatAtomStart() {
		arg, err := p.parsePatAtom(minCol)
		if err != nil {
			return nil, err
		}
		ctor.Args = append(ctor.Args, arg)
	}
	return ctor, nil
}

func (p *parser) parseQualifiedCtorPat() (CtorPat, error) {
	first, err := p.expect(TokUpper)
	if err != nil {
		return CtorPat{}, err
	}
	segs := []Token{first}
	for p.at(TokDot) && adjacent(segs[len(segs)-1], p.peek()) {
		nt := p.peekAhead(1)
		if nt.Kind != TokUpper || !adjacent(p.peek(), nt) {
			break
		}
		p.next()
		segs = append(segs, p.next())
	}
	name := segs[len(segs)-1]
	return CtorPat{
		Qual: joinSegments(segs[:len(segs)-1]),
		Name: name.Lexeme,
		Pos:  posOf(first),
	}, nil
}

func (p *parser) parsePatAtom(minCol int) (Pattern, error) {
	t := p.peek()
	switch t.Kind {
	case TokUnderscore:
		p.next()
		return WildPat{Pos: posOf(t)}, nil
	case TokLower:
		p.next()
		return VarPat{Name: t.Lexeme, Pos: posOf(t)}, nil
	case TokInt:
		p.next()
		return LitPat{Kind: LitInt, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokFloat:
		p.next()
		return LitPat{Kind: LitFloat, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokString:
		p.next()
		return LitPat{Kind: LitString, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokChar:
		p.next()
		return LitPat{Kind: LitChar, Text: t.Lexeme, Pos: posOf(t)}, nil
	case TokUpper:
		return p.parseQualifiedCtorPat()
	case TokLParen:
		p.next()
		if p.at(TokRParen) {
			p.next()
			return TuplePat{Pos: posOf(t)}, nil
		}
		first, err := p.parsePattern(minCol)
		if err != nil {
			return nil, err
		}
		if p.at(TokComma) {
			elems := []Pattern{first}
			for p.at(TokComma) {
				p.next()
				e, err := p.parsePattern(minCol)
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if _, err := p.expect(TokRParen); err != nil {
				return nil, err
			}
			return TuplePat{Elems: elems, Pos: posOf(t)}, nil
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return first, nil
	case TokLBracket:
		p.next()
		lp := ListPat{Pos: posOf(t)}
		if p.at(TokRBracket) {
			p.next()
			return lp, nil
		}
		for {
			e, err := p.parsePattern(minCol)
			if err != nil {
				return nil, err
			}
			lp.Elems = append(lp.Elems, e)
			if !p.at(TokComma) {
				break
			}
			p.next()
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		return lp, nil
	}
	return nil, p.errf(t, "expected a pattern, found %s", t.describe())
}
