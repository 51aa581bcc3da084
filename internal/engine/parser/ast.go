package parser

import "fmt"

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func posOf(t Token) Pos { return Pos{Line: t.Line, Col: t.Col} }

// Diagnostic is one syntax problem with its location.
type Diagnostic struct {
	Path    string
	Line    int
	Col     int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Path, d.Line, d.Col, d.Message)
}

// Diagnostics aggregates every problem found in one file. It implements
// error so Parse can hand the whole batch back through a single return.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	switch len(ds) {
	case 0:
		return "no syntax errors"
	case 1:
		return ds[0].String()
	}
	return fmt.Sprintf("%s (and %d more)", ds[0].String(), len(ds)-1)
}

// Module is the parse tree of one source file. Declarations keep source
// order; nothing is resolved yet.
type Module struct {
	Path     string
	Name     []string
	NamePos  Pos
	Exposing Exposing
	Imports  []Import
	Decls    []Decl
}

// Exposing is a module's or an import's expose list. All means "(..)".
type Exposing struct {
	All   bool
	Items []ExposeItem
}

// ExposeItem is one entry of an expose list. OpenCtors marks the
// "Name(..)" form that exposes a type together with its constructors.
type ExposeItem struct {
	Name      string
	OpenCtors bool
	Pos       Pos
}

// Import is one import statement. Alias is empty when no "as" clause was
// written; Exposing is nil when the import exposes nothing unqualified.
type Import struct {
	Module   []string
	Alias    string
	Exposing *Exposing
	Pos      Pos
}

// Decl is a top-level declaration.
type Decl interface {
	isDecl()
	DeclName() string
	DeclPos() Pos
}

// AliasDecl is "type alias Name params = type".
type AliasDecl struct {
	Name   string
	Params []string
	Target TypeExpr
	Pos    Pos
}

// UnionDecl is "type Name params = Ctor1 ... | Ctor2 ...".
type UnionDecl struct {
	Name   string
	Params []string
	Ctors  []CtorDecl
	Pos    Pos
}

type CtorDecl struct {
	Name string
	Args []TypeExpr
	Pos  Pos
}

// ValueDecl is a top-level value or function. Annotation is nil when the
// declaration has no preceding "name : type" line.
type ValueDecl struct {
	Name       string
	Params     []string
	Annotation TypeExpr
	Body       Expr
	Pos        Pos
}

func (AliasDecl) isDecl() {}
func (UnionDecl) isDecl() {}
func (ValueDecl) isDecl() {}

func (d AliasDecl) DeclName() string { return d.Name }
func (d UnionDecl) DeclName() string { return d.Name }
func (d ValueDecl) DeclName() string { return d.Name }

func (d AliasDecl) DeclPos() Pos { return d.Pos }
func (d UnionDecl) DeclPos() Pos { return d.Pos }
func (d ValueDecl) DeclPos() Pos { return d.Pos }

// TypeExpr is an unresolved type expression.
type TypeExpr interface {
	isTypeExpr()
	TypePos() Pos
}

// TName references a named type, optionally qualified ("List.List a").
// Qual is the dotted qualifier or empty.
type TName struct {
	Qual string
	Name string
	Args []TypeExpr
	Pos  Pos
}

type TVar struct {
	Name string
	Pos  Pos
}

type TTuple struct {
	Elems []TypeExpr
	Pos   Pos
}

type TRecord struct {
	Fields []TField
	Pos    Pos
}

type TField struct {
	Name string
	Type TypeExpr
	Pos  Pos
}

type TFunc struct {
	Param  TypeExpr
	Result TypeExpr
}

type TUnit struct {
	Pos Pos
}

func (TName) isTypeExpr()   {}
func (TVar) isTypeExpr()    {}
func (TTuple) isTypeExpr()  {}
func (TRecord) isTypeExpr() {}
func (TFunc) isTypeExpr()   {}
func (TUnit) isTypeExpr()   {}

func (t TName) TypePos() Pos   { return t.Pos }
func (t TVar) TypePos() Pos    { return t.Pos }
func (t TTuple) TypePos() Pos  { return t.Pos }
func (t TRecord) TypePos() Pos { return t.Pos }
func (t TFunc) TypePos() Pos   { return t.Param.TypePos() }
func (t TUnit) TypePos() Pos   { return t.Pos }

// LitKind tags literal expressions and patterns.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitChar
)

// Expr is an unresolved expression.
type Expr interface {
	isExpr()
	ExprPos() Pos
}

type LitExpr struct {
	Kind LitKind
	Text string
	Pos  Pos
}

// NameExpr is a possibly-qualified name in expression position. A
// capitalized Name is a constructor use, a lower-case one a variable or
// value use; which of those it is gets decided during resolution.
type NameExpr struct {
	Qual string
	Name string
	Pos  Pos
}

// BinExpr is one binary operator application.
type BinExpr struct {
	Op    string
	OpPos Pos
	L     Expr
	R     Expr
}

// AppExpr is juxtaposition application: Fn Arg1 Arg2 ...
type AppExpr struct {
	Fn   Expr
	Args []Expr
}

type ListExpr struct {
	Elems []Expr
	Pos   Pos
}

type TupleExpr struct {
	Elems []Expr
	Pos   Pos
}

type RecordExpr struct {
	Fields []FieldInit
	Pos    Pos
}

type FieldInit struct {
	Name  string
	Value Expr
	Pos   Pos
}

// AccessExpr is record field projection: X.Field.
type AccessExpr struct {
	X     Expr
	Field string
	Pos   Pos
}

type LambdaExpr struct {
	Params []string
	Body   Expr
	Pos    Pos
}

type LetExpr struct {
	Binds []LetBind
	Body  Expr
	Pos   Pos
}

type LetBind struct {
	Name   string
	Params []string
	Body   Expr
	Pos    Pos
}

type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Pos
}

type CaseExpr struct {
	Subject  Expr
	Branches []Branch
	Pos      Pos
}

type Branch struct {
	Pat  Pattern
	Body Expr
}

type UnitExpr struct {
	Pos Pos
}

func (LitExpr) isExpr()    {}
func (NameExpr) isExpr()   {}
func (BinExpr) isExpr()    {}
func (AppExpr) isExpr()    {}
func (ListExpr) isExpr()   {}
func (TupleExpr) isExpr()  {}
func (RecordExpr) isExpr() {}
func (AccessExpr) isExpr() {}
func (LambdaExpr) isExpr() {}
func (LetExpr) isExpr()    {}
func (IfExpr) isExpr()     {}
func (CaseExpr) isExpr()   {}
func (UnitExpr) isExpr()   {}

func (e LitExpr) ExprPos() Pos    { return e.Pos }
func (e NameExpr) ExprPos() Pos   { return e.Pos }
func (e BinExpr) ExprPos() Pos    { return e.L.ExprPos() }
func (e AppExpr) ExprPos() Pos    { return e.Fn.ExprPos() }
func (e ListExpr) ExprPos() Pos   { return e.Pos }
func (e TupleExpr) ExprPos() Pos  { return e.Pos }
func (e RecordExpr) ExprPos() Pos { return e.Pos }
func (e AccessExpr) ExprPos() Pos { return e.X.ExprPos() }
func (e LambdaExpr) ExprPos() Pos { return e.Pos }
func (e LetExpr) ExprPos() Pos    { return e.Pos }
func (e IfExpr) ExprPos() Pos     { return e.Pos }
func (e CaseExpr) ExprPos() Pos   { return e.Pos }
func (e UnitExpr) ExprPos() Pos   { return e.Pos }

// Pattern is an unresolved case pattern.
type Pattern interface {
	isPattern()
	PatPos() Pos
}

type WildPat struct {
	Pos Pos
}

type VarPat struct {
	Name string
	Pos  Pos
}

type LitPat struct {
	Kind LitKind
	Text string
	Pos  Pos
}

type CtorPat struct {
	Qual string
	Name string
	Args []Pattern
	Pos  Pos
}

type TuplePat struct {
	Elems []Pattern
	Pos   Pos
}

type ConsPat struct {
	Head Pattern
	Tail Pattern
}

type ListPat struct {
	Elems []Pattern
	Pos   Pos
}

func (WildPat) isPattern()  {}
func (VarPat) isPattern()   {}
func (LitPat) isPattern()   {}
func (CtorPat) isPattern()  {}
func (TuplePat) isPattern() {}
func (ConsPat) isPattern()  {}
func (ListPat) isPattern()  {}

func (p WildPat) PatPos() Pos  { return p.Pos }
func (p VarPat) PatPos() Pos   { return p.Pos }
func (p LitPat) PatPos() Pos   { return p.Pos }
func (p CtorPat) PatPos() Pos  { return p.Pos }
func (p TuplePat) PatPos() Pos { return p.Pos }
func (p ConsPat) PatPos() Pos  { return p.Head.PatPos() }
func (p ListPat) PatPos() Pos  { return p.Pos }
