package ir

// Value is a fully resolved expression tree. Local variables appear as
// VarRef, everything global as ValueRef or CtorRef with a complete FQName.
type Value interface {
	isValue()
}

// LitKind tags a BasicLit with the literal class it carries.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitChar
)

func (k LitKind) String() string {
	switch k {
	case LitInt:
		return "int"
	case LitFloat:
		return "float"
	case LitString:
		return "string"
	case LitChar:
		return "char"
	}
	return "unknown"
}

// BasicLit keeps the literal in source form; downstream stages convert it.
type BasicLit struct {
	Kind  LitKind
	Value string
}

// VarRef names a locally bound variable: a parameter, a let binding or a
// pattern variable.
type VarRef struct {
	Name string
}

// ValueRef points at a top-level value definition.
type ValueRef struct {
	Ref FQName
}

// CtorRef points at a constructor of a custom type.
type CtorRef struct {
	Ref FQName
}

type TupleLit struct {
	Elems []Value
}

type ListLit struct {
	Elems []Value
}

type RecordLit struct {
	Fields []ValueField
}

type ValueField struct {
	Name  string
	Value Value
}

// FieldAccess projects one field out of a record value.
type FieldAccess struct {
	Record Value
	Field  string
}

// Apply is single-argument application; calls with several arguments are
// curried chains.
type Apply struct {
	Fn  Value
	Arg Value
}

type Lambda struct {
	Params []string
	Body   Value
}

type LetIn struct {
	Bindings []LetBinding
	Body     Value
}

// LetBinding is one definition inside a let block. Params may be empty for a
// plain binding.
type LetBinding struct {
	Name   string
	Params []string
	Body   Value
}

type IfExpr struct {
	Cond Value
	Then Value
	Else Value
}

type CaseExpr struct {
	Subject  Value
	Branches []CaseBranch
}

type CaseBranch struct {
	Pattern Pattern
	Body    Value
}

type UnitLit struct{}

func (BasicLit) isValue()    {}
func (VarRef) isValue()      {}
func (ValueRef) isValue()    {}
func (CtorRef) isValue()     {}
func (TupleLit) isValue()    {}
func (ListLit) isValue()     {}
func (RecordLit) isValue()   {}
func (FieldAccess) isValue() {}
func (Apply) isValue()       {}
func (Lambda) isValue()      {}
func (LetIn) isValue()       {}
func (IfExpr) isValue()      {}
func (CaseExpr) isValue()    {}
func (UnitLit) isValue()     {}

// Pattern is a resolved case pattern.
type Pattern interface {
	isPattern()
}

type WildcardPat struct{}

type VarPat struct {
	Name string
}

type LitPat struct {
	Lit BasicLit
}

// CtorPat matches one constructor and binds its arguments.
type CtorPat struct {
	Ref  FQName
	Args []Pattern
}

type TuplePat struct {
	Elems []Pattern
}

// ConsPat matches a non-empty list, head against Head and the remainder
// against Tail.
type ConsPat struct {
	Head Pattern
	Tail Pattern
}

type ListPat struct {
	Elems []Pattern
}

func (WildcardPat) isPattern() {}
func (VarPat) isPattern()     {}
func (LitPat) isPattern()     {}
func (CtorPat) isPattern()    {}
func (TuplePat) isPattern()   {}
func (ConsPat) isPattern()    {}
func (ListPat) isPattern()    {}

// ValueDefinition is one top-level value: optional type annotation,
// parameter names and the body expression.
type ValueDefinition struct {
	Params     []string
	Annotation Type // nil when the declaration carries no annotation
	Body       Value
}
