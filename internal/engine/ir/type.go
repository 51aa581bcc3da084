package ir

// Type is a fully resolved type expression. Every concrete variant is a
// value type; trees are immutable once built.
type Type interface {
	isType()
}

// TypeVariable is a lower-case type parameter ("a").
type TypeVariable struct {
	Name string
}

// TypeReference points at a named type definition plus its applied
// arguments.
type TypeReference struct {
	Ref  FQName
	Args []Type
}

// TypeTuple holds two or more element types.
type TypeTuple struct {
	Elems []Type
}

// TypeRecord is an ordered field list.
type TypeRecord struct {
	Fields []RecordField
}

type RecordField struct {
	Name string
	Type Type
}

// TypeFunction is a single-argument function type; multi-argument functions
// are curried chains.
type TypeFunction struct {
	Param  Type
	Result Type
}

// TypeUnit is the empty tuple type.
type TypeUnit struct{}

func (TypeVariable) isType()  {}
func (TypeReference) isType() {}
func (TypeTuple) isType()     {}
func (TypeRecord) isType()    {}
func (TypeFunction) isType()  {}
func (TypeUnit) isType()      {}

// TypeDefinition is either an alias or a custom (union) type.
type TypeDefinition interface {
	isTypeDefinition()
	// TypeParams returns the declared parameter names in order.
	TypeParams() []string
}

// AliasDefinition names an existing type expression.
type AliasDefinition struct {
	Params []string
	Target Type
}

// CustomDefinition introduces a new nominal type with its constructors.
type CustomDefinition struct {
	Params       []string
	Constructors []Constructor
}

// Constructor is one variant of a custom type: a capitalized name and the
// argument types it carries.
type Constructor struct {
	Name string
	Args []Type
}

func (AliasDefinition) isTypeDefinition()  {}
func (CustomDefinition) isTypeDefinition() {}

func (d AliasDefinition) TypeParams() []string  { return d.Params }
func (d CustomDefinition) TypeParams() []string { return d.Params }
