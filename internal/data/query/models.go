package query

// ModuleSummary is one repository module reduced to its headline counts.
type ModuleSummary struct {
	Name           string
	TypeCount      int
	ValueCount     int
	ImportCount    int
	DependentCount int
}

// ModuleDetails lists a module's contents. Types and Values keep
// insertion order, which is the dependency order the build established;
// the exposed lists are sorted.
type ModuleDetails struct {
	Name          string
	Types         []string
	Values        []string
	ExposedTypes  []string
	ExposedValues []string
	Imports       []string
	Dependents    []string
}

// TraceResult is one shortest import chain between two modules.
type TraceResult struct {
	From  string
	To    string
	Path  []string
	Depth int
}
