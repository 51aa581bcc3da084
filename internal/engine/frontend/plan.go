package frontend

import (
	"loom/internal/core/errors"
	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
	"loom/internal/engine/repo"
	"loom/internal/engine/resolver"
	"loom/internal/shared/observability"
)

// modulePlan is everything the resolution phase computes for one module: the
// shell to install and every definition in insertion order. Nothing in a
// plan has touched the repository yet.
type modulePlan struct {
	path    string
	info    repo.ModuleInfo
	exports resolver.Exports
	types   []plannedType
	values  []plannedValue
}

type plannedType struct {
	name ir.Name
	def  ir.TypeDefinition
}

type plannedValue struct {
	name ir.Name
	def  ir.ValueDefinition
}

// exportSource answers import lookups during resolution. Modules already
// planned in this changeset shadow the repository, which in turn shadows the
// dependency package specs.
type exportSource struct {
	repo    *repo.Repository
	overlay map[string]resolver.Exports
}

func (s *exportSource) ModuleExports(module string) (resolver.Exports, bool) {
	if exp, ok := s.overlay[module]; ok {
		return exp, true
	}
	if names, owners, ok := s.repo.ModuleVisible(module); ok {
		return resolver.Exports{Names: names, CtorOwners: owners}, true
	}
	return resolver.Exports{}, false
}

// implicitImports are the two standard-package imports every module gets
// without writing them: Basics wholesale, plus the list type and the cons
// constructor.
func implicitImports() []parser.Import {
	return []parser.Import{
		{Module: []string{"Basics"}, Exposing: &parser.Exposing{All: true}},
		{Module: []string{"List"}, Exposing: &parser.Exposing{
			Items: []parser.ExposeItem{{Name: "List"}, {Name: "::"}},
		}},
	}
}

// planModule resolves one parsed module and orders its declarations.
// Declarations sharing a name collapse to one slot in the order; the fold
// later rejects the duplicate, not the planner.
func planModule(pkg string, c *change, exports resolver.Exporter) (*modulePlan, error) {
	rc, err := resolver.NewContext(resolver.Config{
		Package:  pkg,
		Module:   c.ast,
		Exports:  exports,
		Implicit: implicitImports(),
	})
	if err != nil {
		return nil, resolveErr(err, c)
	}

	var (
		typeNames []string
		typeRefs  = map[string][]ir.FQName{}
		typeDefs  = map[string][]plannedType{}
		valNames  []string
		valRefs   = map[string][]ir.FQName{}
		valDefs   = map[string][]plannedValue{}
	)
	addType := func(src string, def ir.TypeDefinition) {
		key := ir.NameFromString(src).String()
		if _, ok := typeDefs[key]; !ok {
			typeNames = append(typeNames, key)
		}
		typeDefs[key] = append(typeDefs[key], plannedType{name: ir.NameFromString(src), def: def})
		typeRefs[key] = append(typeRefs[key], ir.DefinitionTypeRefs(def)...)
	}
	addValue := func(src string, def ir.ValueDefinition) {
		key := ir.NameFromString(src).String()
		if _, ok := valDefs[key]; !ok {
			valNames = append(valNames, key)
		}
		valDefs[key] = append(valDefs[key], plannedValue{name: ir.NameFromString(src), def: def})
		valRefs[key] = append(valRefs[key], ir.ValueRefs(def.Body)...)
	}

	for _, d := range c.ast.Decls {
		switch t := d.(type) {
		case parser.AliasDecl:
			def, err := rc.MapAliasDecl(t)
			if err != nil {
				return nil, resolveErr(err, c)
			}
			addType(t.Name, def)
		case parser.UnionDecl:
			def, err := rc.MapUnionDecl(t)
			if err != nil {
				return nil, resolveErr(err, c)
			}
			addType(t.Name, def)
		case parser.ValueDecl:
			def, err := rc.MapValueDecl(t)
			if err != nil {
				return nil, resolveErr(err, c)
			}
			addValue(t.Name, def)
		}
	}

	orderedTypes, err := orderDecls(pkg, c.module, typeNames, typeRefs)
	if err != nil {
		observability.CyclesDetectedTotal.WithLabelValues("type").Inc()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeTypeCycle,
			"types of module "+c.module+" depend on each other"), errors.CtxModule, c.module)
	}
	orderedValues, err := orderDecls(pkg, c.module, valNames, valRefs)
	if err != nil {
		observability.CyclesDetectedTotal.WithLabelValues("value").Inc()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValueCycle,
			"values of module "+c.module+" depend on each other"), errors.CtxModule, c.module)
	}

	exp := rc.Exposed()
	plan := &modulePlan{
		path: c.module,
		info: repo.ModuleInfo{
			Name:       c.name,
			Imports:    rc.ImportPaths(),
			Exposed:    exp.Names,
			CtorOwners: exp.CtorOwners,
		},
		exports: exp,
	}
	for _, key := range orderedTypes {
		plan.types = append(plan.types, typeDefs[key]...)
	}
	for _, key := range orderedValues {
		plan.values = append(plan.values, valDefs[key]...)
	}
	return plan, nil
}

// resolveErr classifies a lowering failure: resolver errors carry a reason
// and surface as resolution failures, anything else is a mapping defect.
func resolveErr(err error, c *change) error {
	code := errors.CodeMappingFailure
	if _, ok := err.(*resolver.Error); ok {
		code = errors.CodeNameResolution
	}
	e := errors.Wrap(err, code, "cannot lower module "+c.module)
	e = errors.AddContext(e, errors.CtxPath, c.path)
	return errors.AddContext(e, errors.CtxModule, c.module)
}
