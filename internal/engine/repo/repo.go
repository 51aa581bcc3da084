// Package repo is the persistent IR store. A Repository accumulates one
// package's modules across builds: per module an ordered list of type
// definitions and value definitions, plus the dependency package specs
// resolution may reference. Insertion enforces the store's one structural
// rule: a definition may only reference names that are already resolvable,
// so no forward reference is ever persisted.
package repo

import (
	"fmt"

	"loom/internal/engine/ir"
)

// Cause classifies an insertion or deletion rejection.
type Cause uint8

const (
	// CauseUnknownModule: the target module is not in the repository.
	CauseUnknownModule Cause = iota
	// CauseDuplicate: the module already holds a definition with this name.
	CauseDuplicate
	// CauseUnresolvedRef: the definition references a name that is not
	// resolvable in current contents or dependency specs.
	CauseUnresolvedRef
	// CauseHasDependents: a module deletion while other modules still
	// import it.
	CauseHasDependents
)

func (c Cause) String() string {
	switch c {
	case CauseUnknownModule:
		return "unknown module"
	case CauseDuplicate:
		return "duplicate name"
	case CauseUnresolvedRef:
		return "unresolved reference"
	case CauseHasDependents:
		return "module has dependents"
	}
	return "unknown cause"
}

// Rejection is a refused repository mutation. It deliberately carries the
// pieces error reports need instead of a preformatted string.
type Rejection struct {
	Module     string
	Kind       ir.NameKind
	Name       string
	Cause      Cause
	Ref        ir.FQName // set for CauseUnresolvedRef
	Dependents []string  // set for CauseHasDependents
}

func (r *Rejection) Error() string {
	switch r.Cause {
	case CauseUnknownModule:
		return fmt.Sprintf("module %s is not in the repository", r.Module)
	case CauseDuplicate:
		return fmt.Sprintf("%s: %s %s is already defined", r.Module, r.Kind, r.Name)
	case CauseUnresolvedRef:
		return fmt.Sprintf("%s: %s %s references %s which is not in the repository", r.Module, r.Kind, r.Name, r.Ref)
	case CauseHasDependents:
		return fmt.Sprintf("module %s is still imported by %v", r.Module, r.Dependents)
	}
	return fmt.Sprintf("%s: rejected %s %s", r.Module, r.Kind, r.Name)
}

// NamedType pairs a type definition with its declared name.
type NamedType struct {
	Name ir.Name
	Def  ir.TypeDefinition
}

// NamedValue pairs a value definition with its declared name.
type NamedValue struct {
	Name ir.Name
	Def  ir.ValueDefinition
}

// Module is one module's accumulated IR. Definition order is insertion
// order, which the build pipeline guarantees is dependency order.
type Module struct {
	name       ir.ModuleName
	imports    []string
	exposed    ir.VisibleNames
	ctorOwners map[string]string

	types   []NamedType
	typeIx  map[string]int
	ctors   map[string]string // canonical ctor name -> canonical owner type
	values  []NamedValue
	valueIx map[string]int
}

func (m *Module) Name() ir.ModuleName { return m.name }

// Imports returns the in-package module paths this module imports.
func (m *Module) Imports() []string { return m.imports }

// Exposed returns the module's export surface keyed by source spelling.
func (m *Module) Exposed() (ir.VisibleNames, map[string]string) {
	return m.exposed, m.ctorOwners
}

func (m *Module) Types() []NamedType   { return m.types }
func (m *Module) Values() []NamedValue { return m.values }

// Type looks a definition up by canonical name.
func (m *Module) Type(name string) (NamedType, bool) {
	i, ok := m.typeIx[name]
	if !ok {
		return NamedType{}, false
	}
	return m.types[i], true
}

// Value looks a definition up by canonical name.
func (m *Module) Value(name string) (NamedValue, bool) {
	i, ok := m.valueIx[name]
	if !ok {
		return NamedValue{}, false
	}
	return m.values[i], true
}

// CtorOwner returns the canonical name of the type owning a constructor.
func (m *Module) CtorOwner(name string) (string, bool) {
	owner, ok := m.ctors[name]
	return owner, ok
}

// ModuleInfo is the shell ReplaceModule installs: identity, imports and
// export surface. Definitions arrive afterwards through InsertType and
// InsertValue.
type ModuleInfo struct {
	Name       ir.ModuleName
	Imports    []string
	Exposed    ir.VisibleNames
	CtorOwners map[string]string
}

// Repository is the IR store for one package. Not safe for concurrent
// mutation; the build pipeline serializes access.
type Repository struct {
	pkg      string
	modules  map[string]*Module
	order    []string
	deps     map[string]*depIndex
	depOrder []string
}

// New returns an empty repository for the named package. The standard
// package is always registered as a dependency.
func New(pkg string) *Repository {
	r := &Repository{
		pkg:     pkg,
		modules: map[string]*Module{},
		deps:    map[string]*depIndex{},
	}
	sdk, err := newDepIndex(SDKSpec())
	if err != nil {
		panic(fmt.Sprintf("repo: standard package spec invalid: %v", err))
	}
	r.deps[sdk.spec.Package] = sdk
	r.depOrder = append(r.depOrder, sdk.spec.Package)
	return r
}

func (r *Repository) Package() string { return r.pkg }

// AddDependency registers an external package spec for resolution.
func (r *Repository) AddDependency(spec PackageSpec) error {
	idx, err := newDepIndex(spec)
	if err != nil {
		return err
	}
	if _, exists := r.deps[spec.Package]; !exists {
		r.depOrder = append(r.depOrder, spec.Package)
	}
	r.deps[spec.Package] = idx
	return nil
}

// Module returns the stored module for a dotted path.
func (r *Repository) Module(path string) (*Module, bool) {
	m, ok := r.modules[path]
	return m, ok
}

// Modules returns the stored module paths in first-registration order.
func (r *Repository) Modules() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Dependents returns the in-package modules that import path, in
// registration order.
func (r *Repository) Dependents(path string) []string {
	var out []string
	for _, p := range r.order {
		if p == path {
			continue
		}
		for _, imp := range r.modules[p].imports {
			if imp == path {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ReplaceModule installs a fresh, empty shell for the module, creating it
// if absent. Replacing and refilling is how updates work, so applying the
// same changeset twice converges instead of rejecting duplicates.
func (r *Repository) ReplaceModule(info ModuleInfo) {
	path := info.Name.String()
	m := &Module{
		name:       info.Name,
		imports:    append([]string(nil), info.Imports...),
		exposed:    info.Exposed,
		ctorOwners: info.CtorOwners,
		typeIx:     map[string]int{},
		ctors:      map[string]string{},
		valueIx:    map[string]int{},
	}
	if m.ctorOwners == nil {
		m.ctorOwners = map[string]string{}
	}
	if _, exists := r.modules[path]; !exists {
		r.order = append(r.order, path)
	}
	r.modules[path] = m
}

// DeleteModule removes a module. It refuses when the module is unknown or
// when surviving modules still import it; the pipeline pre-checks both, so
// a rejection here means the caller skipped the pre-flight.
func (r *Repository) DeleteModule(path string) error {
	if _, ok := r.modules[path]; !ok {
		return &Rejection{Module: path, Cause: CauseUnknownModule}
	}
	if deps := r.Dependents(path); len(deps) > 0 {
		return &Rejection{Module: path, Cause: CauseHasDependents, Dependents: deps}
	}
	delete(r.modules, path)
	for i, p := range r.order {
		if p == path {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// InsertType adds one type definition. The definition's own name counts as
// resolvable while it is being inserted, so self-recursive types pass.
func (r *Repository) InsertType(module string, name ir.Name, def ir.TypeDefinition) error {
	m, ok := r.modules[module]
	if !ok {
		return &Rejection{Module: module, Kind: ir.KindType, Name: name.String(), Cause: CauseUnknownModule}
	}
	key := name.String()
	if _, dup := m.typeIx[key]; dup {
		return &Rejection{Module: module, Kind: ir.KindType, Name: key, Cause: CauseDuplicate}
	}
	self := ir.NewFQName(r.pkg, m.name, name)
	for _, fq := range ir.DefinitionTypeRefs(def) {
		if fq == self {
			continue
		}
		if !r.ResolvableType(fq) {
			return &Rejection{Module: module, Kind: ir.KindType, Name: key, Cause: CauseUnresolvedRef, Ref: fq}
		}
	}
	custom, isCustom := def.(ir.CustomDefinition)
	if isCustom {
		for _, ctor := range custom.Constructors {
			ckey := ir.NameFromString(ctor.Name).String()
			if _, dup := m.ctors[ckey]; dup {
				return &Rejection{Module: module, Kind: ir.KindCtor, Name: ctor.Name, Cause: CauseDuplicate}
			}
		}
	}
	m.appendType(NamedType{Name: name, Def: def})
	return nil
}

// InsertValue adds one value definition after checking that its annotation
// types, referenced values and referenced constructors all resolve.
func (r *Repository) InsertValue(module string, name ir.Name, def ir.ValueDefinition) error {
	m, ok := r.modules[module]
	if !ok {
		return &Rejection{Module: module, Kind: ir.KindValue, Name: name.String(), Cause: CauseUnknownModule}
	}
	key := name.String()
	if _, dup := m.valueIx[key]; dup {
		return &Rejection{Module: module, Kind: ir.KindValue, Name: key, Cause: CauseDuplicate}
	}
	for _, fq := range ir.AnnotationTypeRefs(def) {
		if !r.ResolvableType(fq) {
			return &Rejection{Module: module, Kind: ir.KindValue, Name: key, Cause: CauseUnresolvedRef, Ref: fq}
		}
	}
	self := ir.NewFQName(r.pkg, m.name, name)
	for _, fq := range ir.ValueRefs(def.Body) {
		if fq == self {
			continue
		}
		if !r.ResolvableValue(fq) {
			return &Rejection{Module: module, Kind: ir.KindValue, Name: key, Cause: CauseUnresolvedRef, Ref: fq}
		}
	}
	for _, fq := range ir.CtorRefs(def.Body) {
		if !r.ResolvableCtor(fq) {
			return &Rejection{Module: module, Kind: ir.KindValue, Name: key, Cause: CauseUnresolvedRef, Ref: fq}
		}
	}
	m.appendValue(NamedValue{Name: name, Def: def})
	return nil
}

func (m *Module) appendType(t NamedType) {
	key := t.Name.String()
	m.typeIx[key] = len(m.types)
	m.types = append(m.types, t)
	if custom, ok := t.Def.(ir.CustomDefinition); ok {
		for _, ctor := range custom.Constructors {
			m.ctors[ir.NameFromString(ctor.Name).String()] = key
		}
	}
}

func (m *Module) appendValue(v NamedValue) {
	m.valueIx[v.Name.String()] = len(m.values)
	m.values = append(m.values, v)
}

// ResolvableType reports whether fq names a type in the repository or its
// dependency specs.
func (r *Repository) ResolvableType(fq ir.FQName) bool {
	if fq.Package == r.pkg {
		m, ok := r.modules[fq.Module]
		if !ok {
			return false
		}
		_, ok = m.typeIx[fq.Name]
		return ok
	}
	dep, ok := r.deps[fq.Package]
	if !ok {
		return false
	}
	return dep.types[fq.Module][fq.Name]
}

// ResolvableCtor reports whether fq names a constructor.
func (r *Repository) ResolvableCtor(fq ir.FQName) bool {
	if fq.Package == r.pkg {
		m, ok := r.modules[fq.Module]
		if !ok {
			return false
		}
		_, ok = m.ctors[fq.Name]
		return ok
	}
	dep, ok := r.deps[fq.Package]
	if !ok {
		return false
	}
	return dep.ctors[fq.Module][fq.Name]
}

// ResolvableValue reports whether fq names a value.
func (r *Repository) ResolvableValue(fq ir.FQName) bool {
	if fq.Package == r.pkg {
		m, ok := r.modules[fq.Module]
		if !ok {
			return false
		}
		_, ok = m.valueIx[fq.Name]
		return ok
	}
	dep, ok := r.deps[fq.Package]
	if !ok {
		return false
	}
	return dep.values[fq.Module][fq.Name]
}

// ModuleVisible returns the export surface of a module path: an in-package
// module if one is stored, otherwise a dependency-spec module. In-package
// modules shadow dependency modules with the same path.
func (r *Repository) ModuleVisible(path string) (ir.VisibleNames, map[string]string, bool) {
	if m, ok := r.modules[path]; ok {
		return m.exposed, m.ctorOwners, true
	}
	for _, pkg := range r.depOrder {
		dep := r.deps[pkg]
		if names, ok := dep.visible[path]; ok {
			return names, dep.owners[path], true
		}
	}
	return ir.VisibleNames{}, nil, false
}

func (r *Repository) ModuleCount() int { return len(r.modules) }

// TypeCount returns the number of stored type definitions across modules.
func (r *Repository) TypeCount() int {
	n := 0
	for _, m := range r.modules {
		n += len(m.types)
	}
	return n
}

// ValueCount returns the number of stored value definitions across modules.
func (r *Repository) ValueCount() int {
	n := 0
	for _, m := range r.modules {
		n += len(m.values)
	}
	return n
}
