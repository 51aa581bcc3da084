// Package resolver builds per-module resolution contexts and turns parse
// trees into fully qualified IR. Resolution follows a fixed precedence:
// local declarations shadow imports, imports are matched by exact qualifier,
// and the implicit standard modules answer only unqualified references that
// nothing else claims.
package resolver

import (
	"strings"

	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
)

// Exports is the complete interface one module presents to others: the
// visible names per namespace plus which type owns each exposed
// constructor (needed to expand "T(..)" import forms).
type Exports struct {
	Names      ir.VisibleNames
	CtorOwners map[string]string
}

// Exporter looks up the exports of any module reachable from the one being
// resolved, whatever provides it: the current changeset, the repository or
// a dependency package.
type Exporter interface {
	ModuleExports(module string) (Exports, bool)
}

// Config carries everything NewContext needs.
type Config struct {
	// Package owning the module under resolution.
	Package string
	// Module is the parse tree; its Name, Imports and Decls drive the
	// context.
	Module *parser.Module
	// Exports resolves import targets.
	Exports Exporter
	// Implicit lists the standard imports every module gets without
	// writing them. They answer unqualified references only.
	Implicit []parser.Import
}

type importEntry struct {
	path     string
	alias    string
	visible  ir.VisibleNames
	unqual   ir.VisibleNames
	implicit bool
	pos      parser.Pos
}

// Context is the resolution state of one module, built once and used for
// every reference the module makes.
type Context struct {
	pkg        string
	modPath    string
	local      ir.VisibleNames
	ctorOwners map[string]string
	typeCtors  map[string][]string
	exposed    ir.VisibleNames
	exposedCtO map[string]string
	imports    []importEntry
}

// NewContext builds the resolution context for one module: its own name
// tables, the filtered expose list and one entry per import. The first
// problem found (unknown import, expose list naming a missing declaration,
// import exposing something the target does not export) is returned as a
// *Error.
func NewContext(cfg Config) (*Context, error) {
	c := &Context{
		pkg:        cfg.Package,
		modPath:    strings.Join(cfg.Module.Name, "."),
		local:      ir.NewVisibleNames(),
		ctorOwners: map[string]string{},
		typeCtors:  map[string][]string{},
	}
	modName := ir.ModuleName(cfg.Module.Name)

	for _, d := range cfg.Module.Decls {
		switch decl := d.(type) {
		case parser.AliasDecl:
			c.local.Add(ir.KindType, decl.Name, c.fqFor(modName, decl.Name))
		case parser.UnionDecl:
			c.local.Add(ir.KindType, decl.Name, c.fqFor(modName, decl.Name))
			for _, ctor := range decl.Ctors {
				c.local.Add(ir.KindCtor, ctor.Name, c.fqFor(modName, ctor.Name))
				c.ctorOwners[ctor.Name] = decl.Name
				c.typeCtors[decl.Name] = append(c.typeCtors[decl.Name], ctor.Name)
			}
		case parser.ValueDecl:
			c.local.Add(ir.KindValue, decl.Name, c.fqFor(modName, decl.Name))
		}
	}

	if err := c.buildExposed(cfg.Module.Exposing); err != nil {
		return nil, err
	}

	for _, imp := range cfg.Module.Imports {
		entry, err := c.buildImport(imp, false, cfg.Exports)
		if err != nil {
			return nil, err
		}
		c.imports = append(c.imports, entry)
	}
	for _, imp := range cfg.Implicit {
		entry, err := c.buildImport(imp, true, cfg.Exports)
		if err != nil {
			return nil, err
		}
		c.imports = append(c.imports, entry)
	}
	return c, nil
}

func (c *Context) fqFor(mod ir.ModuleName, name string) ir.FQName {
	return ir.NewFQName(c.pkg, mod, ir.NameFromString(name))
}

func (c *Context) buildExposed(exp parser.Exposing) error {
	if exp.All {
		c.exposed = c.local
		c.exposedCtO = c.ctorOwners
		return nil
	}
	c.exposed = ir.NewVisibleNames()
	c.exposedCtO = map[string]string{}
	for _, item := range exp.Items {
		if isUpperName(item.Name) {
			fq, ok := c.local.Lookup(ir.KindType, item.Name)
			if !ok {
				return &Error{
					Module: c.modPath,
					Kind:   ir.KindType,
					Name:   item.Name,
					Reason: ReasonExposesUnknown,
					Pos:    item.Pos,
				}
			}
			c.exposed.Add(ir.KindType, item.Name, fq)
			if item.OpenCtors {
				for _, ctor := range c.typeCtors[item.Name] {
					cfq, _ := c.local.Lookup(ir.KindCtor, ctor)
					c.exposed.Add(ir.KindCtor, ctor, cfq)
					c.exposedCtO[ctor] = item.Name
				}
			}
			continue
		}
		fq, ok := c.local.Lookup(ir.KindValue, item.Name)
		if !ok {
			return &Error{
				Module: c.modPath,
				Kind:   ir.KindValue,
				Name:   item.Name,
				Reason: ReasonExposesUnknown,
				Pos:    item.Pos,
			}
		}
		c.exposed.Add(ir.KindValue, item.Name, fq)
	}
	return nil
}

func (c *Context) buildImport(imp parser.Import, implicit bool, exports Exporter) (importEntry, error) {
	path := strings.Join(imp.Module, ".")
	target, ok := exports.ModuleExports(path)
	if !ok {
		return importEntry{}, &Error{
			Module: c.modPath,
			Name:   path,
			Reason: ReasonUnknownModule,
			Pos:    imp.Pos,
		}
	}
	entry := importEntry{
		path:     path,
		alias:    imp.Alias,
		visible:  target.Names,
		unqual:   ir.NewVisibleNames(),
		implicit: implicit,
		pos:      imp.Pos,
	}
	if imp.Exposing == nil {
		return entry, nil
	}
	if imp.Exposing.All {
		entry.unqual = target.Names
		return entry, nil
	}
	for _, item := range imp.Exposing.Items {
		if isUpperName(item.Name) {
			fq, ok := target.Names.Lookup(ir.KindType, item.Name)
			if !ok {
				return importEntry{}, &Error{
					Module:    c.modPath,
					Kind:      ir.KindType,
					Qualifier: path,
					Name:      item.Name,
					Reason:    ReasonNotExposed,
					Pos:       item.Pos,
				}
			}
			entry.unqual.Add(ir.KindType, item.Name, fq)
			if item.OpenCtors {
				for ctor, owner := range target.CtorOwners {
					if owner != item.Name {
						continue
					}
					if cfq, ok := target.Names.Lookup(ir.KindCtor, ctor); ok {
						entry.unqual.Add(ir.KindCtor, ctor, cfq)
					}
				}
			}
			continue
		}
		fq, ok := target.Names.Lookup(ir.KindValue, item.Name)
		if !ok {
			// Operators live in the constructor namespace when they
			// construct (List cons); try that before giving up.
			if cfq, cok := target.Names.Lookup(ir.KindCtor, item.Name); cok {
				entry.unqual.Add(ir.KindCtor, item.Name, cfq)
				continue
			}
			return importEntry{}, &Error{
				Module:    c.modPath,
				Kind:      ir.KindValue,
				Qualifier: path,
				Name:      item.Name,
				Reason:    ReasonNotExposed,
				Pos:       item.Pos,
			}
		}
		entry.unqual.Add(ir.KindValue, item.Name, fq)
	}
	return entry, nil
}

// ModulePath returns the dotted path of the module this context resolves.
func (c *Context) ModulePath() string { return c.modPath }

// Exposed returns the module's filtered export surface, ready to be stored
// for later builds to import.
func (c *Context) Exposed() Exports {
	return Exports{Names: c.exposed, CtorOwners: c.exposedCtO}
}

// ImportPaths returns the distinct target paths of the module's explicit
// imports, in declaration order.
func (c *Context) ImportPaths() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, imp := range c.imports {
		if imp.implicit {
			continue
		}
		if _, ok := seen[imp.path]; ok {
			continue
		}
		seen[imp.path] = struct{}{}
		out = append(out, imp.path)
	}
	return out
}

func isUpperName(s string) bool {
	if s == "" {
		return false
	}
	r := rune(s[0])
	return r >= 'A' && r <= 'Z'
}
