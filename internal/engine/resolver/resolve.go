package resolver

import (
	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
)

// Resolve turns one reference into a fully qualified name. Precedence:
//
//   - No qualifier, or the module's own path as qualifier: local
//     declarations win outright.
//   - Unqualified and not local: names the explicit imports expose
//     unqualified, then the implicit standard imports. Either step fails
//     with an ambiguity error when two imports offer different targets for
//     the same spelling.
//   - Qualified: only explicit imports answer, matched by alias or full
//     path. The implicit standard imports never answer a qualified
//     reference.
//
// Each namespace resolves independently; a type and a value may share a
// spelling without contact.
func (c *Context) Resolve(kind ir.NameKind, qual, name string, pos parser.Pos) (ir.FQName, error) {
	if qual == "" || qual == c.modPath {
		if fq, ok := c.local.Lookup(kind, name); ok {
			return fq, nil
		}
		if qual != "" {
			return ir.FQName{}, &Error{
				Module:    c.modPath,
				Kind:      kind,
				Qualifier: qual,
				Name:      name,
				Reason:    ReasonNotExposed,
				Pos:       pos,
			}
		}
		return c.resolveUnqualified(kind, name, pos)
	}
	return c.resolveQualified(kind, qual, name, pos)
}

func (c *Context) resolveUnqualified(kind ir.NameKind, name string, pos parser.Pos) (ir.FQName, error) {
	if fq, ok, err := c.scanUnqualified(kind, name, pos, false); ok || err != nil {
		return fq, err
	}
	if fq, ok, err := c.scanUnqualified(kind, name, pos, true); ok || err != nil {
		return fq, err
	}
	return ir.FQName{}, &Error{
		Module: c.modPath,
		Kind:   kind,
		Name:   name,
		Reason: ReasonUnresolved,
		Pos:    pos,
	}
}

// scanUnqualified walks one tier of imports. Two imports offering the same
// target for a spelling collapse into one candidate; distinct targets make
// the reference ambiguous.
func (c *Context) scanUnqualified(kind ir.NameKind, name string, pos parser.Pos, implicit bool) (ir.FQName, bool, error) {
	var (
		found  ir.FQName
		origin []string
		hit    bool
	)
	for _, imp := range c.imports {
		if imp.implicit != implicit {
			continue
		}
		fq, ok := imp.unqual.Lookup(kind, name)
		if !ok {
			continue
		}
		if hit && fq != found {
			return ir.FQName{}, false, &Error{
				Module:     c.modPath,
				Kind:       kind,
				Name:       name,
				Reason:     ReasonAmbiguous,
				Pos:        pos,
				Candidates: append(origin, imp.path),
			}
		}
		if !hit {
			found, hit = fq, true
			origin = []string{imp.path}
		}
	}
	return found, hit, nil
}

func (c *Context) resolveQualified(kind ir.NameKind, qual, name string, pos parser.Pos) (ir.FQName, error) {
	var (
		match *importEntry
		paths []string
	)
	for i := range c.imports {
		imp := &c.imports[i]
		if imp.implicit {
			continue
		}
		if imp.alias != qual && imp.path != qual {
			continue
		}
		if match != nil && match.path != imp.path {
			return ir.FQName{}, &Error{
				Module:     c.modPath,
				Kind:       kind,
				Qualifier:  qual,
				Name:       name,
				Reason:     ReasonAmbiguous,
				Pos:        pos,
				Candidates: append(paths, imp.path),
			}
		}
		if match == nil {
			match = imp
			paths = []string{imp.path}
		}
	}
	if match == nil {
		return ir.FQName{}, &Error{
			Module:    c.modPath,
			Kind:      kind,
			Qualifier: qual,
			Name:      name,
			Reason:    ReasonUnknownQualifier,
			Pos:       pos,
		}
	}
	fq, ok := match.visible.Lookup(kind, name)
	if !ok {
		return ir.FQName{}, &Error{
			Module:    c.modPath,
			Kind:      kind,
			Qualifier: match.path,
			Name:      name,
			Reason:    ReasonNotExposed,
			Pos:       pos,
		}
	}
	return fq, nil
}
