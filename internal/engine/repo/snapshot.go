package repo

import (
	"encoding/json"
	"fmt"

	"loom/internal/engine/ir"
)

// Snapshot and Restore round-trip the whole repository through JSON. The
// encoding is deterministic (slices keep stored order, maps marshal with
// sorted keys), so two repositories with identical contents produce
// identical bytes. The history store persists these blobs.

type repoSnapshot struct {
	Package string           `json:"package"`
	Deps    []PackageSpec    `json:"deps,omitempty"`
	Modules []moduleSnapshot `json:"modules,omitempty"`
}

type moduleSnapshot struct {
	Name       string            `json:"name"`
	Imports    []string          `json:"imports,omitempty"`
	Exposed    ir.VisibleNames   `json:"exposed"`
	CtorOwners map[string]string `json:"ctorOwners,omitempty"`
	Types      []declSnapshot    `json:"types,omitempty"`
	Values     []declSnapshot    `json:"values,omitempty"`
}

type declSnapshot struct {
	Name ir.Name         `json:"name"`
	Def  json.RawMessage `json:"def"`
}

func (r *Repository) Snapshot() ([]byte, error) {
	snap := repoSnapshot{Package: r.pkg}
	for _, pkg := range r.depOrder {
		snap.Deps = append(snap.Deps, r.deps[pkg].spec)
	}
	for _, path := range r.order {
		m := r.modules[path]
		ms := moduleSnapshot{
			Name:       path,
			Imports:    m.imports,
			Exposed:    m.exposed,
			CtorOwners: m.ctorOwners,
		}
		for _, t := range m.types {
			raw, err := ir.MarshalTypeDefinition(t.Def)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s type %s: %w", path, t.Name, err)
			}
			ms.Types = append(ms.Types, declSnapshot{Name: t.Name, Def: raw})
		}
		for _, v := range m.values {
			raw, err := ir.MarshalValueDefinition(v.Def)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s value %s: %w", path, v.Name, err)
			}
			ms.Values = append(ms.Values, declSnapshot{Name: v.Name, Def: raw})
		}
		snap.Modules = append(snap.Modules, ms)
	}
	return json.Marshal(&snap)
}

// Restore rebuilds a repository from Snapshot output. Definitions were
// validated when first inserted, so they are appended without re-running
// the reference checks; module order in the blob is registration order,
// which replacement updates can leave out of dependency order.
func Restore(data []byte) (*Repository, error) {
	var snap repoSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode repository snapshot: %w", err)
	}
	if snap.Package == "" {
		return nil, fmt.Errorf("repository snapshot without package name")
	}
	r := &Repository{
		pkg:     snap.Package,
		modules: map[string]*Module{},
		deps:    map[string]*depIndex{},
	}
	for _, spec := range snap.Deps {
		if err := r.AddDependency(spec); err != nil {
			return nil, fmt.Errorf("restore dependency %s: %w", spec.Package, err)
		}
	}
	for _, ms := range snap.Modules {
		mn, err := ir.ParseModuleName(ms.Name)
		if err != nil {
			return nil, fmt.Errorf("restore module %q: %w", ms.Name, err)
		}
		r.ReplaceModule(ModuleInfo{
			Name:       mn,
			Imports:    ms.Imports,
			Exposed:    ms.Exposed,
			CtorOwners: ms.CtorOwners,
		})
		m := r.modules[ms.Name]
		for _, ts := range ms.Types {
			def, err := ir.UnmarshalTypeDefinition(ts.Def)
			if err != nil {
				return nil, fmt.Errorf("restore %s type %s: %w", ms.Name, ts.Name, err)
			}
			m.appendType(NamedType{Name: ts.Name, Def: def})
		}
		for _, vs := range ms.Values {
			def, err := ir.UnmarshalValueDefinition(vs.Def)
			if err != nil {
				return nil, fmt.Errorf("restore %s value %s: %w", ms.Name, vs.Name, err)
			}
			m.appendValue(NamedValue{Name: vs.Name, Def: def})
		}
	}
	return r, nil
}
