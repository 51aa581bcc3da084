package frontend

import (
	"sort"

	"loom/internal/core/errors"
	"loom/internal/engine/graph"
	"loom/internal/engine/ir"
	"loom/internal/engine/repo"
)

// orderModules arranges the changed modules dependencies-first. Only edges
// between two changeset modules matter: everything else is either already in
// the repository or supplied by a dependency package before the fold runs.
// A module importing itself counts as a cycle.
func orderModules(changes []change) ([]string, error) {
	members := map[string]bool{}
	for _, c := range changes {
		if c.kind != ChangeDelete {
			members[c.module] = true
		}
	}

	g := graph.New[string]()
	for _, c := range changes {
		if c.kind == ChangeDelete {
			continue
		}
		var deps []string
		for _, imp := range c.ast.Imports {
			if target := ir.ModuleName(imp.Module).String(); members[target] {
				deps = append(deps, target)
			}
		}
		if err := g.InsertNode(c.module, deps...); err != nil {
			return nil, err
		}
	}
	return g.Flatten(), nil
}

// orderDecls orders one module's declarations so every same-module reference
// points at an earlier slot. References to other modules or to the
// declaration itself never form edges; recursion is legal.
func orderDecls(pkg, module string, names []string, refs map[string][]ir.FQName) ([]string, error) {
	declared := map[string]bool{}
	for _, n := range names {
		declared[n] = true
	}

	g := graph.New[string]()
	for _, n := range names {
		var deps []string
		for _, fq := range refs[n] {
			if fq.Package != pkg || fq.Module != module || fq.Name == n {
				continue
			}
			if declared[fq.Name] {
				deps = append(deps, fq.Name)
			}
		}
		if err := g.InsertNode(n, deps...); err != nil {
			return nil, err
		}
	}
	return g.Flatten(), nil
}

// deletionOrder removes dependents before their dependencies so the
// repository's own dependent check cannot fire halfway through a batch of
// deletions.
func deletionOrder(r *repo.Repository, deleted map[string]bool) ([]string, error) {
	if len(deleted) == 0 {
		return nil, nil
	}
	paths := make([]string, 0, len(deleted))
	for p := range deleted {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	g := graph.New[string]()
	for _, p := range paths {
		m, ok := r.Module(p)
		if !ok {
			continue
		}
		var deps []string
		for _, imp := range m.Imports() {
			if deleted[imp] {
				deps = append(deps, imp)
			}
		}
		if err := g.InsertNode(p, deps...); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "stored imports of deleted modules form a cycle")
		}
	}

	order := g.Flatten()
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
