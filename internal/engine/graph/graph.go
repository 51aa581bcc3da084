// Package graph provides the dependency graph the build pipeline orders
// modules, types and values with. The graph rejects any edge that would
// close a cycle at insertion time, so every stored graph is acyclic and
// ordering can never fail.
package graph

import "sort"

// Graph is a directed acyclic graph over comparable node keys. An edge
// from -> to means "from depends on to". The zero value is not usable; call
// New.
type Graph[K comparable] struct {
	nodes map[K]*node[K]
	order []K // node registration order, the tie-breaker for Levels
}

type node[K comparable] struct {
	seq   int
	deps  map[K]struct{}
	rdeps map[K]struct{}
}

func New[K comparable]() *Graph[K] {
	return &Graph[K]{nodes: make(map[K]*node[K])}
}

// InsertNode registers id together with edges to each of deps. Unknown
// dependencies are registered as leaf nodes. Re-inserting an existing id
// merges the new edges into it. The call is all-or-nothing: when any edge
// would close a cycle the graph is left exactly as it was and a CycleError
// is returned.
func (g *Graph[K]) InsertNode(id K, deps ...K) error {
	staged := make(map[K]map[K]struct{})
	for _, d := range deps {
		if d == id {
			return &CycleError[K]{From: id, To: d}
		}
		if g.hasEdge(id, d) || stagedHas(staged, id, d) {
			continue
		}
		if g.reaches(d, id, staged) {
			return &CycleError[K]{From: id, To: d}
		}
		stagedAdd(staged, id, d)
	}
	n := g.ensure(id)
	for _, d := range deps {
		if _, ok := n.deps[d]; ok {
			continue
		}
		dn := g.ensure(d)
		n.deps[d] = struct{}{}
		dn.rdeps[id] = struct{}{}
	}
	return nil
}

// InsertEdge adds a single dependency edge, registering either endpoint if
// needed. Same cycle contract as InsertNode.
func (g *Graph[K]) InsertEdge(from, to K) error {
	return g.InsertNode(from, to)
}

// Contains reports whether id is a registered node.
func (g *Graph[K]) Contains(id K) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of registered nodes.
func (g *Graph[K]) Len() int { return len(g.nodes) }

// Nodes returns all node keys in registration order.
func (g *Graph[K]) Nodes() []K {
	out := make([]K, len(g.order))
	copy(out, g.order)
	return out
}

// DependsOn returns the direct dependencies of id, ordered by their own
// registration order.
func (g *Graph[K]) DependsOn(id K) []K {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return g.sortedKeys(n.deps)
}

// Dependents returns the nodes with an edge pointing at id, ordered by
// their own registration order.
func (g *Graph[K]) Dependents(id K) []K {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return g.sortedKeys(n.rdeps)
}

// Levels returns the layered topological order: every node appears exactly
// once, each layer only depends on earlier layers, and nodes inside one
// layer keep their registration order. The graph is acyclic by
// construction, so Levels cannot fail.
func (g *Graph[K]) Levels() [][]K {
	remaining := make(map[K]int, len(g.nodes))
	for id, n := range g.nodes {
		remaining[id] = len(n.deps)
	}
	done := make(map[K]struct{}, len(g.nodes))
	var levels [][]K
	for len(done) < len(g.order) {
		var layer []K
		for _, id := range g.order {
			if _, ok := done[id]; ok {
				continue
			}
			if remaining[id] == 0 {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			break
		}
		for _, id := range layer {
			done[id] = struct{}{}
			for r := range g.nodes[id].rdeps {
				remaining[r]--
			}
		}
		levels = append(levels, layer)
	}
	return levels
}

// Flatten returns Levels collapsed into a single slice.
func (g *Graph[K]) Flatten() []K {
	var out []K
	for _, layer := range g.Levels() {
		out = append(out, layer...)
	}
	return out
}

func (g *Graph[K]) ensure(id K) *node[K] {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node[K]{
		seq:   len(g.order),
		deps:  make(map[K]struct{}),
		rdeps: make(map[K]struct{}),
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

func (g *Graph[K]) hasEdge(from, to K) bool {
	n, ok := g.nodes[from]
	if !ok {
		return false
	}
	_, ok = n.deps[to]
	return ok
}

func (g *Graph[K]) sortedKeys(set map[K]struct{}) []K {
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.nodes[out[i]].seq < g.nodes[out[j]].seq
	})
	return out
}

func stagedAdd[K comparable](staged map[K]map[K]struct{}, from, to K) {
	m, ok := staged[from]
	if !ok {
		m = make(map[K]struct{})
		staged[from] = m
	}
	m[to] = struct{}{}
}

func stagedHas[K comparable](staged map[K]map[K]struct{}, from, to K) bool {
	m, ok := staged[from]
	if !ok {
		return false
	}
	_, ok = m[to]
	return ok
}
