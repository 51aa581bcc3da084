package graph

import "fmt"

// CycleError reports the edge whose insertion would have closed a cycle.
// The graph it was returned from is unchanged.
type CycleError[K comparable] struct {
	From K
	To   K
}

func (e *CycleError[K]) Error() string {
	return fmt.Sprintf("dependency cycle: edge %v -> %v closes a loop", e.From, e.To)
}

// reaches reports whether target is reachable from start over the stored
// edges plus the staged ones of an in-flight insertion.
func (g *Graph[K]) reaches(start, target K, staged map[K]map[K]struct{}) bool {
	if start == target {
		return true
	}
	visited := map[K]struct{}{start: {}}
	stack := []K{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := func(n K) bool {
			if n == target {
				return true
			}
			if _, ok := visited[n]; !ok {
				visited[n] = struct{}{}
				stack = append(stack, n)
			}
			return false
		}
		if n, ok := g.nodes[cur]; ok {
			for d := range n.deps {
				if next(d) {
					return true
				}
			}
		}
		for d := range staged[cur] {
			if next(d) {
				return true
			}
		}
	}
	return false
}

// Path returns one dependency chain from one node to another, both ends
// included, or nil when no chain exists. Useful for explaining why a cycle
// was rejected: Path(e.To, e.From) is the existing chain the refused edge
// would have closed.
func (g *Graph[K]) Path(from, to K) []K {
	if _, ok := g.nodes[from]; !ok {
		return nil
	}
	if from == to {
		return []K{from}
	}
	parent := map[K]K{}
	visited := map[K]struct{}{from: {}}
	queue := []K{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.DependsOn(cur) {
			if _, ok := visited[d]; ok {
				continue
			}
			visited[d] = struct{}{}
			parent[d] = cur
			if d == to {
				chain := []K{to}
				for p := cur; ; p = parent[p] {
					chain = append([]K{p}, chain...)
					if p == from {
						return chain
					}
				}
			}
			queue = append(queue, d)
		}
	}
	return nil
}
