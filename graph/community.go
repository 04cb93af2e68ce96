package graph

import "sort"

// Components returns the weakly connected components of g. Each component
// is sorted, and components are ordered by size descending, then by their
// first node. Types in different components can never share a two-entity
// question.
func Components(g *TypeGraph) [][]string {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	// Undirected adjacency over node indices.
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n] = i
	}
	adj := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, e := range g.Neighbors(n) {
			j := idx[e.To]
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	}

	// --- connected components via BFS ---
	visited := make([]bool, len(nodes))
	var components [][]string
	for i := range nodes {
		if visited[i] {
			continue
		}
		var comp []string
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			comp = append(comp, nodes[node])
			for _, to := range adj[node] {
				if !visited[to] {
					visited[to] = true
					queue = append(queue, to)
				}
			}
		}
		sort.Strings(comp)
		components = append(components, comp)
	}

	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}

// Reachable returns the sorted set of types reachable from start in g,
// start included when it is a node of g.
func Reachable(g *TypeGraph, start string) []string {
	if !g.HasNode(start) {
		return nil
	}
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range g.Neighbors(node) {
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
