// Package graph builds the type graph over relation-type keys and finds
// relation chains in it.
package graph

import (
	"sort"

	"github.com/brunobiangulo/gosquit/bank"
)

// Edge is an outgoing edge of a TypeGraph node.
type Edge struct {
	To  string
	Key bank.Key
}

// TypeGraph is a directed graph whose nodes are entity types and whose edges
// are relation-type keys. Neighbour order is edge insertion order.
type TypeGraph struct {
	adj   map[string][]Edge
	index map[[2]string]bool
}

func newTypeGraph() *TypeGraph {
	return &TypeGraph{
		adj:   make(map[string][]Edge),
		index: make(map[[2]string]bool),
	}
}

// addEdge adds from->to labelled key. A second edge between the same
// ordered pair relabels the first instead of duplicating it.
func (g *TypeGraph) addEdge(from, to string, key bank.Key) {
	if _, ok := g.adj[to]; !ok {
		g.adj[to] = nil
	}
	if g.index[[2]string{from, to}] {
		for i, e := range g.adj[from] {
			if e.To == to {
				g.adj[from][i].Key = key
			}
		}
		return
	}
	g.index[[2]string{from, to}] = true
	g.adj[from] = append(g.adj[from], Edge{To: to, Key: key})
}

// Neighbors returns the outgoing edges of node.
func (g *TypeGraph) Neighbors(node string) []Edge {
	return g.adj[node]
}

// HasNode reports whether node appears in the graph.
func (g *TypeGraph) HasNode(node string) bool {
	_, ok := g.adj[node]
	return ok
}

// EdgeKey returns the key labelling from->to.
func (g *TypeGraph) EdgeKey(from, to string) (bank.Key, bool) {
	for _, e := range g.adj[from] {
		if e.To == to {
			return e.Key, true
		}
	}
	return "", false
}

// Nodes returns all node names in sorted order.
func (g *TypeGraph) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for n := range g.adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// EdgeCount returns the number of edges.
func (g *TypeGraph) EdgeCount() int {
	return len(g.index)
}

// Graphs pairs the forward type graph with its edge-reversed counterpart.
// An edge a->b labelled k exists in Forward iff b->a labelled k exists in
// Reverse.
type Graphs struct {
	Forward *TypeGraph
	Reverse *TypeGraph
}

// Build constructs the forward and reverse graphs from relation-type keys.
// Both are read-only once returned.
func Build(keys []bank.Key) *Graphs {
	g := &Graphs{Forward: newTypeGraph(), Reverse: newTypeGraph()}
	for _, k := range keys {
		subject, object := k.Subject(), k.Object()
		g.Forward.addEdge(subject, object, k)
		g.Reverse.addEdge(object, subject, k)
	}
	return g
}
