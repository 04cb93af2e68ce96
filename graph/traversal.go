package graph

import (
	"math/rand/v2"
	"sync"

	"github.com/brunobiangulo/gosquit/bank"
)

// Path is a chain of relation-type keys and the node it ends on.
type Path struct {
	Keys []bank.Key
	End  string
}

func (p Path) clone() Path {
	keys := make([]bank.Key, len(p.Keys))
	copy(keys, p.Keys)
	return Path{Keys: keys, End: p.End}
}

// Traverse returns every path of exactly steps edges starting at node,
// following all outgoing edges at each step. Cycles are not pruned; a type
// relating to itself is a valid chain segment. steps == 0 yields the single
// empty path ending at node.
func Traverse(g *TypeGraph, node string, steps int) []Path {
	if steps < 0 {
		return nil
	}
	var out []Path
	keys := make([]bank.Key, 0, steps)
	var walk func(at string, depth int)
	walk = func(at string, depth int) {
		if depth == steps {
			p := make([]bank.Key, len(keys))
			copy(p, keys)
			out = append(out, Path{Keys: p, End: at})
			return
		}
		for _, e := range g.Neighbors(at) {
			keys = append(keys, e.Key)
			walk(e.To, depth+1)
			keys = keys[:len(keys)-1]
		}
	}
	walk(node, 0)
	return out
}

// Meeting is a pair of chains that end on a shared intermediate type. Both
// chains read from their start entity towards Via.
type Meeting struct {
	Forward  []bank.Key
	Backward []bank.Key
	Via      string
}

type cacheKey struct {
	reverse bool
	node    string
	steps   int
}

// Traverser runs traversals over a pair of type graphs and memoises the
// unidirectional results. It is safe for concurrent use.
type Traverser struct {
	graphs  *Graphs
	exclude map[string]bool

	mu    sync.Mutex
	cache map[cacheKey][]Path
}

// NewTraverser returns a Traverser over graphs. A nil exclude uses
// DefaultExclusions.
func NewTraverser(graphs *Graphs, exclude map[string]bool) *Traverser {
	if exclude == nil {
		exclude = DefaultExclusions()
	}
	return &Traverser{
		graphs:  graphs,
		exclude: exclude,
		cache:   make(map[cacheKey][]Path),
	}
}

// Graphs returns the graphs the traverser walks.
func (t *Traverser) Graphs() *Graphs {
	return t.graphs
}

// Excluded reports whether typ is barred as a bridging node.
func (t *Traverser) Excluded(typ string) bool {
	return t.exclude[typ]
}

// Traverse is the memoised form of Traverse over the forward graph. The
// returned paths are owned by the caller.
func (t *Traverser) Traverse(node string, steps int) []Path {
	return t.traverse(false, node, steps)
}

func (t *Traverser) traverse(reverse bool, node string, steps int) []Path {
	k := cacheKey{reverse: reverse, node: node, steps: steps}

	t.mu.Lock()
	paths, ok := t.cache[k]
	t.mu.Unlock()

	if !ok {
		g := t.graphs.Forward
		if reverse {
			g = t.graphs.Reverse
		}
		paths = Traverse(g, node, steps)
		t.mu.Lock()
		t.cache[k] = paths
		t.mu.Unlock()
	}

	out := make([]Path, len(paths))
	for i, p := range paths {
		out[i] = p.clone()
	}
	return out
}

// Meet looks for a chain of fLen keys from start and a chain of bLen keys
// from end that reach the same intermediate type. Forward candidates are
// shuffled and tried in turn, skipping excluded intermediates; for each, the
// shuffled backward chains over the reverse graph are scanned for one that
// arrives at end. The first match is returned with its backward chain
// reversed so that it reads from end towards the intermediate. ok is false
// when every forward candidate is exhausted.
func (t *Traverser) Meet(rng *rand.Rand, start, end string, fLen, bLen int) (Meeting, bool) {
	forward := t.traverse(false, start, fLen)
	rng.Shuffle(len(forward), func(i, j int) { forward[i], forward[j] = forward[j], forward[i] })

	for _, f := range forward {
		if t.exclude[f.End] {
			continue
		}
		backward := t.traverse(true, f.End, bLen)
		rng.Shuffle(len(backward), func(i, j int) { backward[i], backward[j] = backward[j], backward[i] })
		for _, b := range backward {
			if b.End != end {
				continue
			}
			return Meeting{Forward: f.Keys, Backward: reversed(b.Keys), Via: f.End}, true
		}
	}
	return Meeting{}, false
}

// MeetAll is the diagnostic form of Meet: it collects every matching pair in
// enumeration order instead of stopping at the first. It is used to estimate
// how many distinct typed skeletons a bank supports.
func (t *Traverser) MeetAll(start, end string, fLen, bLen int) []Meeting {
	var out []Meeting
	for _, f := range t.traverse(false, start, fLen) {
		if t.exclude[f.End] {
			continue
		}
		for _, b := range t.traverse(true, f.End, bLen) {
			if b.End == end {
				out = append(out, Meeting{Forward: f.Keys, Backward: reversed(b.Keys), Via: f.End})
			}
		}
	}
	return out
}

func reversed(keys []bank.Key) []bank.Key {
	out := make([]bank.Key, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k
	}
	return out
}
