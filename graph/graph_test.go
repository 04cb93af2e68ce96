package graph_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gosquit/bank"
	"github.com/brunobiangulo/gosquit/bank/banktest"
	"github.com/brunobiangulo/gosquit/graph"
)

func fixtureGraphs(t *testing.T) *graph.Graphs {
	t.Helper()
	return graph.Build(banktest.New().Keys())
}

func ends(paths []graph.Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.End
	}
	return out
}

func TestBuildMirrorsEdges(t *testing.T) {
	g := fixtureGraphs(t)

	assert.Equal(t, 10, g.Forward.EdgeCount())
	assert.Equal(t, 10, g.Reverse.EdgeCount())
	assert.Equal(t, g.Forward.Nodes(), g.Reverse.Nodes())
	assert.Len(t, g.Forward.Nodes(), 9)

	for _, from := range g.Forward.Nodes() {
		for _, e := range g.Forward.Neighbors(from) {
			k, ok := g.Reverse.EdgeKey(e.To, from)
			require.True(t, ok, "reverse of %s->%s missing", from, e.To)
			assert.Equal(t, e.Key, k)
			assert.Equal(t, bank.NewKey(from, e.To), e.Key)
		}
	}

	// Sink types are nodes even without outgoing edges.
	assert.True(t, g.Forward.HasNode("country"))
	assert.Empty(t, g.Forward.Neighbors("country"))
	assert.False(t, g.Forward.HasNode("galaxy"))
}

func TestTraverse(t *testing.T) {
	g := fixtureGraphs(t)

	zero := graph.Traverse(g.Forward, "person", 0)
	require.Len(t, zero, 1)
	assert.Empty(t, zero[0].Keys)
	assert.Equal(t, "person", zero[0].End)

	one := graph.Traverse(g.Forward, "person", 1)
	assert.Equal(t, []string{"award", "image", "location", "person", "weight"}, ends(one))

	two := graph.Traverse(g.Forward, "person", 2)
	assert.Equal(t, []string{"country", "award", "image", "location", "person", "weight"}, ends(two))
	assert.Equal(t, []bank.Key{"person->location", "location->country"}, two[0].Keys)

	// person->person loops back on itself.
	for _, p := range two[1:] {
		assert.Equal(t, bank.Key("person->person"), p.Keys[0])
	}

	assert.Empty(t, graph.Traverse(g.Forward, "country", 1))
	assert.Empty(t, graph.Traverse(g.Forward, "galaxy", 1))
	assert.Nil(t, graph.Traverse(g.Forward, "person", -1))
}

func TestTraverseChainsAreConnected(t *testing.T) {
	g := fixtureGraphs(t)
	for steps := 1; steps <= 4; steps++ {
		for _, p := range graph.Traverse(g.Forward, "movie", steps) {
			require.Len(t, p.Keys, steps)
			assert.Equal(t, "movie", p.Keys[0].Subject())
			for i := 1; i < len(p.Keys); i++ {
				assert.Equal(t, p.Keys[i-1].Object(), p.Keys[i].Subject())
			}
			assert.Equal(t, p.End, p.Keys[len(p.Keys)-1].Object())
		}
	}
}

func TestTraverserReturnsCopies(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), nil)

	first := tr.Traverse("person", 2)
	first[0].Keys[0] = "mutated->key"
	first[0].End = "mutated"

	second := tr.Traverse("person", 2)
	assert.Equal(t, bank.Key("person->location"), second[0].Keys[0])
	assert.Equal(t, "country", second[0].End)
}

func TestTraverserConcurrentUse(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed))
			for j := 0; j < 20; j++ {
				tr.Traverse("person", 3)
				tr.Meet(rng, "person", "movie", 1, 1)
			}
		}(uint64(i))
	}
	wg.Wait()
}

func TestMeetAll(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), nil)

	got := tr.MeetAll("person", "movie", 1, 1)
	require.Len(t, got, 2)
	assert.Equal(t, graph.Meeting{
		Forward:  []bank.Key{"person->award"},
		Backward: []bank.Key{"movie->award"},
		Via:      "award",
	}, got[0])
	assert.Equal(t, graph.Meeting{
		Forward:  []bank.Key{"person->person"},
		Backward: []bank.Key{"movie->person"},
		Via:      "person",
	}, got[1])

	// image is an excluded bridge.
	for _, m := range tr.MeetAll("person", "person", 1, 1) {
		assert.NotEqual(t, "image", m.Via)
	}
	assert.Len(t, tr.MeetAll("person", "person", 1, 1), 4)
}

func TestMeetAllReversesBackwardChain(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), nil)

	got := tr.MeetAll("person", "literary_work", 1, 2)
	require.Len(t, got, 4)
	assert.Equal(t, []bank.Key{"person->award"}, got[0].Forward)
	assert.Equal(t, []bank.Key{"literary_work->person", "person->award"}, got[0].Backward)

	for _, m := range got {
		assert.Equal(t, "literary_work", m.Backward[0].Subject())
		assert.Equal(t, m.Via, m.Backward[len(m.Backward)-1].Object())
		assert.Equal(t, m.Via, m.Forward[len(m.Forward)-1].Object())
	}
}

func TestMeet(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), nil)
	all := tr.MeetAll("person", "movie", 1, 1)

	rng := rand.New(rand.NewPCG(11, 12))
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		m, ok := tr.Meet(rng, "person", "movie", 1, 1)
		require.True(t, ok)
		assert.Contains(t, all, m)
		seen[m.Via] = true
	}
	assert.Len(t, seen, 2, "both bridges should be drawn")
}

func TestMeetFailures(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), nil)
	rng := rand.New(rand.NewPCG(1, 1))

	// movie is both the only forward end and an excluded bridge.
	_, ok := tr.Meet(rng, "movie", "person", 0, 1)
	assert.False(t, ok)

	// No bridge one hop from person is one hop from country.
	_, ok = tr.Meet(rng, "person", "country", 1, 1)
	assert.False(t, ok)

	_, ok = tr.Meet(rng, "galaxy", "person", 1, 1)
	assert.False(t, ok)
}

func TestCustomExclusions(t *testing.T) {
	tr := graph.NewTraverser(fixtureGraphs(t), graph.ExclusionSet([]string{}))
	assert.False(t, tr.Excluded("movie"))

	// With no exclusions, movie bridges to itself with zero-length chains.
	got := tr.MeetAll("movie", "movie", 0, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "movie", got[0].Via)
	assert.Empty(t, got[0].Forward)

	assert.True(t, graph.NewTraverser(fixtureGraphs(t), nil).Excluded("movie"))
}

func TestComponents(t *testing.T) {
	g := graph.Build([]bank.Key{"a->b", "c->d", "e->d", "d->c"})
	assert.Equal(t, [][]string{{"c", "d", "e"}, {"a", "b"}}, graph.Components(g.Forward))

	all := graph.Components(fixtureGraphs(t).Forward)
	require.Len(t, all, 1)
	assert.Len(t, all[0], 9)

	assert.Nil(t, graph.Components(graph.Build(nil).Forward))
}

func TestReachable(t *testing.T) {
	g := fixtureGraphs(t)
	assert.Nil(t, graph.Reachable(g.Forward, "galaxy"))
	assert.Equal(t, []string{"country", "location"}, graph.Reachable(g.Forward, "location"))
	assert.Equal(t, []string{"award", "country", "image", "location", "person", "weight"}, graph.Reachable(g.Forward, "person"))
	assert.Equal(t, []string{"literary_work", "movie", "person", "television_series"}, graph.Reachable(g.Reverse, "person"))
}
