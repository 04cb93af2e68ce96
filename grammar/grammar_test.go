package grammar_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gosquit/grammar"
)

func TestExpandSingleEntityShallow(t *testing.T) {
	g := grammar.Default().Single.Grammar

	assert.Empty(t, g.Expand(3))

	want := []string{"[WH] is [THING] ?", "[WH] was [THING] ?"}
	if diff := cmp.Diff(want, g.Expand(4)); diff != "" {
		t.Errorf("depth 4 (-want +got):\n%s", diff)
	}

	want = []string{
		"[WH] is [THING] ?",
		"[WH] is [THING] 's [NOUN] ?",
		"[WH] is the [NOUN] of [THING] ?",
		"[WH] is [THING] [VERB-ADP] ?",
		"[WH] was [THING] ?",
		"[WH] was [THING] 's [NOUN] ?",
		"[WH] was the [NOUN] of [THING] ?",
		"[WH] was [THING] [VERB-ADP] ?",
	}
	if diff := cmp.Diff(want, g.Expand(5)); diff != "" {
		t.Errorf("depth 5 (-want +got):\n%s", diff)
	}
}

func TestExpandMultiEntity(t *testing.T) {
	got := grammar.Default().Multi.Expand()
	require.Len(t, got, 18)
	assert.Equal(t, "Is [THING] [SEP] the [NOUN] of [THING] ?", got[0])
	assert.Equal(t, "Was the [NOUN] of [THING] [SEP] the [NOUN] of the [NOUN] of [THING] ?", got[17])
	for _, s := range got {
		assert.Equal(t, 1, strings.Count(s, "[SEP]"), s)
		assert.Equal(t, 2, strings.Count(s, "[THING]"), s)
	}
}

func TestExpandCountDropsDuplicateDerivations(t *testing.T) {
	got := grammar.Default().Count.Expand()

	// "the [NOUN] of [THING] 's [NOUN]" derives two ways at this depth.
	require.Len(t, got, 12)
	assert.Equal(t, "[WH] is the number of [NOUN] of [THING] ?", got[0])
	assert.Equal(t, "How many [NOUN] does [THING] have ?", got[6])
	assert.Equal(t, "How many [NOUN] does the [NOUN] of the [NOUN] of [THING] have ?", got[11])

	seen := map[string]bool{}
	for _, s := range got {
		assert.False(t, seen[s], "duplicate %q", s)
		seen[s] = true
	}
}

func TestExpandDefaultSingleEntity(t *testing.T) {
	got := grammar.Default().Single.Expand()
	require.NotEmpty(t, got)

	seen := map[string]bool{}
	for _, s := range got {
		assert.True(t, strings.HasPrefix(s, "[WH] "), s)
		assert.True(t, strings.HasSuffix(s, " ?"), s)
		assert.Equal(t, 1, strings.Count(s, "[THING]"), s)
		assert.LessOrEqual(t, strings.Count(s, "[VERB-ADP]"), 1, s)
		assert.False(t, seen[s], "duplicate %q", s)
		seen[s] = true
	}
	assert.True(t, seen["[WH] is the [NOUN] of [THING] 's [NOUN] ?"])
}

func TestExpandIsDeterministic(t *testing.T) {
	a := grammar.Default().Single.Expand()
	b := grammar.Default().Single.Expand()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("expansion differs between runs:\n%s", diff)
	}
}

func TestHardPresetAddsPrefixes(t *testing.T) {
	p, err := grammar.Lookup(grammar.PresetHard)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Single.Depth)
	assert.Equal(t, 6, p.Multi.Depth)
	assert.Equal(t, 7, p.Count.Depth)

	single := p.Single.Expand()
	assert.Contains(t, single, "[WH] is [THING] ?")
	assert.Contains(t, single, "Hey [WH] is [THING] ?")
	assert.Contains(t, single, "Do you know [WH] was [THING] [VERB-ADP] ?")

	multi := p.Multi.Expand()
	assert.Contains(t, multi, "Can you tell me is [THING] [SEP] the [NOUN] of [THING] ?")

	cnt := p.Count.Expand()
	assert.Contains(t, cnt, "Hey how many [NOUN] does [THING] have ?")

	_, err = grammar.Lookup("impossible")
	assert.Error(t, err)
	assert.Equal(t, []string{"default", "hard"}, grammar.PresetNames())
}

func TestParse(t *testing.T) {
	g, err := grammar.Parse(`
# comment
S -> A 'x' | "y z"
A -> "a" | B
B -> "b"
A -> "c"
`)
	require.NoError(t, err)
	assert.Equal(t, "S", g.Start)
	want := map[string][]grammar.Production{
		"S": {{grammar.N("A"), grammar.T("x")}, {grammar.T("y z")}},
		"A": {{grammar.T("a")}, {grammar.N("B")}, {grammar.T("c")}},
		"B": {{grammar.T("b")}},
	}
	if diff := cmp.Diff(want, g.Rules); diff != "" {
		t.Errorf("rules (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a x", "b x", "c x", "y z"}, g.Expand(4))
}

func TestParseRoundTrip(t *testing.T) {
	g := grammar.Default().Single.Grammar
	back, err := grammar.Parse(g.String())
	require.NoError(t, err)
	assert.Equal(t, g.Start, back.Start)
	if diff := cmp.Diff(g.Rules, back.Rules); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"empty":        "# nothing\n",
		"no arrow":     "S \"a\"",
		"unterminated": "S -> \"a",
		"undefined":    "S -> A",
		"bad lhs":      "\"S\" -> \"a\"",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := grammar.Parse(src)
			assert.ErrorIs(t, err, grammar.ErrInvalidGrammar)
		})
	}
}
