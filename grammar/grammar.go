// Package grammar holds small context-free grammars as data and expands them
// into the finite set of sentences derivable within a depth bound.
package grammar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGrammar is returned for grammars that reference undefined
// non-terminals or have no start rule.
var ErrInvalidGrammar = errors.New("grammar: invalid grammar")

// Symbol is one element of a production: a literal terminal or the name of
// a non-terminal.
type Symbol struct {
	Name     string
	Terminal bool
}

// T returns a terminal symbol.
func T(s string) Symbol { return Symbol{Name: s, Terminal: true} }

// N returns a non-terminal symbol.
func N(s string) Symbol { return Symbol{Name: s} }

func (s Symbol) String() string {
	if s.Terminal {
		return fmt.Sprintf("%q", s.Name)
	}
	return s.Name
}

// Production is one alternative right-hand side of a rule.
type Production []Symbol

// Grammar maps each non-terminal to its alternatives, kept in declaration
// order.
type Grammar struct {
	Start string
	Rules map[string][]Production
}

// Validate checks that the start symbol and every referenced non-terminal
// have at least one production.
func (g *Grammar) Validate() error {
	if len(g.Rules[g.Start]) == 0 {
		return fmt.Errorf("%w: start symbol %q has no productions", ErrInvalidGrammar, g.Start)
	}
	for lhs, prods := range g.Rules {
		for _, p := range prods {
			for _, s := range p {
				if !s.Terminal && len(g.Rules[s.Name]) == 0 {
					return fmt.Errorf("%w: %s refers to undefined %s", ErrInvalidGrammar, lhs, s.Name)
				}
			}
		}
	}
	return nil
}

// Expand returns every sentence derivable from the start symbol within
// depth. A non-terminal at depth d expands each of its productions at d-1,
// and a terminal is emitted only while d > 0, so a derivation that runs out
// of depth contributes nothing. Alternatives are tried in declaration order
// with the leftmost symbol varying slowest. Terminals are joined with single
// spaces; a sentence reached by more than one derivation is kept once, at
// its first position.
func (g *Grammar) Expand(depth int) []string {
	e := &expander{g: g, memo: make(map[memoKey][][]string)}

	seen := make(map[string]bool)
	var out []string
	for _, frag := range e.symbol(N(g.Start), depth) {
		s := strings.Join(frag, " ")
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

type memoKey struct {
	name  string
	depth int
}

type expander struct {
	g    *Grammar
	memo map[memoKey][][]string
}

func (e *expander) symbol(s Symbol, depth int) [][]string {
	if depth <= 0 {
		return nil
	}
	if s.Terminal {
		return [][]string{{s.Name}}
	}
	k := memoKey{name: s.Name, depth: depth}
	if frags, ok := e.memo[k]; ok {
		return frags
	}
	var frags [][]string
	for _, p := range e.g.Rules[s.Name] {
		frags = append(frags, e.sequence(p, depth-1)...)
	}
	e.memo[k] = frags
	return frags
}

// sequence returns the cartesian product of the expansions of items, all at
// the same depth.
func (e *expander) sequence(items []Symbol, depth int) [][]string {
	if len(items) == 0 {
		return [][]string{{}}
	}
	heads := e.symbol(items[0], depth)
	if len(heads) == 0 {
		return nil
	}
	tails := e.sequence(items[1:], depth)
	out := make([][]string, 0, len(heads)*len(tails))
	for _, h := range heads {
		for _, t := range tails {
			frag := make([]string, 0, len(h)+len(t))
			frag = append(frag, h...)
			frag = append(frag, t...)
			out = append(out, frag)
		}
	}
	return out
}

// String renders g in the rule notation accepted by Parse, start rule first.
func (g *Grammar) String() string {
	var b strings.Builder
	write := func(lhs string) {
		alts := make([]string, len(g.Rules[lhs]))
		for i, p := range g.Rules[lhs] {
			syms := make([]string, len(p))
			for j, s := range p {
				syms[j] = s.String()
			}
			alts[i] = strings.Join(syms, " ")
		}
		fmt.Fprintf(&b, "%s -> %s\n", lhs, strings.Join(alts, " | "))
	}
	write(g.Start)
	for _, lhs := range sortedKeys(g.Rules) {
		if lhs != g.Start {
			write(lhs)
		}
	}
	return b.String()
}
