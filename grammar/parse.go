package grammar

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Parse reads a grammar in rule notation, one rule per line:
//
//	S -> "[WH]" IS Q "?"
//	IS -> "is" | "was"
//
// Quoted items (single or double quotes) are terminals, bare words are
// non-terminals. The left-hand side of the first rule is the start symbol.
// Repeated left-hand sides append alternatives. Blank lines and lines
// starting with # are ignored.
func Parse(src string) (*Grammar, error) {
	g := &Grammar{Rules: make(map[string][]Production)}
	for n, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lhs, rhs, ok := strings.Cut(line, "->")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing ->", ErrInvalidGrammar, n+1)
		}
		lhs = strings.TrimSpace(lhs)
		if !isName(lhs) {
			return nil, fmt.Errorf("%w: line %d: bad left-hand side %q", ErrInvalidGrammar, n+1, lhs)
		}
		alts, err := parseAlternatives(rhs)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidGrammar, n+1, err)
		}
		if g.Start == "" {
			g.Start = lhs
		}
		g.Rules[lhs] = append(g.Rules[lhs], alts...)
	}
	if g.Start == "" {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidGrammar)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustParse is Parse for grammars known at compile time.
func MustParse(src string) *Grammar {
	g, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return g
}

func parseAlternatives(rhs string) ([]Production, error) {
	var (
		alts []Production
		cur  = Production{}
	)
	rs := []rune(rhs)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '|':
			alts = append(alts, cur)
			cur = Production{}
			i++
		case r == '"' || r == '\'':
			end := i + 1
			for end < len(rs) && rs[end] != r {
				end++
			}
			if end == len(rs) {
				return nil, fmt.Errorf("unterminated terminal at column %d", i+1)
			}
			cur = append(cur, T(string(rs[i+1:end])))
			i = end + 1
		default:
			end := i
			for end < len(rs) && !unicode.IsSpace(rs[end]) && rs[end] != '|' && rs[end] != '"' && rs[end] != '\'' {
				end++
			}
			name := string(rs[i:end])
			if !isName(name) {
				return nil, fmt.Errorf("bad symbol %q", name)
			}
			cur = append(cur, N(name))
			i = end
		}
	}
	return append(alts, cur), nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), r == '_', r == '/':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '^' || r == '<' || r == '>'):
		default:
			return false
		}
	}
	return true
}

func sortedKeys(m map[string][]Production) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
