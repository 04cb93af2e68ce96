package template

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/brunobiangulo/gosquit/bank"
	"github.com/brunobiangulo/gosquit/graph"
)

// ErrNoPath is returned when no relation chain could be bound to a skeleton
// within the configured number of tries.
var ErrNoPath = errors.New("template: no relation path found")

// DefaultTries is the number of start-domain samples a Binder makes.
const DefaultTries = 10

// Typed is a numbered skeleton bound to entity types and relation-type
// keys: [THING:A] has become [person:A] and [NOUN:A:0] has become
// [person->location:NOUN:A:0].
type Typed struct {
	Text         string
	ChainLengths []int
	StartTypes   []string
	Chains       [][]bank.Key
}

// Binder binds numbered skeletons to relation chains found in the type
// graph. It holds no mutable state and may be shared between goroutines.
type Binder struct {
	Bank      *bank.Bank
	Traverser *graph.Traverser
	// Tries bounds the start-domain samples. Zero means DefaultTries.
	Tries int
	// StartDomains overrides the bank's start domains when non-empty.
	StartDomains []string
}

// relSlot matches a numbered relation slot, e.g. [NOUN:A:0].
var relSlot = regexp.MustCompile(`\[([A-Za-z]+(?:-[A-Za-z]+)?):([A-Z]):(\d+)\]`)

// Bind samples one start domain per chain, with replacement, and looks for
// chains of the required lengths. A single chain is any forward path of its
// length; its end type picks the question word. Two chains must meet at a
// shared type. Failed samples are retried up to Tries times before Bind
// gives up with ErrNoPath.
func (b *Binder) Bind(rng *rand.Rand, n Numbered) (Typed, error) {
	if len(n.ChainLengths) == 0 || len(n.ChainLengths) > len(chainLabels) {
		return Typed{}, fmt.Errorf("template.Bind: unsupported chain count %d", len(n.ChainLengths))
	}
	domains := b.StartDomains
	if len(domains) == 0 {
		domains = b.Bank.StartDomains()
	}
	tries := b.Tries
	if tries <= 0 {
		tries = DefaultTries
	}

	for try := 0; try < tries; try++ {
		starts := make([]string, len(n.ChainLengths))
		for i := range starts {
			starts[i] = domains[rng.IntN(len(domains))]
		}

		text := n.Text
		var chains [][]bank.Key
		if len(starts) == 1 {
			paths := b.Traverser.Traverse(starts[0], n.ChainLengths[0])
			if len(paths) == 0 {
				continue
			}
			p := paths[rng.IntN(len(paths))]
			wh, ok := b.Bank.QuestionWordFor(p.End)
			if !ok {
				continue
			}
			text = strings.ReplaceAll(text, markerWH, wh)
			chains = [][]bank.Key{p.Keys}
		} else {
			m, ok := b.Traverser.Meet(rng, starts[0], starts[1], n.ChainLengths[0], n.ChainLengths[1])
			if !ok {
				continue
			}
			chains = [][]bank.Key{m.Forward, m.Backward}
		}

		typed, err := applyChains(text, starts, chains)
		if err != nil {
			return Typed{}, err
		}
		return Typed{
			Text:         typed,
			ChainLengths: append([]int(nil), n.ChainLengths...),
			StartTypes:   starts,
			Chains:       chains,
		}, nil
	}
	return Typed{}, fmt.Errorf("template.Bind: %q after %d tries: %w", n.Text, tries, ErrNoPath)
}

// applyChains rewrites entity slots to their start types and relation slots
// to their keys.
func applyChains(text string, starts []string, chains [][]bank.Key) (string, error) {
	chainOf := make(map[string]int, len(starts))
	for i, start := range starts {
		label := chainLabels[i]
		chainOf[label] = i
		text = strings.ReplaceAll(text, "[THING:"+label+"]", "["+start+":"+label+"]")
	}

	var err error
	text = relSlot.ReplaceAllStringFunc(text, func(slot string) string {
		m := relSlot.FindStringSubmatch(slot)
		i, ok := chainOf[m[2]]
		if !ok {
			return slot
		}
		j, _ := strconv.Atoi(m[3])
		if j >= len(chains[i]) {
			err = fmt.Errorf("template.Bind: slot %s outside chain of length %d", slot, len(chains[i]))
			return slot
		}
		return "[" + string(chains[i][j]) + ":" + slot[1:]
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
