package grammar

import (
	"fmt"
	"sort"
)

// Preset names.
const (
	PresetDefault = "default"
	PresetHard    = "hard"
)

const singleEntity = `
S -> "[WH]" IS Q "?"
IS -> "is" | "was"
Q -> NOUN | VERB-ADP
NOUN -> "[THING]" | NOUN "'s [NOUN]" | "the [NOUN] of" NOUN
VERB-ADP -> NOUN "[VERB-ADP]"
`

const multiEntity = `
S -> IS NOUN "[SEP] the [NOUN] of" NOUN "?"
is -> "is" | "was"
IS -> "Is" | "Was"
NOUN -> "[THING]" | NOUN "'s [NOUN]" | "the [NOUN] of" NOUN
`

const count = `
S -> "[WH]" IS Q "?" | "How many [NOUN] does" NOUN "have ?"
CAN -> "Hey" | "Can you tell me" | "Do you know"
IS -> "is" | "was"
Q -> "the number of [NOUN] of" NOUN
NOUN -> "[THING]" | NOUN "'s [NOUN]" | "the [NOUN] of" NOUN
`

// The hard grammars add interrogative prefixes.
const hardSingleEntity = `
S -> "[WH]" IS Q "?" | CAN "[WH]" IS Q "?"
CAN -> "Hey" | "Can you tell me" | "Do you know"
IS -> "is" | "was"
Q -> NOUN | VERB-ADP
NOUN -> "[THING]" | NOUN "'s [NOUN]" | "the [NOUN] of" NOUN
VERB-ADP -> NOUN "[VERB-ADP]"
`

const hardMultiEntity = `
S -> IS NOUN "[SEP] the [NOUN] of" NOUN "?" | CAN is NOUN "[SEP] the [NOUN] of" NOUN "?"
CAN -> "Hey" | "Can you tell me" | "Do you know"
is -> "is" | "was"
IS -> "Is" | "Was"
NOUN -> "[THING]" | NOUN "'s [NOUN]" | "the [NOUN] of" NOUN
`

const hardCount = `
S -> "[WH]" IS Q "?" | "How many [NOUN] does" NOUN "have ?" | CAN "[WH]" IS Q "?" | CAN "how many [NOUN] does" NOUN "have ?"
CAN -> "Hey" | "Can you tell me" | "Do you know"
IS -> "is" | "was"
Q -> "the number of [NOUN] of" NOUN
NOUN -> "[THING]" | NOUN "'s [NOUN]" | "the [NOUN] of" NOUN
`

// Bounded is a grammar paired with its expansion depth.
type Bounded struct {
	Grammar *Grammar
	Depth   int
}

// Expand expands the grammar at its depth.
func (b Bounded) Expand() []string {
	return b.Grammar.Expand(b.Depth)
}

// Preset is the set of grammars for the three query shapes.
type Preset struct {
	Name   string
	Single Bounded
	Multi  Bounded
	Count  Bounded
}

var presets = map[string]func() Preset{
	PresetDefault: func() Preset {
		return Preset{
			Name:   PresetDefault,
			Single: Bounded{Grammar: MustParse(singleEntity), Depth: 6},
			Multi:  Bounded{Grammar: MustParse(multiEntity), Depth: 4},
			Count:  Bounded{Grammar: MustParse(count), Depth: 5},
		}
	},
	PresetHard: func() Preset {
		return Preset{
			Name:   PresetHard,
			Single: Bounded{Grammar: MustParse(hardSingleEntity), Depth: 8},
			Multi:  Bounded{Grammar: MustParse(hardMultiEntity), Depth: 6},
			Count:  Bounded{Grammar: MustParse(hardCount), Depth: 7},
		}
	},
}

// Lookup returns the named preset.
func Lookup(name string) (Preset, error) {
	mk, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("grammar.Lookup: unknown preset %q (have %v)", name, PresetNames())
	}
	return mk(), nil
}

// Default returns the default preset.
func Default() Preset {
	return presets[PresetDefault]()
}

// PresetNames lists the known presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
