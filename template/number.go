// Package template turns grammar skeletons into question/query pairs. A
// skeleton is numbered so that every relation slot knows its position in
// its chain, bound to concrete relation-type keys, then filled with surface
// forms drawn from the bank.
package template

import (
	"strconv"
	"strings"
)

// Shape is a query shape. Each shape has its own grammar and query wrapper.
type Shape string

const (
	SingleEntity Shape = "single_entity"
	MultiEntity  Shape = "multi_entity"
	Count        Shape = "count"
)

// Shapes returns every shape in generation order.
func Shapes() []Shape {
	return []Shape{SingleEntity, MultiEntity, Count}
}

// ParseShape reports whether s names a known shape.
func ParseShape(s string) (Shape, bool) {
	for _, sh := range Shapes() {
		if string(sh) == s {
			return sh, true
		}
	}
	return "", false
}

// Placeholder markers produced by the grammars.
const (
	markerWH      = "[WH]"
	markerThing   = "[THING]"
	markerNoun    = "[NOUN]"
	markerVerbAdp = "[VERB-ADP]"
	markerSep     = "[SEP]"
)

// chainLabels names the chains of a skeleton in order.
var chainLabels = []string{"A", "B"}

// Numbered is a skeleton whose entity and relation slots carry their chain
// label and, for relations, their index in the chain. ChainLengths holds the
// number of relation slots per chain.
type Numbered struct {
	Text         string
	ChainLengths []int
}

// NumberSingle numbers a single-chain skeleton under label. The entity
// becomes [THING:label]. [NOUN] slots after the entity are numbered left to
// right from 0, then [NOUN] slots before it right to left continuing the
// count, then [VERB-ADP] takes the next index. Index 0 is therefore the
// relation applied to the entity first.
func NumberSingle(text, label string) Numbered {
	thing := "[THING:" + label + "]"
	text = strings.ReplaceAll(text, markerThing, thing)

	at := strings.Index(text, thing)
	if at < 0 {
		at = 0
	}
	before, after := text[:at], text[at:]
	counter := 0
	tag := func() string {
		s := "[NOUN:" + label + ":" + strconv.Itoa(counter) + "]"
		counter++
		return s
	}

	var b strings.Builder
	for {
		i := strings.Index(after, markerNoun)
		if i < 0 {
			b.WriteString(after)
			break
		}
		b.WriteString(after[:i])
		b.WriteString(tag())
		after = after[i+len(markerNoun):]
	}
	numberedAfter := b.String()

	var tail string
	for {
		i := strings.LastIndex(before, markerNoun)
		if i < 0 {
			break
		}
		tail = tag() + before[i+len(markerNoun):] + tail
		before = before[:i]
	}
	text = before + tail + numberedAfter

	if strings.Contains(text, markerVerbAdp) {
		text = strings.ReplaceAll(text, markerVerbAdp, "[VERB-ADP:"+label+":"+strconv.Itoa(counter)+"]")
		counter++
	}
	return Numbered{Text: text, ChainLengths: []int{counter}}
}

// NumberMulti splits a two-entity skeleton at [SEP], numbers the halves as
// chains A and B and joins them again without the separator. A skeleton
// without [SEP] is numbered as a single chain.
func NumberMulti(text string) Numbered {
	sep := strings.Index(text, markerSep)
	if sep < 0 {
		return NumberSingle(text, chainLabels[0])
	}
	rest := sep + len(markerSep) + 1
	if rest > len(text) {
		rest = len(text)
	}
	a := NumberSingle(text[:sep], chainLabels[0])
	b := NumberSingle(text[rest:], chainLabels[1])
	return Numbered{
		Text:         a.Text + b.Text,
		ChainLengths: []int{a.ChainLengths[0], b.ChainLengths[0]},
	}
}

// NumberCount numbers a count skeleton. Count questions have one chain.
func NumberCount(text string) Numbered {
	return NumberSingle(text, chainLabels[0])
}

// Number dispatches on shape.
func Number(shape Shape, text string) Numbered {
	switch shape {
	case MultiEntity:
		return NumberMulti(text)
	case Count:
		return NumberCount(text)
	default:
		return NumberSingle(text, chainLabels[0])
	}
}
