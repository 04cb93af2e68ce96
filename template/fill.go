package template

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/brunobiangulo/gosquit/bank"
)

// ErrPartOfSpeech is returned when no relation with the part of speech a
// slot asks for could be drawn within the filler's patience.
var ErrPartOfSpeech = errors.New("template: no relation matches part of speech")

// DefaultPatience is the redraw budget for a part-of-speech match.
const DefaultPatience = 50

// Wrapper is a query template with a [CLAUSES] placeholder.
type Wrapper string

const (
	SelectWrapper Wrapper = "SELECT ?end WHERE { [CLAUSES] }"
	AskWrapper    Wrapper = "ASK { [CLAUSES] }"
	CountWrapper  Wrapper = "SELECT ( COUNT ( DISTINCT ?end ) as ?endcount ) WHERE { [CLAUSES] }"
)

const clausesMarker = "[CLAUSES]"

// WrapperFor returns the query wrapper of shape.
func WrapperFor(shape Shape) Wrapper {
	switch shape {
	case MultiEntity:
		return AskWrapper
	case Count:
		return CountWrapper
	default:
		return SelectWrapper
	}
}

// Record is a generated question and its query. Hash identifies the query
// text and is the deduplication key.
type Record struct {
	Question string   `json:"question"`
	Query    string   `json:"query"`
	Hash     string   `json:"hash"`
	Entities []string `json:"entities,omitempty"`
}

// Hash returns the lowercase hex SHA-1 digest of query.
func Hash(query string) string {
	sum := sha1.Sum([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Filler draws entities and relation surface forms for typed skeletons.
type Filler struct {
	Bank *bank.Bank
	// Patience bounds redraws per relation slot. Zero means DefaultPatience.
	Patience int
}

// placeholder matches any bracketed slot in a typed skeleton.
var placeholder = regexp.MustCompile(`\[([^\[\]]+)\]`)

type slotKind int

const (
	slotLiteral slotKind = iota
	slotEntity
	slotRelation
)

type slot struct {
	kind  slotKind
	typ   string   // entity type
	key   bank.Key // relation key
	pos   string
	chain string
	index int
}

func parseSlot(body string) slot {
	fields := strings.Split(body, ":")
	switch len(fields) {
	case 2:
		return slot{kind: slotEntity, typ: fields[0], chain: fields[1]}
	case 4:
		j, err := strconv.Atoi(fields[3])
		if err != nil {
			return slot{}
		}
		return slot{kind: slotRelation, key: bank.Key(fields[0]), pos: fields[1], chain: fields[2], index: j}
	}
	return slot{}
}

// plan locates the slots of a typed skeleton in one pass, so text that is
// substituted later is never scanned again.
type plan struct {
	spans [][]int
	slots []slot
}

func planFor(text string) plan {
	var p plan
	for _, m := range placeholder.FindAllStringSubmatchIndex(text, -1) {
		p.spans = append(p.spans, m[:2])
		p.slots = append(p.slots, parseSlot(text[m[2]:m[3]]))
	}
	return p
}

type relRef struct {
	chain string
	index int
}

// Fill draws an entity for every chain and a surface form for every relation
// slot, then builds the question and the query. Chains are filled in order,
// relation slots by ascending index, so the query lists each chain's
// relations in the order they apply to the entity.
func (f *Filler) Fill(rng *rand.Rand, t Typed, w Wrapper) (Record, error) {
	patience := f.Patience
	if patience <= 0 {
		patience = DefaultPatience
	}
	if len(t.ChainLengths) > len(chainLabels) {
		return Record{}, fmt.Errorf("template.Fill: unsupported chain count %d", len(t.ChainLengths))
	}

	p := planFor(t.Text)
	entityAt := make(map[string]int)
	relAt := make(map[relRef]int)
	for i, s := range p.slots {
		switch s.kind {
		case slotEntity:
			if _, ok := entityAt[s.chain]; !ok {
				entityAt[s.chain] = i
			}
		case slotRelation:
			ref := relRef{chain: s.chain, index: s.index}
			if _, ok := relAt[ref]; !ok {
				relAt[ref] = i
			}
		}
	}

	values := make(map[int]string)
	entityValue := make(map[string]string)
	relValue := make(map[relRef]string)
	statements := make([]string, 0, len(t.ChainLengths))
	var entities []string

	for i, n := range t.ChainLengths {
		label := chainLabels[i]
		at, ok := entityAt[label]
		if !ok {
			return Record{}, fmt.Errorf("template.Fill: no entity slot for chain %s in %q", label, t.Text)
		}
		thing, id, err := f.Bank.Thing(rng, p.slots[at].typ)
		if err != nil {
			return Record{}, fmt.Errorf("template.Fill: %w", err)
		}
		entityValue[label] = thing
		entities = append(entities, id)

		if n == 0 {
			statements = append(statements, "BIND ( [ "+thing+" ] as ?end ) .")
			continue
		}

		var b strings.Builder
		b.WriteString("[ " + thing + " ]")
		for j := 0; j < n; j++ {
			ref := relRef{chain: label, index: j}
			at, ok := relAt[ref]
			if !ok {
				return Record{}, fmt.Errorf("template.Fill: no relation slot %s:%d in %q", label, j, t.Text)
			}
			s := p.slots[at]
			form, pid, ok := f.Bank.Predicate(rng, s.key, s.pos, patience)
			if !ok {
				return Record{}, fmt.Errorf("template.Fill: %s %s: %w", s.key, s.pos, ErrPartOfSpeech)
			}
			relValue[ref] = form
			if j == 0 {
				b.WriteString(" wdt:" + pid)
			} else {
				b.WriteString(" / wdt:" + pid)
			}
		}
		b.WriteString(" ?end .")
		statements = append(statements, b.String())
	}

	for i, s := range p.slots {
		switch s.kind {
		case slotEntity:
			if v, ok := entityValue[s.chain]; ok {
				values[i] = v
			}
		case slotRelation:
			if v, ok := relValue[relRef{chain: s.chain, index: s.index}]; ok {
				values[i] = v
			}
		}
	}

	question := substitute(t.Text, p, values)
	question = strings.ReplaceAll(question, " 's", "'s")
	question = strings.ReplaceAll(question, " ?", "?")

	query := strings.Replace(string(w), clausesMarker, strings.Join(statements, " "), 1)
	return Record{
		Question: question,
		Query:    query,
		Hash:     Hash(query),
		Entities: entities,
	}, nil
}

func substitute(text string, p plan, values map[int]string) string {
	var b strings.Builder
	last := 0
	for i, span := range p.spans {
		v, ok := values[i]
		if !ok {
			continue
		}
		b.WriteString(text[last:span[0]])
		b.WriteString(v)
		last = span[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
