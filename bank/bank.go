// Package bank holds the typed predicate and entity data that question
// generation draws from. A Bank is loaded once and is read-only afterwards,
// so it is safe to share between goroutines.
package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// ErrInvalidBank is returned when bank data violates a load-time precondition.
var ErrInvalidBank = errors.New("bank: invalid bank data")

// keySeparator joins the subject and object types of a relation-type key.
const keySeparator = "->"

// Key identifies a relation type by its ordered (subject, object) pair of
// entity types, e.g. "person->location".
type Key string

// NewKey builds a key from its subject and object types.
func NewKey(subject, object string) Key {
	return Key(subject + keySeparator + object)
}

// ParseKey validates s and returns it as a Key.
func ParseKey(s string) (Key, error) {
	subject, object, ok := strings.Cut(s, keySeparator)
	if !ok {
		return "", fmt.Errorf("bank.ParseKey: %q has no %q separator", s, keySeparator)
	}
	if subject == "" || object == "" || strings.Contains(object, keySeparator) {
		return "", fmt.Errorf("bank.ParseKey: malformed key %q", s)
	}
	return Key(s), nil
}

// Subject returns the entity type the relation starts from.
func (k Key) Subject() string {
	subject, _, _ := strings.Cut(string(k), keySeparator)
	return subject
}

// Object returns the entity type the relation points to.
func (k Key) Object() string {
	_, object, _ := strings.Cut(string(k), keySeparator)
	return object
}

// Predicate is a single relation with its surface forms grouped by
// part-of-speech shape (NOUN, VERB-ADP, ...).
type Predicate struct {
	Prop   string              `json:"prop"`
	Type   string              `json:"type"`
	Labels []string            `json:"labels"`
	POS    map[string][]string `json:"pos"`
}

// ID returns the canonical relation identifier, the last path segment of
// Prop ("http://www.wikidata.org/entity/P22" -> "P22").
func (p Predicate) ID() string {
	return lastSegment(p.Prop)
}

// Forms returns the surface forms tagged with pos, matched case-insensitively.
func (p Predicate) Forms(pos string) []string {
	pos = strings.ToUpper(pos)
	for tag, forms := range p.POS {
		if strings.ToUpper(tag) == pos {
			return forms
		}
	}
	return nil
}

// Entity is one named instance of an entity type.
type Entity struct {
	Thing  string   `json:"thing"`
	Labels []string `json:"labels"`
}

// ID returns the canonical entity identifier ("Q76").
func (e Entity) ID() string {
	return lastSegment(e.Thing)
}

// TypeInfo carries per-type metadata from the type list.
type TypeInfo struct {
	WH string `json:"WH"`
}

// UnmarshalJSON accepts WH either as a string or as a list of strings, in
// which case the first entry is used.
func (t *TypeInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		WH json.RawMessage `json:"WH"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.WH) == 0 || string(raw.WH) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw.WH, &single); err == nil {
		t.WH = single
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw.WH, &list); err != nil {
		return fmt.Errorf("decoding WH: %w", err)
	}
	if len(list) > 0 {
		t.WH = list[0]
	}
	return nil
}

// TypeList is the start-domain list plus per-type metadata.
type TypeList struct {
	StartDomains []string            `json:"start_domains"`
	Types        map[string]TypeInfo `json:"types"`
}

// Bank is the in-memory predicate and entity store.
type Bank struct {
	predicates map[Key][]Predicate
	keys       []Key
	types      TypeList
	things     map[string][]Entity
}

// New groups predicates by relation-type key and validates the result.
// things maps each start domain to its entity records.
func New(predicates []Predicate, types TypeList, things map[string][]Entity) (*Bank, error) {
	b := &Bank{
		predicates: make(map[Key][]Predicate),
		types:      types,
		things:     things,
	}
	if b.things == nil {
		b.things = make(map[string][]Entity)
	}

	for i, p := range predicates {
		key, err := ParseKey(p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: predicate %d (%s): %v", ErrInvalidBank, i, p.Prop, err)
		}
		if !hasForms(p) {
			return nil, fmt.Errorf("%w: predicate %s (%s) has no surface forms", ErrInvalidBank, p.ID(), key)
		}
		if _, ok := b.predicates[key]; !ok {
			b.keys = append(b.keys, key)
		}
		b.predicates[key] = append(b.predicates[key], p)
	}
	sort.Slice(b.keys, func(i, j int) bool { return b.keys[i] < b.keys[j] })

	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func hasForms(p Predicate) bool {
	for _, forms := range p.POS {
		if len(forms) > 0 {
			return true
		}
	}
	return false
}

func (b *Bank) validate() error {
	if len(b.types.StartDomains) == 0 {
		return fmt.Errorf("%w: no start domains", ErrInvalidBank)
	}
	for _, domain := range b.types.StartDomains {
		if _, ok := b.QuestionWordFor(domain); !ok {
			return fmt.Errorf("%w: start domain %q has no question word", ErrInvalidBank, domain)
		}
		records := b.things[domain]
		if len(records) == 0 {
			return fmt.Errorf("%w: start domain %q has no entity records", ErrInvalidBank, domain)
		}
		for _, e := range records {
			if len(e.Labels) == 0 {
				return fmt.Errorf("%w: entity %s in %q has no labels", ErrInvalidBank, e.ID(), domain)
			}
		}
	}
	for _, key := range b.keys {
		if len(b.predicates[key]) == 0 {
			return fmt.Errorf("%w: key %s has no predicates", ErrInvalidBank, key)
		}
		for _, typ := range []string{key.Subject(), key.Object()} {
			if _, ok := b.QuestionWordFor(typ); !ok {
				return fmt.Errorf("%w: type %q has no question word", ErrInvalidBank, typ)
			}
		}
	}
	return nil
}

// Keys returns every relation-type key in sorted order.
func (b *Bank) Keys() []Key {
	out := make([]Key, len(b.keys))
	copy(out, b.keys)
	return out
}

// PredicatesFor returns the predicates sharing key.
func (b *Bank) PredicatesFor(key Key) []Predicate {
	return b.predicates[key]
}

// EntitiesFor returns the entity records of a start-domain type.
func (b *Bank) EntitiesFor(typ string) []Entity {
	return b.things[typ]
}

// Entities returns the entity records of every start domain, domain by
// domain in start-domain order.
func (b *Bank) Entities() []Entity {
	var out []Entity
	for _, domain := range b.types.StartDomains {
		out = append(out, b.things[domain]...)
	}
	return out
}

// QuestionWordFor returns the interrogative word used for answers of typ.
func (b *Bank) QuestionWordFor(typ string) (string, bool) {
	info, ok := b.types.Types[typ]
	if !ok || info.WH == "" {
		return "", false
	}
	return info.WH, true
}

// StartDomains returns the types a generation run may start from.
func (b *Bank) StartDomains() []string {
	out := make([]string, len(b.types.StartDomains))
	copy(out, b.types.StartDomains)
	return out
}

// Thing draws a random entity record of typ and then a random label of it.
func (b *Bank) Thing(rng *rand.Rand, typ string) (label, id string, err error) {
	records := b.things[typ]
	if len(records) == 0 {
		return "", "", fmt.Errorf("bank.Thing: no entities of type %q", typ)
	}
	e := records[rng.IntN(len(records))]
	return e.Labels[rng.IntN(len(e.Labels))], e.ID(), nil
}

// Predicate draws a random predicate of key whose surface forms include pos,
// redrawing up to patience times on a mismatch. ok is false when patience
// runs out or key is unknown.
func (b *Bank) Predicate(rng *rand.Rand, key Key, pos string, patience int) (label, id string, ok bool) {
	preds := b.predicates[key]
	if len(preds) == 0 {
		return "", "", false
	}
	p := preds[rng.IntN(len(preds))]
	for tries := 0; ; tries++ {
		if forms := p.Forms(pos); len(forms) > 0 {
			return forms[rng.IntN(len(forms))], p.ID(), true
		}
		if tries >= patience {
			return "", "", false
		}
		p = preds[rng.IntN(len(preds))]
	}
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
