// Package banktest provides a small, fully connected bank for tests.
package banktest

import (
	"github.com/brunobiangulo/gosquit/bank"
)

const wdt = "http://www.wikidata.org/entity/"

func pred(id, typ string, pos map[string][]string) bank.Predicate {
	var labels []string
	for _, forms := range pos {
		labels = append(labels, forms...)
	}
	return bank.Predicate{Prop: wdt + id, Type: typ, Labels: labels, POS: pos}
}

// Predicates returns the fixture predicates.
func Predicates() []bank.Predicate {
	return []bank.Predicate{
		pred("P22", "person->person", map[string][]string{"NOUN": {"father"}}),
		pred("P26", "person->person", map[string][]string{"NOUN": {"spouse"}, "VERB-ADP": {"married to"}}),
		pred("P19", "person->location", map[string][]string{"NOUN": {"place of birth", "birthplace"}}),
		pred("P166", "person->award", map[string][]string{"NOUN": {"award received"}}),
		pred("P18", "person->image", map[string][]string{"NOUN": {"image"}}),
		pred("P2067", "person->weight", map[string][]string{"NOUN": {"mass"}}),
		pred("P17", "location->country", map[string][]string{"NOUN": {"country"}, "VERB-ADP": {"located in"}}),
		pred("P57", "television_series->person", map[string][]string{"NOUN": {"director"}}),
		pred("P161", "television_series->person", map[string][]string{"NOUN": {"cast member"}, "VERB-ADP": {"starring"}}),
		pred("P57", "movie->person", map[string][]string{"NOUN": {"director"}}),
		pred("P166", "movie->award", map[string][]string{"NOUN": {"award received"}}),
		pred("P50", "literary_work->person", map[string][]string{"NOUN": {"author"}, "VERB-ADP": {"written by"}}),
	}
}

// TypeList returns the fixture start domains and question words.
func TypeList() bank.TypeList {
	return bank.TypeList{
		StartDomains: []string{"movie", "person", "literary_work", "television_series"},
		Types: map[string]bank.TypeInfo{
			"person":            {WH: "Who"},
			"location":          {WH: "Where"},
			"country":           {WH: "What"},
			"award":             {WH: "What"},
			"image":             {WH: "What"},
			"weight":            {WH: "How much"},
			"movie":             {WH: "What"},
			"television_series": {WH: "What"},
			"literary_work":     {WH: "What"},
		},
	}
}

// Things returns the fixture entities keyed by start domain.
func Things() map[string][]bank.Entity {
	return map[string][]bank.Entity{
		"person": {
			{Thing: wdt + "Q76", Labels: []string{"Barack Obama", "Barack Hussein Obama II"}},
			{Thing: wdt + "Q7259", Labels: []string{"Ada Lovelace"}},
		},
		"movie": {
			{Thing: wdt + "Q132689", Labels: []string{"Casablanca"}},
		},
		"television_series": {
			{Thing: wdt + "Q478360", Labels: []string{"The Wire"}},
		},
		"literary_work": {
			{Thing: wdt + "Q190192", Labels: []string{"Dune"}},
		},
	}
}

// New builds the fixture bank. It panics on error since the fixture is static.
func New() *bank.Bank {
	b, err := bank.New(Predicates(), TypeList(), Things())
	if err != nil {
		panic(err)
	}
	return b
}
