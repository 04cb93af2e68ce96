package template

import (
	"fmt"
	"math/rand/v2"

	"github.com/brunobiangulo/gosquit/bank"
	"github.com/brunobiangulo/gosquit/grammar"
	"github.com/brunobiangulo/gosquit/graph"
)

// Example is one generated record with the intermediate forms it was built
// from.
type Example struct {
	Record
	Shape        Shape  `json:"shape"`
	Skeleton     string `json:"skeleton"`
	Numbered     string `json:"numbered"`
	Typed        string `json:"typed"`
	ChainLengths []int  `json:"chain_lengths"`
}

// GeneratorOptions tunes a Generator.
type GeneratorOptions struct {
	Tries        int
	Patience     int
	StartDomains []string
}

// Generator holds the expanded and numbered skeletons of every shape and
// runs single records through bind and fill. It is read-only after
// construction; callers supply their own random source.
type Generator struct {
	binder    *Binder
	filler    *Filler
	skeletons map[Shape][]string
	numbered  map[Shape][]Numbered
}

// NewGenerator expands the grammars of preset and numbers every skeleton.
func NewGenerator(b *bank.Bank, tr *graph.Traverser, preset grammar.Preset, opts GeneratorOptions) *Generator {
	g := &Generator{
		binder: &Binder{Bank: b, Traverser: tr, Tries: opts.Tries, StartDomains: opts.StartDomains},
		filler: &Filler{Bank: b, Patience: opts.Patience},
		skeletons: map[Shape][]string{
			SingleEntity: preset.Single.Expand(),
			MultiEntity:  preset.Multi.Expand(),
			Count:        preset.Count.Expand(),
		},
		numbered: make(map[Shape][]Numbered),
	}
	for shape, skels := range g.skeletons {
		nums := make([]Numbered, len(skels))
		for i, s := range skels {
			nums[i] = Number(shape, s)
		}
		g.numbered[shape] = nums
	}
	return g
}

// Skeletons returns the raw skeletons of shape.
func (g *Generator) Skeletons(shape Shape) []string {
	return append([]string(nil), g.skeletons[shape]...)
}

// Numbered returns the numbered skeletons of shape, index-aligned with
// Skeletons.
func (g *Generator) Numbered(shape Shape) []Numbered {
	return append([]Numbered(nil), g.numbered[shape]...)
}

// Generate picks a skeleton of shape uniformly, binds and fills it. Errors
// wrapping ErrNoPath or ErrPartOfSpeech are expected outcomes and callers
// normally just try again.
func (g *Generator) Generate(rng *rand.Rand, shape Shape) (Example, error) {
	nums := g.numbered[shape]
	if len(nums) == 0 {
		return Example{}, fmt.Errorf("template.Generate: no skeletons for shape %q", shape)
	}
	i := rng.IntN(len(nums))
	return g.GenerateFrom(rng, shape, i)
}

// GenerateFrom binds and fills the skeleton at index i of shape.
func (g *Generator) GenerateFrom(rng *rand.Rand, shape Shape, i int) (Example, error) {
	nums := g.numbered[shape]
	if i < 0 || i >= len(nums) {
		return Example{}, fmt.Errorf("template.GenerateFrom: skeleton %d out of range for %q", i, shape)
	}
	n := nums[i]

	typed, err := g.binder.Bind(rng, n)
	if err != nil {
		return Example{}, err
	}
	rec, err := g.filler.Fill(rng, typed, WrapperFor(shape))
	if err != nil {
		return Example{}, err
	}
	return Example{
		Record:       rec,
		Shape:        shape,
		Skeleton:     g.skeletons[shape][i],
		Numbered:     n.Text,
		Typed:        typed.Text,
		ChainLengths: typed.ChainLengths,
	}, nil
}
