package evo

import (
	"errors"
	"math/rand"

	"panmixia/internal/gene"
)

// ErrIncompatibleGenomes reports a mating attempt between parents whose
// genomes differ in length.
var ErrIncompatibleGenomes = errors.New("parent genomes differ in length")

// Genomes longer than this always split at the midpoint; shorter ones draw a
// split uniformly from the middle half.
const splitPointThreshold = 7

// Mate crosses two parents at a single split point and returns two children.
// Each child copies one parent's prefix up to the split, then appends the
// other parent's genes in order, skipping genes already present in the
// child. Both children inherit a's fitness function and start unevaluated.
//
// Skipping duplicates means a child's genome can be shorter or longer than
// its parents' when the parents carry different gene sets.
func Mate[E gene.Gene[E]](rng *rand.Rand, a, b *Individual[E]) (*Individual[E], *Individual[E], error) {
	if a.Len() != b.Len() {
		return nil, nil, ErrIncompatibleGenomes
	}

	split := splitPoint(rng, a.Len())
	first := crossGenomes(a.Genome(), b.Genome(), split)
	second := crossGenomes(b.Genome(), a.Genome(), split)
	return a.Spawn(first), a.Spawn(second), nil
}

func splitPoint(rng *rand.Rand, length int) int {
	if length > splitPointThreshold {
		return length / 2
	}
	lo := length / 4
	hi := 3 * length / 4
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}

func crossGenomes[E gene.Gene[E]](head, tail []E, split int) []E {
	child := make([]E, 0, len(head))
	for _, g := range head[:split] {
		child = append(child, g.Clone())
	}
	for _, g := range tail {
		if gene.Contains(child, g) {
			continue
		}
		child = append(child, g.Clone())
	}
	return child
}
