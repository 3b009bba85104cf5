package evo

import (
	"math"
	"math/rand"

	"panmixia/internal/gene"
)

// Stock mutation operators for order-encoded genomes. Each one derives a new
// individual from a cloned genome and leaves the input untouched, so their
// Mutate methods satisfy the Mutator contract directly. They only rearrange
// genes, never add or drop them, which keeps permutation genomes
// duplicate-free.

// SwapMutator exchanges randomly chosen gene pairs. The rate scales how many
// pairs are exchanged: rate 1 touches about half the genome, rate 0 returns
// an unchanged copy.
type SwapMutator[E gene.Gene[E]] struct {
	Rand *rand.Rand
}

func (m *SwapMutator[E]) Name() string {
	return "swap_random_pair"
}

func (m *SwapMutator[E]) Mutate(ind *Individual[E], rate float64) *Individual[E] {
	genome := ind.CloneGenome()
	if len(genome) < 2 {
		return ind.Spawn(genome)
	}
	swaps := scaledCount(rate, len(genome)/2)
	for s := 0; s < swaps; s++ {
		i := m.Rand.Intn(len(genome))
		j := m.Rand.Intn(len(genome))
		genome[i], genome[j] = genome[j], genome[i]
	}
	return ind.Spawn(genome)
}

// ReverseMutator reverses one randomly placed segment, the classic 2-opt
// move for tour-style genomes. The rate scales the maximum segment span.
type ReverseMutator[E gene.Gene[E]] struct {
	Rand *rand.Rand
}

func (m *ReverseMutator[E]) Name() string {
	return "reverse_random_segment"
}

func (m *ReverseMutator[E]) Mutate(ind *Individual[E], rate float64) *Individual[E] {
	genome := ind.CloneGenome()
	if len(genome) < 2 || rate <= 0 {
		return ind.Spawn(genome)
	}

	maxSpan := scaledCount(rate, len(genome))
	if maxSpan < 2 {
		maxSpan = 2
	}
	span := 2 + m.Rand.Intn(maxSpan-1)
	if span > len(genome) {
		span = len(genome)
	}
	start := m.Rand.Intn(len(genome) - span + 1)
	for i, j := start, start+span-1; i < j; i, j = i+1, j-1 {
		genome[i], genome[j] = genome[j], genome[i]
	}
	return ind.Spawn(genome)
}

// scaledCount maps a rate in [0, 1] onto [0, max], rounding up so any
// positive rate yields at least one application.
func scaledCount(rate float64, max int) int {
	if rate <= 0 || max <= 0 {
		return 0
	}
	if rate > 1 {
		rate = 1
	}
	return int(math.Ceil(rate * float64(max)))
}
