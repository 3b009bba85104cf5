package evo

import (
	"math/rand"
	"sort"
	"testing"

	"panmixia/internal/gene"
)

func intGenome(vals ...int) []gene.Int {
	genome := make([]gene.Int, len(vals))
	for i, v := range vals {
		genome[i] = gene.Int(v)
	}
	return genome
}

func constFitness(v float64) Fitness[gene.Int] {
	return func(*Individual[gene.Int]) float64 { return v }
}

func sortedCopy(genome []gene.Int) []int {
	out := make([]int, len(genome))
	for i, g := range genome {
		out[i] = int(g)
	}
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSwapMutatorPreservesMultiset(t *testing.T) {
	m := &SwapMutator[gene.Int]{Rand: rand.New(rand.NewSource(11))}
	parent := NewIndividual(intGenome(1, 2, 3, 4, 5, 6, 7, 8), constFitness(0))

	for trial := 0; trial < 50; trial++ {
		child := m.Mutate(parent, 1.0)
		if child == parent {
			t.Fatalf("trial %d: mutator returned the parent itself", trial)
		}
		if !equalInts(sortedCopy(child.Genome()), sortedCopy(parent.Genome())) {
			t.Fatalf("trial %d: gene multiset changed: parent=%v child=%v", trial, parent.Genome(), child.Genome())
		}
	}
}

func TestSwapMutatorLeavesParentUntouched(t *testing.T) {
	m := &SwapMutator[gene.Int]{Rand: rand.New(rand.NewSource(3))}
	parent := NewIndividual(intGenome(10, 20, 30, 40, 50), constFitness(0))
	before := append([]gene.Int(nil), parent.Genome()...)

	for trial := 0; trial < 20; trial++ {
		m.Mutate(parent, 1.0)
	}
	for i, g := range parent.Genome() {
		if !g.Equal(before[i]) {
			t.Fatalf("parent genome modified at %d: got %v want %v", i, g, before[i])
		}
	}
}

func TestSwapMutatorZeroRateCopies(t *testing.T) {
	m := &SwapMutator[gene.Int]{Rand: rand.New(rand.NewSource(7))}
	parent := NewIndividual(intGenome(3, 1, 4, 1, 5), constFitness(0))

	child := m.Mutate(parent, 0)
	for i, g := range child.Genome() {
		if !g.Equal(parent.Genome()[i]) {
			t.Fatalf("rate 0 changed gene %d: got %v want %v", i, g, parent.Genome()[i])
		}
	}
}

func TestSwapMutatorTinyGenome(t *testing.T) {
	m := &SwapMutator[gene.Int]{Rand: rand.New(rand.NewSource(5))}
	single := NewIndividual(intGenome(42), constFitness(0))

	child := m.Mutate(single, 1.0)
	if child.Len() != 1 || !child.Genome()[0].Equal(gene.Int(42)) {
		t.Fatalf("single-gene genome altered: %v", child.Genome())
	}
}

func TestReverseMutatorPreservesMultiset(t *testing.T) {
	m := &ReverseMutator[gene.Int]{Rand: rand.New(rand.NewSource(23))}
	parent := NewIndividual(intGenome(9, 8, 7, 6, 5, 4, 3, 2, 1, 0), constFitness(0))

	for trial := 0; trial < 50; trial++ {
		child := m.Mutate(parent, 1.0)
		if !equalInts(sortedCopy(child.Genome()), sortedCopy(parent.Genome())) {
			t.Fatalf("trial %d: gene multiset changed: parent=%v child=%v", trial, parent.Genome(), child.Genome())
		}
	}
}

func TestReverseMutatorChangesOrder(t *testing.T) {
	m := &ReverseMutator[gene.Int]{Rand: rand.New(rand.NewSource(29))}
	parent := NewIndividual(intGenome(1, 2, 3, 4, 5, 6, 7, 8), constFitness(0))

	changed := 0
	for trial := 0; trial < 50; trial++ {
		child := m.Mutate(parent, 1.0)
		for i, g := range child.Genome() {
			if !g.Equal(parent.Genome()[i]) {
				changed++
				break
			}
		}
	}
	if changed == 0 {
		t.Fatalf("reverse mutator never reordered the genome in 50 trials")
	}
}

func TestReverseMutatorChildUnevaluated(t *testing.T) {
	m := &ReverseMutator[gene.Int]{Rand: rand.New(rand.NewSource(31))}
	parent := NewIndividual(intGenome(1, 2, 3, 4), constFitness(1))
	parent.Fitness()

	child := m.Mutate(parent, 0.5)
	if child.Evaluated() {
		t.Fatalf("mutated child should not inherit the parent's cached fitness")
	}
}

func TestScaledCount(t *testing.T) {
	cases := []struct {
		rate float64
		max  int
		want int
	}{
		{0, 10, 0},
		{-0.5, 10, 0},
		{0.1, 10, 1},
		{0.5, 10, 5},
		{0.55, 10, 6},
		{1.0, 10, 10},
		{2.0, 10, 10},
		{1.0, 0, 0},
	}
	for _, tc := range cases {
		if got := scaledCount(tc.rate, tc.max); got != tc.want {
			t.Fatalf("scaledCount(%v, %d) = %d, want %d", tc.rate, tc.max, got, tc.want)
		}
	}
}
