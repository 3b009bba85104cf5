package evo

import (
	"sync"

	"panmixia/internal/gene"
)

// Fitness scores an individual. Implementations must derive the score from
// the genome alone: the engine calls each one at most once per individual,
// possibly concurrently for distinct individuals.
type Fitness[E gene.Gene[E]] func(*Individual[E]) float64

// Mutator derives a new individual from ind at the given rate, a fraction in
// [0, 1]. Implementations must leave ind untouched and return a fresh
// individual, typically via CloneGenome and Spawn.
type Mutator[E gene.Gene[E]] func(ind *Individual[E], rate float64) *Individual[E]

// Individual pairs a genome with a lazily computed, memoized fitness score.
// The score is computed on first request and immutable afterwards.
type Individual[E gene.Gene[E]] struct {
	genome []E
	eval   Fitness[E]

	mu       sync.Mutex
	computed bool
	fitness  float64
}

func NewIndividual[E gene.Gene[E]](genome []E, eval Fitness[E]) *Individual[E] {
	return &Individual[E]{genome: genome, eval: eval}
}

// Genome returns the underlying gene sequence. Callers must treat it as
// read-only; derive modified copies via CloneGenome and Spawn.
func (i *Individual[E]) Genome() []E { return i.genome }

func (i *Individual[E]) Len() int { return len(i.genome) }

// CloneGenome returns a deep copy of the genome.
func (i *Individual[E]) CloneGenome() []E { return gene.CloneSlice(i.genome) }

// Spawn creates an individual around genome that shares i's fitness function
// and starts with an unset fitness cache.
func (i *Individual[E]) Spawn(genome []E) *Individual[E] {
	return &Individual[E]{genome: genome, eval: i.eval}
}

// Fitness computes the score on the first call and returns the cached value
// on every call after that.
func (i *Individual[E]) Fitness() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.computed {
		i.fitness = i.eval(i)
		i.computed = true
	}
	return i.fitness
}

// Evaluated reports whether the fitness score has been computed yet.
func (i *Individual[E]) Evaluated() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.computed
}
