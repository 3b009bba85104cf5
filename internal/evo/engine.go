package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"panmixia/internal/gene"
)

const (
	defaultPopulationSize = 10
	defaultMaxRate        = 100.0
	defaultMinRate        = 10.0
	defaultDecayPercent   = 10.0
	defaultResetThreshold = 40
)

// fitnessCompareScale converts fitness differences into sortable integers.
// Differences smaller than 1/fitnessCompareScale count as ties, and ties
// keep their existing order.
const fitnessCompareScale = 1000

// Callback receives the current champion. A run invokes it after the initial
// sort, after every generation that strictly improves the champion fitness,
// and once more when the run ends.
type Callback[E gene.Gene[E]] func(champion *Individual[E])

type Config[E gene.Gene[E]] struct {
	// Adam seeds the population: it occupies slot 0, and every other initial
	// slot holds a mutated copy of it at the maximum rate.
	Adam    []E
	Fitness Fitness[E]
	Mutate  Mutator[E]

	PopulationSize int
	MaxRate        float64 // percent
	MinRate        float64 // percent
	DecayPercent   float64 // percent of the current rate shed per generation
	ResetThreshold int
	Workers        int
	Seed           int64

	// Rotation is reserved for caller extensions. The engine stores it and
	// never reads it.
	Rotation []float64

	// OnGeneration, when set, observes every generation transition with the
	// new generation index and its champion.
	OnGeneration func(generation int, champion *Individual[E])
}

// Engine drives a population through generation transitions: strict elitism
// for the champion, rank-weighted parent selection, split-point crossover,
// and scheduled mutation. An Engine is not safe for concurrent use; the
// parallel fitness pass is internal.
type Engine[E gene.Gene[E]] struct {
	cfg   Config[E]
	rng   *rand.Rand
	sched *MutationScheduler

	members    []*Individual[E]
	sorted     bool
	generation int

	evaluations atomic.Int64
}

func NewEngine[E gene.Gene[E]](cfg Config[E]) (*Engine[E], error) {
	if len(cfg.Adam) == 0 {
		return nil, fmt.Errorf("adam genome is required")
	}
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("fitness function is required")
	}
	if cfg.Mutate == nil {
		return nil, fmt.Errorf("mutation operator is required")
	}
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = defaultPopulationSize
	}
	if cfg.PopulationSize < 1 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.MaxRate == 0 {
		cfg.MaxRate = defaultMaxRate
	}
	if cfg.MinRate == 0 {
		cfg.MinRate = defaultMinRate
	}
	if cfg.DecayPercent == 0 {
		cfg.DecayPercent = defaultDecayPercent
	}
	if cfg.ResetThreshold == 0 {
		cfg.ResetThreshold = defaultResetThreshold
	}
	if cfg.MaxRate < 0 || cfg.MaxRate > 100 {
		return nil, fmt.Errorf("max mutation rate must be in [0, 100]")
	}
	if cfg.MinRate < 0 || cfg.MinRate > cfg.MaxRate {
		return nil, fmt.Errorf("min mutation rate must be in [0, max rate]")
	}
	if cfg.DecayPercent < 0 || cfg.DecayPercent > 100 {
		return nil, fmt.Errorf("rate decay percent must be in [0, 100]")
	}
	if cfg.ResetThreshold < 1 {
		return nil, fmt.Errorf("reset threshold must be > 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	e := &Engine[E]{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		sched: NewMutationScheduler(cfg.MaxRate, cfg.MinRate, cfg.DecayPercent, cfg.ResetThreshold),
	}
	e.seedPopulation()
	return e, nil
}

func (e *Engine[E]) seedPopulation() {
	adam := NewIndividual(gene.CloneSlice(e.cfg.Adam), e.cfg.Fitness)
	members := make([]*Individual[E], e.cfg.PopulationSize)
	members[0] = adam
	for i := 1; i < len(members); i++ {
		members[i] = e.cfg.Mutate(adam, e.sched.Fraction())
	}
	e.members = members
}

// Run advances the population for the given number of generations, or
// unboundedly when generations is 0. The context is the external
// cancellation path for unbounded runs. The final callback fires on normal
// exhaustion and on cancellation, but not when a mating error aborts the
// run.
func (e *Engine[E]) Run(ctx context.Context, generations int, callback Callback[E]) error {
	if generations < 0 {
		return fmt.Errorf("generations must be >= 0")
	}
	if callback == nil {
		callback = func(*Individual[E]) {}
	}

	e.evaluateAndSort()
	callback(e.members[0])
	best := e.members[0].Fitness()

	for completed := 0; generations == 0 || completed < generations; completed++ {
		if err := ctx.Err(); err != nil {
			callback(e.members[0])
			return err
		}
		if err := e.step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				callback(e.members[0])
			}
			return err
		}

		current := e.members[0].Fitness()
		improved := current > best
		if improved {
			best = current
			callback(e.members[0])
		}
		e.sched.Advance(improved)
	}

	callback(e.members[0])
	return nil
}

// step performs one generation transition: the champion is carried over
// unchanged, and the remaining slots are filled with bred children.
func (e *Engine[E]) step(ctx context.Context) error {
	e.evaluateAndSort()

	champion := e.members[0]
	next := make([]*Individual[E], len(e.members))
	next[0] = champion

	rate := e.sched.Fraction()
	i := 1
	for ; i+1 < len(next); i += 2 {
		if err := ctx.Err(); err != nil {
			return err
		}
		childA, childB, err := e.breed(champion, rate)
		if err != nil {
			return err
		}
		next[i], next[i+1] = childA, childB
	}
	if i < len(next) {
		if err := ctx.Err(); err != nil {
			return err
		}
		childA, _, err := e.breed(champion, rate)
		if err != nil {
			return err
		}
		next[i] = childA
	}

	e.members = next
	e.sorted = false
	e.generation++
	e.evaluateAndSort()

	if e.cfg.OnGeneration != nil {
		e.cfg.OnGeneration(e.generation, e.members[0])
	}
	return nil
}

// breed draws two parents, mates them, and mutates the children at the
// current rate. Mutation is skipped when exactly one parent is the champion,
// so each generation keeps one unmutated crossover of the champion with
// another member.
func (e *Engine[E]) breed(champion *Individual[E], rate float64) (*Individual[E], *Individual[E], error) {
	p1 := e.members[pickRank(e.rng, len(e.members))]
	p2 := e.members[pickRank(e.rng, len(e.members))]

	childA, childB, err := Mate(e.rng, p1, p2)
	if err != nil {
		return nil, nil, err
	}
	if exactlyOneChampion(p1, p2, champion) {
		return childA, childB, nil
	}
	return e.cfg.Mutate(childA, rate), e.cfg.Mutate(childB, rate), nil
}

func exactlyOneChampion[E gene.Gene[E]](p1, p2, champion *Individual[E]) bool {
	return (p1 == champion) != (p2 == champion)
}

// evaluateAndSort computes any missing fitness scores in parallel, then
// stable-sorts the population best-first.
func (e *Engine[E]) evaluateAndSort() {
	if e.sorted {
		return
	}

	workers := e.cfg.Workers
	if workers > len(e.members) {
		workers = len(e.members)
	}
	p := pool.New().WithMaxGoroutines(workers)
	for _, member := range e.members {
		if member.Evaluated() {
			continue
		}
		member := member // per-iteration copy; the goroutine must not share the loop variable
		p.Go(func() {
			e.evaluations.Add(1)
			member.Fitness()
		})
	}
	p.Wait()

	slices.SortStableFunc(e.members, func(a, b *Individual[E]) int {
		return int((b.Fitness() - a.Fitness()) * fitnessCompareScale)
	})
	e.sorted = true
}

// Champion returns the current best individual, evaluating and sorting the
// population first if needed.
func (e *Engine[E]) Champion() *Individual[E] {
	e.evaluateAndSort()
	return e.members[0]
}

// Generation returns the number of completed generation transitions.
func (e *Engine[E]) Generation() int { return e.generation }

// MutationRate returns the scheduler's current rate in percent.
func (e *Engine[E]) MutationRate() float64 { return e.sched.Rate() }

// Fitnesses returns the population's fitness values in rank order.
func (e *Engine[E]) Fitnesses() []float64 {
	e.evaluateAndSort()
	out := make([]float64, len(e.members))
	for i, member := range e.members {
		out[i] = member.Fitness()
	}
	return out
}

// Evaluations returns the number of fitness function invocations so far.
// Memoization keeps it well below population size times generations.
func (e *Engine[E]) Evaluations() int64 { return e.evaluations.Load() }
