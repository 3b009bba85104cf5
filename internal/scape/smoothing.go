package scape

import (
	"context"
	"math"
	"math/rand"

	"panmixia/internal/evo"
	"panmixia/internal/gene"
)

const smoothingSize = 16

// smoothingScape rearranges a fixed set of integers to minimize the sum of
// adjacent absolute differences. The optimum is the sorted order, scoring
// -(max-min).
type smoothingScape struct {
	size int
}

func newSmoothingScape() smoothingScape {
	return smoothingScape{size: smoothingSize}
}

func (smoothingScape) Name() string {
	return "smoothing"
}

func (s smoothingScape) Description() string {
	return "order integers to minimize the sum of adjacent absolute differences"
}

func (s smoothingScape) Run(ctx context.Context, params Params) (Outcome, error) {
	mutator := &evo.SwapMutator[gene.Int]{Rand: rand.New(rand.NewSource(params.Seed + 1))}
	return runEngine(ctx, params, s.adam(), smoothingFitness, mutator.Mutate)
}

// adam interleaves the low and high halves, one of the worst possible
// arrangements, so runs have room to improve.
func (s smoothingScape) adam() []gene.Int {
	genome := make([]gene.Int, 0, s.size)
	lo, hi := 1, s.size
	for lo <= hi {
		genome = append(genome, gene.Int(lo))
		if lo != hi {
			genome = append(genome, gene.Int(hi))
		}
		lo++
		hi--
	}
	return genome
}

func smoothingFitness(ind *evo.Individual[gene.Int]) float64 {
	genome := ind.Genome()
	sum := 0.0
	for i := 1; i < len(genome); i++ {
		sum += math.Abs(float64(genome[i]) - float64(genome[i-1]))
	}
	return -sum
}
