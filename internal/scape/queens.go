package scape

import (
	"context"
	"math/rand"

	"panmixia/internal/evo"
	"panmixia/internal/gene"
)

const queensBoard = 8

// queensScape places queens on a chess board, one per row, so that none
// attack each other. Genomes are column permutations indexed by row, which
// rules out row and column attacks; fitness counts the remaining diagonal
// conflicts, negated. A solution scores zero.
type queensScape struct {
	board int
}

func newQueensScape() queensScape {
	return queensScape{board: queensBoard}
}

func (queensScape) Name() string {
	return "queens"
}

func (s queensScape) Description() string {
	return "place queens so that none attack each other"
}

func (s queensScape) Run(ctx context.Context, params Params) (Outcome, error) {
	mutator := &evo.SwapMutator[gene.Int]{Rand: rand.New(rand.NewSource(params.Seed + 1))}
	return runEngine(ctx, params, s.adam(), queensFitness, mutator.Mutate)
}

// adam lines the queens up on the main diagonal, where every pair attacks.
func (s queensScape) adam() []gene.Int {
	genome := make([]gene.Int, s.board)
	for i := range genome {
		genome[i] = gene.Int(i)
	}
	return genome
}

func queensFitness(ind *evo.Individual[gene.Int]) float64 {
	genome := ind.Genome()
	conflicts := 0
	for i := 0; i < len(genome); i++ {
		for j := i + 1; j < len(genome); j++ {
			rowGap := j - i
			colGap := int(genome[j]) - int(genome[i])
			if colGap < 0 {
				colGap = -colGap
			}
			if colGap == rowGap {
				conflicts++
			}
		}
	}
	return -float64(conflicts)
}
