package scape

import (
	"context"
	"math"
	"math/rand"

	"panmixia/internal/evo"
	"panmixia/internal/gene"
)

const (
	tourCities = 12
	tourRadius = 100.0

	// Visiting order for the first individual. Coprime with tourCities, so
	// the stride walk touches every city exactly once.
	tourStride = 5
)

// tourScape searches for the shortest closed tour through cities placed
// evenly on a circle. The optimum walks the circle in order.
type tourScape struct {
	cities []gene.Point
}

func newTourScape() tourScape {
	cities := make([]gene.Point, tourCities)
	for i := range cities {
		angle := 2 * math.Pi * float64(i) / tourCities
		cities[i] = gene.Point{
			X: tourRadius * math.Cos(angle),
			Y: tourRadius * math.Sin(angle),
		}
	}
	return tourScape{cities: cities}
}

func (tourScape) Name() string {
	return "tour"
}

func (s tourScape) Description() string {
	return "find the shortest closed tour through cities on a circle"
}

func (s tourScape) Run(ctx context.Context, params Params) (Outcome, error) {
	mutator := &evo.ReverseMutator[gene.Point]{Rand: rand.New(rand.NewSource(params.Seed + 1))}
	return runEngine(ctx, params, s.adam(), tourFitness, mutator.Mutate)
}

// adam visits the cities by a fixed stride instead of around the circle,
// producing a heavily crossed tour.
func (s tourScape) adam() []gene.Point {
	genome := make([]gene.Point, len(s.cities))
	for i := range genome {
		genome[i] = s.cities[i*tourStride%len(s.cities)]
	}
	return genome
}

func tourFitness(ind *evo.Individual[gene.Point]) float64 {
	genome := ind.Genome()
	if len(genome) < 2 {
		return 0
	}
	length := 0.0
	for i := 1; i < len(genome); i++ {
		length += genome[i-1].Distance(genome[i])
	}
	length += genome[len(genome)-1].Distance(genome[0])
	return -length
}
