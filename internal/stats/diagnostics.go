package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"panmixia/internal/model"
)

// Collector accumulates per-generation diagnostics over one run. Feed it the
// initial population as generation 0, then every completed generation in
// order. It is not safe for concurrent use; runs observe generations from a
// single goroutine.
type Collector struct {
	history      []float64
	diagnostics  []model.GenerationDiagnostics
	improvements int
	best         float64
	primed       bool
}

func NewCollector() *Collector {
	return &Collector{}
}

// Observe records one generation's sorted-best-first fitness snapshot and the
// scheduler rate that produced it. Generation 0 establishes the improvement
// baseline.
func (c *Collector) Observe(generation int, fitnesses []float64, mutationRate float64) {
	if len(fitnesses) == 0 {
		return
	}

	best := fitnesses[0]
	improved := c.primed && best > c.best
	if improved {
		c.improvements++
	}
	if !c.primed || best > c.best {
		c.best = best
	}
	c.primed = true

	c.history = append(c.history, best)
	c.diagnostics = append(c.diagnostics, model.GenerationDiagnostics{
		Generation:   generation,
		BestFitness:  best,
		MeanFitness:  stat.Mean(fitnesses, nil),
		MinFitness:   floats.Min(fitnesses),
		StdDev:       stdDev(fitnesses),
		MutationRate: mutationRate,
		Improved:     improved,
	})
}

// History returns the best fitness per observed generation, starting with
// generation 0.
func (c *Collector) History() []float64 {
	return append([]float64(nil), c.history...)
}

func (c *Collector) Diagnostics() []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// Improvements counts the observed generations that strictly improved on the
// best so far.
func (c *Collector) Improvements() int {
	return c.improvements
}

// FinalBest returns the best fitness seen across all observations.
func (c *Collector) FinalBest() float64 {
	return c.best
}

func stdDev(fitnesses []float64) float64 {
	if len(fitnesses) < 2 {
		return 0
	}
	return stat.StdDev(fitnesses, nil)
}
