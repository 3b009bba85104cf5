package scape

import (
	"context"
	"encoding/json"

	"panmixia/internal/evo"
	"panmixia/internal/gene"
)

// runEngine drives one engine run for a concrete gene type and relays the
// observations through the type-erased Params hooks.
func runEngine[E gene.Gene[E]](ctx context.Context, params Params, adam []E, fitness evo.Fitness[E], mutate evo.Mutator[E]) (Outcome, error) {
	var eng *evo.Engine[E]

	cfg := evo.Config[E]{
		Adam:           adam,
		Fitness:        fitness,
		Mutate:         mutate,
		PopulationSize: params.PopulationSize,
		MaxRate:        params.MaxRate,
		MinRate:        params.MinRate,
		DecayPercent:   params.DecayPercent,
		ResetThreshold: params.ResetThreshold,
		Workers:        params.Workers,
		Seed:           params.Seed,
	}
	if params.OnGeneration != nil {
		cfg.OnGeneration = func(generation int, _ *evo.Individual[E]) {
			params.OnGeneration(Snapshot{
				Generation:   generation,
				Fitnesses:    eng.Fitnesses(),
				MutationRate: eng.MutationRate(),
			})
		}
	}

	eng, err := evo.NewEngine(cfg)
	if err != nil {
		return Outcome{}, err
	}

	// The initial population is the generation-0 baseline.
	if params.OnGeneration != nil {
		params.OnGeneration(Snapshot{
			Generation:   0,
			Fitnesses:    eng.Fitnesses(),
			MutationRate: eng.MutationRate(),
		})
	}

	var callback evo.Callback[E]
	if params.Callback != nil {
		callback = func(champion *evo.Individual[E]) {
			if rendered, err := renderChampion(champion); err == nil {
				params.Callback(rendered)
			}
		}
	}

	if err := eng.Run(ctx, params.Generations, callback); err != nil {
		return Outcome{}, err
	}

	rendered, err := renderChampion(eng.Champion())
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Champion:    rendered,
		Generations: eng.Generation(),
		Evaluations: eng.Evaluations(),
		FinalRate:   eng.MutationRate(),
	}, nil
}

func renderChampion[E gene.Gene[E]](champion *evo.Individual[E]) (Champion, error) {
	genome, err := json.Marshal(champion.Genome())
	if err != nil {
		return Champion{}, err
	}
	return Champion{
		Fitness:   champion.Fitness(),
		GenomeLen: champion.Len(),
		Genome:    genome,
	}, nil
}
