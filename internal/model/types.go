package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the archived configuration and outcome of one engine run.
// Population state is deliberately absent; archived runs cannot be resumed.
type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	Scape          string    `json:"scape"`
	Seed           int64     `json:"seed"`
	PopulationSize int       `json:"population_size"`
	Generations    int       `json:"generations"`
	MaxRate        float64   `json:"max_rate"`
	MinRate        float64   `json:"min_rate"`
	DecayPercent   float64   `json:"decay_percent"`
	ResetThreshold int       `json:"reset_threshold"`
	Workers        int       `json:"workers"`
	BestFitness    float64   `json:"best_fitness"`
	FinalRate      float64   `json:"final_rate"`
	Evaluations    int64     `json:"evaluations"`
	Improvements   int       `json:"improvements"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChampionRecord is the final best individual of a run. The genome is stored
// as the scape's own JSON rendering so the archive stays agnostic to gene
// types.
type ChampionRecord struct {
	VersionedRecord
	RunID     string          `json:"run_id"`
	Scape     string          `json:"scape"`
	Fitness   float64         `json:"fitness"`
	GenomeLen int             `json:"genome_len"`
	Genome    json.RawMessage `json:"genome"`
}

// GenerationDiagnostics summarizes one generation's fitness distribution and
// scheduler state.
type GenerationDiagnostics struct {
	Generation   int     `json:"generation"`
	BestFitness  float64 `json:"best_fitness"`
	MeanFitness  float64 `json:"mean_fitness"`
	MinFitness   float64 `json:"min_fitness"`
	StdDev       float64 `json:"std_dev"`
	MutationRate float64 `json:"mutation_rate"`
	Improved     bool    `json:"improved"`
}

// ScapeSummary aggregates archived results per scape.
type ScapeSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Runs        int     `json:"runs"`
	BestFitness float64 `json:"best_fitness"`
	BestRunID   string  `json:"best_run_id"`
}
