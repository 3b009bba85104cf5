package storage

import (
	"context"

	"panmixia/internal/model"
)

// Store persists run results keyed by run ID, plus per-scape aggregates.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveScapeSummary(ctx context.Context, summary model.ScapeSummary) error
	GetScapeSummary(ctx context.Context, name string) (model.ScapeSummary, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveChampion(ctx context.Context, champion model.ChampionRecord) error
	GetChampion(ctx context.Context, runID string) (model.ChampionRecord, bool, error)
}
