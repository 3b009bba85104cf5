//go:build sqlite

package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"panmixia/internal/model"
)

func TestSQLiteStoreRunArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "panmixia.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := model.RunRecord{
		VersionedRecord: NewVersionedRecord(),
		ID:              "run-1",
		Scape:           "smoothing",
		Seed:            42,
		PopulationSize:  20,
		Generations:     50,
		MaxRate:         100,
		MinRate:         10,
		DecayPercent:    10,
		ResetThreshold:  40,
		Workers:         4,
		BestFitness:     -7,
		FinalRate:       28,
		Evaluations:     960,
		Improvements:    9,
		CreatedAt:       time.Unix(1700000000, 0).UTC(),
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	loadedRun, ok, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.ID)
	}
	if loadedRun.Scape != run.Scape || loadedRun.Evaluations != run.Evaluations {
		t.Fatalf("unexpected run loaded: %+v", loadedRun)
	}

	history := []float64{-31, -22, -15, -7}
	if err := store.SaveFitnessHistory(ctx, run.ID, history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	loadedHistory, ok, err := store.GetFitnessHistory(ctx, run.ID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected fitness history run-1")
	}
	if len(loadedHistory) != len(history) || loadedHistory[3] != history[3] {
		t.Fatalf("unexpected history loaded: %+v", loadedHistory)
	}

	diagnostics := []model.GenerationDiagnostics{
		{Generation: 0, BestFitness: -31, MeanFitness: -40, MinFitness: -52, StdDev: 6.5, MutationRate: 100},
		{Generation: 1, BestFitness: -22, MeanFitness: -35, MinFitness: -50, StdDev: 7.1, MutationRate: 90, Improved: true},
	}
	if err := store.SaveGenerationDiagnostics(ctx, run.ID, diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loadedDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, run.ID)
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected diagnostics run-1")
	}
	if len(loadedDiagnostics) != 2 || !loadedDiagnostics[1].Improved {
		t.Fatalf("unexpected diagnostics loaded: %+v", loadedDiagnostics)
	}

	champion := model.ChampionRecord{
		VersionedRecord: NewVersionedRecord(),
		RunID:           run.ID,
		Scape:           run.Scape,
		Fitness:         -7,
		GenomeLen:       8,
		Genome:          json.RawMessage(`[1,2,3,4,5,6,7,8]`),
	}
	if err := store.SaveChampion(ctx, champion); err != nil {
		t.Fatalf("save champion: %v", err)
	}
	loadedChampion, ok, err := store.GetChampion(ctx, run.ID)
	if err != nil {
		t.Fatalf("get champion: %v", err)
	}
	if !ok {
		t.Fatal("expected champion run-1")
	}
	if loadedChampion.Fitness != champion.Fitness || string(loadedChampion.Genome) != string(champion.Genome) {
		t.Fatalf("unexpected champion loaded: %+v", loadedChampion)
	}

	summary := model.ScapeSummary{
		VersionedRecord: NewVersionedRecord(),
		Name:            "smoothing",
		Description:     "minimize the sum of adjacent absolute differences",
		Runs:            1,
		BestFitness:     -7,
		BestRunID:       run.ID,
	}
	if err := store.SaveScapeSummary(ctx, summary); err != nil {
		t.Fatalf("save scape summary: %v", err)
	}
	loadedSummary, ok, err := store.GetScapeSummary(ctx, "smoothing")
	if err != nil {
		t.Fatalf("get scape summary: %v", err)
	}
	if !ok {
		t.Fatal("expected scape summary smoothing")
	}
	if loadedSummary.BestRunID != run.ID {
		t.Fatalf("unexpected scape summary loaded: %+v", loadedSummary)
	}
}

func TestSQLiteStoreListRunsOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "panmixia.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	base := time.Unix(1700000000, 0).UTC()
	for _, run := range []model.RunRecord{
		{VersionedRecord: NewVersionedRecord(), ID: "run-b", CreatedAt: base.Add(2 * time.Minute)},
		{VersionedRecord: NewVersionedRecord(), ID: "run-a", CreatedAt: base},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestSQLiteStoreMissingLookups(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "panmixia.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetFitnessHistory(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing history: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetChampion(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing champion: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "panmixia.db"))
	if err := store.SaveFitnessHistory(context.Background(), "run-1", []float64{1}); err == nil {
		t.Fatal("expected error before Init")
	}
}

func TestSQLiteStoreInitRequiresPath(t *testing.T) {
	store := NewSQLiteStore("")
	if err := store.Init(context.Background()); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}
