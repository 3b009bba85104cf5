package stats

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"panmixia/internal/model"
)

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	artifacts := RunArtifacts{
		Run: model.RunRecord{
			ID:             runID,
			Scape:          "smoothing",
			PopulationSize: 10,
			Generations:    3,
			Seed:           1,
			Workers:        2,
			BestFitness:    -9,
		},
		BestByGeneration: []float64{-31, -20, -12, -9},
		Diagnostics: []model.GenerationDiagnostics{
			{Generation: 0, BestFitness: -31, MeanFitness: -40, MinFitness: -52, MutationRate: 100},
			{Generation: 1, BestFitness: -20, MeanFitness: -33, MinFitness: -48, MutationRate: 90, Improved: true},
		},
		Champion: model.ChampionRecord{
			RunID:     runID,
			Scape:     "smoothing",
			Fitness:   -9,
			GenomeLen: 8,
			Genome:    json.RawMessage(`[1,2,3,4,5,6,8,7]`),
		},
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	for _, file := range []string{"config.json", "history.csv", "diagnostics.json", "champion.json"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range []string{"config.json", "history.csv", "diagnostics.json", "champion.json"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	if err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestExportRunArtifactsMissingRun(t *testing.T) {
	_, err := ExportRunArtifacts(t.TempDir(), "nope", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing run directory")
	}
}

func TestReadRunRecordRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := RunArtifacts{
		Run: model.RunRecord{ID: "run-7", Scape: "tour", Seed: 7, BestFitness: -812.5},
	}
	if _, err := WriteRunArtifacts(baseDir, artifacts); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	run, ok, err := ReadRunRecord(baseDir, "run-7")
	if err != nil {
		t.Fatalf("read run record: %v", err)
	}
	if !ok {
		t.Fatal("expected run record")
	}
	if run.Scape != "tour" || run.BestFitness != -812.5 {
		t.Fatalf("unexpected run record: %+v", run)
	}

	if _, ok, err := ReadRunRecord(baseDir, "missing"); err != nil || ok {
		t.Fatalf("missing run record: ok=%v err=%v", ok, err)
	}
}

func TestRunIndexAppendAndList(t *testing.T) {
	baseDir := t.TempDir()

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list empty index: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(entries))
	}

	first := RunIndexEntry{
		RunID:          "smoothing-a",
		Scape:          "smoothing",
		PopulationSize: 10,
		Generations:    20,
		Seed:           1,
		BestFitness:    -18,
		Evaluations:    190,
		CreatedAtUTC:   "2026-08-25T10:00:00Z",
	}
	second := RunIndexEntry{
		RunID:          "queens-b",
		Scape:          "queens",
		PopulationSize: 24,
		Generations:    50,
		Seed:           2,
		BestFitness:    -1,
		Evaluations:    1174,
		CreatedAtUTC:   "2026-08-25T11:00:00Z",
	}
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := AppendRunIndex(baseDir, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "queens-b" || entries[1].RunID != "smoothing-a" {
		t.Fatalf("expected newest first, got %s then %s", entries[0].RunID, entries[1].RunID)
	}

	first.BestFitness = -4
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("re-append first: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list updated index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("re-append duplicated entry: %d entries", len(entries))
	}
	if entries[1].BestFitness != -4 {
		t.Fatalf("entry not updated in place: best=%v", entries[1].BestFitness)
	}
}

func TestAppendRunIndexRequiresRunID(t *testing.T) {
	if err := AppendRunIndex(t.TempDir(), RunIndexEntry{Scape: "tour"}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestHistoryCSVFormat(t *testing.T) {
	baseDir := t.TempDir()
	history := []float64{-31, -20.25, -12, -9}
	artifacts := RunArtifacts{
		Run:              model.RunRecord{ID: "run-8", Scape: "queens"},
		BestByGeneration: history,
	}
	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	f, err := os.Open(filepath.Join(runDir, "history.csv"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read history csv: %v", err)
	}
	if len(rows) != len(history)+1 {
		t.Fatalf("expected header plus %d rows, got %d", len(history), len(rows))
	}
	if rows[0][0] != "generation" || rows[0][1] != "best_fitness" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	for i, want := range history {
		row := rows[i+1]
		if row[0] != strconv.Itoa(i) {
			t.Fatalf("row %d generation = %s", i, row[0])
		}
		got, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			t.Fatalf("parse row %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("row %d best = %v, want %v", i, got, want)
		}
	}
}
