package panmixia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"panmixia/internal/model"
	"panmixia/internal/scape"
	"panmixia/internal/stats"
	"panmixia/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "panmixia.db"

	defaultPopulation     = 20
	defaultGenerations    = 100
	defaultWorkers        = 4
	defaultMaxRate        = 100
	defaultMinRate        = 10
	defaultDecayPercent   = 10
	defaultResetThreshold = 40
)

// Options configures a Client. Zero values select the memory store and the
// default artifact directories.
type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

// Client runs scapes and archives their results: the run record, the
// best-by-generation history, per-generation diagnostics, and the final
// champion. Archived runs hold results only and cannot be resumed. A Client
// is not safe for concurrent use.
type Client struct {
	store storage.Store
	ready bool

	runsDir    string
	exportsDir string
}

// RunRequest configures one archived run. Zero values fall back to the
// package defaults, and the filled-in values are what the archive records.
type RunRequest struct {
	Scape          string
	Population     int
	Generations    int
	Seed           int64
	Workers        int
	MaxRate        float64 // percent
	MinRate        float64 // percent
	DecayPercent   float64 // percent
	ResetThreshold int

	// OnGeneration observes every generation's best fitness, including the
	// initial population as generation 0.
	OnGeneration func(generation int, bestFitness float64)
}

type RunSummary struct {
	RunID            string
	Scape            string
	ArtifactsDir     string
	BestByGeneration []float64
	BestFitness      float64
	FinalRate        float64
	Evaluations      int64
	Improvements     int
	Generations      int
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Scape        string
	Seed         int64
	Population   int
	Generations  int
	BestFitness  float64
	Evaluations  int64
	Improvements int
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ChampionRequest struct {
	RunID  string
	Latest bool
}

type ChampionItem struct {
	RunID     string
	Scape     string
	Fitness   float64
	GenomeLen int
	Genome    json.RawMessage
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ScapeItem struct {
	Name        string
	Description string
}

type ScapeSummaryItem struct {
	Name        string
	Description string
	Runs        int
	BestFitness float64
	BestRunID   string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store and the bundled scapes ahead of the first run.
func (c *Client) Init(ctx context.Context) error {
	return c.ensureReady(ctx)
}

// Run executes one scape run to completion and archives its results.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Scape == "" {
		req.Scape = "smoothing"
	}
	if req.Population <= 0 {
		req.Population = defaultPopulation
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.Workers <= 0 {
		req.Workers = defaultWorkers
	}
	if req.MaxRate == 0 {
		req.MaxRate = defaultMaxRate
	}
	if req.MinRate == 0 {
		req.MinRate = defaultMinRate
	}
	if req.DecayPercent == 0 {
		req.DecayPercent = defaultDecayPercent
	}
	if req.ResetThreshold == 0 {
		req.ResetThreshold = defaultResetThreshold
	}

	if err := c.ensureReady(ctx); err != nil {
		return RunSummary{}, err
	}
	sc, err := scape.Get(req.Scape)
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s", req.Scape, uuid.NewString())
	collector := stats.NewCollector()

	outcome, err := sc.Run(ctx, scape.Params{
		PopulationSize: req.Population,
		Generations:    req.Generations,
		MaxRate:        req.MaxRate,
		MinRate:        req.MinRate,
		DecayPercent:   req.DecayPercent,
		ResetThreshold: req.ResetThreshold,
		Workers:        req.Workers,
		Seed:           req.Seed,
		OnGeneration: func(snap scape.Snapshot) {
			collector.Observe(snap.Generation, snap.Fitnesses, snap.MutationRate)
			if req.OnGeneration != nil {
				req.OnGeneration(snap.Generation, snap.Fitnesses[0])
			}
		},
	})
	if err != nil {
		return RunSummary{}, err
	}

	record := model.RunRecord{
		VersionedRecord: storage.NewVersionedRecord(),
		ID:              runID,
		Scape:           req.Scape,
		Seed:            req.Seed,
		PopulationSize:  req.Population,
		Generations:     outcome.Generations,
		MaxRate:         req.MaxRate,
		MinRate:         req.MinRate,
		DecayPercent:    req.DecayPercent,
		ResetThreshold:  req.ResetThreshold,
		Workers:         req.Workers,
		BestFitness:     outcome.Champion.Fitness,
		FinalRate:       outcome.FinalRate,
		Evaluations:     outcome.Evaluations,
		Improvements:    collector.Improvements(),
		CreatedAt:       now,
	}
	champion := model.ChampionRecord{
		VersionedRecord: storage.NewVersionedRecord(),
		RunID:           runID,
		Scape:           req.Scape,
		Fitness:         outcome.Champion.Fitness,
		GenomeLen:       outcome.Champion.GenomeLen,
		Genome:          outcome.Champion.Genome,
	}

	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, collector.History()); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, collector.Diagnostics()); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveChampion(ctx, champion); err != nil {
		return RunSummary{}, err
	}
	if err := c.updateScapeSummary(ctx, sc, runID, outcome.Champion.Fitness); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Run:              record,
		BestByGeneration: collector.History(),
		Diagnostics:      collector.Diagnostics(),
		Champion:         champion,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:          runID,
		Scape:          req.Scape,
		PopulationSize: req.Population,
		Generations:    outcome.Generations,
		Seed:           req.Seed,
		Workers:        req.Workers,
		BestFitness:    outcome.Champion.Fitness,
		Evaluations:    outcome.Evaluations,
		Improvements:   collector.Improvements(),
		CreatedAtUTC:   now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		Scape:            req.Scape,
		ArtifactsDir:     filepath.Clean(runDir),
		BestByGeneration: collector.History(),
		BestFitness:      outcome.Champion.Fitness,
		FinalRate:        outcome.FinalRate,
		Evaluations:      outcome.Evaluations,
		Improvements:     collector.Improvements(),
		Generations:      outcome.Generations,
	}, nil
}

// Runs lists archived runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, req.Limit)
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		r := runs[i]
		out = append(out, RunItem{
			RunID:        r.ID,
			CreatedAtUTC: r.CreatedAt.UTC().Format(time.RFC3339Nano),
			Scape:        r.Scape,
			Seed:         r.Seed,
			Population:   r.PopulationSize,
			Generations:  r.Generations,
			BestFitness:  r.BestFitness,
			Evaluations:  r.Evaluations,
			Improvements: r.Improvements,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) Champion(ctx context.Context, req ChampionRequest) (ChampionItem, error) {
	if err := c.ensureReady(ctx); err != nil {
		return ChampionItem{}, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "champion")
	if err != nil {
		return ChampionItem{}, err
	}

	champion, ok, err := c.store.GetChampion(ctx, runID)
	if err != nil {
		return ChampionItem{}, err
	}
	if !ok {
		return ChampionItem{}, fmt.Errorf("champion not found for run id: %s", runID)
	}
	return ChampionItem{
		RunID:     champion.RunID,
		Scape:     champion.Scape,
		Fitness:   champion.Fitness,
		GenomeLen: champion.GenomeLen,
		Genome:    append(json.RawMessage(nil), champion.Genome...),
	}, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	if err := c.ensureReady(ctx); err != nil {
		return ExportSummary{}, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Scapes lists the registered scapes in name order.
func (c *Client) Scapes(ctx context.Context) ([]ScapeItem, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	names := scape.Names()
	out := make([]ScapeItem, 0, len(names))
	for _, name := range names {
		s, err := scape.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ScapeItem{Name: s.Name(), Description: s.Description()})
	}
	return out, nil
}

func (c *Client) ScapeSummary(ctx context.Context, scapeName string) (ScapeSummaryItem, error) {
	if scapeName == "" {
		return ScapeSummaryItem{}, errors.New("scape name is required")
	}
	if err := c.ensureReady(ctx); err != nil {
		return ScapeSummaryItem{}, err
	}

	summary, ok, err := c.store.GetScapeSummary(ctx, scapeName)
	if err != nil {
		return ScapeSummaryItem{}, err
	}
	if !ok {
		return ScapeSummaryItem{}, fmt.Errorf("scape summary not found: %s", scapeName)
	}
	return ScapeSummaryItem{
		Name:        summary.Name,
		Description: summary.Description,
		Runs:        summary.Runs,
		BestFitness: summary.BestFitness,
		BestRunID:   summary.BestRunID,
	}, nil
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c.ready {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	if err := scape.EnsureDefaults(); err != nil {
		return err
	}
	c.ready = true
	return nil
}

// resolveRunID applies the shared run id / latest exclusivity rules of the
// read endpoints.
func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[len(runs)-1].ID, nil
}

func (c *Client) updateScapeSummary(ctx context.Context, sc scape.Scape, runID string, fitness float64) error {
	summary, ok, err := c.store.GetScapeSummary(ctx, sc.Name())
	if err != nil {
		return err
	}
	if !ok {
		summary = model.ScapeSummary{
			VersionedRecord: storage.NewVersionedRecord(),
			Name:            sc.Name(),
			Description:     sc.Description(),
		}
	}

	summary.Runs++
	if summary.Runs == 1 || fitness > summary.BestFitness {
		summary.BestFitness = fitness
		summary.BestRunID = runID
	}
	return c.store.SaveScapeSummary(ctx, summary)
}
