package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"panmixia/internal/stats"
	"panmixia/internal/storage"
	"panmixia/pkg/panmixia"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "scapes":
		return runScapes(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "champion":
		return runChampion(ctx, args[1:])
	case "scape-summary":
		return runScapeSummary(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "panmixia.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := panmixia.New(panmixia.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}
	scapes, err := client.Scapes(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(scapes))
	for _, s := range scapes {
		names = append(names, s.Name)
	}

	fmt.Printf("initialized store=%s scapes=%v\n", *storeKind, names)
	return nil
}

func runScapes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scapes", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit scapes as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := panmixia.New(panmixia.Options{RunsDir: runsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	scapes, err := client.Scapes(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		type scapeItem struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		items := make([]scapeItem, 0, len(scapes))
		for _, s := range scapes {
			items = append(items, scapeItem{Name: s.Name, Description: s.Description})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, s := range scapes {
		fmt.Printf("scape=%s description=%s\n", s.Name, s.Description)
	}
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional TOML run config path")
	scapeName := fs.String("scape", "smoothing", "scape name")
	population := fs.Int("pop", 20, "population size")
	generations := fs.Int("gens", 100, "generation count")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 4, "fitness evaluation worker count")
	maxRate := fs.Float64("max-rate", 100, "mutation rate ceiling in percent")
	minRate := fs.Float64("min-rate", 10, "mutation rate floor in percent")
	decayPercent := fs.Float64("decay", 10, "per-generation mutation rate decay in percent")
	resetThreshold := fs.Int("reset-threshold", 40, "stale generations before the rate resets to the ceiling")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "panmixia.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = panmixia.RunRequest{
			Scape:          *scapeName,
			Population:     *population,
			Generations:    *generations,
			Seed:           *seed,
			Workers:        *workers,
			MaxRate:        *maxRate,
			MinRate:        *minRate,
			DecayPercent:   *decayPercent,
			ResetThreshold: *resetThreshold,
		}
	} else {
		err := overrideFromFlags(&req, setFlags, map[string]any{
			"scape":           *scapeName,
			"pop":             *population,
			"gens":            *generations,
			"seed":            *seed,
			"workers":         *workers,
			"max-rate":        *maxRate,
			"min-rate":        *minRate,
			"decay":           *decayPercent,
			"reset-threshold": *resetThreshold,
		})
		if err != nil {
			return err
		}
	}
	req.OnGeneration = improvementPrinter(os.Stderr)

	client, err := panmixia.New(panmixia.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s scape=%s pop=%d gens=%d seed=%d\n",
		summary.RunID, summary.Scape, req.Population, summary.Generations, req.Seed)
	for generation, best := range summary.BestByGeneration {
		fmt.Printf("generation=%d best_fitness=%.6f\n", generation, best)
	}
	fmt.Printf("best_fitness=%.6f final_rate=%.2f improvements=%d evaluations=%s\n",
		summary.BestFitness, summary.FinalRate, summary.Improvements, humanize.Comma(summary.Evaluations))
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

// improvementPrinter reports the baseline and each strict improvement to f.
// Returns nil unless f is a terminal, keeping piped output clean.
func improvementPrinter(f *os.File) func(generation int, best float64) {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return nil
	}
	var last float64
	primed := false
	return func(generation int, best float64) {
		if primed && best <= last {
			return
		}
		fmt.Fprintf(f, "generation=%d best_fitness=%.6f\n", generation, best)
		last = best
		primed = true
	}
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	showRates := fs.Bool("show-rates", false, "show the final mutation rate from each run's archived config")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(runsDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if len(entries) > *limit {
		entries = entries[:*limit]
	}
	if *jsonOut {
		type runsItem struct {
			RunID          string   `json:"run_id"`
			CreatedAtUTC   string   `json:"created_at_utc"`
			Scape          string   `json:"scape"`
			Seed           int64    `json:"seed"`
			PopulationSize int      `json:"population_size"`
			Generations    int      `json:"generations"`
			BestFitness    float64  `json:"best_fitness"`
			Evaluations    int64    `json:"evaluations"`
			Improvements   int      `json:"improvements"`
			FinalRate      *float64 `json:"final_rate,omitempty"`
		}
		items := make([]runsItem, 0, len(entries))
		for _, e := range entries {
			var finalRate *float64
			if *showRates {
				record, ok, err := stats.ReadRunRecord(runsDir, e.RunID)
				if err != nil {
					return err
				}
				if ok {
					v := record.FinalRate
					finalRate = &v
				}
			}
			items = append(items, runsItem{
				RunID:          e.RunID,
				CreatedAtUTC:   e.CreatedAtUTC,
				Scape:          e.Scape,
				Seed:           e.Seed,
				PopulationSize: e.PopulationSize,
				Generations:    e.Generations,
				BestFitness:    e.BestFitness,
				Evaluations:    e.Evaluations,
				Improvements:   e.Improvements,
				FinalRate:      finalRate,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, e := range entries {
		rateDisplay := "n/a"
		if *showRates {
			record, ok, err := stats.ReadRunRecord(runsDir, e.RunID)
			if err != nil {
				return err
			}
			if ok {
				rateDisplay = fmt.Sprintf("%.2f", record.FinalRate)
			}
		}

		fmt.Printf("run_id=%s created_at=%s scape=%s seed=%d pop=%d gens=%d best_fitness=%.6f evaluations=%s final_rate=%s\n",
			e.RunID,
			e.CreatedAtUTC,
			e.Scape,
			e.Seed,
			e.PopulationSize,
			e.Generations,
			e.BestFitness,
			humanize.Comma(e.Evaluations),
			rateDisplay,
		)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show history for the most recent archived run")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "panmixia.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("history requires --run-id or --latest")
	}

	client, err := panmixia.New(panmixia.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, panmixia.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for generation, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", generation, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent archived run")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "panmixia.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}

	client, err := panmixia.New(panmixia.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, panmixia.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f stddev=%.6f rate=%.2f improved=%t\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.StdDev,
			d.MutationRate,
			d.Improved,
		)
	}
	return nil
}

func runChampion(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("champion", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the champion of the most recent archived run")
	jsonOut := fs.Bool("json", false, "emit champion as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "panmixia.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("champion requires --run-id or --latest")
	}

	client, err := panmixia.New(panmixia.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	champion, err := client.Champion(ctx, panmixia.ChampionRequest{
		RunID:  *runID,
		Latest: *latest,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		type championItem struct {
			RunID     string          `json:"run_id"`
			Scape     string          `json:"scape"`
			Fitness   float64         `json:"fitness"`
			GenomeLen int             `json:"genome_len"`
			Genome    json.RawMessage `json:"genome"`
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(championItem{
			RunID:     champion.RunID,
			Scape:     champion.Scape,
			Fitness:   champion.Fitness,
			GenomeLen: champion.GenomeLen,
			Genome:    champion.Genome,
		})
	}

	fmt.Printf("run_id=%s scape=%s fitness=%.6f genome_len=%d\n",
		champion.RunID, champion.Scape, champion.Fitness, champion.GenomeLen)
	fmt.Printf("genome=%s\n", champion.Genome)
	return nil
}

func runScapeSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scape-summary", flag.ContinueOnError)
	scapeName := fs.String("scape", "", "scape name")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "panmixia.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scapeName == "" {
		return errors.New("scape-summary requires --scape")
	}

	client, err := panmixia.New(panmixia.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.ScapeSummary(ctx, *scapeName)
	if err != nil {
		return err
	}
	fmt.Printf("scape=%s runs=%d best_fitness=%.6f best_run_id=%s description=%s\n",
		summary.Name,
		summary.Runs,
		summary.BestFitness,
		summary.BestRunID,
		summary.Description,
	)
	return nil
}

func runExport(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent archived run")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}
	if *latest {
		entries, err := stats.ListRunIndex(runsDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs available to export")
		}
		*runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(runsDir, *runID, *outDir)
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", *runID, filepath.Clean(exportedDir))
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: panmixiactl <init|scapes|run|runs|history|diagnostics|champion|scape-summary|export> [flags]", msg)
}
