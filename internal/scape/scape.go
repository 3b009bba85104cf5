package scape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Params configures one engine run over a scape. Zero values fall back to
// the engine defaults.
type Params struct {
	PopulationSize int
	Generations    int
	MaxRate        float64
	MinRate        float64
	DecayPercent   float64
	ResetThreshold int
	Workers        int
	Seed           int64

	// Callback observes champions at the engine's callback points: once
	// after the initial sort, after every strict improvement, and once at
	// the end of the run.
	Callback func(Champion)

	// OnGeneration observes every completed generation, plus the initial
	// population as generation 0.
	OnGeneration func(Snapshot)
}

// Champion is a scape-rendered view of a best individual. The genome is the
// scape's own JSON encoding so callers never see gene types.
type Champion struct {
	Fitness   float64
	GenomeLen int
	Genome    json.RawMessage
}

// Snapshot captures one generation's population state. Fitnesses are sorted
// best-first; MutationRate is the percent rate that bred the generation.
type Snapshot struct {
	Generation   int
	Fitnesses    []float64
	MutationRate float64
}

// Outcome is the result of a completed run.
type Outcome struct {
	Champion    Champion
	Generations int
	Evaluations int64
	FinalRate   float64
}

// Scape is a named, self-describing optimization problem. Run drives a fresh
// engine population against it.
type Scape interface {
	Name() string
	Description() string
	Run(ctx context.Context, params Params) (Outcome, error)
}

var (
	ErrScapeExists   = errors.New("scape already registered")
	ErrScapeNotFound = errors.New("scape not found")
)

var scapeRegistry = struct {
	mu sync.RWMutex
	m  map[string]Scape
}{
	m: make(map[string]Scape),
}

// Register adds a scape under its name.
func Register(s Scape) error {
	if s == nil {
		return errors.New("scape is required")
	}
	name := s.Name()
	if name == "" {
		return errors.New("scape name is required")
	}

	scapeRegistry.mu.Lock()
	defer scapeRegistry.mu.Unlock()

	if _, exists := scapeRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrScapeExists, name)
	}
	scapeRegistry.m[name] = s
	return nil
}

// Get returns a registered scape by name.
func Get(name string) (Scape, error) {
	scapeRegistry.mu.RLock()
	defer scapeRegistry.mu.RUnlock()

	s, ok := scapeRegistry.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScapeNotFound, name)
	}
	return s, nil
}

// Names returns all registered scape names, sorted.
func Names() []string {
	scapeRegistry.mu.RLock()
	defer scapeRegistry.mu.RUnlock()

	names := make([]string, 0, len(scapeRegistry.m))
	for name := range scapeRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultsOnce sync.Once
	defaultsErr  error
)

// EnsureDefaults registers the bundled scapes. Safe to call repeatedly.
func EnsureDefaults() error {
	defaultsOnce.Do(func() {
		for _, s := range []Scape{
			newSmoothingScape(),
			newTourScape(),
			newQueensScape(),
		} {
			if err := Register(s); err != nil {
				defaultsErr = err
				return
			}
		}
	})
	return defaultsErr
}

func resetRegistryForTests() {
	scapeRegistry.mu.Lock()
	defer scapeRegistry.mu.Unlock()
	scapeRegistry.m = make(map[string]Scape)
	defaultsOnce = sync.Once{}
	defaultsErr = nil
}
