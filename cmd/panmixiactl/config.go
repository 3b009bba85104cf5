package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"panmixia/pkg/panmixia"
)

// RunConfig mirrors the run subcommand's flags for TOML run configs.
type RunConfig struct {
	Scape          string  `toml:"scape"`
	Population     int     `toml:"population"`
	Generations    int     `toml:"generations"`
	Seed           int64   `toml:"seed"`
	Workers        int     `toml:"workers"`
	MaxRate        float64 `toml:"max_rate"`
	MinRate        float64 `toml:"min_rate"`
	DecayPercent   float64 `toml:"decay_percent"`
	ResetThreshold int     `toml:"reset_threshold"`
}

func loadRunRequestFromConfig(path string) (panmixia.RunRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return panmixia.RunRequest{}, err
	}
	defer f.Close()

	var config RunConfig
	if _, err := toml.NewDecoder(f).Decode(&config); err != nil {
		return panmixia.RunRequest{}, err
	}
	return panmixia.RunRequest{
		Scape:          config.Scape,
		Population:     config.Population,
		Generations:    config.Generations,
		Seed:           config.Seed,
		Workers:        config.Workers,
		MaxRate:        config.MaxRate,
		MinRate:        config.MinRate,
		DecayPercent:   config.DecayPercent,
		ResetThreshold: config.ResetThreshold,
	}, nil
}

func loadOrDefaultRunRequest(configPath string) (panmixia.RunRequest, error) {
	if configPath == "" {
		return panmixia.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return panmixia.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags applies explicitly set flags on top of a config-loaded
// request. Flags not in set keep the config's values.
func overrideFromFlags(req *panmixia.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "scape":
			req.Scape = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "max-rate":
			req.MaxRate = v.(float64)
		case "min-rate":
			req.MinRate = v.(float64)
		case "decay":
			req.DecayPercent = v.(float64)
		case "reset-threshold":
			req.ResetThreshold = v.(int)
		}
	}
	if req.Scape == "" {
		req.Scape = "smoothing"
	}
	return nil
}
