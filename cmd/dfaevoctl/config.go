package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"dfaevo/pkg/dfaevo"
)

var configValidate = validator.New()

// runConfig is the file form of a run. JSON files parse too since YAML is
// a superset.
type runConfig struct {
	Scape               string             `yaml:"scape" validate:"required"`
	MaxLength           int                `yaml:"max_length" validate:"gte=0,lte=20"`
	SampleSize          int                `yaml:"sample_size" validate:"gte=0"`
	Population          int                `yaml:"population" validate:"gte=1"`
	Generations         int                `yaml:"generations" validate:"gte=0"`
	FitnessGoal         float64            `yaml:"fitness_goal" validate:"gt=0,lte=1"`
	Seed                int64              `yaml:"seed"`
	Workers             int                `yaml:"workers" validate:"gte=1,lte=256"`
	Weights             map[string]float64 `yaml:"weights" validate:"required,dive,keys,oneof=change-transition change-accepting change-initial add-state remove-state,endkeys,gte=0"`
	MaxMutationAttempts int                `yaml:"max_mutation_attempts" validate:"gte=0"`
	Postprocessor       string             `yaml:"postprocessor" validate:"omitempty,oneof=none size_penalty"`
	ArtifactsDir        string             `yaml:"artifacts_dir"`
	MetricsAddr         string             `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		Scape:       "ends-in-00",
		MaxLength:   4,
		Population:  8,
		Generations: 10000,
		FitnessGoal: 1.0,
		Workers:     1,
		Weights:     dfaevo.DefaultWeights(),
	}
}

// loadRunConfig layers the file at path over cfg. Keys missing from the file
// keep their current values; a weights map in the file replaces cfg's.
func loadRunConfig(path string, cfg runConfig) (runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return runConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, ok := raw["weights"]; ok {
		cfg.Weights = nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return runConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c runConfig) validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	total := 0.0
	for _, weight := range c.Weights {
		total += weight
	}
	if total <= 0 {
		return fmt.Errorf("invalid run config: weights must sum to a positive number")
	}
	return nil
}

func (c runConfig) request() dfaevo.RunRequest {
	return dfaevo.RunRequest{
		Scape:               c.Scape,
		MaxLength:           c.MaxLength,
		SampleSize:          c.SampleSize,
		Population:          c.Population,
		Generations:         c.Generations,
		FitnessGoal:         c.FitnessGoal,
		Seed:                c.Seed,
		Workers:             c.Workers,
		Weights:             c.Weights,
		MaxMutationAttempts: c.MaxMutationAttempts,
		Postprocessor:       c.Postprocessor,
	}
}

// parseWeights reads "name=value,name=value".
func parseWeights(spec string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid weight %q: want name=value", part)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", name, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate weight for %s", name)
		}
		out[name] = weight
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no weights given")
	}
	return out, nil
}
