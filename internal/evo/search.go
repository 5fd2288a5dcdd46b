package evo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"dfaevo/internal/genotype"
	"dfaevo/internal/metrics"
	"dfaevo/internal/model"
)

const seedOperation = "seed"

var ErrGenerationLimit = errors.New("generation limit reached")

type SearchConfig struct {
	Fitness       FitnessFunc
	Policy        []WeightedMutation
	MaxPopulation int
	// Seed makes the default random source reproducible. Ignored when Rand
	// is set; zero means time-seeded.
	Seed                int64
	Rand                Rand
	MaxMutationAttempts int
	// MaxGenerations stops Next with ErrGenerationLimit once that many
	// generations ran. Zero means unbounded.
	MaxGenerations int
	Postprocessor  FitnessPostprocessor
	// Initial replaces the trivial seed DFA when it has states.
	Initial  model.DFA
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Snapshot is one entry of the best-so-far stream.
type Snapshot struct {
	Sequence   int                `json:"sequence"`
	Generation int                `json:"generation"`
	DFA        model.DFA          `json:"dfa"`
	Fitness    float64            `json:"fitness"`
	Adjusted   float64            `json:"adjusted"`
	Operation  string             `json:"operation"`
	Signature  genotype.Signature `json:"signature"`
}

type Stats struct {
	Generations int `json:"generations"`
	Wasted      int `json:"wasted"`
	Duplicates  int `json:"duplicates"`
	Exhausted   int `json:"exhausted"`
	Admitted    int `json:"admitted"`
	Culled      int `json:"culled"`
}

// Search drives Evolve and reports each change of the best member. It is not
// safe for concurrent use.
type Search struct {
	cfg        SearchConfig
	rng        Rand
	mutator    *Mutator
	population Population
	origins    map[string]string
	generation int
	sequence   int
	lastKey    string
	started    bool
	stats      Stats
	logger     *slog.Logger
	recorder   metrics.Recorder
}

func NewSearch(cfg SearchConfig) (*Search, error) {
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("fitness function is required")
	}
	if cfg.MaxPopulation < 1 {
		return nil, fmt.Errorf("%w: max population must be > 0, got %d", ErrInvalidPopulation, cfg.MaxPopulation)
	}
	if cfg.MaxGenerations < 0 {
		return nil, fmt.Errorf("max generations must be >= 0")
	}
	if cfg.Postprocessor == nil {
		cfg.Postprocessor = SizePenaltyPostprocessor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = NewRand(cfg.Seed)
	}
	mutator, err := NewMutator(rng, cfg.Policy, cfg.MaxMutationAttempts)
	if err != nil {
		return nil, err
	}

	seed := cfg.Initial
	if seed.NumStates() == 0 {
		seed = genotype.Trivial()
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("seed dfa: %w", err)
	}
	seedFitness, err := cfg.Fitness(seed)
	if err != nil {
		return nil, fmt.Errorf("score seed dfa: %w", err)
	}
	member := NewMember(seed, seedFitness)

	return &Search{
		cfg:        cfg,
		rng:        rng,
		mutator:    mutator,
		population: NewPopulation(member),
		origins:    map[string]string{member.Key: seedOperation},
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
	}, nil
}

// Step runs a single generation.
func (s *Search) Step() (Outcome, error) {
	if s.cfg.MaxGenerations > 0 && s.generation >= s.cfg.MaxGenerations {
		return Outcome{}, fmt.Errorf("%w: %d", ErrGenerationLimit, s.cfg.MaxGenerations)
	}

	next, outcome, err := Evolve(s.rng, s.population, s.mutator.Mutate, s.cfg.Fitness, s.cfg.MaxPopulation)
	if err != nil {
		return outcome, err
	}
	s.generation++
	s.stats.Generations++

	switch {
	case outcome.Exhausted:
		s.stats.Wasted++
		s.stats.Exhausted++
		s.recorder.ObserveGeneration(metrics.ResultExhausted)
		s.logger.Debug("mutation exhausted", "generation", s.generation, "parent", outcome.ParentKey)
	case outcome.Duplicate:
		s.stats.Wasted++
		s.stats.Duplicates++
		s.recorder.ObserveGeneration(metrics.ResultDuplicate)
		s.logger.Debug("duplicate candidate", "generation", s.generation, "candidate", outcome.CandidateKey)
	case outcome.Admitted:
		s.stats.Admitted++
		s.origins[outcome.CandidateKey] = s.mutator.LastOperation()
		s.recorder.ObserveGeneration(metrics.ResultAdmitted)
		if outcome.CulledKey != "" {
			s.stats.Culled++
			delete(s.origins, outcome.CulledKey)
			s.recorder.ObserveCull()
		}
	}

	s.population = next
	s.recorder.ObservePopulation(next.Len())
	return outcome, nil
}

// Next returns the next distinct best-so-far snapshot. The first call
// reports the seed population's best. Later calls run generations until the
// selected best changes, ctx is done, or the generation limit is hit.
func (s *Search) Next(ctx context.Context) (Snapshot, error) {
	if !s.started {
		s.started = true
		best, err := s.Best()
		if err != nil {
			return Snapshot{}, err
		}
		return s.report(best), nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		if _, err := s.Step(); err != nil {
			return Snapshot{}, err
		}
		best, err := s.Best()
		if err != nil {
			return Snapshot{}, err
		}
		if best.Key != s.lastKey {
			return s.report(best), nil
		}
	}
}

// Snapshots exposes Next as an iterator. Iteration ends when the consumer
// stops or after the first error, which is yielded.
func (s *Search) Snapshots(ctx context.Context) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		for {
			snapshot, err := s.Next(ctx)
			if err != nil {
				yield(Snapshot{}, err)
				return
			}
			if !yield(snapshot, nil) {
				return
			}
		}
	}
}

// Best selects the current best member under the configured postprocessor.
func (s *Search) Best() (Ranked, error) {
	return SelectBest(s.population, s.cfg.Postprocessor)
}

func (s *Search) Population() Population {
	return s.population
}

func (s *Search) Generation() int {
	return s.generation
}

func (s *Search) Stats() Stats {
	return s.stats
}

func (s *Search) Diagnostics() model.GenerationDiagnostics {
	return Diagnose(s.generation, s.population)
}

func (s *Search) report(best Ranked) Snapshot {
	s.sequence++
	s.lastKey = best.Key
	snapshot := Snapshot{
		Sequence:   s.sequence,
		Generation: s.generation,
		DFA:        best.DFA,
		Fitness:    best.Fitness,
		Adjusted:   best.Adjusted,
		Operation:  s.origins[best.Key],
		Signature:  genotype.ComputeSignature(best.DFA),
	}
	s.recorder.ObserveBest(best.Fitness, best.DFA.NumStates())
	s.logger.Info("new best",
		"sequence", snapshot.Sequence,
		"generation", snapshot.Generation,
		"fitness", snapshot.Fitness,
		"states", snapshot.Signature.Summary.States,
		"operation", snapshot.Operation,
	)
	return snapshot
}
