package evo

import (
	"errors"
	"fmt"

	"dfaevo/internal/model"
)

var (
	ErrEmptyPopulation   = errors.New("population is empty")
	ErrInvalidPopulation = errors.New("invalid population size")
)

// MutateFunc returns a copy of dfa that differs structurally from it.
type MutateFunc func(model.DFA) (model.DFA, error)

// FitnessFunc scores a DFA in [0,1].
type FitnessFunc func(model.DFA) (float64, error)

// Outcome describes a single Evolve step.
type Outcome struct {
	ParentKey    string
	CandidateKey string
	Fitness      float64
	Duplicate    bool
	Exhausted    bool
	Admitted     bool
	CulledKey    string
}

// Wasted reports whether the step left the population unchanged.
func (o Outcome) Wasted() bool {
	return !o.Admitted
}

// Evolve runs one steady-state generation: mutate a uniformly chosen member,
// drop the candidate if it is already present, otherwise score and insert it
// and cull one minimum-fitness member when the population outgrows maxSize.
// Among equally unfit members the smallest key is culled. population is never
// modified.
func Evolve(rng Rand, population Population, mutate MutateFunc, fitness FitnessFunc, maxSize int) (Population, Outcome, error) {
	switch {
	case rng == nil:
		return population, Outcome{}, ErrNoRandomSource
	case mutate == nil:
		return population, Outcome{}, errors.New("mutate function is required")
	case fitness == nil:
		return population, Outcome{}, errors.New("fitness function is required")
	case maxSize < 1:
		return population, Outcome{}, fmt.Errorf("%w: %d", ErrInvalidPopulation, maxSize)
	}

	parent, err := UniformSelector{}.PickParent(rng, population)
	if err != nil {
		return population, Outcome{}, err
	}
	outcome := Outcome{ParentKey: parent.Key}

	candidate, err := mutate(parent.DFA)
	if err != nil {
		if errors.Is(err, ErrMutationExhausted) {
			outcome.Exhausted = true
			return population, outcome, nil
		}
		return population, outcome, fmt.Errorf("mutate %s: %w", parent.Key, err)
	}
	outcome.CandidateKey = candidate.Key()
	if _, exists := population.Get(outcome.CandidateKey); exists {
		outcome.Duplicate = true
		return population, outcome, nil
	}

	score, err := fitness(candidate)
	if err != nil {
		return population, outcome, fmt.Errorf("score candidate: %w", err)
	}
	outcome.Fitness = score
	outcome.Admitted = true

	next := population.with(Member{Key: outcome.CandidateKey, DFA: candidate, Fitness: score})
	if next.Len() > maxSize {
		if key, ok := next.weakest(); ok {
			next = next.without(key)
			outcome.CulledKey = key
		}
	}
	return next, outcome, nil
}
