package evo

import (
	"errors"
	"fmt"

	"dfaevo/internal/model"
)

const DefaultMaxMutationAttempts = 64

var ErrMutationExhausted = errors.New("no mutation produced a different dfa")

// Mutate applies the named operator once.
func Mutate(rng Rand, dfa model.DFA, name string) (model.DFA, error) {
	op, err := ResolveOperator(name)
	if err != nil {
		return model.DFA{}, err
	}
	return op.Apply(rng, dfa)
}

// MutateWeighted draws an operator from policy, applies it once and reports
// which operator ran.
func MutateWeighted(rng Rand, dfa model.DFA, policy []WeightedMutation) (model.DFA, string, error) {
	op, err := ChooseMutation(rng, policy)
	if err != nil {
		return model.DFA{}, "", err
	}
	mutated, err := op.Apply(rng, dfa)
	if err != nil {
		return model.DFA{}, op.Name(), fmt.Errorf("%s: %w", op.Name(), err)
	}
	return mutated, op.Name(), nil
}

// Mutator produces mutated copies guaranteed to differ structurally from
// their parent. Individual operators can be no-ops, so it retries weighted
// draws up to MaxAttempts times, then walks every positive-weight operator
// in policy order with the same budget each, and finally gives up with
// ErrMutationExhausted.
type Mutator struct {
	rng           Rand
	policy        []WeightedMutation
	maxAttempts   int
	lastOperation string
}

func NewMutator(rng Rand, policy []WeightedMutation, maxAttempts int) (*Mutator, error) {
	if rng == nil {
		return nil, ErrNoRandomSource
	}
	if len(policy) == 0 {
		return nil, fmt.Errorf("%w: empty policy", ErrInvalidWeights)
	}
	total := 0.0
	for i, item := range policy {
		if item.Operator == nil {
			return nil, fmt.Errorf("%w: operator missing at index %d", ErrInvalidWeights, i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("%w: negative weight for %s", ErrInvalidWeights, item.Operator.Name())
		}
		total += item.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: weights must sum to a positive number", ErrInvalidWeights)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxMutationAttempts
	}
	return &Mutator{
		rng:         rng,
		policy:      append([]WeightedMutation(nil), policy...),
		maxAttempts: maxAttempts,
	}, nil
}

// Mutate satisfies MutateFunc.
func (m *Mutator) Mutate(dfa model.DFA) (model.DFA, error) {
	parentKey := dfa.Key()

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		mutated, name, err := MutateWeighted(m.rng, dfa, m.policy)
		if err != nil {
			return model.DFA{}, err
		}
		if mutated.Key() != parentKey {
			m.lastOperation = name
			return mutated, nil
		}
	}

	for _, item := range m.policy {
		if item.Weight <= 0 {
			continue
		}
		for attempt := 0; attempt < m.maxAttempts; attempt++ {
			mutated, err := item.Operator.Apply(m.rng, dfa)
			if err != nil {
				return model.DFA{}, fmt.Errorf("%s: %w", item.Operator.Name(), err)
			}
			if mutated.Key() != parentKey {
				m.lastOperation = item.Operator.Name()
				return mutated, nil
			}
		}
	}

	m.lastOperation = ""
	return model.DFA{}, fmt.Errorf("%w after %d attempts per operator", ErrMutationExhausted, m.maxAttempts)
}

// LastOperation names the operator behind the most recent successful Mutate.
func (m *Mutator) LastOperation() string {
	return m.lastOperation
}
