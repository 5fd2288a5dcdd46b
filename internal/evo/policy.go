package evo

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidWeights = errors.New("invalid mutation weights")

type WeightedMutation struct {
	Operator Operator
	Weight   float64
}

// NewMutationPolicy turns a name -> weight map into an ordered policy. The
// built-in operators come first in canonical order, then any other
// registered operators by name. Names missing from weights get weight zero.
// Unknown names, negative or non-finite weights, and a non-positive total
// are configuration errors.
func NewMutationPolicy(weights map[string]float64) ([]WeightedMutation, error) {
	known := make(map[string]struct{}, len(BuiltinOperators))
	for _, name := range BuiltinOperators {
		known[name] = struct{}{}
	}

	extra := make([]string, 0)
	for name, weight := range weights {
		if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidWeights, name, weight)
		}
		if _, ok := known[name]; ok {
			continue
		}
		if _, err := ResolveOperator(name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)

	names := append(append([]string(nil), BuiltinOperators...), extra...)
	policy := make([]WeightedMutation, 0, len(names))
	total := 0.0
	for _, name := range names {
		op, err := ResolveOperator(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		weight := weights[name]
		total += weight
		policy = append(policy, WeightedMutation{Operator: op, Weight: weight})
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: weights must sum to a positive number", ErrInvalidWeights)
	}
	return policy, nil
}

// ChooseMutation draws u in [0, total) and returns the first operator whose
// cumulative weight exceeds u. Zero-weight operators are never chosen.
func ChooseMutation(rng Rand, policy []WeightedMutation) (Operator, error) {
	if rng == nil {
		return nil, ErrNoRandomSource
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

	pick := rng.Float64() * total
	acc := 0.0
	var last Operator
	for _, item := range policy {
		if item.Weight <= 0 {
			continue
		}
		acc += item.Weight
		last = item.Operator
		if pick < acc {
			return item.Operator, nil
		}
	}
	// Rounding can leave pick == total; the last reachable operator owns it.
	return last, nil
}

// PolicyWeights reports the policy as a name -> weight map.
func PolicyWeights(policy []WeightedMutation) map[string]float64 {
	out := make(map[string]float64, len(policy))
	for _, item := range policy {
		if item.Operator == nil {
			continue
		}
		out[item.Operator.Name()] = item.Weight
	}
	return out
}
