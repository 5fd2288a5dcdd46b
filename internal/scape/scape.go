package scape

import (
	"context"

	"dfaevo/internal/model"
)

type Fitness float64

type Trace map[string]any

// Predicate is the boolean function over bitstrings a DFA is trained to
// reproduce.
type Predicate func(input string) bool

type Scape interface {
	Name() string
	Evaluate(ctx context.Context, dfa model.DFA) (Fitness, Trace, error)
}
