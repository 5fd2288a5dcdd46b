package scape

import (
	"errors"
	"fmt"

	"dfaevo/internal/automaton"
	"dfaevo/internal/model"
)

var ErrEmptyCorpus = errors.New("corpus is empty")

// Accuracy is the fraction of inputs on which dfa and predicate agree.
func Accuracy(dfa model.DFA, predicate Predicate, inputs []string) (float64, error) {
	if len(inputs) == 0 {
		return 0, ErrEmptyCorpus
	}
	if predicate == nil {
		return 0, errors.New("predicate is required")
	}
	matches := 0
	for _, input := range inputs {
		accepted, err := automaton.Run(dfa, input)
		if err != nil {
			return 0, fmt.Errorf("run %q: %w", input, err)
		}
		if accepted == predicate(input) {
			matches++
		}
	}
	return float64(matches) / float64(len(inputs)), nil
}
