package automaton

import (
	"errors"
	"fmt"

	"dfaevo/internal/model"
)

var (
	ErrInvalidSymbol = errors.New("input symbol outside alphabet")
	// ErrInvariantViolation means a DFA reached a state missing from its own
	// maps. Well-formed DFAs never produce it.
	ErrInvariantViolation = errors.New("dfa invariant violation")
)

// Run feeds input through dfa from its initial state and reports whether the
// final state accepts.
func Run(dfa model.DFA, input string) (bool, error) {
	state := dfa.Initial
	for i := 0; i < len(input); i++ {
		next, err := step(dfa, state, input, i)
		if err != nil {
			return false, err
		}
		state = next
	}
	return accepts(dfa, state)
}

// Trace is Run that also returns the visited states, initial state first.
func Trace(dfa model.DFA, input string) ([]model.State, bool, error) {
	path := make([]model.State, 0, len(input)+1)
	path = append(path, dfa.Initial)
	for i := 0; i < len(input); i++ {
		next, err := step(dfa, path[len(path)-1], input, i)
		if err != nil {
			return nil, false, err
		}
		path = append(path, next)
	}
	accepted, err := accepts(dfa, path[len(path)-1])
	if err != nil {
		return nil, false, err
	}
	return path, accepted, nil
}

func step(dfa model.DFA, state model.State, input string, offset int) (model.State, error) {
	symbol := model.Symbol(input[offset])
	if !symbol.Valid() {
		return "", fmt.Errorf("%w: %q at offset %d", ErrInvalidSymbol, input[offset], offset)
	}
	row, ok := dfa.Transitions[state]
	if !ok {
		return "", fmt.Errorf("%w: state %s has no transitions", ErrInvariantViolation, state)
	}
	next, ok := row[symbol]
	if !ok {
		return "", fmt.Errorf("%w: state %s has no transition on %s", ErrInvariantViolation, state, symbol)
	}
	return next, nil
}

func accepts(dfa model.DFA, state model.State) (bool, error) {
	accepting, ok := dfa.Accepting[state]
	if !ok {
		return false, fmt.Errorf("%w: state %s has no accepting flag", ErrInvariantViolation, state)
	}
	return accepting, nil
}
