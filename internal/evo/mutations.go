package evo

import (
	"errors"

	"dfaevo/internal/genotype"
	"dfaevo/internal/model"
)

var (
	ErrNoStates       = errors.New("dfa has no states")
	ErrNoRandomSource = errors.New("random source is required")
)

// ChangeTransition points one random (state, symbol) pair at a random state,
// possibly the one it already targets.
type ChangeTransition struct{}

func (ChangeTransition) Name() string {
	return OpChangeTransition
}

func (ChangeTransition) Apply(rng Rand, dfa model.DFA) (model.DFA, error) {
	states, err := mutableStates(rng, dfa)
	if err != nil {
		return model.DFA{}, err
	}

	from := states[rng.Intn(len(states))]
	symbol := model.Alphabet[rng.Intn(len(model.Alphabet))]
	to := states[rng.Intn(len(states))]

	mutated := dfa.Clone()
	mutated.Transitions[from][symbol] = to
	return mutated, nil
}

// ChangeAccepting redraws the accepting flag of one random state.
type ChangeAccepting struct{}

func (ChangeAccepting) Name() string {
	return OpChangeAccepting
}

func (ChangeAccepting) Apply(rng Rand, dfa model.DFA) (model.DFA, error) {
	states, err := mutableStates(rng, dfa)
	if err != nil {
		return model.DFA{}, err
	}

	state := states[rng.Intn(len(states))]
	mutated := dfa.Clone()
	mutated.Accepting[state] = randomBool(rng)
	return mutated, nil
}

// ChangeInitial moves the initial state to a random state.
type ChangeInitial struct{}

func (ChangeInitial) Name() string {
	return OpChangeInitial
}

func (ChangeInitial) Apply(rng Rand, dfa model.DFA) (model.DFA, error) {
	states, err := mutableStates(rng, dfa)
	if err != nil {
		return model.DFA{}, err
	}

	mutated := dfa.Clone()
	mutated.Initial = states[rng.Intn(len(states))]
	return mutated, nil
}

// AddState adds a freshly named state whose transitions target random states,
// the new state included, with a random accepting flag.
type AddState struct{}

func (AddState) Name() string {
	return OpAddState
}

func (AddState) Apply(rng Rand, dfa model.DFA) (model.DFA, error) {
	if rng == nil {
		return model.DFA{}, ErrNoRandomSource
	}
	states := dfa.States()
	added := genotype.StateName(states)
	pool := append(states, added)

	row := make(map[model.Symbol]model.State, len(model.Alphabet))
	for _, symbol := range model.Alphabet {
		row[symbol] = pool[rng.Intn(len(pool))]
	}

	mutated := dfa.Clone()
	mutated.Transitions[added] = row
	mutated.Accepting[added] = randomBool(rng)
	if len(states) == 0 {
		mutated.Initial = added
	}
	return mutated, nil
}

// RemoveState deletes one random state. Transitions that pointed at it are
// redirected to random surviving states, and a removed initial state is
// replaced through ChangeInitial. A DFA with a single state is returned
// unchanged.
type RemoveState struct{}

func (RemoveState) Name() string {
	return OpRemoveState
}

func (RemoveState) Apply(rng Rand, dfa model.DFA) (model.DFA, error) {
	states, err := mutableStates(rng, dfa)
	if err != nil {
		return model.DFA{}, err
	}
	if len(states) <= 1 {
		return dfa.Clone(), nil
	}

	removed := states[rng.Intn(len(states))]
	remaining := make([]model.State, 0, len(states)-1)
	for _, state := range states {
		if state != removed {
			remaining = append(remaining, state)
		}
	}

	mutated := dfa.Clone()
	delete(mutated.Transitions, removed)
	delete(mutated.Accepting, removed)
	for _, state := range remaining {
		row := mutated.Transitions[state]
		for _, symbol := range model.Alphabet {
			if row[symbol] == removed {
				row[symbol] = remaining[rng.Intn(len(remaining))]
			}
		}
	}
	if mutated.Initial == removed {
		return ChangeInitial{}.Apply(rng, mutated)
	}
	return mutated, nil
}

func mutableStates(rng Rand, dfa model.DFA) ([]model.State, error) {
	if rng == nil {
		return nil, ErrNoRandomSource
	}
	states := dfa.States()
	if len(states) == 0 {
		return nil, ErrNoStates
	}
	return states, nil
}

func randomBool(rng Rand) bool {
	return rng.Intn(2) == 1
}
