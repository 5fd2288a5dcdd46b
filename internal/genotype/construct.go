package genotype

import (
	"fmt"

	"dfaevo/internal/model"
)

// Trivial is the search seed: one non-accepting state looping on both symbols.
func Trivial() model.DFA {
	return model.DFA{
		Transitions: map[model.State]map[model.Symbol]model.State{
			"q0": {model.Zero: "q0", model.One: "q0"},
		},
		Accepting: map[model.State]bool{"q0": false},
		Initial:   "q0",
	}
}

// Row describes one state for Builder: its targets on 0 and 1 and whether it
// accepts.
type Row struct {
	State     model.State
	OnZero    model.State
	OnOne     model.State
	Accepting bool
}

// Build assembles a DFA from rows and validates it.
func Build(initial model.State, rows ...Row) (model.DFA, error) {
	dfa := model.DFA{
		Transitions: make(map[model.State]map[model.Symbol]model.State, len(rows)),
		Accepting:   make(map[model.State]bool, len(rows)),
		Initial:     initial,
	}
	for _, row := range rows {
		if dfa.HasState(row.State) {
			return model.DFA{}, fmt.Errorf("duplicate state %s", row.State)
		}
		dfa.Transitions[row.State] = map[model.Symbol]model.State{
			model.Zero: row.OnZero,
			model.One:  row.OnOne,
		}
		dfa.Accepting[row.State] = row.Accepting
	}
	if err := dfa.Validate(); err != nil {
		return model.DFA{}, err
	}
	return dfa, nil
}

// MustBuild is Build for hand-written fixtures known to be valid.
func MustBuild(initial model.State, rows ...Row) model.DFA {
	dfa, err := Build(initial, rows...)
	if err != nil {
		panic(err)
	}
	return dfa
}
