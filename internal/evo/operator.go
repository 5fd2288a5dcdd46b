package evo

import (
	"dfaevo/internal/model"
)

const (
	OpChangeTransition = "change-transition"
	OpChangeAccepting  = "change-accepting"
	OpChangeInitial    = "change-initial"
	OpAddState         = "add-state"
	OpRemoveState      = "remove-state"
)

// BuiltinOperators lists the structural operators in canonical order. Weight
// maps are walked in this order.
var BuiltinOperators = []string{
	OpChangeTransition,
	OpChangeAccepting,
	OpChangeInitial,
	OpAddState,
	OpRemoveState,
}

// Operator applies one structural edit. Implementations never modify their
// input and never return a DFA sharing maps with it.
type Operator interface {
	Name() string
	Apply(rng Rand, dfa model.DFA) (model.DFA, error)
}
