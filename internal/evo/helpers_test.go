package evo

import (
	"fmt"

	"dfaevo/internal/genotype"
	"dfaevo/internal/model"
)

// scriptedRand replays fixed draws and panics when a draw is out of range or
// the script runs dry.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		panic("scripted rand: out of int draws")
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("scripted rand: draw %d outside [0,%d)", v, n))
	}
	return v
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		panic("scripted rand: out of float draws")
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) exhausted() bool {
	return len(r.ints) == 0 && len(r.floats) == 0
}

// parityDFA accepts strings with an even number of 1s.
func parityDFA() model.DFA {
	return genotype.MustBuild("q0",
		genotype.Row{State: "q0", OnZero: "q0", OnOne: "q1", Accepting: true},
		genotype.Row{State: "q1", OnZero: "q1", OnOne: "q0"},
	)
}

func acceptAllDFA() model.DFA {
	return genotype.MustBuild("q0",
		genotype.Row{State: "q0", OnZero: "q0", OnOne: "q0", Accepting: true},
	)
}

var scenarioWeights = map[string]float64{
	OpChangeTransition: 100,
	OpChangeAccepting:  10,
	OpChangeInitial:    1,
	OpAddState:         1,
	OpRemoveState:      2,
}
