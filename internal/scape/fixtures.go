package scape

import (
	"fmt"

	"dfaevo/internal/genotype"
	"dfaevo/internal/model"
)

// EvenOddDFA accepts strings with an even number of 1s.
func EvenOddDFA() model.DFA {
	return genotype.MustBuild("q0",
		genotype.Row{State: "q0", OnZero: "q0", OnOne: "q1", Accepting: true},
		genotype.Row{State: "q1", OnZero: "q1", OnOne: "q0"},
	)
}

// BitCountDFA counts 1s in q0..q5 and parks in q6 once six are seen. It
// accepts when the count is between two and five.
func BitCountDFA() model.DFA {
	rows := make([]genotype.Row, 0, 7)
	for i := 0; i <= 6; i++ {
		next := i + 1
		if next > 6 {
			next = 6
		}
		rows = append(rows, genotype.Row{
			State:     model.State(fmt.Sprintf("q%d", i)),
			OnZero:    model.State(fmt.Sprintf("q%d", i)),
			OnOne:     model.State(fmt.Sprintf("q%d", next)),
			Accepting: i >= 2 && i <= 5,
		})
	}
	return genotype.MustBuild("q0", rows...)
}

// DivisibleByThreeDFA tracks the binary value modulo three.
func DivisibleByThreeDFA() model.DFA {
	return genotype.MustBuild("q0",
		genotype.Row{State: "q0", OnZero: "q0", OnOne: "q1", Accepting: true},
		genotype.Row{State: "q1", OnZero: "q2", OnOne: "q0"},
		genotype.Row{State: "q2", OnZero: "q1", OnOne: "q2"},
	)
}
