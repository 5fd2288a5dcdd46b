package scape

import (
	"errors"
	"fmt"
	"sort"

	"dfaevo/internal/model"
	"dfaevo/internal/scapeid"
)

var ErrScapeNotFound = errors.New("scape not found")

// Definition binds a scape name to its predicate and, when one exists, a
// hand-written reference DFA that reproduces it exactly.
type Definition struct {
	Name        string
	Description string
	Predicate   Predicate
	Reference   func() model.DFA
}

var definitions = map[string]Definition{
	"ends-in-00": {
		Name:        "ends-in-00",
		Description: "accepts bitstrings ending in two 0s",
		Predicate:   EndsInTwoZeros,
	},
	"even-odd": {
		Name:        "even-odd",
		Description: "accepts bitstrings with an even number of 1s",
		Predicate:   EvenOnes,
		Reference:   EvenOddDFA,
	},
	"bit-count": {
		Name:        "bit-count",
		Description: "accepts bitstrings with two to five 1s",
		Predicate:   OnesBetweenTwoAndFive,
		Reference:   BitCountDFA,
	},
	"div-3": {
		Name:        "div-3",
		Description: "accepts binary numbers divisible by three",
		Predicate:   DivisibleByThree,
		Reference:   DivisibleByThreeDFA,
	},
}

// Lookup resolves a scape by name or alias, e.g. "ends_in_00" or "parity".
func Lookup(name string) (Definition, error) {
	def, ok := definitions[scapeid.Normalize(name)]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrScapeNotFound, name)
	}
	return def, nil
}

// Definitions lists the registered scapes sorted by name.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
