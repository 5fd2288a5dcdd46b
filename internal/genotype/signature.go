package genotype

import (
	"crypto/sha1"
	"encoding/hex"

	"dfaevo/internal/automaton"
	"dfaevo/internal/model"
)

type Summary struct {
	States          int `json:"states"`
	AcceptingStates int `json:"accepting_states"`
	ReachableStates int `json:"reachable_states"`
	Components      int `json:"components"`
	SelfLoops       int `json:"self_loops"`
	EncodedSize     int `json:"encoded_size"`
}

type Signature struct {
	Fingerprint string  `json:"fingerprint"`
	Summary     Summary `json:"summary"`
}

func ComputeSignature(dfa model.DFA) Signature {
	key := dfa.Key()
	summary := Summary{
		States:          dfa.NumStates(),
		ReachableStates: len(automaton.Reachable(dfa)),
		Components:      automaton.Components(dfa),
		EncodedSize:     len(key),
	}
	for state, row := range dfa.Transitions {
		if dfa.Accepting[state] {
			summary.AcceptingStates++
		}
		for _, target := range row {
			if target == state {
				summary.SelfLoops++
			}
		}
	}

	digest := sha1.Sum([]byte(key))
	return Signature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Summary:     summary,
	}
}
