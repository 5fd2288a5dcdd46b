package evo

import (
	"sort"

	"dfaevo/internal/model"
)

// Member is one population entry with its cached fitness.
type Member struct {
	Key     string
	DFA     model.DFA
	Fitness float64
}

func NewMember(dfa model.DFA, fitness float64) Member {
	return Member{Key: dfa.Key(), DFA: dfa, Fitness: fitness}
}

// Population maps structural identity (the canonical DFA key) to members.
// Values are treated as immutable: Evolve returns a new Population and leaves
// its input untouched.
type Population struct {
	members map[string]Member
}

// NewPopulation builds a population; members with the same key collapse to
// the last one given.
func NewPopulation(members ...Member) Population {
	p := Population{members: make(map[string]Member, len(members))}
	for _, member := range members {
		if member.Key == "" {
			member.Key = member.DFA.Key()
		}
		p.members[member.Key] = member
	}
	return p
}

func (p Population) Len() int {
	return len(p.members)
}

func (p Population) Contains(dfa model.DFA) bool {
	_, ok := p.members[dfa.Key()]
	return ok
}

func (p Population) Get(key string) (Member, bool) {
	member, ok := p.members[key]
	return member, ok
}

// Keys returns the member keys in ascending order.
func (p Population) Keys() []string {
	keys := make([]string, 0, len(p.members))
	for key := range p.members {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Members returns the members ordered by key.
func (p Population) Members() []Member {
	out := make([]Member, 0, len(p.members))
	for _, key := range p.Keys() {
		out = append(out, p.members[key])
	}
	return out
}

func (p Population) Fitnesses() []float64 {
	out := make([]float64, 0, len(p.members))
	for _, member := range p.Members() {
		out = append(out, member.Fitness)
	}
	return out
}

func (p Population) with(member Member) Population {
	out := Population{members: make(map[string]Member, len(p.members)+1)}
	for key, existing := range p.members {
		out.members[key] = existing
	}
	out.members[member.Key] = member
	return out
}

// weakest returns the key to cull: the minimum fitness, ties going to the
// lexically smallest key.
func (p Population) weakest() (string, bool) {
	var (
		chosen string
		min    float64
		found  bool
	)
	for _, key := range p.Keys() {
		fitness := p.members[key].Fitness
		if !found || fitness < min {
			chosen, min, found = key, fitness, true
		}
	}
	return chosen, found
}

func (p Population) without(key string) Population {
	delete(p.members, key)
	return p
}
