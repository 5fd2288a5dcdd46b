package evo

import (
	"fmt"
)

// Selector chooses the parent of the next candidate.
type Selector interface {
	Name() string
	PickParent(rng Rand, population Population) (Member, error)
}

// UniformSelector picks any member with equal probability. Selection pressure
// comes from admission and culling only.
type UniformSelector struct{}

func (UniformSelector) Name() string {
	return "uniform"
}

func (UniformSelector) PickParent(rng Rand, population Population) (Member, error) {
	if rng == nil {
		return Member{}, ErrNoRandomSource
	}
	keys := population.Keys()
	if len(keys) == 0 {
		return Member{}, ErrEmptyPopulation
	}
	member, _ := population.Get(keys[rng.Intn(len(keys))])
	return member, nil
}

// Ranked is a member with its postprocessed score.
type Ranked struct {
	Member
	Adjusted float64
}

// SelectBest returns the member with the highest adjusted score. Exact ties
// go to the smallest key.
func SelectBest(population Population, postprocessor FitnessPostprocessor) (Ranked, error) {
	if population.Len() == 0 {
		return Ranked{}, ErrEmptyPopulation
	}
	if postprocessor == nil {
		postprocessor = NoopFitnessPostprocessor{}
	}

	var (
		best  Ranked
		found bool
	)
	for _, member := range population.Members() {
		adjusted := postprocessor.Adjust(member)
		if !found || adjusted > best.Adjusted {
			best = Ranked{Member: member, Adjusted: adjusted}
			found = true
		}
	}
	if !found {
		return Ranked{}, fmt.Errorf("%w: no member scored", ErrEmptyPopulation)
	}
	return best, nil
}
