package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dfaevo/internal/model"
)

// Diagnose summarizes the fitness and size distribution of population.
func Diagnose(generation int, population Population) model.GenerationDiagnostics {
	out := model.GenerationDiagnostics{
		Generation:     generation,
		PopulationSize: population.Len(),
	}
	if population.Len() == 0 {
		return out
	}

	fitness := population.Fitnesses()
	states := make([]float64, 0, population.Len())
	for _, member := range population.Members() {
		states = append(states, float64(member.DFA.NumStates()))
	}

	out.BestFitness = floats.Max(fitness)
	out.MinFitness = floats.Min(fitness)
	out.MeanStates = stat.Mean(states, nil)
	if len(fitness) > 1 {
		out.MeanFitness, out.StdDevFitness = stat.MeanStdDev(fitness, nil)
	} else {
		out.MeanFitness = fitness[0]
	}
	return out
}
