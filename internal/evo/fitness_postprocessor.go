package evo

// sizePenaltyScale makes the encoding-length penalty small enough to only
// break near-ties between otherwise equally accurate DFAs.
const sizePenaltyScale = 1_000_000

// FitnessPostprocessor adjusts raw fitness before best-of-population ranking.
// It never changes the fitness stored in the population.
type FitnessPostprocessor interface {
	Name() string
	Adjust(member Member) float64
}

type NoopFitnessPostprocessor struct{}

func (NoopFitnessPostprocessor) Name() string {
	return "none"
}

func (NoopFitnessPostprocessor) Adjust(member Member) float64 {
	return member.Fitness
}

// SizePenaltyPostprocessor subtracts EncodedSize/1e6 from fitness.
type SizePenaltyPostprocessor struct{}

func (SizePenaltyPostprocessor) Name() string {
	return "size_penalty"
}

func (SizePenaltyPostprocessor) Adjust(member Member) float64 {
	return member.Fitness - float64(member.DFA.EncodedSize())/sizePenaltyScale
}

// ResolvePostprocessor maps a configured name to a postprocessor; the empty
// name selects the size penalty.
func ResolvePostprocessor(name string) (FitnessPostprocessor, bool) {
	switch name {
	case "", SizePenaltyPostprocessor{}.Name():
		return SizePenaltyPostprocessor{}, true
	case NoopFitnessPostprocessor{}.Name():
		return NoopFitnessPostprocessor{}, true
	default:
		return nil, false
	}
}
