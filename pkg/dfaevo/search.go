package dfaevo

import (
	"fmt"
	"log/slog"

	"dfaevo/internal/automaton"
	"dfaevo/internal/evo"
	"dfaevo/internal/metrics"
	"dfaevo/internal/model"
	"dfaevo/internal/scape"
)

type (
	DFA      = model.DFA
	Search   = evo.Search
	Snapshot = evo.Snapshot
	Stats    = evo.Stats
	Rand     = evo.Rand
)

// Operator names accepted in weight maps.
const (
	OpChangeTransition = evo.OpChangeTransition
	OpChangeAccepting  = evo.OpChangeAccepting
	OpChangeInitial    = evo.OpChangeInitial
	OpAddState         = evo.OpAddState
	OpRemoveState      = evo.OpRemoveState
)

// DefaultWeights favors small edits: mostly transition rewiring, some
// accepting flips, and rare structural changes.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		OpChangeTransition: 100,
		OpChangeAccepting:  10,
		OpChangeInitial:    1,
		OpAddState:         1,
		OpRemoveState:      2,
	}
}

func ParseDFA(encoded string) (DFA, error) {
	return model.ParseDFA(encoded)
}

// Accepts runs dfa on input.
func Accepts(dfa DFA, input string) (bool, error) {
	return automaton.Run(dfa, input)
}

func Accuracy(dfa DFA, predicate func(string) bool, inputs []string) (float64, error) {
	return scape.Accuracy(dfa, predicate, inputs)
}

// MaxBitstringLength is the longest exhaustive corpus length accepted.
const MaxBitstringLength = scape.MaxBitstringLength

var ErrLengthOutOfRange = scape.ErrLengthOutOfRange

// Bitstrings returns nil for lengths outside [0, MaxBitstringLength].
func Bitstrings(n int) []string {
	return scape.Bitstrings(n)
}

func AllBitstrings(maxLength int) []string {
	return scape.AllBitstrings(maxLength)
}

type searchOptions struct {
	seed                int64
	rng                 Rand
	sampleSize          int
	workers             int
	maxGenerations      int
	maxMutationAttempts int
	postprocessor       string
	initial             DFA
	logger              *slog.Logger
	recorder            metrics.Recorder
}

type SearchOption func(*searchOptions)

// WithSeed makes the search reproducible.
func WithSeed(seed int64) SearchOption {
	return func(o *searchOptions) { o.seed = seed }
}

// WithRand injects the random source; it takes precedence over WithSeed.
func WithRand(rng Rand) SearchOption {
	return func(o *searchOptions) { o.rng = rng }
}

// WithSampleSize scores against size random bitstrings instead of the full
// corpus.
func WithSampleSize(size int) SearchOption {
	return func(o *searchOptions) { o.sampleSize = size }
}

func WithWorkers(workers int) SearchOption {
	return func(o *searchOptions) { o.workers = workers }
}

func WithMaxGenerations(n int) SearchOption {
	return func(o *searchOptions) { o.maxGenerations = n }
}

func WithMaxMutationAttempts(n int) SearchOption {
	return func(o *searchOptions) { o.maxMutationAttempts = n }
}

// WithPostprocessor selects the best-of-population ranking: "size_penalty"
// (default) or "none".
func WithPostprocessor(name string) SearchOption {
	return func(o *searchOptions) { o.postprocessor = name }
}

// WithInitial seeds the population with dfa instead of the trivial DFA.
func WithInitial(dfa DFA) SearchOption {
	return func(o *searchOptions) { o.initial = dfa }
}

func WithLogger(logger *slog.Logger) SearchOption {
	return func(o *searchOptions) { o.logger = logger }
}

func withRecorder(recorder metrics.Recorder) SearchOption {
	return func(o *searchOptions) { o.recorder = recorder }
}

// NewSearch builds the lazy best-so-far search for predicate over all
// bitstrings up to maxLength. Iterate it with Next or Snapshots; it never
// stops on its own unless WithMaxGenerations is set.
func NewSearch(predicate func(string) bool, maxLength int, weights map[string]float64, maxPopulation int, opts ...SearchOption) (*Search, error) {
	search, _, err := newSearch("custom", predicate, maxLength, weights, maxPopulation, opts...)
	return search, err
}

func newSearch(name string, predicate func(string) bool, maxLength int, weights map[string]float64, maxPopulation int, opts ...SearchOption) (*Search, *scape.PredicateScape, error) {
	o := searchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if maxLength < 0 {
		return nil, nil, fmt.Errorf("%w: max length %d", ErrLengthOutOfRange, maxLength)
	}
	if o.sampleSize == 0 {
		if err := scape.CheckLength(maxLength); err != nil {
			return nil, nil, err
		}
	}

	rng := o.rng
	if rng == nil {
		rng = evo.NewRand(o.seed)
	}

	var corpus []string
	if o.sampleSize > 0 {
		corpus = scape.SampleBitstrings(rng, maxLength, o.sampleSize)
	} else {
		corpus = scape.AllBitstrings(maxLength)
	}
	evaluator, err := scape.NewPredicateScape(name, predicate, corpus, o.workers)
	if err != nil {
		return nil, nil, err
	}

	policy, err := evo.NewMutationPolicy(weights)
	if err != nil {
		return nil, nil, err
	}
	postprocessor, ok := evo.ResolvePostprocessor(o.postprocessor)
	if !ok {
		return nil, nil, fmt.Errorf("unknown fitness postprocessor: %s", o.postprocessor)
	}

	search, err := evo.NewSearch(evo.SearchConfig{
		Fitness:             evaluator.Fitness,
		Policy:              policy,
		MaxPopulation:       maxPopulation,
		Rand:                rng,
		MaxMutationAttempts: o.maxMutationAttempts,
		MaxGenerations:      o.maxGenerations,
		Postprocessor:       postprocessor,
		Initial:             o.initial,
		Logger:              o.logger,
		Recorder:            o.recorder,
	})
	if err != nil {
		return nil, nil, err
	}
	return search, evaluator, nil
}
