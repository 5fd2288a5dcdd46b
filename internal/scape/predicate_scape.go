package scape

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dfaevo/internal/automaton"
	"dfaevo/internal/model"
)

const minChunkSize = 64

// PredicateScape scores DFAs against a predicate over a fixed corpus. The
// predicate is evaluated once per input at construction; the corpus and the
// expected outputs are read-only afterwards, so Evaluate may split the work
// across goroutines.
type PredicateScape struct {
	name    string
	corpus  []string
	want    []bool
	workers int
}

func NewPredicateScape(name string, predicate Predicate, corpus []string, workers int) (*PredicateScape, error) {
	if predicate == nil {
		return nil, errors.New("predicate is required")
	}
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	if workers <= 0 {
		workers = 1
	}
	s := &PredicateScape{
		name:    name,
		corpus:  append([]string(nil), corpus...),
		want:    make([]bool, len(corpus)),
		workers: workers,
	}
	for i, input := range s.corpus {
		s.want[i] = predicate(input)
	}
	return s, nil
}

func (s *PredicateScape) Name() string {
	return s.name
}

func (s *PredicateScape) CorpusSize() int {
	return len(s.corpus)
}

func (s *PredicateScape) Corpus() []string {
	return append([]string(nil), s.corpus...)
}

// Fitness is Evaluate without the trace, shaped for the evolutionary loop.
func (s *PredicateScape) Fitness(dfa model.DFA) (float64, error) {
	fitness, _, err := s.Evaluate(context.Background(), dfa)
	return float64(fitness), err
}

func (s *PredicateScape) Evaluate(ctx context.Context, dfa model.DFA) (Fitness, Trace, error) {
	chunks := s.chunks()
	results := make([]chunkResult, len(chunks))

	if len(chunks) == 1 {
		res, err := s.scoreRange(ctx, dfa, chunks[0][0], chunks[0][1])
		if err != nil {
			return 0, nil, err
		}
		results[0] = res
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i, bounds := range chunks {
			i, lo, hi := i, bounds[0], bounds[1]
			g.Go(func() error {
				res, err := s.scoreRange(gctx, dfa, lo, hi)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, nil, err
		}
	}

	matches := 0
	firstMismatch := -1
	for _, res := range results {
		matches += res.matches
		if firstMismatch < 0 && res.firstMismatch >= 0 {
			firstMismatch = res.firstMismatch
		}
	}
	trace := Trace{
		"matches":    matches,
		"mismatches": len(s.corpus) - matches,
	}
	if firstMismatch >= 0 {
		trace["first_mismatch"] = s.corpus[firstMismatch]
	}
	return Fitness(float64(matches) / float64(len(s.corpus))), trace, nil
}

type chunkResult struct {
	matches       int
	firstMismatch int
}

func (s *PredicateScape) scoreRange(ctx context.Context, dfa model.DFA, lo, hi int) (chunkResult, error) {
	if err := ctx.Err(); err != nil {
		return chunkResult{}, err
	}
	res := chunkResult{firstMismatch: -1}
	for i := lo; i < hi; i++ {
		accepted, err := automaton.Run(dfa, s.corpus[i])
		if err != nil {
			return chunkResult{}, fmt.Errorf("scape %s: run %q: %w", s.name, s.corpus[i], err)
		}
		if accepted == s.want[i] {
			res.matches++
		} else if res.firstMismatch < 0 {
			res.firstMismatch = i
		}
	}
	return res, nil
}

func (s *PredicateScape) chunks() [][2]int {
	n := len(s.corpus)
	if s.workers <= 1 || n < 2*minChunkSize {
		return [][2]int{{0, n}}
	}
	size := (n + s.workers - 1) / s.workers
	if size < minChunkSize {
		size = minChunkSize
	}
	out := make([][2]int, 0, s.workers)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}
