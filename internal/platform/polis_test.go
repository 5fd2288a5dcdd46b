package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dfaevo/internal/evo"
	"dfaevo/internal/model"
	"dfaevo/internal/scape"
	"dfaevo/internal/storage"
)

func newTestSearch(t *testing.T, predicate scape.Predicate, initial model.DFA, maxGenerations int) *evo.Search {
	t.Helper()
	evaluator, err := scape.NewPredicateScape("test", predicate, scape.AllBitstrings(4), 1)
	require.NoError(t, err)
	policy, err := evo.NewMutationPolicy(map[string]float64{
		evo.OpChangeTransition: 100,
		evo.OpChangeAccepting:  10,
		evo.OpChangeInitial:    1,
		evo.OpAddState:         1,
		evo.OpRemoveState:      2,
	})
	require.NoError(t, err)
	search, err := evo.NewSearch(evo.SearchConfig{
		Fitness:        evaluator.Fitness,
		Policy:         policy,
		MaxPopulation:  8,
		Seed:           7,
		MaxGenerations: maxGenerations,
		Initial:        initial,
	})
	require.NoError(t, err)
	return search
}

func newStartedPolis(t *testing.T) (*Polis, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	p := NewPolis(Config{Store: store})
	require.NoError(t, p.Init(context.Background()))
	return p, store
}

func TestRunSearchCompletesAtGenerationLimit(t *testing.T) {
	ctx := context.Background()
	p, store := newStartedPolis(t)

	var seen []evo.Snapshot
	result, err := p.RunSearch(ctx, RunConfig{
		Run:        model.RunRecord{ID: "run-limit", Scape: "ends-in-00", MaxPopulation: 8},
		Search:     newTestSearch(t, scape.EndsInTwoZeros, model.DFA{}, 50),
		OnSnapshot: func(s evo.Snapshot) { seen = append(seen, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, 50, result.Run.Generations)
	require.NotEmpty(t, result.Snapshots)
	assert.Len(t, seen, len(result.Snapshots))
	assert.Equal(t, 1, result.Snapshots[0].Sequence)
	assert.Equal(t, 0, result.Snapshots[0].Generation)
	assert.LessOrEqual(t, len(result.Population.Members), 8)
	assert.Equal(t, 50, result.Diagnostics[len(result.Diagnostics)-1].Generation)
	assert.False(t, result.Run.FinishedAt.IsZero())

	run, ok, err := store.GetRun(ctx, "run-limit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, result.Run.FinalBestFitness, run.FinalBestFitness)

	snapshots, ok, err := store.GetSnapshots(ctx, "run-limit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, snapshots, len(result.Snapshots))

	population, ok, err := store.GetPopulation(ctx, "run-limit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, population.Generation)

	assert.Empty(t, p.ActiveRuns())
}

func TestRunSearchStopsAtFitnessGoal(t *testing.T) {
	p, _ := newStartedPolis(t)

	result, err := p.RunSearch(context.Background(), RunConfig{
		Run:         model.RunRecord{ID: "run-goal"},
		Search:      newTestSearch(t, scape.EvenOnes, scape.EvenOddDFA(), 0),
		FitnessGoal: 1.0,
	})
	require.NoError(t, err)
	require.Len(t, result.Snapshots, 1)
	assert.Equal(t, 1.0, result.Snapshots[0].Fitness)
	assert.Equal(t, 0, result.Run.Generations)
	assert.Equal(t, model.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, scape.EvenOddDFA().Key(), result.Best.Key())
}

func TestRunSearchRecordsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, store := newStartedPolis(t)

	result, err := p.RunSearch(ctx, RunConfig{
		Run:    model.RunRecord{ID: "run-cancel"},
		Search: newTestSearch(t, scape.EndsInTwoZeros, model.DFA{}, 0),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.RunStatusCancelled, result.Run.Status)
	assert.Len(t, result.Snapshots, 1)

	run, ok, err := store.GetRun(context.Background(), "run-cancel")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.RunStatusCancelled, run.Status)
}

func TestStopRunCancelsActiveRun(t *testing.T) {
	p, _ := newStartedPolis(t)
	search := newTestSearch(t, scape.EndsInTwoZeros, model.DFA{}, 0)

	var (
		active    []string
		stopped   bool
		nestedErr error
	)
	result, err := p.RunSearch(context.Background(), RunConfig{
		Run:    model.RunRecord{ID: "run-stop"},
		Search: search,
		OnSnapshot: func(evo.Snapshot) {
			active = p.ActiveRuns()
			_, nestedErr = p.RunSearch(context.Background(), RunConfig{Run: model.RunRecord{ID: "run-stop"}, Search: search})
			stopped = p.StopRun("run-stop")
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"run-stop"}, active)
	assert.True(t, stopped)
	assert.True(t, errors.Is(nestedErr, ErrRunActive))
	assert.Equal(t, model.RunStatusCancelled, result.Run.Status)
	assert.False(t, p.StopRun("run-stop"))
}

func TestRunSearchPreconditions(t *testing.T) {
	ctx := context.Background()
	p := NewPolis(Config{Store: storage.NewMemoryStore()})
	search := newTestSearch(t, scape.EndsInTwoZeros, model.DFA{}, 1)

	_, err := p.RunSearch(ctx, RunConfig{Run: model.RunRecord{ID: "x"}, Search: search})
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, p.Init(ctx))
	_, err = p.RunSearch(ctx, RunConfig{Run: model.RunRecord{ID: "x"}})
	assert.ErrorIs(t, err, ErrSearchRequired)
	_, err = p.RunSearch(ctx, RunConfig{Search: search})
	assert.ErrorIs(t, err, storage.ErrMissingRunID)
}

func TestStopWithReason(t *testing.T) {
	p, _ := newStartedPolis(t)
	require.Error(t, p.StopWithReason("bogus"))
	assert.True(t, p.Started())

	require.NoError(t, p.StopWithReason(StopReasonShutdown))
	assert.False(t, p.Started())
	assert.Equal(t, StopReasonShutdown, p.LastStopReason())

	require.Error(t, NewPolis(Config{}).Init(context.Background()))
}
