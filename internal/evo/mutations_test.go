package evo

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dfaevo/internal/genotype"
	"dfaevo/internal/model"
)

func TestChangeTransition(t *testing.T) {
	parent := parityDFA()
	rng := &scriptedRand{ints: []int{1, 0, 0}}

	child, err := ChangeTransition{}.Apply(rng, parent)
	require.NoError(t, err)
	require.NoError(t, child.Validate())
	assert.Equal(t, model.State("q0"), child.Transitions["q1"][model.Zero])
	assert.Equal(t, model.State("q1"), parent.Transitions["q1"][model.Zero], "input must not change")
	assert.True(t, rng.exhausted())
}

func TestChangeTransitionMayTargetSameState(t *testing.T) {
	parent := parityDFA()
	child, err := ChangeTransition{}.Apply(&scriptedRand{ints: []int{1, 0, 1}}, parent)
	require.NoError(t, err)
	assert.True(t, child.Equal(parent))
}

func TestChangeAccepting(t *testing.T) {
	parent := parityDFA()
	child, err := ChangeAccepting{}.Apply(&scriptedRand{ints: []int{1, 1}}, parent)
	require.NoError(t, err)
	assert.True(t, child.Accepting["q1"])
	assert.False(t, parent.Accepting["q1"])
}

func TestChangeInitial(t *testing.T) {
	parent := parityDFA()
	child, err := ChangeInitial{}.Apply(&scriptedRand{ints: []int{1}}, parent)
	require.NoError(t, err)
	assert.Equal(t, model.State("q1"), child.Initial)
	assert.Equal(t, model.State("q0"), parent.Initial)
}

func TestAddStateTargetsIncludeNewState(t *testing.T) {
	parent := parityDFA()
	child, err := AddState{}.Apply(&scriptedRand{ints: []int{2, 0, 1}}, parent)
	require.NoError(t, err)
	require.NoError(t, child.Validate())

	assert.Equal(t, 3, child.NumStates())
	assert.Equal(t, model.State("q2"), child.Transitions["q2"][model.Zero])
	assert.Equal(t, model.State("q0"), child.Transitions["q2"][model.One])
	assert.True(t, child.Accepting["q2"])
	assert.Equal(t, 2, parent.NumStates())
}

func TestRemoveState(t *testing.T) {
	child, err := RemoveState{}.Apply(&scriptedRand{ints: []int{1, 0}}, parityDFA())
	require.NoError(t, err)
	require.NoError(t, child.Validate())
	assert.Equal(t, "q0|q0:1:q0,q0", child.Key())
}

func TestRemoveInitialStateReassignsInitial(t *testing.T) {
	rng := &scriptedRand{ints: []int{0, 0, 0}}
	child, err := RemoveState{}.Apply(rng, parityDFA())
	require.NoError(t, err)
	require.NoError(t, child.Validate())
	assert.Equal(t, "q1|q1:0:q1,q1", child.Key())
	assert.True(t, rng.exhausted())
}

func TestRemoveStateOnSingleStateIsNoop(t *testing.T) {
	parent := genotype.Trivial()
	rng := &scriptedRand{}
	child, err := RemoveState{}.Apply(rng, parent)
	require.NoError(t, err)
	assert.True(t, child.Equal(parent))

	child.Accepting["q0"] = true
	assert.False(t, parent.Accepting["q0"], "no-op result must still be a copy")
}

func TestOperatorsRejectMissingRandomSource(t *testing.T) {
	for _, name := range BuiltinOperators {
		_, err := Mutate(nil, parityDFA(), name)
		assert.ErrorIs(t, err, ErrNoRandomSource, name)
	}
}

func TestOperatorsRejectEmptyDFA(t *testing.T) {
	for _, name := range []string{OpChangeTransition, OpChangeAccepting, OpChangeInitial, OpRemoveState} {
		_, err := Mutate(rand.New(rand.NewSource(1)), model.DFA{}, name)
		assert.ErrorIs(t, err, ErrNoStates, name)
	}
}

func TestAddStateOnEmptyDFA(t *testing.T) {
	child, err := AddState{}.Apply(&scriptedRand{ints: []int{0, 0, 0}}, model.DFA{})
	require.NoError(t, err)
	require.NoError(t, child.Validate())
	assert.Equal(t, "q0|q0:0:q0,q0", child.Key())
}

func TestMutationsPreserveTotality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	current := genotype.Trivial()
	for step := 0; step < 5000; step++ {
		name := BuiltinOperators[rng.Intn(len(BuiltinOperators))]
		before := current.Key()

		next, err := Mutate(rng, current, name)
		require.NoError(t, err, "step %d %s", step, name)
		require.NoError(t, next.Validate(), "step %d %s produced %s", step, name, next.Key())
		require.Equal(t, before, current.Key(), "step %d %s modified its input", step, name)
		require.GreaterOrEqual(t, next.NumStates(), 1)

		// Keep the walk from growing without bound.
		if next.NumStates() > 12 {
			next, err = Mutate(rng, next, OpRemoveState)
			require.NoError(t, err)
		}
		current = next
	}
}

func TestMutateUnknownOperator(t *testing.T) {
	_, err := Mutate(rand.New(rand.NewSource(1)), parityDFA(), "swap-alphabet")
	assert.True(t, errors.Is(err, ErrOperatorNotFound))
}
