package dfaevo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dfaevo/internal/scape"
)

func TestNewSearchImprovesOnEndsInTwoZeros(t *testing.T) {
	search, err := NewSearch(scape.EndsInTwoZeros, 4, DefaultWeights(), 8,
		WithSeed(17),
		WithMaxGenerations(20000),
	)
	require.NoError(t, err)

	baseline := 24.0 / 31.0
	var first, last Snapshot
	for snapshot, err := range search.Snapshots(context.Background()) {
		require.NoError(t, err)
		if snapshot.Sequence == 1 {
			first = snapshot
		} else {
			assert.NotEqual(t, last.DFA.Key(), snapshot.DFA.Key())
		}
		last = snapshot
		if snapshot.Fitness > baseline {
			break
		}
	}

	assert.Equal(t, "q0|q0:0:q0,q0", first.DFA.Key())
	assert.InDelta(t, baseline, first.Fitness, 1e-12)
	assert.Greater(t, last.Fitness, baseline)
	assert.LessOrEqual(t, search.Population().Len(), 8)
}

func TestNewSearchValidation(t *testing.T) {
	_, err := NewSearch(scape.EvenOnes, -1, DefaultWeights(), 8)
	assert.ErrorIs(t, err, ErrLengthOutOfRange)

	_, err = NewSearch(scape.EvenOnes, 64, DefaultWeights(), 8)
	assert.ErrorIs(t, err, ErrLengthOutOfRange)

	_, err = NewSearch(scape.EvenOnes, 3, map[string]float64{}, 8)
	assert.Error(t, err)

	_, err = NewSearch(scape.EvenOnes, 3, DefaultWeights(), 0)
	assert.Error(t, err)

	_, err = NewSearch(scape.EvenOnes, 3, DefaultWeights(), 8, WithPostprocessor("bogus"))
	assert.Error(t, err)

	_, err = NewSearch(nil, 3, DefaultWeights(), 8)
	assert.Error(t, err)
}

func TestNewSearchWithInitialAndSample(t *testing.T) {
	search, err := NewSearch(scape.EvenOnes, 6, DefaultWeights(), 4,
		WithSeed(5),
		WithSampleSize(40),
		WithWorkers(2),
		WithInitial(scape.EvenOddDFA()),
	)
	require.NoError(t, err)

	snapshot, err := search.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scape.EvenOddDFA().Key(), snapshot.DFA.Key())
	assert.Equal(t, 1.0, snapshot.Fitness)
}

func TestLibraryEntryPoints(t *testing.T) {
	assert.Equal(t, []string{"00", "01", "10", "11"}, Bitstrings(2))
	assert.Equal(t, []string{"", "0", "1"}, AllBitstrings(1))

	dfa, err := ParseDFA("q0|q0:1:q0,q1;q1:0:q1,q0")
	require.NoError(t, err)
	accepted, err := Accepts(dfa, "11")
	require.NoError(t, err)
	assert.True(t, accepted)
	accepted, err = Accepts(dfa, "1")
	require.NoError(t, err)
	assert.False(t, accepted)

	acc, err := Accuracy(dfa, scape.EvenOnes, AllBitstrings(5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}
