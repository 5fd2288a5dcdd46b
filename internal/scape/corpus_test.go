package scape

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitstrings(t *testing.T) {
	assert.Equal(t, []string{"00", "01", "10", "11"}, Bitstrings(2))
	assert.Equal(t, []string{""}, Bitstrings(0))
	assert.Len(t, Bitstrings(5), 32)
	assert.Nil(t, Bitstrings(-1))
}

func TestBitstringsRejectsLengthsPastBound(t *testing.T) {
	for _, n := range []int{-1, MaxBitstringLength + 1, 62, 63, 64, 65} {
		assert.ErrorIs(t, CheckLength(n), ErrLengthOutOfRange, "length %d", n)
		assert.Nil(t, Bitstrings(n), "length %d", n)
		assert.Nil(t, AllBitstrings(n), "length %d", n)
	}
	require.NoError(t, CheckLength(0))
	require.NoError(t, CheckLength(MaxBitstringLength))
}

func TestAllBitstrings(t *testing.T) {
	assert.Equal(t, []string{"", "0", "1"}, AllBitstrings(1))
	assert.Equal(t, []string{"", "0", "1", "00", "01", "10", "11"}, AllBitstrings(2))
	assert.Len(t, AllBitstrings(4), 31)
}

func TestSampleBitstringsIsDistinctAndOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sample := SampleBitstrings(rng, 6, 200)
	require.NotEmpty(t, sample)
	assert.LessOrEqual(t, len(sample), 200)

	assert.True(t, sort.SliceIsSorted(sample, func(i, j int) bool {
		return corpusLess(sample[i], sample[j])
	}))
	seen := map[string]struct{}{}
	for _, input := range sample {
		assert.LessOrEqual(t, len(input), 6)
		_, dup := seen[input]
		assert.Falsef(t, dup, "duplicate input %q", input)
		seen[input] = struct{}{}
	}
}

func TestSampleBitstringsRejectsBadArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Nil(t, SampleBitstrings(rng, -1, 10))
	assert.Nil(t, SampleBitstrings(rng, 3, 0))
	assert.Nil(t, SampleBitstrings(nil, 3, 10))
}
