package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSignature(t *testing.T) {
	d, err := Build("q0",
		Row{State: "q0", OnZero: "q0", OnOne: "q1"},
		Row{State: "q1", OnZero: "q1", OnOne: "q0", Accepting: true},
		Row{State: "q2", OnZero: "q2", OnOne: "q2"},
	)
	require.NoError(t, err)

	sig := ComputeSignature(d)
	assert.Len(t, sig.Fingerprint, 16)
	assert.Equal(t, Summary{
		States:          3,
		AcceptingStates: 1,
		ReachableStates: 2,
		Components:      2,
		SelfLoops:       4,
		EncodedSize:     d.EncodedSize(),
	}, sig.Summary)
}

func TestComputeSignatureFingerprintTracksStructure(t *testing.T) {
	a := Trivial()
	b := Trivial()
	assert.Equal(t, ComputeSignature(a).Fingerprint, ComputeSignature(b).Fingerprint)

	b.Accepting["q0"] = true
	assert.NotEqual(t, ComputeSignature(a).Fingerprint, ComputeSignature(b).Fingerprint)
}
