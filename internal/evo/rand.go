package evo

import (
	"math/rand"
	"time"
)

// Rand is the random source the mutation engine and the evolutionary loop
// draw from. *rand.Rand satisfies it; tests substitute scripted sources.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// NewRand returns a math/rand source for seed, or a time-seeded one when
// seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
