package scape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/campoy/unique"
)

// MaxBitstringLength bounds exhaustive corpora: AllBitstrings of this
// length already holds 2^25-1 strings.
const MaxBitstringLength = 24

var ErrLengthOutOfRange = errors.New("bitstring length out of range")

// CheckLength reports whether n is a usable exhaustive corpus length.
func CheckLength(n int) error {
	if n < 0 || n > MaxBitstringLength {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrLengthOutOfRange, n, MaxBitstringLength)
	}
	return nil
}

// Bitstrings returns every bitstring of length n in lexicographic order. It
// returns nil when n fails CheckLength.
func Bitstrings(n int) []string {
	if CheckLength(n) != nil {
		return nil
	}
	count := 1 << uint(n)
	out := make([]string, 0, count)
	for v := 0; v < count; v++ {
		out = append(out, fmt.Sprintf("%0*b", n, v)[:n])
	}
	return out
}

// AllBitstrings returns every bitstring of length 0 through maxLen, shorter
// strings first and lexicographic within a length. It returns nil when
// maxLen fails CheckLength.
func AllBitstrings(maxLen int) []string {
	if CheckLength(maxLen) != nil {
		return nil
	}
	out := make([]string, 0, (1<<uint(maxLen+1))-1)
	for n := 0; n <= maxLen; n++ {
		out = append(out, Bitstrings(n)...)
	}
	return out
}

type intner interface {
	Intn(n int) int
}

// SampleBitstrings draws size random bitstrings with lengths in [0, maxLen]
// and returns the distinct ones in AllBitstrings order.
func SampleBitstrings(rng intner, maxLen, size int) []string {
	if maxLen < 0 || size <= 0 || rng == nil {
		return nil
	}
	out := make([]string, 0, size)
	var b strings.Builder
	for i := 0; i < size; i++ {
		b.Reset()
		length := rng.Intn(maxLen + 1)
		for j := 0; j < length; j++ {
			if rng.Intn(2) == 0 {
				b.WriteByte('0')
			} else {
				b.WriteByte('1')
			}
		}
		out = append(out, b.String())
	}
	unique.Slice(&out, func(i, j int) bool {
		return corpusLess(out[i], out[j])
	})
	return out
}

func corpusLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
