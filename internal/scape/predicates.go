package scape

import "strings"

func EndsInTwoZeros(input string) bool {
	return strings.HasSuffix(input, "00")
}

func EvenOnes(input string) bool {
	return strings.Count(input, "1")%2 == 0
}

func OnesBetweenTwoAndFive(input string) bool {
	ones := strings.Count(input, "1")
	return ones >= 2 && ones <= 5
}

// DivisibleByThree reads input as a big-endian binary number; the empty
// string counts as zero.
func DivisibleByThree(input string) bool {
	rem := 0
	for i := 0; i < len(input); i++ {
		rem = (rem*2 + int(input[i]-'0')) % 3
	}
	return rem == 0
}
