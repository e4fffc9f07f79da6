package model

import (
	"math"
	"math/bits"
)

// AddAmounts returns a+b and false on overflow.
func AddAmounts(a, b Amount) (Amount, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// SaturatingAdd returns a+b capped at the maximum amount.
func SaturatingAdd(a, b Amount) Amount {
	if sum, ok := AddAmounts(a, b); ok {
		return sum
	}
	return math.MaxUint64
}

// MulDiv returns a*b/c rounded down, capped at the maximum amount.
func MulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// ProductAtLeast reports whether a*b >= c*d without overflowing.
func ProductAtLeast(a, b, c, d uint64) bool {
	h1, l1 := bits.Mul64(a, b)
	h2, l2 := bits.Mul64(c, d)
	if h1 != h2 {
		return h1 > h2
	}
	return l1 >= l2
}
