// Package safemath provides overflow-safe integer arithmetic for the
// money computations spec.md §9 ("Integer width") requires: widen to
// arbitrary precision where the comparison can afford it, and saturate
// rather than silently wrap wherever the result must stay an int64.
package safemath

import (
	"math"
	"math/big"
	"math/bits"
)

// MulSaturate returns a*b, saturating to the int64 range on overflow
// instead of wrapping.
func MulSaturate(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(abs64(a), abs64(b))
	if hi != 0 || lo > math.MaxInt64 {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	if neg {
		return -int64(lo)
	}
	return int64(lo)
}

// AddSaturate returns a+b, saturating to the int64 range on overflow
// instead of wrapping.
func AddSaturate(a, b int64) int64 {
	sum := a + b
	if b > 0 && sum < a {
		return math.MaxInt64
	}
	if b < 0 && sum > a {
		return math.MinInt64
	}
	return sum
}

// NegSaturate returns -v, saturating at MaxInt64 for the one value
// (MinInt64) whose negation does not fit in int64.
func NegSaturate(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	return -v
}

// BigToInt64Saturate narrows an arbitrary-precision total to int64 for
// the wire, saturating rather than wrapping when it doesn't fit.
func BigToInt64Saturate(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() < 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}

func abs64(v int64) uint64 {
	if v >= 0 {
		return uint64(v)
	}
	return uint64(-(v + 1)) + 1
}
