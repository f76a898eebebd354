package mathutil

import "math"

// Lerp returns a + (b-a)*t without clamping t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Saturate clamps v to [0, 1]. NaN saturates to 0.
func Saturate(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MinDividedByMax returns min(a,b)/max(a,b), or 0 when the maximum is zero.
func MinDividedByMax(a, b float64) float64 {
	m := math.Max(a, b)
	if m == 0 {
		return 0
	}
	return math.Min(a, b) / m
}

// SafeRatio returns num/den, treating a denominator at or below eps as
// "degenerate": the result is 0 for a zero numerator and 1 otherwise.
func SafeRatio(num, den, eps float64) float64 {
	if den <= eps {
		if num <= 0 {
			return 0
		}
		return 1
	}
	return num / den
}

// Halton returns element index (1-based) of the Halton low-discrepancy sequence.
func Halton(index, base int) float64 {
	f := 1.0
	r := 0.0
	for index > 0 {
		f /= float64(base)
		r += f * float64(index%base)
		index /= base
	}
	return r
}
