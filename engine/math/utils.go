package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// FloorPowerOfTwo returns the largest power of two not greater than v, or 0 for 0.
func FloorPowerOfTwo[T constraints.Unsigned](v T) T {
	if v == 0 {
		return 0
	}
	p := T(1)
	for p <= v/2 {
		p <<= 1
	}
	return p
}
