package renderer

import "golang.org/x/exp/constraints"

// AlignUp returns the smallest multiple of unit that is >= size. A unit of
// zero is treated as one. The result wraps when it does not fit in T, so
// callers pad in a wider type.
func AlignUp[T constraints.Unsigned](size, unit T) T {
	if unit == 0 {
		unit = 1
	}
	if r := size % unit; r != 0 {
		return size + unit - r
	}
	return size
}
