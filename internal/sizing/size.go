// Package sizing provides overflow-checked arithmetic for on-disk offsets and counts.
package sizing

import "math"

// AddUint32 adds two uint32 values, returning (result, false) on overflow.
func AddUint32(a, b uint32) (uint32, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// MulUint32 multiplies two uint32 values, returning (result, false) on overflow.
func MulUint32(a, b uint32) (uint32, bool) {
	p := uint64(a) * uint64(b)
	if p > math.MaxUint32 {
		return 0, false
	}
	return uint32(p), true
}

// Span returns the exclusive end of the byte range [off, off+n).
// ok is false when the end does not fit in an int64.
func Span(off int64, n uint64) (end int64, ok bool) {
	if off < 0 || n > uint64(math.MaxInt64-off) {
		return 0, false
	}
	return off + int64(n), true //nolint:gosec // checked above
}

// Within reports whether [off, off+n) lies inside a buffer of the given size.
func Within(off int64, n uint64, size int64) bool {
	end, ok := Span(off, n)
	return ok && end <= size
}

// AlignUp rounds n up to the next multiple of align, which must be a power of two.
func AlignUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
