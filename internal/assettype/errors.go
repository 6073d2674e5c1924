// Package assettype holds the error kinds shared by every decoder.
package assettype

import "errors"

// Sentinel errors for decode operations.
var (
	// ErrBadMagic is returned when a file-type signature or section marker
	// does not match. It is fatal for the whole file.
	ErrBadMagic = errors.New("assetkit: bad magic")

	// ErrTruncated is returned when the input ends before a fixed-size read
	// completes. It is fatal for the whole file.
	ErrTruncated = errors.New("assetkit: truncated")

	// ErrCorruptStream is returned when internal consistency is violated.
	// It is scoped to the smallest enclosing unit (entry, cell, chunk subtree).
	ErrCorruptStream = errors.New("assetkit: corrupt stream")

	// ErrOutOfRange is returned for an invalid index or offset.
	ErrOutOfRange = errors.New("assetkit: out of range")
)
