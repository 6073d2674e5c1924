package assetkit

import (
	"github.com/meigma/assetkit/archive"
	"github.com/meigma/assetkit/chunk"
	"github.com/meigma/assetkit/grid"
	"github.com/meigma/assetkit/internal/assettype"
)

// Error kinds shared by every decoder.
var (
	// ErrBadMagic is returned when a file signature or section marker does
	// not match.
	ErrBadMagic = assettype.ErrBadMagic

	// ErrTruncated is returned when input ends before a fixed-size read.
	ErrTruncated = assettype.ErrTruncated

	// ErrCorruptStream is returned when internal consistency is violated.
	ErrCorruptStream = assettype.ErrCorruptStream

	// ErrOutOfRange is returned for an invalid index or offset.
	ErrOutOfRange = assettype.ErrOutOfRange
)

// Scoped error types.
type (
	// EntryError records a failure scoped to one archive entry.
	EntryError = archive.EntryError

	// ChunkError records a failure scoped to one chunk subtree.
	ChunkError = chunk.ChunkError

	// CellError records a failure scoped to one grid cell.
	CellError = grid.CellError
)
