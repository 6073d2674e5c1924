package chunk

import (
	"fmt"

	"github.com/meigma/assetkit/internal/assettype"
)

// Sentinel errors re-exported from internal/assettype.
var (
	// ErrTruncated is returned when a top-level chunk runs past the end of
	// the stream.
	ErrTruncated = assettype.ErrTruncated

	// ErrCorruptStream is wrapped by every *ChunkError.
	ErrCorruptStream = assettype.ErrCorruptStream
)

// ChunkError records a failure scoped to one chunk subtree.
type ChunkError struct {
	// Offset is the position of the chunk header in the stream.
	Offset int64
	Type   uint16
	Depth  int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk: type %#04x at offset %d (depth %d): %v", e.Type, e.Offset, e.Depth, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
