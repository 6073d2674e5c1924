package archive

import (
	"fmt"

	"github.com/meigma/assetkit/internal/assettype"
)

// Sentinel errors re-exported from internal/assettype.
var (
	// ErrBadMagic is returned when the stream does not start with "ISD0".
	ErrBadMagic = assettype.ErrBadMagic

	// ErrTruncated is returned when the archive ends before a fixed-size read.
	ErrTruncated = assettype.ErrTruncated

	// ErrCorruptStream is returned when an entry's blocks are inconsistent.
	ErrCorruptStream = assettype.ErrCorruptStream

	// ErrOutOfRange is returned for an invalid entry index.
	ErrOutOfRange = assettype.ErrOutOfRange
)

// EntryError records a failure scoped to a single archive entry.
type EntryError struct {
	Index int
	Name  string
	Err   error
}

func (e *EntryError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("archive: entry %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("archive: entry %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
