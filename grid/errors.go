package grid

import (
	"fmt"

	"github.com/meigma/assetkit/internal/assettype"
)

// Sentinel errors re-exported from internal/assettype.
var (
	// ErrBadMagic is returned when a section marker does not match.
	ErrBadMagic = assettype.ErrBadMagic

	// ErrTruncated is returned when the grid ends before a fixed-size read.
	ErrTruncated = assettype.ErrTruncated

	// ErrCorruptStream is returned for a cell reference with an unknown kind.
	ErrCorruptStream = assettype.ErrCorruptStream

	// ErrOutOfRange is returned for a reference past its primitive array
	// or a cell coordinate outside the grid.
	ErrOutOfRange = assettype.ErrOutOfRange
)

// CellError records a failure scoped to one grid cell.
type CellError struct {
	X, Y int
	Err  error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("grid: cell (%d,%d): %v", e.X, e.Y, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}
