package testutil

import (
	"encoding/binary"
	"testing"
)

// Grid section markers as they appear on disk.
var (
	GridPrimMarker = []byte("PRIM")
	GridCellMarker = []byte("CELL")
	GridLinkMarker = []byte("LINK")
)

// GridCell is one cell of a test grid.
type GridCell struct {
	Height float32
	Refs   []uint32
	// Flags holds one byte per reference; missing bytes are zero.
	Flags []byte
}

// GridSpec describes a test collision grid.
type GridSpec struct {
	Width, Height uint32
	Min, Max      [2]float32
	CellSize      [2]float32

	// XBounds and YBounds default to evenly spaced boundaries between Min
	// and Max.
	XBounds []float32
	YBounds []float32

	// Prims holds packable primitive records per kind, in on-disk order.
	Prims [6][]any

	// Cells holds Width*Height cells in row-major order. Missing cells are
	// empty.
	Cells []GridCell

	// Links, when non-nil, is written as a trailing link table.
	Links []string
}

// GridRef packs a primitive kind and index.
func GridRef(kind uint8, index uint32) uint32 {
	return uint32(kind)<<24 | index&0x00FFFFFF
}

// BuildGrid encodes spec as a collision grid file.
func BuildGrid(tb testing.TB, spec GridSpec) []byte {
	tb.Helper()

	if spec.CellSize == [2]float32{} && spec.Width > 0 && spec.Height > 0 {
		spec.CellSize = [2]float32{
			(spec.Max[0] - spec.Min[0]) / float32(spec.Width),
			(spec.Max[1] - spec.Min[1]) / float32(spec.Height),
		}
	}
	out := F32s(spec.Min[0], spec.Min[1], spec.Max[0], spec.Max[1], spec.CellSize[0], spec.CellSize[1])
	out = append(out, U32s(spec.Width, spec.Height)...)
	for _, prims := range spec.Prims {
		out = append(out, U32s(uint32(len(prims)), 0)...)
	}

	out = append(out, F32s(bounds(spec.XBounds, spec.Min[0], spec.CellSize[0], spec.Width)...)...)
	out = append(out, F32s(bounds(spec.YBounds, spec.Min[1], spec.CellSize[1], spec.Height)...)...)

	out = append(out, GridPrimMarker...)
	for _, prims := range spec.Prims {
		for _, p := range prims {
			out = append(out, pack(tb, p)...)
		}
	}

	out = append(out, GridCellMarker...)
	for i := range int(spec.Width * spec.Height) {
		var c GridCell
		if i < len(spec.Cells) {
			c = spec.Cells[i]
		}
		out = append(out, U32s(uint32(len(c.Refs)), 0, 0)...)
		out = append(out, F32s(c.Height)...)
		if len(c.Refs) == 0 {
			continue
		}
		out = append(out, U32s(c.Refs...)...)
		flags := make([]byte, (len(c.Refs)+3)/4*4)
		copy(flags, c.Flags)
		out = append(out, flags...)
	}

	if spec.Links != nil {
		out = append(out, GridLinkMarker...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(spec.Links)))
		for _, l := range spec.Links {
			out = append(out, byte(len(l)))
			out = append(out, l...)
		}
	}
	return out
}

func bounds(explicit []float32, start, step float32, n uint32) []float32 {
	if explicit != nil {
		return explicit
	}
	out := make([]float32, n+1)
	for i := range out {
		out[i] = start + step*float32(i)
	}
	return out
}
