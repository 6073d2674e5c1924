// Package grid decodes collision grids.
//
// A grid file is a fixed header, the X and Y cell boundaries, six arrays of
// collision primitives behind a "PRIM" marker, and Width*Height cells behind
// a "CELL" marker. Each cell lists packed references into the primitive
// arrays. An optional "LINK" table of names may follow the cells.
//
// A cell whose references do not resolve is recorded as a *CellError in
// Grid.Errors; the rest of the grid stays usable.
package grid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-restruct/restruct"

	"github.com/meigma/assetkit/internal/cursor"
	"github.com/meigma/assetkit/internal/sizing"
)

// Section markers, as little-endian uint32.
const (
	MarkerPrimitives uint32 = 0x4D495250 // "PRIM"
	MarkerCells      uint32 = 0x4C4C4543 // "CELL"
	MarkerLinks      uint32 = 0x4B4E494C // "LINK"
)

// HeaderSize is the on-disk size of the grid header.
const HeaderSize = 80

// cellHeaderSize is the fixed part of a cell: count, two reserved words, height.
const cellHeaderSize = 16

// Header is the decoded grid header.
type Header struct {
	Min      mgl32.Vec2
	Max      mgl32.Vec2
	CellSize mgl32.Vec2
	Width    uint32
	Height   uint32

	// Counts holds the primitive array lengths indexed by Kind.
	Counts [NumKinds]uint32
}

type rawHeader struct {
	Bounds   [4]float32
	CellSize [2]float32
	Width    uint32
	Height   uint32
	Arrays   [NumKinds]struct {
		Count    uint32
		Reserved uint32
	}
}

// Cell is one grid bucket. Its references live in the grid's arena.
type Cell struct {
	Count  uint32
	Height float32

	// Err is non-nil when a reference in the cell does not resolve.
	Err error

	off uint32
}

// Grid is a decoded collision grid.
type Grid struct {
	Header  Header
	XBounds []float32
	YBounds []float32

	Faces     []Face
	XTOBBs    []XTOBB
	AABBs     []AABB
	Cylinders []Cylinder
	OBBs      []OBB
	Spheres   []Sphere

	// Links is the optional trailing link table.
	Links []string

	// Errors holds a *CellError for every cell with unresolvable references.
	Errors []error

	cells []Cell
	refs  []Ref
	flags []byte
}

// Option configures Decode.
type Option func(*decoder)

// WithLogger sets the logger for cell errors and trailing data.
func WithLogger(logger *slog.Logger) Option {
	return func(d *decoder) {
		d.logger = logger
	}
}

type decoder struct {
	c      *cursor.Cursor
	g      *Grid
	logger *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (d *decoder) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// Decode decodes a collision grid held in memory.
func Decode(data []byte, opts ...Option) (*Grid, error) {
	return DecodeFrom(bytes.NewReader(data), int64(len(data)), opts...)
}

// DecodeFrom decodes the first size bytes of r as a collision grid.
//
// A bad section marker is ErrBadMagic and running out of input is
// ErrTruncated; both are fatal. Unresolvable cell references are not.
func DecodeFrom(r io.ReaderAt, size int64, opts ...Option) (*Grid, error) {
	d := &decoder{c: cursor.New(r, size), g: &Grid{}}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.decode(); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	return d.g, nil
}

func (d *decoder) decode() error {
	if err := d.header(); err != nil {
		return err
	}
	if err := d.bounds(); err != nil {
		return err
	}
	if err := d.marker(MarkerPrimitives, "primitives"); err != nil {
		return err
	}
	if err := d.primitives(); err != nil {
		return err
	}
	if err := d.marker(MarkerCells, "cells"); err != nil {
		return err
	}
	if err := d.cellTable(); err != nil {
		return err
	}
	return d.links()
}

func (d *decoder) header() error {
	var raw rawHeader
	if err := d.c.ReadFixed(&raw); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	h := Header{
		Min:      mgl32.Vec2{raw.Bounds[0], raw.Bounds[1]},
		Max:      mgl32.Vec2{raw.Bounds[2], raw.Bounds[3]},
		CellSize: mgl32.Vec2{raw.CellSize[0], raw.CellSize[1]},
		Width:    raw.Width,
		Height:   raw.Height,
	}
	for k, a := range raw.Arrays {
		h.Counts[k] = a.Count
	}
	d.g.Header = h
	return nil
}

func (d *decoder) bounds() error {
	nx, okx := sizing.AddUint32(d.g.Header.Width, 1)
	ny, oky := sizing.AddUint32(d.g.Header.Height, 1)
	if !okx || !oky {
		return fmt.Errorf("%w: grid %dx%d", ErrTruncated, d.g.Header.Width, d.g.Header.Height)
	}
	var err error
	if d.g.XBounds, err = d.floats(nx); err != nil {
		return fmt.Errorf("x bounds: %w", err)
	}
	if d.g.YBounds, err = d.floats(ny); err != nil {
		return fmt.Errorf("y bounds: %w", err)
	}
	return nil
}

func (d *decoder) floats(n uint32) ([]float32, error) {
	if int64(n)*4 > d.c.Remaining() {
		return nil, fmt.Errorf("%w: %d floats with %d bytes left", ErrTruncated, n, d.c.Remaining())
	}
	return d.c.F32s(int(n))
}

func (d *decoder) marker(want uint32, section string) error {
	got, err := d.c.U32()
	if err != nil {
		return fmt.Errorf("%s marker: %w", section, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s marker %#08x, want %#08x", ErrBadMagic, section, got, want)
	}
	return nil
}

func (d *decoder) primitives() error {
	counts := d.g.Header.Counts
	var err error
	if d.g.Faces, err = readArray[Face](d.c, counts[KindFace]); err != nil {
		return fmt.Errorf("faces: %w", err)
	}
	if d.g.XTOBBs, err = readArray[XTOBB](d.c, counts[KindXTOBB]); err != nil {
		return fmt.Errorf("xtobbs: %w", err)
	}
	if d.g.AABBs, err = readArray[AABB](d.c, counts[KindAABB]); err != nil {
		return fmt.Errorf("aabbs: %w", err)
	}
	if d.g.Cylinders, err = readArray[Cylinder](d.c, counts[KindCylinder]); err != nil {
		return fmt.Errorf("cylinders: %w", err)
	}
	if d.g.OBBs, err = readArray[OBB](d.c, counts[KindOBB]); err != nil {
		return fmt.Errorf("obbs: %w", err)
	}
	if d.g.Spheres, err = readArray[Sphere](d.c, counts[KindSphere]); err != nil {
		return fmt.Errorf("spheres: %w", err)
	}
	return nil
}

// readArray reads n packed records of T.
func readArray[T any](c *cursor.Cursor, n uint32) ([]T, error) {
	var zero T
	size, err := restruct.SizeOf(&zero)
	if err != nil {
		return nil, err
	}
	total, ok := sizing.MulUint32(n, uint32(size)) //nolint:gosec // record sizes are small constants
	if !ok || int64(total) > c.Remaining() {
		return nil, fmt.Errorf("%w: %d records of %d bytes with %d bytes left", ErrTruncated, n, size, c.Remaining())
	}
	raw, err := c.ReadExact(int(total))
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		if err := restruct.Unpack(raw[i*size:(i+1)*size], binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) cellTable() error {
	w, h := d.g.Header.Width, d.g.Header.Height
	n, ok := sizing.MulUint32(w, h)
	if ok {
		_, ok = sizing.MulUint32(n, cellHeaderSize)
	}
	if !ok || int64(n)*cellHeaderSize > d.c.Remaining() {
		return fmt.Errorf("%w: %dx%d cells with %d bytes left", ErrTruncated, w, h, d.c.Remaining())
	}
	d.g.cells = make([]Cell, n)
	for i := range d.g.cells {
		x, y := i%int(w), i/int(w)
		if err := d.cell(x, y, &d.g.cells[i]); err != nil {
			return fmt.Errorf("cell (%d,%d): %w", x, y, err)
		}
	}
	return nil
}

func (d *decoder) cell(x, y int, cell *Cell) error {
	count, err := d.c.U32()
	if err != nil {
		return err
	}
	if err := d.c.Skip(8); err != nil {
		return err
	}
	if cell.Height, err = d.c.F32(); err != nil {
		return err
	}
	cell.Count = count
	cell.off = uint32(len(d.g.refs)) //nolint:gosec // bounded by input size
	if count == 0 {
		return nil
	}

	refBytes, ok := sizing.MulUint32(count, 4)
	flagBytes := sizing.AlignUp(count, 4)
	if !ok || flagBytes < count || int64(refBytes)+int64(flagBytes) > d.c.Remaining() {
		return fmt.Errorf("%w: %d references with %d bytes left", ErrTruncated, count, d.c.Remaining())
	}
	raw, err := d.c.ReadExact(int(refBytes))
	if err != nil {
		return err
	}
	flags, err := d.c.ReadExact(int(flagBytes))
	if err != nil {
		return err
	}
	for i := range count {
		ref := Ref(binary.LittleEndian.Uint32(raw[i*4:]))
		d.g.refs = append(d.g.refs, ref)
		if cell.Err == nil {
			cell.Err = d.g.check(ref)
		}
	}
	d.g.flags = append(d.g.flags, flags[:count]...)
	if cell.Err != nil {
		d.log().Debug("cell has unresolvable references",
			slog.Int("x", x),
			slog.Int("y", y),
			slog.Any("error", cell.Err))
		d.g.Errors = append(d.g.Errors, &CellError{X: x, Y: y, Err: cell.Err})
	}
	return nil
}

// links reads the optional trailing link table.
func (d *decoder) links() error {
	if d.c.Remaining() < 4 {
		return nil
	}
	start := d.c.Tell()
	marker, err := d.c.U32()
	if err != nil {
		return err
	}
	if marker != MarkerLinks {
		d.log().Debug("ignoring trailing data after cells",
			slog.Int64("offset", start),
			slog.Int64("bytes", d.c.Len()-start))
		return nil
	}
	count, err := d.c.U32()
	if err != nil {
		return fmt.Errorf("link table: %w", err)
	}
	if int64(count) > d.c.Remaining() {
		return fmt.Errorf("link table: %w: %d names with %d bytes left", ErrTruncated, count, d.c.Remaining())
	}
	d.g.Links = make([]string, 0, count)
	for i := range count {
		n, err := d.c.U8()
		if err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
		name, err := d.c.ReadExact(int(n))
		if err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
		d.g.Links = append(d.g.Links, string(cursor.TrimNul(name)))
	}
	return nil
}
