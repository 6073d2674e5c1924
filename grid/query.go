package grid

import (
	"fmt"
	"iter"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Width returns the number of cell columns.
func (g *Grid) Width() int {
	return int(g.Header.Width)
}

// Height returns the number of cell rows.
func (g *Grid) Height() int {
	return int(g.Header.Height)
}

// Len returns the length of the primitive array for kind k.
func (g *Grid) Len(k Kind) int {
	switch k {
	case KindFace:
		return len(g.Faces)
	case KindXTOBB:
		return len(g.XTOBBs)
	case KindAABB:
		return len(g.AABBs)
	case KindCylinder:
		return len(g.Cylinders)
	case KindOBB:
		return len(g.OBBs)
	case KindSphere:
		return len(g.Spheres)
	default:
		return 0
	}
}

func (g *Grid) check(r Ref) error {
	k := r.Kind()
	if !k.Valid() {
		return fmt.Errorf("%w: reference %#08x has unknown kind %d", ErrCorruptStream, uint32(r), uint8(k))
	}
	if int(r.Index()) >= g.Len(k) {
		return fmt.Errorf("%w: %s index %d of %d", ErrOutOfRange, k, r.Index(), g.Len(k))
	}
	return nil
}

// Resolve returns the primitive a reference points at.
func (g *Grid) Resolve(r Ref) (Primitive, error) {
	if err := g.check(r); err != nil {
		return nil, err
	}
	i := r.Index()
	switch r.Kind() {
	case KindFace:
		return g.Faces[i], nil
	case KindXTOBB:
		return g.XTOBBs[i], nil
	case KindAABB:
		return g.AABBs[i], nil
	case KindCylinder:
		return g.Cylinders[i], nil
	case KindOBB:
		return g.OBBs[i], nil
	default:
		return g.Spheres[i], nil
	}
}

// Cell returns the cell at column x, row y.
func (g *Grid) Cell(x, y int) (Cell, error) {
	if x < 0 || y < 0 || x >= g.Width() || y >= g.Height() {
		return Cell{}, fmt.Errorf("%w: cell (%d,%d) outside %dx%d grid", ErrOutOfRange, x, y, g.Width(), g.Height())
	}
	return g.cells[y*g.Width()+x], nil
}

// CellRefs returns the references and per-reference flag bytes of a cell.
// The slices alias the grid's storage and must not be modified. For a cell
// with unresolvable references, the slices are returned along with a
// *CellError.
func (g *Grid) CellRefs(x, y int) ([]Ref, []byte, error) {
	c, err := g.Cell(x, y)
	if err != nil {
		return nil, nil, err
	}
	end := c.off + c.Count
	refs := g.refs[c.off:end:end]
	flags := g.flags[c.off:end:end]
	if c.Err != nil {
		return refs, flags, &CellError{X: x, Y: y, Err: c.Err}
	}
	return refs, flags, nil
}

// Query returns the primitives referenced by a cell.
func (g *Grid) Query(x, y int) ([]Primitive, error) {
	refs, _, err := g.CellRefs(x, y)
	if err != nil {
		return nil, err
	}
	out := make([]Primitive, len(refs))
	for i, r := range refs {
		if out[i], err = g.Resolve(r); err != nil {
			return nil, &CellError{X: x, Y: y, Err: err}
		}
	}
	return out, nil
}

// Cells returns an iterator over all cells in row-major order.
func (g *Grid) Cells() iter.Seq2[[2]int, Cell] {
	return func(yield func([2]int, Cell) bool) {
		for i, c := range g.cells {
			if !yield([2]int{i % g.Width(), i / g.Width()}, c) {
				return
			}
		}
	}
}

// Locate returns the cell containing point p, using the boundary arrays.
// A point on the far edge of the grid belongs to the last cell.
func (g *Grid) Locate(p mgl32.Vec2) (x, y int, ok bool) {
	x, okx := locate(g.XBounds, p.X())
	y, oky := locate(g.YBounds, p.Y())
	if !okx || !oky {
		return 0, 0, false
	}
	return x, y, true
}

func locate(bounds []float32, v float32) (int, bool) {
	n := len(bounds) - 1
	if n < 1 || v < bounds[0] || v > bounds[n] {
		return 0, false
	}
	i := sort.Search(len(bounds), func(i int) bool { return bounds[i] > v }) - 1
	return min(i, n-1), true
}

// SurfaceOf returns the material and link shared by every primitive.
func SurfaceOf(p Primitive) Surface {
	return p.surface()
}

// Link returns the link table name of a primitive.
func (g *Grid) Link(p Primitive) (string, bool) {
	l := p.surface().Link
	if l < 0 || int(l) >= len(g.Links) {
		return "", false
	}
	return g.Links[l], true
}
