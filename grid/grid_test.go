package grid

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-restruct/restruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/meigma/assetkit/internal/testutil"
)

func aabbRef(i uint32) uint32 {
	return tu.GridRef(uint8(KindAABB), i)
}

func twoByTwo(refs10 ...uint32) tu.GridSpec {
	return tu.GridSpec{
		Width: 2, Height: 2,
		Min: [2]float32{0, 0}, Max: [2]float32{20, 20},
		Prims: [6][]any{
			KindAABB: {
				AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{5, 5, 5}, Surface: Surface{Material: 1, Link: 0}},
				AABB{Min: mgl32.Vec3{10, 0, 0}, Max: mgl32.Vec3{15, 5, 5}, Surface: Surface{Material: 2, Link: -1}},
			},
			KindSphere: {
				Sphere{Center: mgl32.Vec3{5, 15, 0}, Radius: 2, Surface: Surface{Material: 3, Link: 1}},
			},
		},
		Cells: []tu.GridCell{
			{Height: 1, Refs: []uint32{aabbRef(0)}, Flags: []byte{0x01}},
			{Height: 2, Refs: refs10},
			{Height: 3, Refs: []uint32{tu.GridRef(uint8(KindSphere), 0), aabbRef(0)}, Flags: []byte{0x02, 0x03}},
			{Height: 4},
		},
		Links: []string{"door", "trigger"},
	}
}

func TestPrimitiveRecordSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prim Primitive
		want int
	}{
		{Face{}, 56},
		{XTOBB{}, 76},
		{AABB{}, 32},
		{Cylinder{}, 40},
		{OBB{}, 68},
		{Sphere{}, 24},
	}
	for _, tt := range tests {
		n, err := restruct.SizeOf(tt.prim)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, tt.prim.Kind().String())
	}
}

func TestDecodeGrid(t *testing.T) {
	t.Parallel()

	g, err := Decode(tu.BuildGrid(t, twoByTwo(aabbRef(1))))
	require.NoError(t, err)
	require.Empty(t, g.Errors)

	assert.Equal(t, mgl32.Vec2{0, 0}, g.Header.Min)
	assert.Equal(t, mgl32.Vec2{20, 20}, g.Header.Max)
	assert.Equal(t, mgl32.Vec2{10, 10}, g.Header.CellSize)
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 2, g.Height())
	assert.Equal(t, []float32{0, 10, 20}, g.XBounds)
	assert.Equal(t, []float32{0, 10, 20}, g.YBounds)
	assert.Equal(t, uint32(2), g.Header.Counts[KindAABB])
	assert.Equal(t, 2, g.Len(KindAABB))
	assert.Equal(t, 1, g.Len(KindSphere))
	assert.Zero(t, g.Len(KindFace))
	assert.Equal(t, []string{"door", "trigger"}, g.Links)

	cell, err := g.Cell(0, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(3), cell.Height)
	assert.Equal(t, uint32(2), cell.Count)

	refs, flags, err := g.CellRefs(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []Ref{MakeRef(KindSphere, 0), MakeRef(KindAABB, 0)}, refs)
	assert.Equal(t, []byte{0x02, 0x03}, flags)

	prims, err := g.Query(0, 1)
	require.NoError(t, err)
	require.Len(t, prims, 2)
	sphere, ok := prims[0].(Sphere)
	require.True(t, ok)
	assert.Equal(t, float32(2), sphere.Radius)
	assert.Equal(t, uint32(3), SurfaceOf(sphere).Material)
	link, ok := g.Link(sphere)
	require.True(t, ok)
	assert.Equal(t, "trigger", link)

	box, err := g.Resolve(MakeRef(KindAABB, 1))
	require.NoError(t, err)
	_, ok = g.Link(box)
	assert.False(t, ok, "negative link means none")
	assert.True(t, box.(AABB).Contains(mgl32.Vec3{12, 1, 1}))

	refs, flags, err = g.CellRefs(1, 1)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Empty(t, flags)
}

func TestCellOutOfRangeIsScoped(t *testing.T) {
	t.Parallel()

	// Two AABBs, but cell (1,0) references AABB index 5.
	g, err := Decode(tu.BuildGrid(t, twoByTwo(aabbRef(5))))
	require.NoError(t, err)
	require.Len(t, g.Errors, 1)

	var cellErr *CellError
	require.ErrorAs(t, g.Errors[0], &cellErr)
	assert.Equal(t, 1, cellErr.X)
	assert.Equal(t, 0, cellErr.Y)
	require.ErrorIs(t, cellErr, ErrOutOfRange)

	_, err = g.Query(1, 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, _, err = g.CellRefs(1, 0)
	require.ErrorAs(t, err, &cellErr)

	for _, xy := range [][2]int{{0, 0}, {0, 1}, {1, 1}} {
		_, err := g.Query(xy[0], xy[1])
		require.NoError(t, err, "cell %v", xy)
	}
}

func TestCellUnknownKind(t *testing.T) {
	t.Parallel()

	g, err := Decode(tu.BuildGrid(t, twoByTwo(tu.GridRef(9, 0))))
	require.NoError(t, err)
	require.Len(t, g.Errors, 1)
	require.ErrorIs(t, g.Errors[0], ErrCorruptStream)

	_, err = g.Resolve(Ref(tu.GridRef(9, 0)))
	require.ErrorIs(t, err, ErrCorruptStream)
}

func TestDecodeGridFatalErrors(t *testing.T) {
	t.Parallel()

	data := tu.BuildGrid(t, twoByTwo(aabbRef(1)))
	primAt := HeaderSize + 2*3*4

	badPrim := append([]byte(nil), data...)
	badPrim[primAt] = 'X'
	_, err := Decode(badPrim)
	require.ErrorIs(t, err, ErrBadMagic)

	cellAt := primAt + 4 + 2*32 + 24
	badCell := append([]byte(nil), data...)
	require.Equal(t, tu.GridCellMarker, badCell[cellAt:cellAt+4])
	badCell[cellAt+1] = 'X'
	_, err = Decode(badCell)
	require.ErrorIs(t, err, ErrBadMagic)

	for _, n := range []int{10, HeaderSize + 4, primAt + 10, cellAt + 10} {
		_, err := Decode(data[:n])
		require.ErrorIs(t, err, ErrTruncated, "cut at %d", n)
	}
}

func TestDecodeGridHugeDimensions(t *testing.T) {
	t.Parallel()

	spec := tu.GridSpec{Width: 0xFFFFFFFF, XBounds: []float32{}, YBounds: []float32{}}
	_, err := Decode(tu.BuildGrid(t, spec))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeGridWithoutLinks(t *testing.T) {
	t.Parallel()

	spec := twoByTwo(aabbRef(1))
	spec.Links = nil
	g, err := Decode(tu.BuildGrid(t, spec))
	require.NoError(t, err)
	assert.Empty(t, g.Links)

	sphere, err := g.Resolve(MakeRef(KindSphere, 0))
	require.NoError(t, err)
	_, ok := g.Link(sphere)
	assert.False(t, ok)
}

func TestLocate(t *testing.T) {
	t.Parallel()

	g, err := Decode(tu.BuildGrid(t, twoByTwo(aabbRef(1))))
	require.NoError(t, err)

	tests := []struct {
		p      mgl32.Vec2
		x, y   int
		inside bool
	}{
		{mgl32.Vec2{0, 0}, 0, 0, true},
		{mgl32.Vec2{9.9, 3}, 0, 0, true},
		{mgl32.Vec2{10, 3}, 1, 0, true},
		{mgl32.Vec2{15, 15}, 1, 1, true},
		{mgl32.Vec2{20, 20}, 1, 1, true},
		{mgl32.Vec2{-1, 5}, 0, 0, false},
		{mgl32.Vec2{5, 20.5}, 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := g.Locate(tt.p)
		assert.Equal(t, tt.inside, ok, "%v", tt.p)
		if tt.inside {
			assert.Equal(t, [2]int{tt.x, tt.y}, [2]int{x, y}, "%v", tt.p)
		}
	}
}

func TestCellsIterator(t *testing.T) {
	t.Parallel()

	g, err := Decode(tu.BuildGrid(t, twoByTwo(aabbRef(1))))
	require.NoError(t, err)

	var heights []float32
	var coords [][2]int
	for xy, c := range g.Cells() {
		coords = append(coords, xy)
		heights = append(heights, c.Height)
	}
	assert.Equal(t, [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, coords)
	assert.Equal(t, []float32{1, 2, 3, 4}, heights)

	_, err = g.Cell(2, 0)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestRef(t *testing.T) {
	t.Parallel()

	r := MakeRef(KindOBB, 0x123456)
	assert.Equal(t, KindOBB, r.Kind())
	assert.Equal(t, uint32(0x123456), r.Index())
	assert.Equal(t, "obb[1193046]", r.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
