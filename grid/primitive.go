package grid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind selects one of the six primitive arrays.
type Kind uint8

// Primitive kinds, in on-disk array order.
const (
	KindFace Kind = iota
	KindXTOBB
	KindAABB
	KindCylinder
	KindOBB
	KindSphere

	// NumKinds is the number of primitive kinds.
	NumKinds = 6
)

var kindNames = [NumKinds]string{"face", "xtobb", "aabb", "cylinder", "obb", "sphere"}

// String returns the kind's name.
func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k names a primitive array.
func (k Kind) Valid() bool {
	return k < NumKinds
}

// Ref is a packed cell reference: kind in the high 8 bits, index in the
// low 24.
type Ref uint32

// MakeRef packs a kind and index into a Ref.
func MakeRef(k Kind, index uint32) Ref {
	return Ref(uint32(k)<<24 | index&0x00FFFFFF)
}

// Kind returns the referenced primitive kind.
func (r Ref) Kind() Kind {
	return Kind(r >> 24)
}

// Index returns the index into the kind's primitive array.
func (r Ref) Index() uint32 {
	return uint32(r) & 0x00FFFFFF
}

func (r Ref) String() string {
	return fmt.Sprintf("%s[%d]", r.Kind(), r.Index())
}

// Surface is the tail shared by every primitive record.
type Surface struct {
	Material uint32
	// Link indexes the grid's link table; negative means none.
	Link int32
}

// Primitive is one collision primitive.
type Primitive interface {
	Kind() Kind
	surface() Surface
}

// Face is a triangle (56 bytes on disk).
type Face struct {
	V0, V1, V2 mgl32.Vec3
	Normal     mgl32.Vec3
	Surface
}

// XTOBB is an oriented box extruded between two heights (76 bytes).
type XTOBB struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
	Axes        mgl32.Mat3
	Bottom, Top float32
	Surface
}

// AABB is an axis-aligned box (32 bytes).
type AABB struct {
	Min, Max mgl32.Vec3
	Surface
}

// Cylinder is a capped cylinder (40 bytes).
type Cylinder struct {
	Base   mgl32.Vec3
	Axis   mgl32.Vec3
	Radius float32
	Height float32
	Surface
}

// OBB is an oriented box (68 bytes).
type OBB struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
	Axes        mgl32.Mat3
	Surface
}

// Sphere is a sphere (24 bytes).
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
	Surface
}

func (Face) Kind() Kind     { return KindFace }
func (XTOBB) Kind() Kind    { return KindXTOBB }
func (AABB) Kind() Kind     { return KindAABB }
func (Cylinder) Kind() Kind { return KindCylinder }
func (OBB) Kind() Kind      { return KindOBB }
func (Sphere) Kind() Kind   { return KindSphere }

func (s Surface) surface() Surface { return s }

// Contains reports whether p lies inside the box.
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Contains reports whether p lies inside the sphere.
func (s Sphere) Contains(p mgl32.Vec3) bool {
	return p.Sub(s.Center).Len() <= s.Radius
}
