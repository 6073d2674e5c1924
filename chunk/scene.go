package chunk

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// WorldField records which world scalars a stream set.
type WorldField uint8

// World fields.
const (
	WorldViewDistance WorldField = 1 << iota
	WorldFieldOfView
	WorldClipPlanes
	WorldAmbient
)

// World holds scene-wide render settings.
type World struct {
	ViewDistance float32
	// FieldOfView is in degrees.
	FieldOfView float32
	NearClip    float32
	FarClip     float32
	Ambient     mgl32.Vec3

	// Set has a bit for every field present in the stream.
	Set WorldField
}

// Has reports whether field f was set by the stream.
func (w World) Has(f WorldField) bool {
	return w.Set&f != 0
}

// Light is a light source attached to an object.
type Light struct {
	Kind      uint32
	Color     mgl32.Vec3
	Range     float32
	Intensity float32
	// Offset is relative to the owning object's position.
	Offset mgl32.Vec3
}

// Object is a named scene node.
type Object struct {
	Name   string
	Model  string
	Parent string

	Position mgl32.Vec3
	// Rotation holds Euler angles in degrees.
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3

	Flags  uint32
	Lights []Light
}

func newObject() *Object {
	return &Object{Scale: mgl32.Vec3{1, 1, 1}}
}

// Scene is the result of decoding a chunk stream.
type Scene struct {
	World World

	// Objects maps object names to objects. When a name repeats, the last
	// object closed wins.
	Objects map[string]*Object

	// Errors holds a *ChunkError for every subtree that could not be decoded.
	Errors []error
}

// Names returns the object names in sorted order.
func (s *Scene) Names() []string {
	return slices.Sorted(maps.Keys(s.Objects))
}

// Object returns the named object.
func (s *Scene) Object(name string) (*Object, bool) {
	o, ok := s.Objects[name]
	return o, ok
}
