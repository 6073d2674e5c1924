package chunk

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/meigma/assetkit/internal/cursor"
)

// Rule is how a format handles one chunk type.
//
// A container's Open runs before its children and Close after them; either
// may be nil. A leaf's Leaf reads the payload through a cursor bounded to
// the chunk.
type Rule struct {
	Name      string
	Container bool
	Open      func(s *state, h Header) error
	Close     func(s *state, h Header) error
	Leaf      func(s *state, c *cursor.Cursor) error
}

// Format is a closed table of chunk rules keyed by type code.
type Format struct {
	Name  string
	rules map[uint16]Rule
}

// Rule returns the rule for type code typ.
func (f *Format) Rule(typ uint16) (Rule, bool) {
	if f == nil {
		return Rule{}, false
	}
	r, ok := f.rules[typ]
	return r, ok
}

// Codes returns the type codes the format knows, in ascending order.
func (f *Format) Codes() []uint16 {
	if f == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(f.rules))
}

func (f *Format) String() string {
	return f.Name
}

// Scene stream chunk types.
const (
	TypeWorld        uint16 = 0x0001
	TypeViewDistance uint16 = 0x0002
	TypeFieldOfView  uint16 = 0x0003
	TypeClipPlanes   uint16 = 0x0004
	TypeAmbient      uint16 = 0x0005
	TypeObject       uint16 = 0x0010
	TypeObjectName   uint16 = 0x0011
	TypeObjectModel  uint16 = 0x0012
	TypePosition     uint16 = 0x0013
	TypeRotation     uint16 = 0x0014
	TypeScale        uint16 = 0x0015
	TypeObjectParent uint16 = 0x0016
	TypeObjectFlags  uint16 = 0x0017
	TypeLightBlock   uint16 = 0x0020
	TypeLightKind    uint16 = 0x0021
	TypeLightColor   uint16 = 0x0022
	TypeLightRange   uint16 = 0x0023
	TypeLightPower   uint16 = 0x0024
	TypeLightOffset  uint16 = 0x0025
)

// Placement stream chunk types.
const (
	TypePlacementSet    uint16 = 0x0100
	TypePlacement       uint16 = 0x0101
	TypePlacementName   uint16 = 0x0102
	TypePlacementModel  uint16 = 0x0103
	TypeTransform       uint16 = 0x0104
	TypePlacementParent uint16 = 0x0105
)

// SceneFormat decodes scene streams, whose strings are nul-terminated.
var SceneFormat = &Format{
	Name: "scene",
	rules: map[uint16]Rule{
		TypeWorld:        {Name: "world", Container: true},
		TypeViewDistance: {Name: "view-distance", Leaf: leafViewDistance},
		TypeFieldOfView:  {Name: "fov", Leaf: leafFieldOfView},
		TypeClipPlanes:   {Name: "clip-planes", Leaf: leafClipPlanes},
		TypeAmbient:      {Name: "ambient", Leaf: leafAmbient},
		TypeObject:       {Name: "object", Container: true, Open: openObject, Close: closeObject},
		TypeObjectName:   {Name: "name", Leaf: objectString(cstring, func(o *Object, s string) { o.Name = s })},
		TypeObjectModel:  {Name: "model", Leaf: objectString(cstring, func(o *Object, s string) { o.Model = s })},
		TypePosition:     {Name: "position", Leaf: objectVec3(func(o *Object, v mgl32.Vec3) { o.Position = v })},
		TypeRotation:     {Name: "rotation", Leaf: objectVec3(func(o *Object, v mgl32.Vec3) { o.Rotation = v })},
		TypeScale:        {Name: "scale", Leaf: objectVec3(func(o *Object, v mgl32.Vec3) { o.Scale = v })},
		TypeObjectParent: {Name: "parent", Leaf: objectString(cstring, func(o *Object, s string) { o.Parent = s })},
		TypeObjectFlags:  {Name: "object-flags", Leaf: leafObjectFlags},
		TypeLightBlock:   {Name: "light-block", Container: true, Open: openLight, Close: closeLight},
		TypeLightKind:    {Name: "light-kind", Leaf: leafLightKind},
		TypeLightColor:   {Name: "light-color", Leaf: lightVec3(func(l *Light, v mgl32.Vec3) { l.Color = v })},
		TypeLightRange:   {Name: "light-range", Leaf: lightF32(func(l *Light, v float32) { l.Range = v })},
		TypeLightPower:   {Name: "light-power", Leaf: lightF32(func(l *Light, v float32) { l.Intensity = v })},
		TypeLightOffset:  {Name: "light-offset", Leaf: lightVec3(func(l *Light, v mgl32.Vec3) { l.Offset = v })},
	},
}

// PlacementFormat decodes placement streams, whose strings carry a u16
// length prefix.
var PlacementFormat = &Format{
	Name: "placement",
	rules: map[uint16]Rule{
		TypePlacementSet:    {Name: "placement-set", Container: true},
		TypePlacement:       {Name: "placement", Container: true, Open: openObject, Close: closeObject},
		TypePlacementName:   {Name: "name", Leaf: objectString(pstring, func(o *Object, s string) { o.Name = s })},
		TypePlacementModel:  {Name: "model", Leaf: objectString(pstring, func(o *Object, s string) { o.Model = s })},
		TypeTransform:       {Name: "transform", Leaf: leafTransform},
		TypePlacementParent: {Name: "parent", Leaf: objectString(pstring, func(o *Object, s string) { o.Parent = s })},
	},
}

// FormatByName returns SceneFormat or PlacementFormat by name.
func FormatByName(name string) (*Format, error) {
	switch name {
	case SceneFormat.Name:
		return SceneFormat, nil
	case PlacementFormat.Name:
		return PlacementFormat, nil
	default:
		return nil, fmt.Errorf("unknown chunk format %q", name)
	}
}

func cstring(c *cursor.Cursor) (string, error) {
	return c.ReadCString(int(c.Remaining()))
}

func pstring(c *cursor.Cursor) (string, error) {
	return c.ReadPString()
}

func readVec3(c *cursor.Cursor) (mgl32.Vec3, error) {
	f, err := c.F32s(3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{f[0], f[1], f[2]}, nil
}

func leafViewDistance(s *state, c *cursor.Cursor) error {
	v, err := c.F32()
	if err != nil {
		return err
	}
	s.scene.World.ViewDistance = v
	s.scene.World.Set |= WorldViewDistance
	return nil
}

func leafFieldOfView(s *state, c *cursor.Cursor) error {
	v, err := c.F32()
	if err != nil {
		return err
	}
	s.scene.World.FieldOfView = v
	s.scene.World.Set |= WorldFieldOfView
	return nil
}

func leafClipPlanes(s *state, c *cursor.Cursor) error {
	f, err := c.F32s(2)
	if err != nil {
		return err
	}
	s.scene.World.NearClip, s.scene.World.FarClip = f[0], f[1]
	s.scene.World.Set |= WorldClipPlanes
	return nil
}

func leafAmbient(s *state, c *cursor.Cursor) error {
	v, err := readVec3(c)
	if err != nil {
		return err
	}
	s.scene.World.Ambient = v
	s.scene.World.Set |= WorldAmbient
	return nil
}

func openObject(s *state, _ Header) error {
	s.objects = append(s.objects, newObject())
	return nil
}

func closeObject(s *state, _ Header) error {
	n := len(s.objects)
	obj := s.objects[n-1]
	s.objects = s.objects[:n-1]
	if obj.Parent == "" && n > 1 {
		obj.Parent = s.objects[n-2].Name
	}
	if obj.Name == "" {
		return fmt.Errorf("%w: object has no name", ErrCorruptStream)
	}
	s.scene.Objects[obj.Name] = obj
	return nil
}

func objectString(read func(*cursor.Cursor) (string, error), set func(*Object, string)) func(*state, *cursor.Cursor) error {
	return func(s *state, c *cursor.Cursor) error {
		obj, err := s.object()
		if err != nil {
			return err
		}
		v, err := read(c)
		if err != nil {
			return err
		}
		set(obj, v)
		return nil
	}
}

func objectVec3(set func(*Object, mgl32.Vec3)) func(*state, *cursor.Cursor) error {
	return func(s *state, c *cursor.Cursor) error {
		obj, err := s.object()
		if err != nil {
			return err
		}
		v, err := readVec3(c)
		if err != nil {
			return err
		}
		set(obj, v)
		return nil
	}
}

func leafObjectFlags(s *state, c *cursor.Cursor) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	v, err := c.U32()
	if err != nil {
		return err
	}
	obj.Flags = v
	return nil
}

func leafTransform(s *state, c *cursor.Cursor) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	f, err := c.F32s(9)
	if err != nil {
		return err
	}
	obj.Position = mgl32.Vec3{f[0], f[1], f[2]}
	obj.Rotation = mgl32.Vec3{f[3], f[4], f[5]}
	obj.Scale = mgl32.Vec3{f[6], f[7], f[8]}
	return nil
}

func openLight(s *state, _ Header) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	obj.Lights = append(obj.Lights, Light{})
	s.lights = append(s.lights, lightRef{obj: obj, index: len(obj.Lights) - 1})
	return nil
}

func closeLight(s *state, _ Header) error {
	s.lights = s.lights[:len(s.lights)-1]
	return nil
}

func leafLightKind(s *state, c *cursor.Cursor) error {
	l, err := s.light()
	if err != nil {
		return err
	}
	v, err := c.U32()
	if err != nil {
		return err
	}
	l.Kind = v
	return nil
}

func lightVec3(set func(*Light, mgl32.Vec3)) func(*state, *cursor.Cursor) error {
	return func(s *state, c *cursor.Cursor) error {
		l, err := s.light()
		if err != nil {
			return err
		}
		v, err := readVec3(c)
		if err != nil {
			return err
		}
		set(l, v)
		return nil
	}
}

func lightF32(set func(*Light, float32)) func(*state, *cursor.Cursor) error {
	return func(s *state, c *cursor.Cursor) error {
		l, err := s.light()
		if err != nil {
			return err
		}
		v, err := c.F32()
		if err != nil {
			return err
		}
		set(l, v)
		return nil
	}
}
