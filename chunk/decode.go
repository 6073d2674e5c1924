// Package chunk decodes tagged, length-prefixed chunk trees into scenes.
//
// A chunk is a 6-byte header (type u16, size u32) followed by size payload
// bytes. Containers hold child chunks; leaves hold fields. What a type code
// means is defined by a Format: SceneFormat for scene streams and
// PlacementFormat for object placement lists.
//
// Decoding is optimistic. Unknown types are skipped, and a malformed subtree
// is recorded as a *ChunkError in Scene.Errors while the rest of the stream
// is still decoded. Only a top-level chunk running past the end of the
// stream is fatal.
package chunk

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/assetkit/internal/cursor"
)

// DefaultMaxDepth is the default limit on container nesting.
const DefaultMaxDepth = 64

// Option configures Decode.
type Option func(*state)

// WithMaxDepth limits container nesting. Deeper containers are skipped and
// reported in Scene.Errors.
func WithMaxDepth(n int) Option {
	return func(s *state) {
		s.maxDepth = n
	}
}

// WithLogger sets the logger for skipped chunks and scoped errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *state) {
		s.logger = logger
	}
}

// state is the decoder state for one Decode call.
type state struct {
	scene    *Scene
	objects  []*Object
	lights   []lightRef
	maxDepth int
	logger   *slog.Logger
}

type lightRef struct {
	obj   *Object
	index int
}

// log returns the logger, falling back to a discard logger if nil.
func (s *state) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// object returns the innermost open object.
func (s *state) object() (*Object, error) {
	if len(s.objects) == 0 {
		return nil, fmt.Errorf("%w: field outside an object", ErrCorruptStream)
	}
	return s.objects[len(s.objects)-1], nil
}

// light returns the innermost open light.
func (s *state) light() (*Light, error) {
	if len(s.lights) == 0 {
		return nil, fmt.Errorf("%w: light field outside a light block", ErrCorruptStream)
	}
	ref := s.lights[len(s.lights)-1]
	return &ref.obj.Lights[ref.index], nil
}

// Decode decodes a chunk stream with format f.
//
// The returned error is non-nil only when a top-level chunk runs past the
// end of data (ErrTruncated). Scoped failures are in Scene.Errors.
// Decode has no side effects; decoding the same bytes twice yields equal
// scenes.
func Decode(data []byte, f *Format, opts ...Option) (*Scene, error) {
	s := &state{
		scene:    &Scene{Objects: make(map[string]*Object)},
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	c := cursor.FromBytes(data)
	if err := walkLevel(c, f, 0, c.Len(), 0, s); err != nil {
		return nil, err
	}
	return s.scene, nil
}

func (s *state) fail(h Header, err error) {
	s.log().Debug("chunk subtree dropped",
		slog.Int64("offset", h.Offset),
		slog.Int("type", int(h.Type)),
		slog.Int("depth", h.Depth),
		slog.Any("error", err))
	s.scene.Errors = append(s.scene.Errors, &ChunkError{
		Offset: h.Offset,
		Type:   h.Type,
		Depth:  h.Depth,
		Err:    err,
	})
}

func (s *state) enter(h Header, rule Rule, known bool, payload *cursor.Cursor) (bool, error) {
	switch {
	case !known:
		s.log().Debug("skipping unknown chunk",
			slog.Int64("offset", h.Offset),
			slog.Int("type", int(h.Type)),
			slog.Uint64("size", uint64(h.Size)))
		return false, nil
	case rule.Container:
		if h.Depth+1 > s.maxDepth {
			s.fail(h, fmt.Errorf("%w: nesting deeper than %d", ErrCorruptStream, s.maxDepth))
			return false, nil
		}
		if rule.Open != nil {
			if err := rule.Open(s, h); err != nil {
				s.fail(h, err)
				return false, nil
			}
		}
		return true, nil
	case rule.Leaf != nil:
		if err := rule.Leaf(s, payload); err != nil {
			if !errors.Is(err, ErrCorruptStream) {
				err = fmt.Errorf("%w: %w", ErrCorruptStream, err)
			}
			s.fail(h, fmt.Errorf("%s: %w", rule.Name, err))
		}
	}
	return false, nil
}

func (s *state) leave(h Header, rule Rule) {
	if rule.Close == nil {
		return
	}
	if err := rule.Close(s, h); err != nil {
		s.fail(h, err)
	}
}

func (s *state) overrun(h Header, end int64) error {
	err := fmt.Errorf("chunk with %d-byte payload runs past %d", h.Size, end)
	if h.Depth == 0 {
		return fmt.Errorf("chunk: type %#04x at offset %d: %w: %w", h.Type, h.Offset, ErrTruncated, err)
	}
	s.fail(h, fmt.Errorf("%w: %w", ErrCorruptStream, err))
	return nil
}
