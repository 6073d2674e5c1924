package chunk

import (
	"errors"
	"fmt"

	"github.com/meigma/assetkit/internal/cursor"
	"github.com/meigma/assetkit/internal/sizing"
)

// HeaderSize is the size of a chunk header: type u16, size u32.
const HeaderSize = 6

// SkipChildren is returned by a WalkFunc to skip the children of a container.
var SkipChildren = errors.New("chunk: skip children")

// Header describes one chunk in a stream.
type Header struct {
	Type uint16
	// Size is the payload size, excluding the header.
	Size uint32
	// Offset is the position of the header in the stream.
	Offset int64
	Depth  int

	// Name and Container come from the format's rule for Type.
	// Name is empty for types the format does not know.
	Name      string
	Container bool
}

// PayloadStart returns the offset of the first payload byte.
func (h Header) PayloadStart() int64 {
	return h.Offset + HeaderSize
}

// visitor receives the chunks of one traversal.
type visitor interface {
	// enter is called for every chunk whose payload lies inside its parent.
	// Returning true descends into the payload as a child level.
	enter(h Header, rule Rule, known bool, payload *cursor.Cursor) (bool, error)

	// leave is called after the children of an entered container.
	leave(h Header, rule Rule)

	// overrun is called for a chunk whose payload runs past levelEnd.
	// The rest of the level is abandoned; a non-nil error stops the walk.
	overrun(h Header, levelEnd int64) error
}

// walkLevel visits the chunks in [start, end). A level ends when fewer than
// HeaderSize+1 bytes remain; every chunk advances to its payload end whatever
// the visitor consumed.
func walkLevel(c *cursor.Cursor, f *Format, start, end int64, depth int, v visitor) error {
	pos := start
	for pos+HeaderSize < end {
		if err := c.Seek(pos); err != nil {
			return err
		}
		typ, err := c.U16()
		if err != nil {
			return err
		}
		size, err := c.U32()
		if err != nil {
			return err
		}
		rule, known := f.Rule(typ)
		h := Header{
			Type:      typ,
			Size:      size,
			Offset:    pos,
			Depth:     depth,
			Name:      rule.Name,
			Container: known && rule.Container,
		}

		next, ok := sizing.Span(h.PayloadStart(), uint64(size))
		if !ok || next > end {
			return v.overrun(h, end)
		}
		payload, err := c.Section(h.PayloadStart(), int64(size))
		if err != nil {
			return err
		}
		descend, err := v.enter(h, rule, known, payload)
		if err != nil {
			return err
		}
		if descend {
			if err := walkLevel(c, f, h.PayloadStart(), next, depth+1, v); err != nil {
				return err
			}
			v.leave(h, rule)
		}
		pos = next
	}
	return nil
}

// WalkFunc is called for every chunk header in stream order. Returning
// SkipChildren skips a container's children; any other error stops the walk.
type WalkFunc func(h Header) error

// Walk visits every chunk header in data, descending into the containers
// f knows about. Unlike Decode it is strict: any chunk running past its
// parent stops the walk with ErrTruncated.
func Walk(data []byte, f *Format, fn WalkFunc) error {
	c := cursor.FromBytes(data)
	return walkLevel(c, f, 0, c.Len(), 0, &walker{fn: fn})
}

type walker struct {
	fn WalkFunc
}

func (w *walker) enter(h Header, _ Rule, _ bool, _ *cursor.Cursor) (bool, error) {
	err := w.fn(h)
	if errors.Is(err, SkipChildren) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return h.Container, nil
}

func (w *walker) leave(Header, Rule) {}

func (w *walker) overrun(h Header, end int64) error {
	return fmt.Errorf("%w: chunk %#04x at offset %d with %d-byte payload runs past %d",
		ErrTruncated, h.Type, h.Offset, h.Size, end)
}
