// Package cursor provides a bounds-checked sequential reader over packed
// little-endian binary data.
//
// A Cursor owns a window [base, base+size) of an io.ReaderAt and a position
// inside it. Reads never cross the window; a read that would is reported as
// assettype.ErrTruncated and leaves the position unchanged.
package cursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-restruct/restruct"

	"github.com/meigma/assetkit/internal/assettype"
	"github.com/meigma/assetkit/internal/sizing"
)

// ErrTruncated is re-exported for callers that only import cursor.
var ErrTruncated = assettype.ErrTruncated

// Cursor reads fixed-width little-endian values from a bounded window.
// A Cursor is not safe for concurrent use.
type Cursor struct {
	r    io.ReaderAt
	base int64
	size int64
	pos  int64
}

// New returns a cursor over the first size bytes of r.
func New(r io.ReaderAt, size int64) *Cursor {
	if size < 0 {
		size = 0
	}
	return &Cursor{r: r, size: size}
}

// FromBytes returns a cursor over an in-memory buffer. The buffer is not copied.
func FromBytes(data []byte) *Cursor {
	return New(bytes.NewReader(data), int64(len(data)))
}

// Tell returns the current position relative to the start of the window.
func (c *Cursor) Tell() int64 {
	return c.pos
}

// Len returns the size of the window.
func (c *Cursor) Len() int64 {
	return c.size
}

// Remaining returns the number of unread bytes in the window.
func (c *Cursor) Remaining() int64 {
	return c.size - c.pos
}

// Seek moves to an absolute position inside the window. Seeking to the end
// of the window is allowed; seeking past it is ErrTruncated.
func (c *Cursor) Seek(off int64) error {
	if off < 0 || off > c.size {
		return fmt.Errorf("%w: seek to %d in %d-byte window", ErrTruncated, off, c.size)
	}
	c.pos = off
	return nil
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative skip %d", ErrTruncated, n)
	}
	end, ok := sizing.Span(c.pos, uint64(n))
	if !ok {
		return fmt.Errorf("%w: skip %d at offset %d", ErrTruncated, n, c.pos)
	}
	return c.Seek(end)
}

// Section returns an independent cursor over [off, off+n) of this window.
// The new cursor starts at position 0 and does not move c.
func (c *Cursor) Section(off int64, n int64) (*Cursor, error) {
	if n < 0 || off < 0 || !sizing.Within(off, uint64(n), c.size) {
		return nil, fmt.Errorf("%w: section [%d,+%d) outside %d-byte window", ErrTruncated, off, n, c.size)
	}
	return &Cursor{r: c.r, base: c.base + off, size: n}, nil
}

// ReadExact reads exactly n bytes into a new slice.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read %d", ErrTruncated, n)
	}
	if int64(n) > c.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.pos, c.Remaining())
	}
	buf := make([]byte, n)
	if err := c.fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Read fills p completely or returns ErrTruncated.
func (c *Cursor) Read(p []byte) error {
	if int64(len(p)) > c.Remaining() {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, len(p), c.pos, c.Remaining())
	}
	return c.fill(p)
}

func (c *Cursor) fill(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := c.r.ReadAt(p, c.base+c.pos)
	if n < len(p) {
		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: short read at offset %d (%d of %d bytes)", ErrTruncated, c.pos, n, len(p))
		}
		return fmt.Errorf("read at offset %d: %w", c.pos, err)
	}
	c.pos += int64(n)
	return nil
}

// ReadFixed decodes a packed little-endian struct (no implicit padding) into v,
// which must be a pointer. Field widths come from the Go field types.
func (c *Cursor) ReadFixed(v any) error {
	n, err := restruct.SizeOf(v)
	if err != nil {
		return fmt.Errorf("sizeof %T: %w", v, err)
	}
	buf, err := c.ReadExact(n)
	if err != nil {
		return err
	}
	if err := restruct.Unpack(buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("unpack %T: %w", v, err)
	}
	return nil
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	var b [1]byte
	if err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	var b [2]byte
	if err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	var b [4]byte
	if err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err //nolint:gosec // bit reinterpretation
}

// F32 reads a little-endian IEEE-754 float32.
func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F32s reads n consecutive float32 values.
func (c *Cursor) F32s(n int) ([]float32, error) {
	raw, err := c.ReadExact(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// ReadCString reads a nul-terminated string of at most maxLen bytes.
// It stops after the first nul (which is consumed) or after maxLen bytes,
// whichever comes first. Running out of window before either is ErrTruncated.
func (c *Cursor) ReadCString(maxLen int) (string, error) {
	if maxLen < 0 {
		maxLen = 0
	}
	limit := int64(maxLen)
	if limit > c.Remaining() {
		limit = c.Remaining()
	}
	start := c.pos
	buf := make([]byte, 0, min(limit, 64))
	var b [1]byte
	for int64(len(buf)) < int64(maxLen) {
		if c.Remaining() == 0 {
			c.pos = start
			return "", fmt.Errorf("%w: unterminated string at offset %d", ErrTruncated, start)
		}
		if err := c.fill(b[:]); err != nil {
			c.pos = start
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
	return string(buf), nil
}

// ReadPString reads a string prefixed with a little-endian uint16 length.
func (c *Cursor) ReadPString() (string, error) {
	start := c.pos
	n, err := c.U16()
	if err != nil {
		return "", err
	}
	raw, err := c.ReadExact(int(n))
	if err != nil {
		c.pos = start
		return "", err
	}
	return string(TrimNul(raw)), nil
}

// TrimNul returns b up to (not including) its first nul byte.
func TrimNul(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
