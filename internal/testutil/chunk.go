package testutil

import (
	"encoding/binary"
	"math"
)

// Chunk is a node of a test chunk stream.
type Chunk struct {
	Type     uint16
	Payload  []byte
	Children []Chunk

	// Size overrides the declared payload size when non-nil.
	Size *uint32
}

// Leaf returns a chunk holding payload.
func Leaf(typ uint16, payload ...[]byte) Chunk {
	var p []byte
	for _, b := range payload {
		p = append(p, b...)
	}
	return Chunk{Type: typ, Payload: p}
}

// Container returns a chunk holding children.
func Container(typ uint16, children ...Chunk) Chunk {
	return Chunk{Type: typ, Children: children}
}

// WithSize returns a copy of c that declares size n regardless of its content.
func (c Chunk) WithSize(n uint32) Chunk {
	c.Size = &n
	return c
}

// Bytes encodes the chunk and its children.
func (c Chunk) Bytes() []byte {
	body := append([]byte(nil), c.Payload...)
	for _, child := range c.Children {
		body = append(body, child.Bytes()...)
	}
	size := uint32(len(body))
	if c.Size != nil {
		size = *c.Size
	}
	out := make([]byte, 6, 6+len(body))
	binary.LittleEndian.PutUint16(out[0:], c.Type)
	binary.LittleEndian.PutUint32(out[2:], size)
	return append(out, body...)
}

// Stream concatenates top-level chunks.
func Stream(chunks ...Chunk) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c.Bytes()...)
	}
	return out
}

// CString encodes s with a trailing nul.
func CString(s string) []byte {
	return append([]byte(s), 0)
}

// PString encodes s with a little-endian u16 length prefix.
func PString(s string) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(s)))
	return append(out, s...)
}

// F32s encodes little-endian float32 values.
func F32s(vs ...float32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// U32s encodes little-endian uint32 values.
func U32s(vs ...uint32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}
