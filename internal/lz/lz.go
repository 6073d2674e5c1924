// Package lz implements the archive's dictionary (back-reference) compression.
//
// The token stream is a sequence of groups. Each group starts with a control
// byte whose bits, least significant first, describe up to eight tokens:
//
//	1: one literal byte follows
//	0: a little-endian uint16 back-reference follows
//	   length   = (v & 0x0F) + MinMatch
//	   distance = (v >> 4) + 1
//
// A back-reference copies length bytes starting distance bytes before the
// current end of output; the ranges may overlap.
package lz

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/assetkit/internal/assettype"
)

// ErrCorruptStream is returned for any malformed token stream.
var ErrCorruptStream = assettype.ErrCorruptStream

const (
	// MinMatch is the shortest back-reference length.
	MinMatch = 3
	// MaxMatch is the longest back-reference length.
	MaxMatch = 0x0F + MinMatch
	// Window is the largest back-reference distance.
	Window = 0x0FFF + 1
)

// Decompress decodes src into exactly size bytes.
//
// It fails closed: a back-reference reaching before the start of output,
// output that would exceed size, a token cut short by end of input, or a
// stream that ends short of size all return ErrCorruptStream.
func Decompress(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative output size %d", ErrCorruptStream, size)
	}
	out := make([]byte, 0, size)
	pos := 0
	for pos < len(src) {
		ctrl := src[pos]
		pos++
		for bit := 0; bit < 8 && pos < len(src); bit++ {
			if ctrl&(1<<bit) != 0 {
				if len(out) == size {
					return nil, fmt.Errorf("%w: literal at input %d overruns %d-byte output", ErrCorruptStream, pos, size)
				}
				out = append(out, src[pos])
				pos++
				continue
			}
			if pos+2 > len(src) {
				return nil, fmt.Errorf("%w: back-reference cut short at input %d", ErrCorruptStream, pos)
			}
			v := binary.LittleEndian.Uint16(src[pos:])
			pos += 2
			length := int(v&0x0F) + MinMatch
			dist := int(v>>4) + 1
			if dist > len(out) {
				return nil, fmt.Errorf("%w: distance %d exceeds %d bytes emitted", ErrCorruptStream, dist, len(out))
			}
			if len(out)+length > size {
				return nil, fmt.Errorf("%w: match of %d at output %d overruns %d-byte output", ErrCorruptStream, length, len(out), size)
			}
			from := len(out) - dist
			for i := range length {
				out = append(out, out[from+i])
			}
		}
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: produced %d of %d bytes", ErrCorruptStream, len(out), size)
	}
	return out, nil
}

// Compress encodes src with a greedy longest-match search. Decompress(Compress(src), len(src))
// returns src.
func Compress(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/8+1)
	pos := 0
	for pos < len(src) {
		ctrlAt := len(out)
		out = append(out, 0)
		var ctrl byte
		for bit := 0; bit < 8 && pos < len(src); bit++ {
			dist, length := longestMatch(src, pos)
			if length < MinMatch {
				ctrl |= 1 << bit
				out = append(out, src[pos])
				pos++
				continue
			}
			v := uint16(dist-1)<<4 | uint16(length-MinMatch) //nolint:gosec // bounded by Window and MaxMatch
			out = binary.LittleEndian.AppendUint16(out, v)
			pos += length
		}
		out[ctrlAt] = ctrl
	}
	return out
}

func longestMatch(src []byte, pos int) (dist, length int) {
	maxLen := min(MaxMatch, len(src)-pos)
	if maxLen < MinMatch {
		return 0, 0
	}
	for d := 1; d <= min(Window, pos); d++ {
		start := pos - d
		n := 0
		for n < maxLen && src[start+n] == src[pos+n] {
			n++
		}
		if n > length {
			dist, length = d, n
			if n == maxLen {
				break
			}
		}
	}
	return dist, length
}
