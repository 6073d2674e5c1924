// Package delta implements the archive's predictive (delta-coded) audio
// compression.
//
// A block starts with the first sample stored verbatim. Every following
// sample is a 4-bit code, two per byte with the low nibble first. A code
// selects a signed step from the mode's table; the step is added to the
// running predictor, which is clamped to the sample range after each step.
package delta

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/assetkit/internal/assettype"
)

// ErrCorruptStream is returned for malformed payloads and unknown modes.
var ErrCorruptStream = assettype.ErrCorruptStream

// Mode selects the step table, sample width and clamp range.
type Mode uint8

// Known modes. Other values are rejected rather than mapped to a fallback.
const (
	Mode16Coarse Mode = 1
	Mode16Fine   Mode = 2
	Mode8        Mode = 3
)

type table struct {
	steps [16]int32
	width int
	lo    int32
	hi    int32
}

var tables = map[Mode]*table{
	Mode16Coarse: {
		steps: [16]int32{0, 16, 64, 256, 1024, 2048, 4096, 8192, -16, -64, -256, -1024, -2048, -4096, -8192, -16384},
		width: 2, lo: -32768, hi: 32767,
	},
	Mode16Fine: {
		steps: [16]int32{0, 1, 2, 4, 8, 16, 32, 64, -1, -2, -4, -8, -16, -32, -64, -128},
		width: 2, lo: -32768, hi: 32767,
	},
	Mode8: {
		steps: [16]int32{0, 1, 2, 3, 5, 8, 13, 21, -1, -2, -3, -5, -8, -13, -21, -34},
		width: 1, lo: 0, hi: 255,
	},
}

// String returns a short name for the mode.
func (m Mode) String() string {
	switch m {
	case Mode16Coarse:
		return "pcm16-coarse"
	case Mode16Fine:
		return "pcm16-fine"
	case Mode8:
		return "pcm8"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// SampleWidth returns the output bytes per sample, or 0 for an unknown mode.
func (m Mode) SampleWidth() int {
	if t, ok := tables[m]; ok {
		return t.width
	}
	return 0
}

func lookup(m Mode) (*table, error) {
	t, ok := tables[m]
	if !ok {
		return nil, fmt.Errorf("%w: unknown delta mode %d", ErrCorruptStream, uint8(m))
	}
	return t, nil
}

// PayloadSize returns the encoded size of size output bytes in mode m.
func PayloadSize(m Mode, size int) (int, error) {
	t, err := lookup(m)
	if err != nil {
		return 0, err
	}
	if size < 0 || size%t.width != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte samples", ErrCorruptStream, size, t.width)
	}
	samples := size / t.width
	if samples == 0 {
		return 0, nil
	}
	return t.width + samples/2, nil
}

// Decompress decodes src into exactly size bytes of little-endian samples.
func Decompress(m Mode, src []byte, size int) ([]byte, error) {
	t, err := lookup(m)
	if err != nil {
		return nil, err
	}
	want, err := PayloadSize(m, size)
	if err != nil {
		return nil, err
	}
	if len(src) != want {
		return nil, fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrCorruptStream, m, len(src), want)
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}

	pred := t.first(src)
	t.put(out, 0, pred)
	samples := size / t.width
	codes := src[t.width:]
	for i := 1; i < samples; i++ {
		b := codes[(i-1)/2]
		code := b & 0x0F
		if (i-1)%2 == 1 {
			code = b >> 4
		}
		pred = t.clamp(pred + t.steps[code])
		t.put(out, i, pred)
	}
	return out, nil
}

// Encode produces a payload that Decompress turns into an approximation of
// pcm, choosing the nearest step for each sample. Samples already reachable
// by a table step round-trip exactly.
func Encode(m Mode, pcm []byte) ([]byte, error) {
	t, err := lookup(m)
	if err != nil {
		return nil, err
	}
	n, err := PayloadSize(m, len(pcm))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	copy(out, pcm[:t.width])
	pred := t.first(pcm)
	samples := len(pcm) / t.width
	for i := 1; i < samples; i++ {
		target := t.get(pcm, i)
		best := 0
		bestErr := int64(-1)
		for code, step := range t.steps {
			d := int64(t.clamp(pred+step)) - int64(target)
			if d < 0 {
				d = -d
			}
			if bestErr < 0 || d < bestErr {
				best, bestErr = code, d
			}
		}
		pred = t.clamp(pred + t.steps[best])
		idx := t.width + (i-1)/2
		if (i-1)%2 == 0 {
			out[idx] |= byte(best)
		} else {
			out[idx] |= byte(best) << 4
		}
	}
	return out, nil
}

func (t *table) clamp(v int32) int32 {
	return max(t.lo, min(t.hi, v))
}

func (t *table) first(src []byte) int32 {
	return t.get(src, 0)
}

func (t *table) get(buf []byte, i int) int32 {
	if t.width == 1 {
		return int32(buf[i])
	}
	return int32(int16(binary.LittleEndian.Uint16(buf[i*2:]))) //nolint:gosec // sign reinterpretation
}

func (t *table) put(buf []byte, i int, v int32) {
	if t.width == 1 {
		buf[i] = byte(v) //nolint:gosec // clamped to 0..255
		return
	}
	binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v))) //nolint:gosec // clamped to int16
}
