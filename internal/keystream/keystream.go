// Package keystream implements the archive's repeating 8-byte keystream cipher.
//
// The two 32-bit archive keys are whitened with fixed constants; the eight
// little-endian bytes of the results repeat as the keystream. Each byte is
// transformed as out = ^((^in) ^ ks[i%8]).
package keystream

import (
	"crypto/cipher"
	"encoding/binary"
)

// Whitening constants folded into the two keys.
const (
	Whiten1 uint32 = 0x39475694
	Whiten2 uint32 = 0x34985762
)

// Period is the keystream length in bytes.
const Period = 8

// Keys is the pair of 32-bit keys that seeds the keystream.
type Keys struct {
	K1 uint32
	K2 uint32
}

// Bytes returns the 8-byte keystream derived from the keys.
func (k Keys) Bytes() [Period]byte {
	var ks [Period]byte
	binary.LittleEndian.PutUint32(ks[0:4], k.K1^Whiten1)
	binary.LittleEndian.PutUint32(ks[4:8], k.K2^Whiten2)
	return ks
}

// Stream applies the keystream transform. The keystream position carries
// over between XORKeyStream calls.
type Stream struct {
	ks  [Period]byte
	pos int
}

var _ cipher.Stream = (*Stream)(nil)

// New returns a Stream positioned at the start of the keystream.
func New(k Keys) *Stream {
	return &Stream{ks: k.Bytes()}
}

// XORKeyStream transforms src into dst. dst and src may overlap entirely.
func (s *Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("keystream: output smaller than input")
	}
	for i, b := range src {
		dst[i] = ^((^b) ^ s.ks[s.pos])
		s.pos = (s.pos + 1) % Period
	}
}

// Decrypt transforms buf in place starting at keystream position 0.
func Decrypt(k Keys, buf []byte) {
	New(k).XORKeyStream(buf, buf)
}

// Encrypt produces cipher text that Decrypt turns back into buf, in place.
// It re-derives each byte with the same double-complement formula.
func Encrypt(k Keys, buf []byte) {
	ks := k.Bytes()
	for i, b := range buf {
		buf[i] = ^((^b) ^ ks[i%Period])
	}
}
