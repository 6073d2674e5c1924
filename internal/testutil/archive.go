package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/go-restruct/restruct"

	"github.com/meigma/assetkit/internal/delta"
	"github.com/meigma/assetkit/internal/keystream"
	"github.com/meigma/assetkit/internal/lz"
)

// ArchiveMagic is "ISD0" as it appears on disk.
var ArchiveMagic = []byte("ISD0")

// ArchiveBlock is one block of a test archive entry. Payload is the
// plaintext packed payload; it is encrypted when the archive is built.
type ArchiveBlock struct {
	Method       uint8
	Mode         uint8
	Payload      []byte
	UnpackedSize uint32

	// PayloadKeys, when set, seals the payload under a different key pair
	// than the rest of the archive.
	PayloadKeys *keystream.Keys
}

// StoredBlock returns a block that stores data as is.
func StoredBlock(data []byte) ArchiveBlock {
	return ArchiveBlock{Method: 0, Payload: data, UnpackedSize: uint32(len(data))}
}

// LZBlock returns a block holding data compressed with the archive LZ coder.
func LZBlock(data []byte) ArchiveBlock {
	return ArchiveBlock{Method: 1, Payload: lz.Compress(data), UnpackedSize: uint32(len(data))}
}

// DeltaBlock returns a delta-coded block of the little-endian samples in pcm.
// The samples must be reachable by the mode's step table for the block to
// decode back to pcm exactly.
func DeltaBlock(tb testing.TB, mode delta.Mode, pcm []byte) ArchiveBlock {
	tb.Helper()
	payload, err := delta.Encode(mode, pcm)
	if err != nil {
		tb.Fatalf("delta encode: %v", err)
	}
	return ArchiveBlock{Method: 2, Mode: uint8(mode), Payload: payload, UnpackedSize: uint32(len(pcm))}
}

// ArchiveEntry describes one entry of a test archive.
type ArchiveEntry struct {
	// Name is the full name stored in the data record.
	Name string

	// Hint is the name hint stored in the content table. Defaults to the
	// first 15 bytes of Name.
	Hint string

	// Size overrides the declared size. Defaults to the sum of the blocks'
	// unpacked sizes.
	Size uint32

	// BlockCount overrides the declared block count. Defaults to len(Blocks).
	BlockCount uint32

	Blocks []ArchiveBlock

	// DataOffset overrides the data record offset in the content table.
	DataOffset uint32

	// DataEnd overrides the data end offset in the content table.
	DataEnd uint32

	// Reserved is written to the content record's leading reserved word.
	Reserved uint32
}

type rawHeader struct {
	FileCount     uint32
	ContentOffset uint32
	ContentSize   uint32
	Reserved      uint32
}

type rawContentRecord struct {
	Reserved   uint32
	DataOffset uint32
	DataEnd    uint32
	NameHint   [16]byte
}

type rawDataRecord struct {
	Reserved   [4]uint32
	Size       uint32
	BlockCount uint32
	NameLength uint8
	Flags      [7]byte
}

type rawBlockHeader struct {
	Method       uint8
	Mode         uint8
	Reserved     uint16
	PackedSize   uint32
	UnpackedSize uint32
}

// BuildArchive encodes entries into an encrypted archive.
//
// Layout: magic, header, data records with their blocks, then the content
// table. Every record, name and payload is encrypted from keystream
// position 0 except the content table, which is one keystream run.
func BuildArchive(tb testing.TB, keys keystream.Keys, entries []ArchiveEntry) []byte {
	tb.Helper()

	out := append([]byte(nil), ArchiveMagic...)
	out = append(out, make([]byte, 16)...)

	table := make([]rawContentRecord, len(entries))
	for i, e := range entries {
		start := uint32(len(out))

		size := e.Size
		if size == 0 {
			for _, b := range e.Blocks {
				size += b.UnpackedSize
			}
		}
		count := e.BlockCount
		if count == 0 {
			count = uint32(len(e.Blocks))
		}
		name := append([]byte(e.Name), 0)
		out = append(out, sealed(tb, keys, &rawDataRecord{
			Size:       size,
			BlockCount: count,
			NameLength: uint8(len(name)),
		})...)
		out = append(out, seal(keys, name)...)

		for _, b := range e.Blocks {
			out = append(out, sealed(tb, keys, &rawBlockHeader{
				Method:       b.Method,
				Mode:         b.Mode,
				PackedSize:   uint32(len(b.Payload)),
				UnpackedSize: b.UnpackedSize,
			})...)
			payloadKeys := keys
			if b.PayloadKeys != nil {
				payloadKeys = *b.PayloadKeys
			}
			out = append(out, seal(payloadKeys, b.Payload)...)
		}

		rec := rawContentRecord{Reserved: e.Reserved, DataOffset: start, DataEnd: uint32(len(out))}
		if e.DataOffset != 0 {
			rec.DataOffset = e.DataOffset
		}
		if e.DataEnd != 0 {
			rec.DataEnd = e.DataEnd
		}
		hint := e.Hint
		if hint == "" {
			hint = e.Name
		}
		copy(rec.NameHint[:15], hint)
		table[i] = rec
	}

	contentOffset := uint32(len(out))
	var plain []byte
	for i := range table {
		plain = append(plain, pack(tb, &table[i])...)
	}
	out = append(out, seal(keys, plain)...)

	copy(out[4:20], sealed(tb, keys, &rawHeader{
		FileCount:     uint32(len(entries)),
		ContentOffset: contentOffset,
		ContentSize:   uint32(len(plain)),
	}))
	return out
}

func pack(tb testing.TB, v any) []byte {
	tb.Helper()
	b, err := restruct.Pack(binary.LittleEndian, v)
	if err != nil {
		tb.Fatalf("pack %T: %v", v, err)
	}
	return b
}

func sealed(tb testing.TB, keys keystream.Keys, v any) []byte {
	tb.Helper()
	return seal(keys, pack(tb, v))
}

func seal(keys keystream.Keys, plain []byte) []byte {
	buf := append([]byte(nil), plain...)
	keystream.Encrypt(keys, buf)
	return buf
}
