package archive

import (
	"fmt"

	"github.com/meigma/assetkit/internal/keystream"
)

// Magic is the archive signature "ISD0" read as a little-endian uint32.
const Magic uint32 = 0x30445349

// On-disk sizes of the fixed records.
const (
	magicSize         = 4
	headerSize        = 16
	contentRecordSize = 28
	dataRecordSize    = 32
	blockHeaderSize   = 12
	nameHintSize      = 16
)

// Keys is the pair of 32-bit keys that seeds the archive keystream.
type Keys = keystream.Keys

// Header is the decrypted archive header that follows the magic.
type Header struct {
	FileCount     uint32
	ContentOffset uint32
	ContentSize   uint32
	Reserved      uint32
}

// ContentRecord is one entry of the content table. Its position in the
// table is the entry's index.
type ContentRecord struct {
	// DataOffset is the absolute offset of the entry's data record.
	DataOffset uint32

	// DataEnd is the absolute offset one past the entry's last block.
	DataEnd uint32

	// NameHint is the short, possibly truncated name stored in the table.
	NameHint string
}

// DataRecord is the per-entry metadata stored at ContentRecord.DataOffset.
type DataRecord struct {
	// Name is the full entry name, decoded with the archive charset.
	Name string

	// Size is the uncompressed size of the entry.
	Size uint32

	// BlockCount is the number of independently compressed blocks.
	BlockCount uint32

	// Flags holds the raw flag bytes that follow the name length.
	Flags [7]byte

	// HeaderSize is the on-disk size of the record including its name.
	HeaderSize int64
}

// Entry combines the content and data records of one archive entry.
type Entry struct {
	Index int
	ContentRecord
	DataRecord

	// Err is set when the entry's data record could not be read.
	// The rest of the archive stays usable.
	Err error
}

// DataStart returns the absolute offset of the entry's first block.
func (e *Entry) DataStart() int64 {
	return int64(e.DataOffset) + e.HeaderSize
}

// Method identifies how a block is stored.
type Method uint8

// Block storage methods.
const (
	MethodStored Method = 0
	MethodLZ     Method = 1
	MethodDelta  Method = 2
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case MethodStored:
		return "stored"
	case MethodLZ:
		return "lz"
	case MethodDelta:
		return "delta"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// BlockHeader describes one compressed block of an entry.
type BlockHeader struct {
	Method       Method
	Mode         uint8
	PackedSize   uint32
	UnpackedSize uint32

	// Offset is the absolute offset of the block payload.
	Offset int64
}

// Packed on-disk layouts, decoded with restruct after decryption.
type (
	rawHeader struct {
		FileCount     uint32
		ContentOffset uint32
		ContentSize   uint32
		Reserved      uint32
	}

	rawContentRecord struct {
		Reserved   uint32
		DataOffset uint32
		DataEnd    uint32
		NameHint   [nameHintSize]byte
	}

	rawDataRecord struct {
		Reserved   [4]uint32
		Size       uint32
		BlockCount uint32
		NameLength uint8
		Flags      [7]byte
	}

	rawBlockHeader struct {
		Method       uint8
		Mode         uint8
		Reserved     uint16
		PackedSize   uint32
		UnpackedSize uint32
	}
)
