package archive

import (
	"fmt"
	"log/slog"

	"github.com/meigma/assetkit/internal/cursor"
	"github.com/meigma/assetkit/internal/delta"
	"github.com/meigma/assetkit/internal/keystream"
	"github.com/meigma/assetkit/internal/lz"
)

// ExtractFile returns the uncompressed contents of entry i.
//
// The entry's blocks are decoded in order and concatenated; the result must
// be exactly the size declared by the data record. Failures are returned as
// an *EntryError wrapping ErrTruncated or ErrCorruptStream.
//
// ExtractFile is safe for concurrent use once Load has returned.
func (a *Archive) ExtractFile(i int) ([]byte, error) {
	e, err := a.Entry(i)
	if err != nil {
		return nil, err
	}
	data, err := a.extract(&e)
	if err != nil {
		a.log().Debug("extract failed",
			slog.Int("index", i),
			slog.String("name", e.Name),
			slog.Any("error", err))
		return nil, &EntryError{Index: i, Name: e.Name, Err: err}
	}
	return data, nil
}

// Blocks returns the decrypted block headers of entry i without decoding
// the payloads.
func (a *Archive) Blocks(i int) ([]BlockHeader, error) {
	e, err := a.Entry(i)
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, &EntryError{Index: i, Name: e.Name, Err: e.Err}
	}
	c, err := a.dataCursor(&e)
	if err != nil {
		return nil, &EntryError{Index: i, Name: e.Name, Err: err}
	}
	blocks := make([]BlockHeader, 0, min(e.BlockCount, 1024))
	for n := uint32(0); n < e.BlockCount; n++ {
		bh, err := a.readBlockHeader(c, e.DataStart())
		if err != nil {
			return nil, &EntryError{Index: i, Name: e.Name, Err: fmt.Errorf("block %d: %w", n, err)}
		}
		if err := c.Skip(int64(bh.PackedSize)); err != nil {
			return nil, &EntryError{Index: i, Name: e.Name, Err: fmt.Errorf("block %d: %w", n, err)}
		}
		blocks = append(blocks, bh)
	}
	return blocks, nil
}

func (a *Archive) extract(e *Entry) ([]byte, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if a.maxEntrySize > 0 && e.Size > a.maxEntrySize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrCorruptStream, e.Size, a.maxEntrySize)
	}
	c, err := a.dataCursor(e)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, e.Size)
	for n := uint32(0); n < e.BlockCount; n++ {
		bh, err := a.readBlockHeader(c, e.DataStart())
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", n, err)
		}
		if uint64(len(out))+uint64(bh.UnpackedSize) > uint64(e.Size) {
			return nil, fmt.Errorf("%w: block %d unpacks past entry size %d", ErrCorruptStream, n, e.Size)
		}
		payload, err := c.ReadExact(int(bh.PackedSize))
		if err != nil {
			return nil, fmt.Errorf("block %d payload: %w", n, err)
		}
		keystream.Decrypt(a.keys, payload)
		data, err := decodeBlock(bh, payload)
		if err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", n, bh.Method, err)
		}
		out = append(out, data...)
	}
	if len(out) != int(e.Size) {
		return nil, fmt.Errorf("%w: blocks produced %d bytes, want %d", ErrCorruptStream, len(out), e.Size)
	}
	return out, nil
}

// dataCursor returns a cursor positioned at the entry's first block and
// bounded by the entry's data end. An implausible data end falls back to the
// end of the source.
func (a *Archive) dataCursor(e *Entry) (*cursor.Cursor, error) {
	start := e.DataStart()
	end := int64(e.DataEnd)
	size := a.src.Size()
	if end < start || end > size {
		a.log().Debug("implausible data end, bounding by source size",
			slog.Int("index", e.Index),
			slog.Int64("data_end", end),
			slog.Int64("source_size", size))
		end = size
	}
	if start > end {
		return nil, fmt.Errorf("%w: data starts at %d past end %d", ErrTruncated, start, end)
	}
	return cursor.New(a.src, end).Section(start, end-start)
}

func (a *Archive) readBlockHeader(c *cursor.Cursor, base int64) (BlockHeader, error) {
	var raw rawBlockHeader
	if err := a.readSealed(c, &raw); err != nil {
		return BlockHeader{}, fmt.Errorf("block header: %w", err)
	}
	bh := BlockHeader{
		Method:       Method(raw.Method),
		Mode:         raw.Mode,
		PackedSize:   raw.PackedSize,
		UnpackedSize: raw.UnpackedSize,
		Offset:       base + c.Tell(),
	}
	if int64(bh.PackedSize) > c.Remaining() {
		return BlockHeader{}, fmt.Errorf("%w: packed size %d with %d bytes left before data end",
			ErrTruncated, bh.PackedSize, c.Remaining())
	}
	return bh, nil
}

func decodeBlock(bh BlockHeader, payload []byte) ([]byte, error) {
	switch bh.Method {
	case MethodStored:
		if bh.PackedSize != bh.UnpackedSize {
			return nil, fmt.Errorf("%w: stored block packed %d, unpacked %d",
				ErrCorruptStream, bh.PackedSize, bh.UnpackedSize)
		}
		return payload, nil
	case MethodLZ:
		return lz.Decompress(payload, int(bh.UnpackedSize))
	case MethodDelta:
		return delta.Decompress(delta.Mode(bh.Mode), payload, int(bh.UnpackedSize))
	default:
		return nil, fmt.Errorf("%w: unknown block method %d", ErrCorruptStream, uint8(bh.Method))
	}
}
