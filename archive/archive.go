// Package archive reads the engine's encrypted, compressed resource archives.
//
// An archive starts with the magic "ISD0", followed by an encrypted header
// that locates the content table. Each content record points at a data
// record holding the entry's name, size and block count; the entry's bytes
// are stored as a sequence of independently encrypted blocks that are either
// stored, LZ-compressed or delta-coded.
//
// Archives are parsed optimistically: a damaged data record or block makes
// only its own entry fail, with an *EntryError naming the entry.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/go-restruct/restruct"
	"golang.org/x/text/encoding"

	"github.com/meigma/assetkit/internal/cursor"
	"github.com/meigma/assetkit/internal/keystream"
	"github.com/meigma/assetkit/internal/sizing"
)

// ByteSource provides random access to archive bytes.
//
// *os.File needs a Size method to satisfy it; *bytes.Reader and
// *io.SectionReader satisfy it directly.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Archive provides access to the entries of one archive.
//
// Open and Load are not safe for concurrent use. After Load returns, the
// archive is read-only and ExtractFile may be called concurrently.
type Archive struct {
	src          ByteSource
	keys         Keys
	charset      encoding.Encoding
	maxEntrySize uint32
	logger       *slog.Logger

	header  Header
	entries []Entry
	byName  map[string]int
	loaded  bool
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open checks the archive signature. It reads nothing beyond the magic;
// call Load to read the header and tables.
func Open(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:          src,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(a)
	}

	c := cursor.New(src, src.Size())
	magic, err := c.U32()
	if err != nil {
		return nil, fmt.Errorf("archive: read magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: got %#08x, want %#08x", ErrBadMagic, magic, Magic)
	}
	return a, nil
}

// Load reads and decrypts the header, the content table and every data record.
//
// A header or content table that runs past the end of the source is fatal
// (ErrTruncated). A data record that cannot be read is recorded on its entry
// and loading continues.
func (a *Archive) Load() error {
	a.loaded = false
	a.entries = nil
	a.byName = nil

	c := cursor.New(a.src, a.src.Size())
	if err := c.Seek(magicSize); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	var rh rawHeader
	if err := a.readSealed(c, &rh); err != nil {
		return fmt.Errorf("archive: read header: %w", err)
	}
	a.header = Header(rh)

	table, err := a.readContentTable(c)
	if err != nil {
		return err
	}

	a.entries = make([]Entry, len(table))
	a.byName = make(map[string]int, len(table))
	for i, rec := range table {
		e := Entry{
			Index: i,
			ContentRecord: ContentRecord{
				DataOffset: rec.DataOffset,
				DataEnd:    rec.DataEnd,
				NameHint:   a.decodeName(cursor.TrimNul(rec.NameHint[:])),
			},
		}
		dr, err := a.readDataRecord(c, rec.DataOffset)
		if err != nil {
			e.Err = err
			a.log().Debug("data record unreadable",
				slog.Int("index", i),
				slog.String("hint", e.NameHint),
				slog.Any("error", err))
		} else {
			e.DataRecord = dr
		}
		if e.Name == "" {
			e.Name = e.NameHint
		}
		a.entries[i] = e
		if key := lookupKey(e.Name); key != "" {
			if _, dup := a.byName[key]; !dup {
				a.byName[key] = i
			}
		}
	}
	a.loaded = true
	a.log().Debug("archive loaded",
		slog.Int("entries", len(a.entries)),
		slog.Uint64("content_offset", uint64(a.header.ContentOffset)))
	return nil
}

// readContentTable reads the whole table and decrypts it as one keystream
// run. Records are 28 bytes, so every record after the first starts
// mid-period.
func (a *Archive) readContentTable(c *cursor.Cursor) ([]rawContentRecord, error) {
	need, ok := sizing.MulUint32(a.header.FileCount, contentRecordSize)
	if !ok || !sizing.Within(int64(a.header.ContentOffset), uint64(need), a.src.Size()) {
		return nil, fmt.Errorf("archive: content table of %d records at %d: %w",
			a.header.FileCount, a.header.ContentOffset, ErrTruncated)
	}
	if a.header.ContentSize != need {
		a.log().Debug("content size disagrees with file count",
			slog.Uint64("content_size", uint64(a.header.ContentSize)),
			slog.Uint64("expected", uint64(need)))
	}
	if err := c.Seek(int64(a.header.ContentOffset)); err != nil {
		return nil, fmt.Errorf("archive: content table: %w", err)
	}
	block, err := c.ReadExact(int(need))
	if err != nil {
		return nil, fmt.Errorf("archive: content table: %w", err)
	}

	// One stream for the whole table: each record continues the keystream
	// where the previous one stopped.
	ks := keystream.New(a.keys)
	table := make([]rawContentRecord, a.header.FileCount)
	for i := range table {
		rec := block[i*contentRecordSize : (i+1)*contentRecordSize]
		ks.XORKeyStream(rec, rec)
		if err := restruct.Unpack(rec, binary.LittleEndian, &table[i]); err != nil {
			return nil, fmt.Errorf("archive: content record %d: %w", i, err)
		}
	}
	return table, nil
}

// readDataRecord reads the fixed prefix and the name as two read calls, each
// decrypted from keystream position 0.
func (a *Archive) readDataRecord(c *cursor.Cursor, off uint32) (DataRecord, error) {
	if err := c.Seek(int64(off)); err != nil {
		return DataRecord{}, err
	}
	var raw rawDataRecord
	if err := a.readSealed(c, &raw); err != nil {
		return DataRecord{}, err
	}
	name, err := c.ReadExact(int(raw.NameLength))
	if err != nil {
		return DataRecord{}, err
	}
	keystream.Decrypt(a.keys, name)
	return DataRecord{
		Name:       a.decodeName(cursor.TrimNul(name)),
		Size:       raw.Size,
		BlockCount: raw.BlockCount,
		Flags:      raw.Flags,
		HeaderSize: dataRecordSize + int64(raw.NameLength),
	}, nil
}

// readSealed reads one encrypted packed record into v.
func (a *Archive) readSealed(c *cursor.Cursor, v any) error {
	n, err := restruct.SizeOf(v)
	if err != nil {
		return err
	}
	buf, err := c.ReadExact(n)
	if err != nil {
		return err
	}
	keystream.Decrypt(a.keys, buf)
	return restruct.Unpack(buf, binary.LittleEndian, v)
}

func (a *Archive) decodeName(raw []byte) string {
	if a.charset == nil || len(raw) == 0 {
		return string(raw)
	}
	out, err := a.charset.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// Source returns the byte source the archive reads from.
func (a *Archive) Source() ByteSource {
	return a.src
}

// Header returns the decrypted archive header. It is zero before Load.
func (a *Archive) Header() Header {
	return a.header
}

// FileCount returns the number of entries. It is zero before Load.
func (a *Archive) FileCount() int {
	return len(a.entries)
}

// Entry returns the entry at index i.
func (a *Archive) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(a.entries) {
		return Entry{}, fmt.Errorf("%w: entry %d of %d", ErrOutOfRange, i, len(a.entries))
	}
	return a.entries[i], nil
}

// Entries returns an iterator over all entries in table order.
func (a *Archive) Entries() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range a.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// FileName returns the full name of entry i.
func (a *Archive) FileName(i int) (string, error) {
	e, err := a.Entry(i)
	if err != nil {
		return "", err
	}
	if e.Err != nil {
		return e.Name, &EntryError{Index: i, Name: e.Name, Err: e.Err}
	}
	return e.Name, nil
}

// FileSize returns the uncompressed size of entry i.
func (a *Archive) FileSize(i int) (uint32, error) {
	e, err := a.Entry(i)
	if err != nil {
		return 0, err
	}
	if e.Err != nil {
		return 0, &EntryError{Index: i, Name: e.Name, Err: e.Err}
	}
	return e.Size, nil
}

// Lookup returns the index of the first entry with the given name.
// Matching ignores ASCII case and treats '/' and '\' alike.
func (a *Archive) Lookup(name string) (int, bool) {
	i, ok := a.byName[lookupKey(name)]
	return i, ok
}

func lookupKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "/", `\`))
}
