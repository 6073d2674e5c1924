package archive

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/meigma/assetkit/internal/delta"
	"github.com/meigma/assetkit/internal/keystream"
	"github.com/meigma/assetkit/internal/testutil"
)

var testKeys = Keys{K1: 0x1A2B3C4D, K2: 0x5E6F7081}

func openTestArchive(t *testing.T, data []byte, opts ...Option) *Archive {
	t.Helper()
	opts = append([]Option{WithKeys(testKeys.K1, testKeys.K2)}, opts...)
	a, err := Open(testutil.NewMockByteSource(data), opts...)
	require.NoError(t, err)
	require.NoError(t, a.Load())
	return a
}

func TestExtractStoredBlock(t *testing.T) {
	t.Parallel()

	payload := []byte{0x10, 0x20, 0x30, 0x40, 0x50}
	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "hello.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock(payload)}},
	})
	require.Equal(t, testutil.ArchiveMagic, data[:4])

	a := openTestArchive(t, data)
	require.Equal(t, 1, a.FileCount())

	got, err := a.ExtractFile(0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	size, err := a.FileSize(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), size)
}

func TestExtractWrongKeys(t *testing.T) {
	t.Parallel()

	payload := []byte("hello")
	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "hello.txt", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock(payload)}},
	})

	a, err := Open(testutil.NewMockByteSource(data), WithKeys(testKeys.K1^0x00FF0000, testKeys.K2))
	require.NoError(t, err, "the magic is not encrypted")
	// The header decrypts to a file count of 0x00FF0001.
	require.ErrorIs(t, a.Load(), ErrTruncated)
}

func TestExtractPayloadUnderOtherKeys(t *testing.T) {
	t.Parallel()

	payload := []byte("hello")
	otherKeys := Keys{K1: testKeys.K1 ^ 0x01010101, K2: testKeys.K2}
	block := testutil.StoredBlock(payload)
	block.PayloadKeys = &otherKeys
	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "hello.txt", Blocks: []testutil.ArchiveBlock{block}},
	})

	a := openTestArchive(t, data)
	got, err := a.ExtractFile(0)
	require.NoError(t, err, "stored blocks carry no checksum")
	require.Len(t, got, len(payload))
	assert.NotEqual(t, payload, got)

	want := bytes.Clone(payload)
	for i := range 4 {
		want[i] ^= 0x01
	}
	assert.Equal(t, want, got)
}

func TestContentTableLayout(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "first.bin", Reserved: 0xDEADBEEF, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("one"))}},
		{Name: "second.bin", Reserved: 7, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("two!"))}},
		{Name: "third.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("three"))}},
	})
	a := openTestArchive(t, data)
	h := a.Header()
	require.Equal(t, uint32(3*28), h.ContentSize)

	table := bytes.Clone(data[h.ContentOffset : h.ContentOffset+h.ContentSize])
	keystream.Decrypt(testKeys, table)
	for i, want := range []string{"one", "two!", "three"} {
		rec := table[i*28 : (i+1)*28]
		e, err := a.Entry(i)
		require.NoError(t, err)
		assert.Equal(t, e.DataOffset, binary.LittleEndian.Uint32(rec[4:8]))
		assert.Equal(t, e.DataEnd, binary.LittleEndian.Uint32(rec[8:12]))
		assert.Equal(t, e.NameHint, string(bytes.TrimRight(rec[12:28], "\x00")))

		got, err := a.ExtractFile(i)
		require.NoError(t, err)
		assert.Equal(t, []byte(want), got)
	}
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(table[0:4]))
}

func TestFileNamesMatchDeclaredCount(t *testing.T) {
	t.Parallel()

	names := []string{`data\a.bin`, `data\b.bin`, `models\tree.mdl`, `sounds\wind.wav`}
	entries := make([]testutil.ArchiveEntry, len(names))
	for i, name := range names {
		entries[i] = testutil.ArchiveEntry{
			Name:   name,
			Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte(name))},
		}
	}
	a := openTestArchive(t, testutil.BuildArchive(t, testKeys, entries))

	assert.Equal(t, int(a.Header().FileCount), a.FileCount())
	assert.Equal(t, len(names), a.FileCount())
	for i := range a.FileCount() {
		name, err := a.FileName(i)
		require.NoError(t, err)
		assert.NotEmpty(t, name)
		assert.NotContains(t, name, "\x00")
		assert.Equal(t, names[i], name)
	}
}

func TestOpenBadMagic(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "a", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("a"))}},
	})
	data[3] = 'X'

	_, err := Open(testutil.NewMockByteSource(data))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestOpenTooShort(t *testing.T) {
	t.Parallel()

	_, err := Open(testutil.NewMockByteSource([]byte("IS")))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestLoadTruncated(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "a.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("abc"))}},
		{Name: "b.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("def"))}},
	})

	tests := []struct {
		name string
		data []byte
	}{
		{"header", data[:10]},
		{"content table", data[:len(data)-5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := Open(testutil.NewMockByteSource(tt.data), WithKeys(testKeys.K1, testKeys.K2))
			require.NoError(t, err)
			require.ErrorIs(t, a.Load(), ErrTruncated)
			assert.Zero(t, a.FileCount())
		})
	}
}

func TestExtractCompressedBlocks(t *testing.T) {
	t.Parallel()

	text := bytes.Repeat([]byte("abcabcabd"), 50)
	pcm := []byte{100, 101, 103, 106, 111, 119, 132, 153, 153, 132}
	stored := []byte("tail")

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "text.txt", Blocks: []testutil.ArchiveBlock{testutil.LZBlock(text)}},
		{Name: "wave.raw", Blocks: []testutil.ArchiveBlock{testutil.DeltaBlock(t, delta.Mode8, pcm)}},
		{Name: "mixed.bin", Blocks: []testutil.ArchiveBlock{
			testutil.LZBlock(text),
			testutil.DeltaBlock(t, delta.Mode8, pcm),
			testutil.StoredBlock(stored),
		}},
	})
	a := openTestArchive(t, data)

	got, err := a.ExtractFile(0)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	got, err = a.ExtractFile(1)
	require.NoError(t, err)
	assert.Equal(t, pcm, got)

	var want []byte
	want = append(want, text...)
	want = append(want, pcm...)
	want = append(want, stored...)
	got, err = a.ExtractFile(2)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	blocks, err := a.Blocks(2)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, MethodLZ, blocks[0].Method)
	assert.Equal(t, MethodDelta, blocks[1].Method)
	assert.Equal(t, uint8(delta.Mode8), blocks[1].Mode)
	assert.Equal(t, MethodStored, blocks[2].Method)
	assert.Equal(t, uint32(len(stored)), blocks[2].UnpackedSize)
	assert.Less(t, blocks[0].Offset, blocks[1].Offset)
}

func TestEntryErrorsAreIsolated(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "good1.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("one"))}},
		{Name: "broken.bin", DataOffset: 0xFFFFFF00, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("two"))}},
		{Name: "good2.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("three"))}},
	})
	a := openTestArchive(t, data)
	require.Equal(t, 3, a.FileCount())

	e, err := a.Entry(1)
	require.NoError(t, err)
	require.ErrorIs(t, e.Err, ErrTruncated)
	assert.Equal(t, "broken.bin", e.Name, "name falls back to the hint")

	_, err = a.ExtractFile(1)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, 1, entryErr.Index)
	assert.Equal(t, "broken.bin", entryErr.Name)

	got, err := a.ExtractFile(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)
	got, err = a.ExtractFile(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), got)
}

func TestExtractCorruptEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry testutil.ArchiveEntry
		opts  []Option
		want  error
	}{
		{
			name:  "size mismatch",
			entry: testutil.ArchiveEntry{Name: "a.bin", Size: 10, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("12345"))}},
			want:  ErrCorruptStream,
		},
		{
			name: "stored sizes disagree",
			entry: testutil.ArchiveEntry{Name: "a.bin", Blocks: []testutil.ArchiveBlock{
				{Method: 0, Payload: []byte("1234"), UnpackedSize: 5},
			}},
			want: ErrCorruptStream,
		},
		{
			name: "unknown method",
			entry: testutil.ArchiveEntry{Name: "a.bin", Blocks: []testutil.ArchiveBlock{
				{Method: 7, Payload: []byte{1}, UnpackedSize: 1},
			}},
			want: ErrCorruptStream,
		},
		{
			name: "unknown delta mode",
			entry: testutil.ArchiveEntry{Name: "a.bin", Blocks: []testutil.ArchiveBlock{
				{Method: 2, Mode: 9, Payload: []byte{1, 2}, UnpackedSize: 2},
			}},
			want: ErrCorruptStream,
		},
		{
			name: "lz reference before output",
			entry: testutil.ArchiveEntry{Name: "a.bin", Blocks: []testutil.ArchiveBlock{
				{Method: 1, Payload: []byte{0x00, 0x40, 0x00}, UnpackedSize: 3},
			}},
			want: ErrCorruptStream,
		},
		{
			name: "blocks past data end",
			// data starts at 4+16+32+len("a.bin\x00")
			entry: testutil.ArchiveEntry{Name: "a.bin", DataEnd: 62, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("12345"))}},
			want:  ErrTruncated,
		},
		{
			name:  "missing block",
			entry: testutil.ArchiveEntry{Name: "a.bin", BlockCount: 2, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("12345"))}},
			want:  ErrTruncated,
		},
		{
			name:  "size limit",
			entry: testutil.ArchiveEntry{Name: "a.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("12345"))}},
			opts:  []Option{WithMaxEntrySize(4)},
			want:  ErrCorruptStream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{tt.entry})
			a := openTestArchive(t, data, tt.opts...)
			_, err := a.ExtractFile(0)
			var entryErr *EntryError
			require.ErrorAs(t, err, &entryErr)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOutOfRange(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "a.bin", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("a"))}},
	})
	a := openTestArchive(t, data)

	for _, i := range []int{-1, 1, 99} {
		_, err := a.ExtractFile(i)
		require.ErrorIs(t, err, ErrOutOfRange)
		_, err = a.FileName(i)
		require.ErrorIs(t, err, ErrOutOfRange)
		_, err = a.FileSize(i)
		require.ErrorIs(t, err, ErrOutOfRange)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: `data\Models\Tree.mdl`, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("tree"))}},
		{Name: `data\Sounds\Wind.wav`, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("wind"))}},
	})
	a := openTestArchive(t, data)

	i, ok := a.Lookup("DATA/models/tree.MDL")
	require.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = a.Lookup(`data\sounds\wind.wav`)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = a.Lookup("missing")
	assert.False(t, ok)

	var seen []string
	for _, e := range a.Entries() {
		seen = append(seen, e.Name)
	}
	assert.Equal(t, []string{`data\Models\Tree.mdl`, `data\Sounds\Wind.wav`}, seen)
}

func TestCharsetDecodesNames(t *testing.T) {
	t.Parallel()

	raw := "\xcf\xf0\xe8.txt"
	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: raw, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("x"))}},
	})

	a := openTestArchive(t, data, WithCharset(charmap.Windows1251))
	name, err := a.FileName(0)
	require.NoError(t, err)
	assert.Equal(t, "При.txt", name)

	a = openTestArchive(t, data)
	name, err = a.FileName(0)
	require.NoError(t, err)
	assert.Equal(t, raw, name)
}
