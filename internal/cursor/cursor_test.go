package cursor

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packedRecord struct {
	A uint8
	B uint32
	C [3]byte
	D float32
}

func TestFixedWidthReads(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 0, 32)
	buf = append(buf, 0x7f)
	buf = binary.LittleEndian.AppendUint16(buf, 0xABCD)
	buf = binary.LittleEndian.AppendUint32(buf, 0x12345678)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(1.5))
	buf = binary.LittleEndian.AppendUint32(buf, 0xFFFFFFFF)

	c := FromBytes(buf)

	u8, err := c.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7f), u8)

	u16, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), u16)

	u32, err := c.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	f, err := c.F32()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 0)

	i, err := c.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i)

	assert.Equal(t, int64(len(buf)), c.Tell())
	assert.Zero(t, c.Remaining())
}

func TestReadPastEndIsTruncated(t *testing.T) {
	t.Parallel()

	c := FromBytes([]byte{1, 2, 3})
	_, err := c.U32()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, int64(0), c.Tell(), "failed read must not move the cursor")

	_, err = c.ReadExact(4)
	require.ErrorIs(t, err, ErrTruncated)

	got, err := c.ReadExact(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestReadFixedIsPacked(t *testing.T) {
	t.Parallel()

	buf := []byte{0x01, 0x04, 0x03, 0x02, 0x01, 'a', 'b', 'c'}
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(-2))

	c := FromBytes(buf)
	var rec packedRecord
	require.NoError(t, c.ReadFixed(&rec))

	assert.Equal(t, uint8(1), rec.A)
	assert.Equal(t, uint32(0x01020304), rec.B)
	assert.Equal(t, [3]byte{'a', 'b', 'c'}, rec.C)
	assert.InDelta(t, -2, rec.D, 0)
	assert.Equal(t, int64(12), c.Tell(), "no padding between fields")
}

func TestReadFixedTruncated(t *testing.T) {
	t.Parallel()

	var rec packedRecord
	err := FromBytes(make([]byte, 11)).ReadFixed(&rec)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReadCString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		maxLen  int
		want    string
		wantPos int64
		wantErr bool
	}{
		{name: "terminated", data: []byte("abc\x00def"), maxLen: 16, want: "abc", wantPos: 4},
		{name: "max length", data: []byte("abcdef"), maxLen: 3, want: "abc", wantPos: 3},
		{name: "empty", data: []byte{0, 'x'}, maxLen: 8, want: "", wantPos: 1},
		{name: "unterminated", data: []byte("abc"), maxLen: 8, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := FromBytes(tt.data)
			got, err := c.ReadCString(tt.maxLen)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTruncated)
				assert.Equal(t, int64(0), c.Tell())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPos, c.Tell())
		})
	}
}

func TestReadPString(t *testing.T) {
	t.Parallel()

	c := FromBytes([]byte{3, 0, 'f', 'o', 'o', 2, 0, 'x'})
	s, err := c.ReadPString()
	require.NoError(t, err)
	assert.Equal(t, "foo", s)

	_, err = c.ReadPString()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, int64(5), c.Tell())
}

func TestSeekAndSection(t *testing.T) {
	t.Parallel()

	c := FromBytes([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, c.Seek(8))
	require.ErrorIs(t, c.Seek(9), ErrTruncated)
	require.NoError(t, c.Seek(2))

	sec, err := c.Section(4, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Tell(), "section must not move the parent")
	assert.Equal(t, int64(3), sec.Len())

	got, err := sec.ReadExact(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5, 6}, got)

	_, err = sec.U8()
	require.ErrorIs(t, err, ErrTruncated, "section is bounded")

	_, err = c.Section(6, 3)
	require.ErrorIs(t, err, ErrTruncated)

	require.NoError(t, c.Skip(6))
	require.ErrorIs(t, c.Skip(1), ErrTruncated)
}

func TestF32s(t *testing.T) {
	t.Parallel()

	var buf []byte
	for _, f := range []float32{0, 0.5, -8} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	got, err := FromBytes(buf).F32s(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, -8}, got)
}
