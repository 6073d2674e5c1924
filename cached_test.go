package assetkit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit/archive"
	"github.com/meigma/assetkit/cache/memory"
	"github.com/meigma/assetkit/internal/testutil"
)

// countingByteSource counts ReadAt calls against the wrapped source.
type countingByteSource struct {
	source *testutil.MockByteSource
	reads  atomic.Int64
}

func (c *countingByteSource) ReadAt(p []byte, off int64) (int, error) {
	c.reads.Add(1)
	return c.source.ReadAt(p, off)
}

func (c *countingByteSource) Size() int64 {
	return c.source.Size()
}

func newCachedTestArchive(t *testing.T, opts ...CacheOption) (*CachedArchive, *countingByteSource, *testutil.MockCache) {
	t.Helper()
	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "a.txt", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("alpha"))}},
		{Name: "b.txt", Blocks: []testutil.ArchiveBlock{testutil.LZBlock([]byte("bravo bravo bravo"))}},
		{Name: "broken.txt", Size: 99, Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("x"))}},
	})
	src := &countingByteSource{source: testutil.NewMockByteSource(data)}
	a, err := archive.Open(src, archive.WithKeys(testKeys.K1, testKeys.K2))
	require.NoError(t, err)
	require.NoError(t, a.Load())

	mc := testutil.NewMockCache()
	opts = append([]CacheOption{WithSourceID(src.source.SourceID())}, opts...)
	ca, err := NewCachedArchive(a, mc, opts...)
	require.NoError(t, err)
	return ca, src, mc
}

func TestCachedArchiveHitSkipsSource(t *testing.T) {
	t.Parallel()

	ca, src, mc := newCachedTestArchive(t)

	got, err := ca.ExtractFile(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("bravo bravo bravo"), got)
	assert.Equal(t, 1, mc.Len())

	before := src.reads.Load()
	got, err = ca.ExtractFile(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("bravo bravo bravo"), got)
	assert.Equal(t, before, src.reads.Load(), "cache hit must not read the archive")

	key, err := ca.Key(1)
	require.NoError(t, err)
	cached, ok := mc.Get(key)
	require.True(t, ok)
	assert.Equal(t, got, cached)
}

func TestCachedArchiveKeysAreDistinct(t *testing.T) {
	t.Parallel()

	ca, _, _ := newCachedTestArchive(t)
	k0, err := ca.Key(0)
	require.NoError(t, err)
	k1, err := ca.Key(1)
	require.NoError(t, err)
	assert.NotEqual(t, k0, k1)
	require.NoError(t, k0.Validate())

	other, _, _ := newCachedTestArchive(t, WithSourceID("other archive"))
	k0other, err := other.Key(0)
	require.NoError(t, err)
	assert.NotEqual(t, k0, k0other)
}

func TestCachedArchiveErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	ca, _, mc := newCachedTestArchive(t)
	_, err := ca.ExtractFile(2)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	require.ErrorIs(t, err, ErrCorruptStream)
	assert.Zero(t, mc.Len())

	_, err = ca.ExtractFile(9)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestCachedArchiveSingleflight(t *testing.T) {
	t.Parallel()

	ca, _, mc := newCachedTestArchive(t)

	const numGoroutines = 10
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			data, err := ca.ExtractFile(0)
			if err != nil {
				errs <- err
				return
			}
			if string(data) != "alpha" {
				errs <- assert.AnError
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	_, puts := mc.Stats()
	assert.Equal(t, 1, puts, "entry must be decoded and stored once")
}

func TestNewCachedArchiveRequiresIdentity(t *testing.T) {
	t.Parallel()

	data := testutil.BuildArchive(t, testKeys, []testutil.ArchiveEntry{
		{Name: "a", Blocks: []testutil.ArchiveBlock{testutil.StoredBlock([]byte("a"))}},
	})
	src := &countingByteSource{source: testutil.NewMockByteSource(data)}
	a, err := archive.Open(src, archive.WithKeys(testKeys.K1, testKeys.K2))
	require.NoError(t, err)
	require.NoError(t, a.Load())

	_, err = NewCachedArchive(a, testutil.NewMockCache())
	require.Error(t, err)
	_, err = NewCachedArchive(a, nil, WithSourceID("x"))
	require.Error(t, err)

	mem, err := memory.New()
	require.NoError(t, err)

	withID, err := archive.Open(testutil.NewMockByteSource(data), archive.WithKeys(testKeys.K1, testKeys.K2))
	require.NoError(t, err)
	require.NoError(t, withID.Load())
	ca, err := NewCachedArchive(withID, mem)
	require.NoError(t, err, "MockByteSource provides a SourceID")
	got, err := ca.ExtractFile(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
	assert.Equal(t, 1, mem.Len())
}
