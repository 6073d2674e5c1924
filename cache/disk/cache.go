// Package disk provides a filesystem cache for extracted entries.
//
// Entries are stored zstd-compressed, one file per digest, sharded into
// subdirectories by digest prefix. When a size limit is set, the oldest
// files are pruned to make room.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	defaultMaxDecoded     = 256 << 20
)

// Cache implements cache.Cache using the local filesystem.
// The cache is safe for concurrent use.
type Cache struct {
	dir            string       // root directory for cached files
	shardPrefixLen int          // number of hex chars for subdirectory sharding
	dirPerm        os.FileMode  // permissions for created directories
	maxBytes       int64        // maximum cache size on disk (0 = unlimited)
	maxDecoded     uint64       // maximum decoded entry size
	level          zstd.EncoderLevel
	bytes          atomic.Int64 // current total size of cached files
	pruneMu        sync.Mutex   // serializes prune operations

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Option configures a disk cache.
type Option func(*Cache)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// WithMaxBytes sets the maximum cache size in bytes, measured on disk.
// Values < 0 are invalid. Use 0 to disable the limit.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// WithMaxDecodedSize limits the size a cached entry may decompress to.
// Larger entries are treated as misses. Defaults to 256MB.
func WithMaxDecodedSize(n uint64) Option {
	return func(c *Cache) {
		c.maxDecoded = n
	}
}

// WithEncoderLevel sets the zstd compression level for stored entries.
func WithEncoderLevel(level zstd.EncoderLevel) Option {
	return func(c *Cache) {
		c.level = level
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
		maxDecoded:     defaultMaxDecoded,
		level:          zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, err
	}
	c.bytes.Store(size)

	if c.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level), zstd.WithZeroFrames(true)); err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if c.dec, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(c.maxDecoded),
	); err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return c, nil
}

// Close releases the zstd encoder and decoder.
func (c *Cache) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// Get retrieves and decompresses cached content.
// Returns nil, false if the content is not cached or cannot be decoded.
func (c *Cache) Get(d digest.Digest) ([]byte, bool) {
	path, err := c.path(d)
	if err != nil {
		return nil, false
	}
	frame, err := os.ReadFile(path) //nolint:gosec // path is derived from digest, not user input
	if err != nil {
		return nil, false
	}
	data, err := c.dec.DecodeAll(frame, nil)
	if err != nil {
		return nil, false
	}
	if data == nil {
		data = []byte{}
	}
	return data, true
}

// Put compresses and stores content.
func (c *Cache) Put(d digest.Digest, content []byte) error {
	path, err := c.path(d)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if mkdirErr := os.MkdirAll(dir, c.dirPerm); mkdirErr != nil {
		return mkdirErr
	}

	frame := c.enc.EncodeAll(content, nil)
	written := int64(len(frame))
	if ok, err := c.ensureCapacity(written); err != nil {
		return err
	} else if !ok {
		return nil
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(frame); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return err
	}
	c.bytes.Add(written)
	return nil
}

// Delete removes cached content for the given digest.
func (c *Cache) Delete(d digest.Digest) error {
	path, err := c.path(d)
	if err != nil {
		return err
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return nil
		}
		return statErr
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	c.bytes.Add(-info.Size())
	return nil
}

// MaxBytes returns the configured cache size limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the current cache size on disk in bytes.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Prune removes the oldest cached entries until the cache is at or below
// targetBytes. It returns the number of bytes freed.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		targetBytes = 0
	}
	c.pruneMu.Lock()
	defer c.pruneMu.Unlock()

	freed, remaining, err := pruneDir(c.dir, targetBytes)
	if err != nil {
		return 0, err
	}
	c.bytes.Store(remaining)
	return freed, nil
}

func (c *Cache) path(d digest.Digest) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	name := d.Encoded()
	if c.shardPrefixLen <= 0 {
		return filepath.Join(c.dir, d.Algorithm().String(), name), nil
	}
	prefixLen := min(c.shardPrefixLen, len(name))
	return filepath.Join(c.dir, d.Algorithm().String(), name[:prefixLen], name), nil
}

func (c *Cache) ensureCapacity(need int64) (bool, error) {
	if c.maxBytes <= 0 {
		return true, nil
	}
	if need > c.maxBytes {
		return false, nil
	}
	if c.SizeBytes()+need <= c.maxBytes {
		return true, nil
	}
	if _, err := c.Prune(c.maxBytes - need); err != nil {
		return false, err
	}
	return c.SizeBytes()+need <= c.maxBytes, nil
}
