package assetkit

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/assetkit/archive"
	"github.com/meigma/assetkit/cache"
)

// CachedArchive wraps a loaded Archive with an entry cache.
//
// ExtractFile checks the cache before decoding and stores what it decodes.
// Concurrent misses for the same entry decode it once.
type CachedArchive struct {
	*archive.Archive
	cache    cache.Cache
	sourceID string
	group    singleflight.Group
	logger   *slog.Logger
}

// CacheOption configures a CachedArchive.
type CacheOption func(*CachedArchive)

// WithSourceID sets the identity used in cache keys. It is required when
// the archive's byte source has no SourceID method.
func WithSourceID(id string) CacheOption {
	return func(c *CachedArchive) {
		c.sourceID = id
	}
}

// WithCacheLogger sets the logger for cache write failures.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedArchive) {
		c.logger = logger
	}
}

// NewCachedArchive wraps a loaded archive with cache c.
func NewCachedArchive(a *archive.Archive, c cache.Cache, opts ...CacheOption) (*CachedArchive, error) {
	if c == nil {
		return nil, errors.New("assetkit: nil cache")
	}
	ca := &CachedArchive{Archive: a, cache: c}
	if s, ok := a.Source().(interface{ SourceID() string }); ok {
		ca.sourceID = s.SourceID()
	}
	for _, opt := range opts {
		opt(ca)
	}
	if ca.sourceID == "" {
		return nil, errors.New("assetkit: archive source has no identity; use WithSourceID")
	}
	return ca, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *CachedArchive) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Key returns the cache key of entry i.
func (c *CachedArchive) Key(i int) (digest.Digest, error) {
	e, err := c.Entry(i)
	if err != nil {
		return "", err
	}
	if e.Err != nil {
		return "", &archive.EntryError{Index: i, Name: e.Name, Err: e.Err}
	}
	return entryKey(c.sourceID, e), nil
}

func entryKey(sourceID string, e archive.Entry) digest.Digest {
	return digest.FromString(sourceID + "|" + strconv.Itoa(e.Index) + "|" + e.Name + "|" + strconv.FormatUint(uint64(e.Size), 10))
}

// ExtractFile returns the contents of entry i, from the cache when possible.
// Callers must not modify the returned slice.
func (c *CachedArchive) ExtractFile(i int) ([]byte, error) {
	key, err := c.Key(i)
	if err != nil {
		return nil, err
	}
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if data, ok := c.cache.Get(key); ok {
			return data, nil
		}
		data, err := c.Archive.ExtractFile(i)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Put(key, data); err != nil {
			c.log().Warn("cache put failed",
				slog.Int("index", i),
				slog.String("key", key.String()),
				slog.Any("error", err))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("assetkit: unexpected cache value %T", v)
	}
	return data, nil
}
