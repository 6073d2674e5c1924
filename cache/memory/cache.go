// Package memory provides an in-process LRU cache for extracted entries.
package memory

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opencontainers/go-digest"
)

// DefaultMaxEntries is the default entry limit.
const DefaultMaxEntries = 1024

// Cache is a fixed-size LRU cache of entry contents.
// The cache is safe for concurrent use.
type Cache struct {
	lru      *lru.Cache[digest.Digest, []byte]
	maxBytes int
}

// Option configures a memory cache.
type Option func(*config)

type config struct {
	maxEntries int
	maxBytes   int
}

// WithMaxEntries sets the maximum number of cached entries.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		c.maxEntries = n
	}
}

// WithMaxEntryBytes skips caching entries larger than n bytes.
// Use 0 to disable the limit.
func WithMaxEntryBytes(n int) Option {
	return func(c *config) {
		c.maxBytes = n
	}
}

// New creates an LRU cache.
func New(opts ...Option) (*Cache, error) {
	cfg := config{maxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxEntries <= 0 {
		return nil, errors.New("max entries must be > 0")
	}
	if cfg.maxBytes < 0 {
		return nil, errors.New("max entry bytes must be >= 0")
	}
	l, err := lru.New[digest.Digest, []byte](cfg.maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, maxBytes: cfg.maxBytes}, nil
}

// Get retrieves content by digest.
func (c *Cache) Get(d digest.Digest) ([]byte, bool) {
	return c.lru.Get(d)
}

// Put stores content by digest, evicting the least recently used entry
// when full. Content over the entry size limit is silently skipped.
func (c *Cache) Put(d digest.Digest, content []byte) error {
	if c.maxBytes > 0 && len(content) > c.maxBytes {
		return nil
	}
	c.lru.Add(d, content)
	return nil
}

// Delete removes the entry for d.
func (c *Cache) Delete(d digest.Digest) error {
	c.lru.Remove(d)
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
