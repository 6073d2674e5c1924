// Package cache stores extracted archive entries across calls.
//
// Entries are keyed by a digest of where they came from (source, index,
// name and size), so a hit never needs to touch the archive again. The
// decoders themselves never cache; callers opt in by wrapping an archive
// in assetkit.CachedArchive.
package cache

import (
	"errors"

	"github.com/opencontainers/go-digest"
)

// Cache stores entry contents by digest.
//
// Implementations handle their own size limits and eviction policies and
// must be safe for concurrent use.
type Cache interface {
	// Get retrieves content by digest.
	// Returns nil, false if the content is not cached.
	Get(d digest.Digest) ([]byte, bool)

	// Put stores content under digest d. Callers must not modify content
	// after Put returns.
	Put(d digest.Digest, content []byte) error

	// Delete removes the entry for d. Deleting a missing entry is not an error.
	Delete(d digest.Digest) error
}

// Tiered checks a fast cache before a slow one and promotes slow hits.
// Writes go to both tiers.
type Tiered struct {
	Fast Cache
	Slow Cache
}

var _ Cache = (*Tiered)(nil)

// NewTiered returns a cache that consults fast before slow.
func NewTiered(fast, slow Cache) *Tiered {
	return &Tiered{Fast: fast, Slow: slow}
}

// Get returns content from the fast tier, or from the slow tier after
// copying it into the fast tier.
func (t *Tiered) Get(d digest.Digest) ([]byte, bool) {
	if data, ok := t.Fast.Get(d); ok {
		return data, true
	}
	data, ok := t.Slow.Get(d)
	if !ok {
		return nil, false
	}
	_ = t.Fast.Put(d, data)
	return data, true
}

// Put stores content in both tiers.
func (t *Tiered) Put(d digest.Digest, content []byte) error {
	return errors.Join(t.Fast.Put(d, content), t.Slow.Put(d, content))
}

// Delete removes content from both tiers.
func (t *Tiered) Delete(d digest.Digest) error {
	return errors.Join(t.Fast.Delete(d), t.Slow.Delete(d))
}
