// Package testutil builds synthetic archives, chunk streams and collision
// grids for tests.
package testutil

import (
	"io"
	"sync"

	"github.com/opencontainers/go-digest"
)

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data     []byte
	sourceID string
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{
		data:     data,
		sourceID: "mock:" + digest.FromBytes(data).Encoded(),
	}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// SourceID returns a stable identifier for the source data.
func (m *MockByteSource) SourceID() string {
	return m.sourceID
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockByteSource) Bytes() []byte {
	return m.data
}

// MockCache implements a basic concurrency-safe cache for tests.
// It counts Get and Put calls so tests can assert hits and misses.
type MockCache struct {
	mu   sync.RWMutex
	data map[digest.Digest][]byte
	gets int
	puts int
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[digest.Digest][]byte)}
}

// Get retrieves data by digest.
func (c *MockCache) Get(d digest.Digest) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	data, ok := c.data[d]
	return data, ok
}

// Put stores data by digest.
func (c *MockCache) Put(d digest.Digest, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.data[d] = content
	return nil
}

// Delete removes data by digest.
func (c *MockCache) Delete(d digest.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, d)
	return nil
}

// Stats returns the number of Get and Put calls so far.
func (c *MockCache) Stats() (gets, puts int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gets, c.puts
}

// Len returns the number of stored entries.
func (c *MockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
