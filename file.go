package assetkit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/meigma/assetkit/archive"
	"github.com/meigma/assetkit/chunk"
	"github.com/meigma/assetkit/grid"
)

// FileSource wraps *os.File to implement archive.ByteSource.
// os.File has ReadAt but not Size, so the size is captured at construction.
type FileSource struct {
	file *os.File
	size int64
	id   string
}

// NewFileSource creates a FileSource from an open file.
func NewFileSource(f *os.File) (*FileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	name := f.Name()
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	return &FileSource{
		file: f,
		size: info.Size(),
		id:   "file:" + name + ":" + strconv.FormatInt(info.Size(), 10) + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10),
	}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the size of the file when it was opened.
func (fs *FileSource) Size() int64 {
	return fs.size
}

// SourceID identifies the file by absolute path, size and modification time.
func (fs *FileSource) SourceID() string {
	return fs.id
}

// ArchiveFile wraps a loaded Archive with its underlying file handle.
// Close must be called to release file resources.
type ArchiveFile struct {
	*archive.Archive
	file *os.File
}

// Close closes the underlying file.
func (af *ArchiveFile) Close() error {
	if af.file == nil {
		return nil
	}
	err := af.file.Close()
	af.file = nil
	return err
}

// OpenArchiveFile opens and loads the archive at path.
//
// The returned ArchiveFile holds the file open; call Close when done.
func OpenArchiveFile(path string, opts ...archive.Option) (*ArchiveFile, error) {
	f, err := os.Open(path) //nolint:gosec // caller-supplied archive path
	if err != nil {
		return nil, err
	}
	src, err := NewFileSource(f)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	a, err := archive.Open(src, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open %s: %w", path, err), f.Close())
	}
	if err := a.Load(); err != nil {
		return nil, errors.Join(fmt.Errorf("load %s: %w", path, err), f.Close())
	}
	return &ArchiveFile{Archive: a, file: f}, nil
}

// DecodeSceneFile reads and decodes the chunk stream at path with format f.
func DecodeSceneFile(path string, f *chunk.Format, opts ...chunk.Option) (*chunk.Scene, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied asset path
	if err != nil {
		return nil, err
	}
	scene, err := chunk.Decode(data, f, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return scene, nil
}

// DecodeGridFile reads and decodes the collision grid at path.
func DecodeGridFile(path string, opts ...grid.Option) (*grid.Grid, error) {
	f, err := os.Open(path) //nolint:gosec // caller-supplied asset path
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := NewFileSource(f)
	if err != nil {
		return nil, err
	}
	g, err := grid.DecodeFrom(src, src.Size(), opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return g, nil
}
