// Package sink writes extracted entries to a directory tree.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists is returned by Write when the destination exists and
// overwriting is disabled.
var ErrExists = errors.New("sink: destination exists")

// FileSink writes entries below a destination directory with atomic writes.
//
// Content is written to a temporary file in the destination's directory and
// renamed into place, so a partially written file is never visible at the
// final path.
type FileSink struct {
	destDir   string
	overwrite bool
	dirPerm   fs.FileMode
	filePerm  fs.FileMode
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithOverwrite allows replacing existing files.
// By default, existing files are left alone and Write returns ErrExists.
func WithOverwrite(overwrite bool) Option {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithPerm sets the modes of created directories and files.
func WithPerm(dir, file fs.FileMode) Option {
	return func(s *FileSink) {
		s.dirPerm = dir
		s.filePerm = file
	}
}

// New creates a FileSink that writes below destDir.
func New(destDir string, opts ...Option) *FileSink {
	s := &FileSink{
		destDir:  destDir,
		dirPerm:  0o755,
		filePerm: 0o644,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the destination of a slash-separated relative name.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.destDir, filepath.FromSlash(name))
}

// Write stores data at the slash-separated relative name.
// The name must already be validated with fs.ValidPath semantics.
func (s *FileSink) Write(name string, data []byte) error {
	if !fs.ValidPath(name) || name == "." {
		return fmt.Errorf("sink %q: %w", name, fs.ErrInvalid)
	}
	dest := s.Path(name)
	if !s.overwrite {
		if _, err := os.Lstat(dest); err == nil {
			return fmt.Errorf("%s: %w", dest, ErrExists)
		}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".assetkit-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()         //nolint:errcheck // cleaning up
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, s.filePerm); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", dest, err)
	}
	return nil
}
