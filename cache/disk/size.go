package disk

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// tempPrefix names in-flight writes; they are not cache entries.
const tempPrefix = "cache-"

type entryFile struct {
	path    string
	size    int64
	modTime time.Time
}

// scanEntries lists the entry files below root. A missing root is empty.
func scanEntries(root string) ([]entryFile, int64, error) {
	var (
		files []entryFile
		total int64
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		files = append(files, entryFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	return files, total, err
}

func dirSize(root string) (int64, error) {
	_, total, err := scanEntries(root)
	return total, err
}

// pruneDir removes entry files oldest first until at most targetBytes remain.
// Ties on modification time break by path so pruning is deterministic.
func pruneDir(root string, targetBytes int64) (freed, remaining int64, err error) {
	files, remaining, err := scanEntries(root)
	if err != nil {
		return 0, 0, err
	}
	targetBytes = max(targetBytes, 0)
	if remaining <= targetBytes {
		return 0, remaining, nil
	}

	slices.SortFunc(files, func(a, b entryFile) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})
	for _, f := range files {
		if remaining <= targetBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return freed, remaining, err
		}
		remaining -= f.size
		freed += f.size
	}
	return freed, remaining, nil
}
