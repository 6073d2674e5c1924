package assetkit

import (
	"fmt"
	"io/fs"
	"strings"
)

// EntryPath converts an archive entry name to a slash-separated relative
// path suitable for fs.FS and for joining under an extraction directory.
//
// Backslashes become slashes, and leading, trailing and repeated separators
// are dropped. Names that would escape the destination, such as those with
// ".." elements, are rejected with an error wrapping fs.ErrInvalid.
func EntryPath(name string) (string, error) {
	p := strings.ReplaceAll(name, `\`, "/")
	p = strings.Trim(p, "/")

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	p = strings.Join(result, "/")
	if p == "" || !fs.ValidPath(p) || strings.Contains(p, ":") {
		return "", fmt.Errorf("entry name %q: %w", name, fs.ErrInvalid)
	}
	return p, nil
}
